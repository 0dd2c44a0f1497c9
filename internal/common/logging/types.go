// Package logging is the structured logger of the newsletter gate: a small
// Logger interface over zap, a process-wide logger and request correlation
// through the context.
package logging

import (
	"context"
	"sync"
)

// Field is one key-value pair attached to a log line
type Field struct {
	Key   string
	Value interface{}
}

// Logger is what components log through
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, err error, fields ...Field)
	WithFields(fields ...Field) Logger
	WithContext(ctx context.Context) Logger
}

type contextKey int

const (
	requestIDKey contextKey = iota
	userKey
)

// ContextWithRequestID stores a request id that WithContext will attach to log lines
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the request id stored by ContextWithRequestID
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// ContextWithUser stores the authenticated admin name for log correlation
func ContextWithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userKey, user)
}

var (
	globalLogger Logger
	globalMu     sync.RWMutex
	initOnce     sync.Once
)

// SetGlobalLogger replaces the process-wide logger
func SetGlobalLogger(logger Logger) {
	initOnce.Do(func() {})
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = logger
}

// GetGlobalLogger returns the process-wide logger, a stdout logger at info
// until InitGlobalLogger runs.
func GetGlobalLogger() Logger {
	initOnce.Do(func() { globalLogger = newStdoutLogger() })
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

func Debug(msg string, fields ...Field) {
	GetGlobalLogger().Debug(msg, fields...)
}

func Info(msg string, fields ...Field) {
	GetGlobalLogger().Info(msg, fields...)
}

func Warn(msg string, fields ...Field) {
	GetGlobalLogger().Warn(msg, fields...)
}

func Error(msg string, err error, fields ...Field) {
	GetGlobalLogger().Error(msg, err, fields...)
}

// WithContext returns the global logger tagged with the request found in ctx
func WithContext(ctx context.Context) Logger {
	return GetGlobalLogger().WithContext(ctx)
}
