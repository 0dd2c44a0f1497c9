package logging

import (
	"context"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig selects the level and destination of a zap logger.
// A nil Output writes to stdout.
type LogConfig struct {
	Level  zapcore.Level
	Output io.Writer
}

// ZapAdapter implements Logger on a zap.Logger
type ZapAdapter struct {
	logger *zap.Logger
}

// NewZapLogger builds a console-encoded zap logger
func NewZapLogger(config LogConfig) *ZapAdapter {
	encoder := zap.NewProductionEncoderConfig()
	encoder.TimeKey = "time"
	encoder.CallerKey = zapcore.OmitKey
	encoder.EncodeLevel = zapcore.CapitalLevelEncoder
	encoder.EncodeTime = zapcore.RFC3339TimeEncoder
	encoder.EncodeDuration = zapcore.MillisDurationEncoder

	var output io.Writer = os.Stdout
	if config.Output != nil {
		output = config.Output
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoder), zapcore.AddSync(output), config.Level)
	return &ZapAdapter{logger: zap.New(core)}
}

func (z *ZapAdapter) Debug(msg string, fields ...Field) {
	z.logger.Debug(msg, zapFields(fields)...)
}

func (z *ZapAdapter) Info(msg string, fields ...Field) {
	z.logger.Info(msg, zapFields(fields)...)
}

func (z *ZapAdapter) Warn(msg string, fields ...Field) {
	z.logger.Warn(msg, zapFields(fields)...)
}

// Error logs at error level; err may be nil
func (z *ZapAdapter) Error(msg string, err error, fields ...Field) {
	zf := zapFields(fields)
	if err != nil {
		zf = append(zf, zap.Error(err))
	}
	z.logger.Error(msg, zf...)
}

func (z *ZapAdapter) WithFields(fields ...Field) Logger {
	if len(fields) == 0 {
		return z
	}
	return &ZapAdapter{logger: z.logger.With(zapFields(fields)...)}
}

// WithContext tags lines with the request id and admin user found in ctx
func (z *ZapAdapter) WithContext(ctx context.Context) Logger {
	if ctx == nil {
		return z
	}

	var fields []zap.Field
	if requestID := RequestIDFromContext(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if user, _ := ctx.Value(userKey).(string); user != "" {
		fields = append(fields, zap.String("user", user))
	}

	if len(fields) == 0 {
		return z
	}
	return &ZapAdapter{logger: z.logger.With(fields...)}
}

func (z *ZapAdapter) Sync() error {
	return z.logger.Sync()
}

func zapFields(fields []Field) []zap.Field {
	out := make([]zap.Field, len(fields))
	for i, f := range fields {
		out[i] = zap.Any(f.Key, f.Value)
	}
	return out
}

func String(key, value string) Field { return Field{Key: key, Value: value} }

func Strings(key string, values []string) Field { return Field{Key: key, Value: values} }

func Int(key string, value int) Field { return Field{Key: key, Value: value} }

func Int64(key string, value int64) Field { return Field{Key: key, Value: value} }

func Duration(key string, value time.Duration) Field { return Field{Key: key, Value: value} }

func Any(key string, value interface{}) Field { return Field{Key: key, Value: value} }

// Err is the error field, always under "error"
func Err(err error) Field { return Field{Key: "error", Value: err} }
