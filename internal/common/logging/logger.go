package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap/zapcore"
)

// ParseLevel reads LOG_LEVEL values. "warning" is accepted for warn and
// anything unknown logs at info.
func ParseLevel(value string) zapcore.Level {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "warning" {
		value = "warn"
	}
	level, err := zapcore.ParseLevel(value)
	if err != nil || level > zapcore.ErrorLevel {
		return zapcore.InfoLevel
	}
	return level
}

func newStdoutLogger() Logger {
	return NewZapLogger(LogConfig{Level: ParseLevel(os.Getenv("LOG_LEVEL"))})
}

// InitGlobalLogger installs the global logger from LOG_LEVEL and LOG_FILE.
// Without LOG_FILE the logger writes to stdout.
func InitGlobalLogger() {
	level := ParseLevel(os.Getenv("LOG_LEVEL"))

	var output io.Writer = os.Stdout
	logFile := os.Getenv("LOG_FILE")
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			panic(fmt.Sprintf("failed to open log file %s: %v", logFile, err))
		}
		output = file
	}

	logger := NewZapLogger(LogConfig{Level: level, Output: output})
	SetGlobalLogger(logger)

	logger.Info("Logger initialized",
		String("level", level.String()),
		String("log_file", logFile),
	)
}

// MustSync flushes buffered entries of the global logger before exit
func MustSync() {
	if zapLogger, ok := GetGlobalLogger().(*ZapAdapter); ok {
		_ = zapLogger.Sync()
	}
}
