// Package logger builds the zap loggers used by the command line tool and the
// cloud function.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewNoopLogger returns a logger that discards everything.
func NewNoopLogger() *zap.Logger {
	return zap.NewNop()
}

// NewLogger builds a logger writing to stderr. logFormat is "text" or
// "json"; logLevel is one of none, debug, info, warn, error.
func NewLogger(logFormat, logLevel string) (*zap.Logger, error) {
	if logLevel == "none" {
		return NewNoopLogger(), nil
	}

	var level zapcore.Level
	switch logLevel {
	case "debug":
		level = zap.DebugLevel
	case "info":
		level = zap.InfoLevel
	case "warn":
		level = zap.WarnLevel
	case "error":
		level = zap.ErrorLevel
	default:
		return nil, fmt.Errorf("unknown log level: %s", logLevel)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.CallerKey = ""
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	switch logFormat {
	case "json":
	case "text":
		cfg.Encoding = "console"
		cfg.DisableCaller = true
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("unknown log format: %s", logFormat)
	}

	return cfg.Build()
}

func MustNewLogger(logFormat, logLevel string) *zap.Logger {
	logger, err := NewLogger(logFormat, logLevel)
	if err != nil {
		panic(err)
	}
	return logger
}
