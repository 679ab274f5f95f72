// Package logging provides a simple leveled logger backed by zap.
package logging

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ParseLevel parses a log level string. Unknown strings default to info.
func ParseLevel(s string) zapcore.Level {
	switch s {
	case "debug", "DEBUG":
		return zapcore.DebugLevel
	case "info", "INFO":
		return zapcore.InfoLevel
	case "warn", "WARN", "warning", "WARNING":
		return zapcore.WarnLevel
	case "error", "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// New creates a console logger writing to stderr at the given level.
// The sugared form is used throughout since call sites are printf-style.
func New(level zapcore.Level) *zap.SugaredLogger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableStacktrace = true
	logger, err := cfg.Build()
	if err != nil {
		// Development config cannot fail to build; fall back anyway.
		return zap.NewNop().Sugar()
	}
	return logger.Sugar()
}

// NewWriter creates a logger writing to an arbitrary sink, used by the
// stdio server where stderr is reserved for protocol diagnostics.
func NewWriter(w io.Writer, level zapcore.Level) *zap.SugaredLogger {
	enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	core := zapcore.NewCore(enc, zapcore.AddSync(w), level)
	return zap.New(core).Sugar()
}

// Discard returns a logger that drops all output.
func Discard() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
