// Package logger is the structured logging surface shared by the tools, the
// HTTP API and the Zeebe workers. Fields are passed as maps and rendered by
// zap.
package logger

import (
	"sort"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	// With returns a child logger that adds fields to every entry.
	With(fields map[string]interface{}) Logger
	WithError(err error) Logger
}

// New builds the process logger from logging.level, logging.format and
// logging.output. Format "json" selects zap's production encoder; anything
// else is the console encoder. Unknown levels fall back to info, and with no
// outputs zap writes to stderr.
func New(level, format string, outputs ...string) *zap.Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewDevelopmentConfig()
	if format == "json" {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	var paths []string
	for _, o := range outputs {
		if o != "" {
			paths = append(paths, o)
		}
	}
	if len(paths) > 0 {
		cfg.OutputPaths = paths
	}

	l, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

type zapLogger struct {
	z *zap.Logger
}

// NewZapAdapter exposes z through Logger.
func NewZapAdapter(z *zap.Logger) Logger {
	return &zapLogger{z: z}
}

// NewTestLogger routes entries to t.Log.
func NewTestLogger(t testing.TB) Logger {
	return &zapLogger{z: zaptest.NewLogger(t)}
}

func NewNoOpLogger() Logger {
	return &zapLogger{z: zap.NewNop()}
}

func (l *zapLogger) Debug(msg string, fields map[string]interface{}) {
	l.z.Debug(msg, zapFields(fields)...)
}

func (l *zapLogger) Info(msg string, fields map[string]interface{}) {
	l.z.Info(msg, zapFields(fields)...)
}

func (l *zapLogger) Warn(msg string, fields map[string]interface{}) {
	l.z.Warn(msg, zapFields(fields)...)
}

func (l *zapLogger) Error(msg string, fields map[string]interface{}) {
	l.z.Error(msg, zapFields(fields)...)
}

func (l *zapLogger) With(fields map[string]interface{}) Logger {
	return &zapLogger{z: l.z.With(zapFields(fields)...)}
}

func (l *zapLogger) WithError(err error) Logger {
	return &zapLogger{z: l.z.With(zap.Error(err))}
}

// zapFields renders fields in key order; error values keep their key.
func zapFields(fields map[string]interface{}) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		if err, ok := fields[k].(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, fields[k]))
	}
	return out
}
