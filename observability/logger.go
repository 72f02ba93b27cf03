package observability

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	*zap.SugaredLogger
}

// NewLogger builds a console logger writing to stderr at the given level
func NewLogger(level string) (*Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	cfg.DisableStacktrace = true
	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return &Logger{l.Sugar()}, nil
}

// Wrap adapts an existing zap logger (tests use an observer core)
func Wrap(l *zap.Logger) *Logger { return &Logger{l.Sugar()} }

func NewNop() *Logger { return &Logger{zap.NewNop().Sugar()} }

func (l *Logger) Named(name string) *Logger { return &Logger{l.SugaredLogger.Named(name)} }

func (l *Logger) With(args ...interface{}) *Logger { return &Logger{l.SugaredLogger.With(args...)} }

func (l *Logger) Sync() error { return l.SugaredLogger.Sync() }
