package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/palemoky/impostor-party/internal/config"
)

var current atomic.Pointer[zap.SugaredLogger]

func init() {
	current.Store(zap.NewNop().Sugar())
}

// Init initializes the process logger
func Init(cfg config.LogConfig) error {
	var zc zap.Config
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		zc.OutputPaths = append(zc.OutputPaths, cfg.File)
	}

	l, err := zc.Build(zap.AddCallerSkip(1))
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	Set(l)
	LogInfo("Logger initialized, level=%s file=%s", cfg.Level, cfg.File)
	return nil
}

// Set replaces the process logger
func Set(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	current.Store(l.Sugar())
}

// L returns the underlying sugared logger
func L() *zap.SugaredLogger {
	return current.Load()
}

// Close flushes buffered log entries
func Close() {
	_ = current.Load().Sync()
}

// LogDebug logs a debug message
func LogDebug(format string, args ...any) {
	current.Load().Debugf(format, args...)
}

// LogInfo logs an info message
func LogInfo(format string, args ...any) {
	current.Load().Infof(format, args...)
}

// LogWarn logs a warning message
func LogWarn(format string, args ...any) {
	current.Load().Warnf(format, args...)
}

// LogError logs an error message
func LogError(format string, args ...any) {
	current.Load().Errorf(format, args...)
}

// LogPanic logs a recovered panic with stack trace
func LogPanic(r any) {
	current.Load().Errorw("recovered panic", "panic", r, "stack", string(debug.Stack()))
}
