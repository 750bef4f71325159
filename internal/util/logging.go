// Package util provides the process logger and small shared helpers.
package util

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	loggerMu sync.RWMutex
	logger   = newConsoleLogger(zapcore.InfoLevel)
)

// ConfigureLogging rebuilds the process logger. When logFile is set, entries are
// also written to that file as JSON.
func ConfigureLogging(verbose bool, logFile string) error {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	cores := []zapcore.Core{consoleCore(level)}
	if logFile != "" {
		if dir := filepath.Dir(logFile); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(f), level))
	}
	l := zap.New(zapcore.NewTee(cores...)).Sugar()
	loggerMu.Lock()
	prev := logger
	logger = l
	loggerMu.Unlock()
	_ = prev.Sync()
	return nil
}

// SyncLogging flushes buffered log entries.
func SyncLogging() {
	_ = current().Sync()
}

// Debugf logs a debug message.
func Debugf(format string, args ...any) {
	current().Debugf(format, args...)
}

// Infof logs an info message.
func Infof(format string, args ...any) {
	current().Infof(format, args...)
}

// Warnf logs a warning message.
func Warnf(format string, args ...any) {
	current().Warnf(format, args...)
}

// Errorf logs an error message.
func Errorf(format string, args ...any) {
	current().Errorf(format, args...)
}

// Highlightf logs a highlighted message.
func Highlightf(format string, args ...any) {
	current().With("note", true).Infof(format, args...)
}

func current() *zap.SugaredLogger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}

func newConsoleLogger(level zapcore.Level) *zap.SugaredLogger {
	return zap.New(consoleCore(level)).Sugar()
}

func consoleCore(level zapcore.Level) zapcore.Core {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006/01/02 15:04:05.000000")
	return zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stdout), level)
}
