// Package logger builds the zap logger used across the service.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the logger. File output is enabled when File is set.
type Options struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// ParseLevel maps a level name to a zap level. Unknown names mean info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// New returns a JSON logger writing to stdout and, optionally, to a rotated file.
// The returned level can be changed at runtime.
func New(opts Options) (*zap.Logger, zap.AtomicLevel, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder

	level := zap.NewAtomicLevelAt(ParseLevel(opts.Level))
	enc := zapcore.NewJSONEncoder(encoderConfig)

	cores := []zapcore.Core{
		zapcore.NewCore(enc, zapcore.Lock(os.Stdout), level),
	}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, level, fmt.Errorf("create log directory: %w", err)
		}
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(rotating(opts)), level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), level, nil
}

func rotating(opts Options) *lumberjack.Logger {
	lw := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    100,
		MaxBackups: 7,
		MaxAge:     14,
		Compress:   opts.Compress,
	}
	if opts.MaxSizeMB > 0 {
		lw.MaxSize = opts.MaxSizeMB
	}
	if opts.MaxBackups > 0 {
		lw.MaxBackups = opts.MaxBackups
	}
	if opts.MaxAgeDays > 0 {
		lw.MaxAge = opts.MaxAgeDays
	}
	return lw
}
