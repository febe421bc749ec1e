// Package logger provides the structured logger used across docportal.
//
// A Logger writes human-readable lines to the console and, when a file is
// configured, JSON lines to a size-rotated log file. Verbose mode lowers the
// console level from warn to debug so users can follow the ingestion and
// retrieval pipeline. Loggers are values passed to constructors; there is no
// package-level state.
package logger

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures a Logger.
type Options struct {
	// Verbose enables debug output on the console.
	Verbose bool

	// File is the JSON log file path. Empty disables file logging.
	File string

	// Console is the console destination. Defaults to os.Stderr.
	Console io.Writer
}

// Logger is a printf-style wrapper over zap.
// A nil *Logger discards everything.
type Logger struct {
	sugar   *zap.SugaredLogger
	verbose bool
}

// New creates a logger from options.
func New(opts Options) *Logger {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	consoleLevel := zap.WarnLevel
	if opts.Verbose {
		consoleLevel = zap.DebugLevel
	}

	cores := []zapcore.Core{
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			zapcore.Lock(zapcore.AddSync(console)),
			consoleLevel,
		),
	}

	if opts.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // Megabytes
			MaxBackups: 5,
			MaxAge:     30, // Days
			Compress:   true,
		}

		encoderConfig := zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoderConfig.MessageKey = "message"
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig),
			zapcore.AddSync(rotator),
			zap.DebugLevel,
		))
	}

	z := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
	return &Logger{sugar: z.Sugar(), verbose: opts.Verbose}
}

// NewWithWriter creates a console-only logger writing to w.
func NewWithWriter(w io.Writer, verbose bool) *Logger {
	return New(Options{Verbose: verbose, Console: w})
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{sugar: zap.NewNop().Sugar()}
}

// IsVerbose returns true if debug output is enabled.
func (l *Logger) IsVerbose() bool {
	return l != nil && l.verbose
}

// With returns a child logger that adds a field to every entry.
func (l *Logger) With(key string, value any) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{sugar: l.sugar.With(key, value), verbose: l.verbose}
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...any) {
	if l != nil {
		l.sugar.Debugf(format, args...)
	}
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...any) {
	if l != nil {
		l.sugar.Infof(format, args...)
	}
}

// Warn logs a warning.
func (l *Logger) Warn(format string, args ...any) {
	if l != nil {
		l.sugar.Warnf(format, args...)
	}
}

// Error logs an error.
func (l *Logger) Error(format string, args ...any) {
	if l != nil {
		l.sugar.Errorf(format, args...)
	}
}

// Section logs a section header at debug level.
func (l *Logger) Section(name string) {
	if l != nil {
		l.sugar.Debug(fmt.Sprintf("=== %s ===", name))
	}
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	if l == nil {
		return nil
	}
	return l.sugar.Sync()
}
