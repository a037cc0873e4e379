// Package logger provides leveled logging for pocfinder.
// Console output is gated by the --verbose flag (errors always print);
// an optional rotating JSON file sink records everything at info and above.
package logger

import (
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
	file    *lumberjack.Logger
	sugar   = build()
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the console writer. Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	sugar = build()
}

// SetFile adds a rotating JSON log file. An empty path removes it.
func SetFile(path string) {
	mu.Lock()
	defer mu.Unlock()
	if file != nil {
		_ = file.Close()
		file = nil
	}
	if path != "" {
		file = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
	}
	sugar = build()
}

// Sync flushes buffered entries.
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	return sugar.Sync()
}

// Debug logs a debug message when verbose mode is enabled.
func Debug(format string, args ...any) {
	get().Debugf(format, args...)
}

// Section logs a section header when verbose mode is enabled.
func Section(name string) {
	get().Infof("=== %s ===", name)
}

// Info logs an informational message.
func Info(format string, args ...any) {
	get().Infof(format, args...)
}

// Warn logs a warning.
func Warn(format string, args ...any) {
	get().Warnf(format, args...)
}

// Error logs an error. Errors reach the console even when not verbose.
func Error(format string, args ...any) {
	get().Errorf(format, args...)
}

func get() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

// consoleEnabled gates console output on verbose; errors always pass.
func consoleEnabled(l zapcore.Level) bool {
	if l >= zapcore.ErrorLevel {
		return true
	}
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// build assembles the zap core tree. Callers hold mu or run at init.
func build() *zap.SugaredLogger {
	consoleCfg := zapcore.EncoderConfig{
		LevelKey:         "level",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      bracketLevel,
		ConsoleSeparator: " ",
	}
	cores := []zapcore.Core{
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(consoleCfg),
			zapcore.Lock(zapcore.AddSync(output)),
			zap.LevelEnablerFunc(consoleEnabled),
		),
	}

	if file != nil {
		fileCfg := zap.NewProductionEncoderConfig()
		fileCfg.TimeKey = "timestamp"
		fileCfg.MessageKey = "message"
		fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		fileCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(fileCfg),
			zapcore.AddSync(file),
			zapcore.InfoLevel,
		))
	}

	return zap.New(zapcore.NewTee(cores...)).Sugar()
}

func bracketLevel(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString("[" + l.CapitalString() + "]")
}
