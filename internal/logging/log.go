package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelOff // Disables all logging
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelOff:
		return "OFF"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel parses a string into a LogLevel, defaulting to INFO.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "INFO":
		return LevelInfo
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	case "OFF":
		return LevelOff
	default:
		return LevelInfo
	}
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Options selects encoding and destination. An empty File logs to stderr.
type Options struct {
	Level  LogLevel
	Format string // "json" or "console"
	File   string
}

var (
	mu           sync.RWMutex
	currentLevel = LevelOff
	logger       = zap.NewNop()
	sugar        = logger.Sugar()
)

// Setup configures the package logger. LevelOff installs a no-op logger.
func Setup(opts Options) error {
	if opts.Level == LevelOff {
		replace(LevelOff, zap.NewNop())
		return nil
	}

	output := "stderr"
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		output = opts.File
	}

	var cfg zap.Config
	if opts.Format == "json" {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "time"
		cfg.EncoderConfig.MessageKey = "message"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.Sampling = nil
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		if opts.File != "" {
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		}
		cfg.DisableStacktrace = true
	}
	cfg.Level = zap.NewAtomicLevelAt(opts.Level.zapLevel())
	cfg.OutputPaths = []string{output}
	cfg.ErrorOutputPaths = []string{"stderr"}

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	replace(opts.Level, l.Named("newsd"))
	return nil
}

func replace(level LogLevel, l *zap.Logger) {
	mu.Lock()
	old := logger
	currentLevel = level
	logger = l
	sugar = l.Sugar()
	mu.Unlock()
	_ = old.Sync()
}

// GetLevel returns the current logging level
func GetLevel() LogLevel {
	mu.RLock()
	defer mu.RUnlock()
	return currentLevel
}

// Logger returns the underlying zap logger, for callers that want typed fields.
func Logger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger.WithOptions(zap.AddCallerSkip(-1))
}

// Close flushes pending entries and disables logging until the next Setup.
func Close() error {
	mu.RLock()
	l := logger
	mu.RUnlock()
	err := l.Sync()
	replace(LevelOff, zap.NewNop())
	if err != nil && !isIgnorableSyncErr(err) {
		return err
	}
	return nil
}

// isIgnorableSyncErr filters the EINVAL/ENOTTY zap reports when syncing a
// terminal or pipe.
func isIgnorableSyncErr(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "invalid argument") || strings.Contains(msg, "inappropriate ioctl")
}

// Sync flushes buffered entries.
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	return logger.Sync()
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

func Debugf(format string, args ...any) {
	current().Debugf(format, args...)
}

func Infof(format string, args ...any) {
	current().Infof(format, args...)
}

func Warnf(format string, args ...any) {
	current().Warnf(format, args...)
}

func Errorf(format string, args ...any) {
	current().Errorf(format, args...)
}

// FieldLogger carries structured key-value context.
type FieldLogger struct {
	fields []any
}

// WithFields returns a logger that attaches fields to every entry.
func WithFields(fields map[string]any) *FieldLogger {
	kv := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		kv = append(kv, k, v)
	}
	return &FieldLogger{fields: kv}
}

func (fl *FieldLogger) Debugf(format string, args ...any) {
	current().With(fl.fields...).Debugf(format, args...)
}

func (fl *FieldLogger) Infof(format string, args ...any) {
	current().With(fl.fields...).Infof(format, args...)
}

func (fl *FieldLogger) Warnf(format string, args ...any) {
	current().With(fl.fields...).Warnf(format, args...)
}

func (fl *FieldLogger) Errorf(format string, args ...any) {
	current().With(fl.fields...).Errorf(format, args...)
}
