// Package logger provides the leveled console logger used by the expunge job.
//
// The logger is built on log/slog with a line handler that prints one
// message per line in the form
//
//	[ INFO] Beginning Dovecot Expunge
//	[DEBUG] Expunging user@example.com - INBOX : 30
//
// Structured key/value pairs, when given, follow the message as key=value.
//
// # Initialization
//
// The level is fixed when the logger is constructed and never changes:
//
//	log, err := logger.Initialize(config.LoggingConfig{Level: "debug"})
//	if err != nil {
//		return err
//	}
//	defer log.Close()
//
// # Log Levels
//
// Supported levels (in order of severity):
//   - debug
//   - info
//   - warn
//   - error
//   - fatal: logs, then terminates the process with exit status 1
//
// Unknown level names fall back to info.
//
// # Outputs
//
//   - stdout (default)
//   - stderr
//   - syslog (local daemon facility, tag "dovecot-expunge")
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"log/syslog"
	"os"
	"runtime"
	"strings"

	"github.com/migadu/dovecot-expunge/config"
)

// Levels. Fatal sits above slog's Error so thresholds keep their ordering.
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
	LevelFatal = slog.Level(12)
)

// Logger is an explicitly constructed leveled logger. The zero value is not usable.
type Logger struct {
	sl     *slog.Logger
	level  slog.Level
	exit   func(int)
	closer io.Closer
}

// Option customizes a Logger at construction time.
type Option func(*Logger)

// WithExitFunc replaces os.Exit for Fatal. Used by tests.
func WithExitFunc(fn func(int)) Option {
	return func(l *Logger) {
		l.exit = fn
	}
}

// New returns a Logger writing lines to w and discarding anything below level.
func New(w io.Writer, level slog.Level, opts ...Option) *Logger {
	return NewWithHandler(newLineHandler(w, level), level, opts...)
}

// NewWithHandler wraps an existing slog handler.
func NewWithHandler(h slog.Handler, level slog.Level, opts ...Option) *Logger {
	l := &Logger{
		sl:    slog.New(h),
		level: level,
		exit:  os.Exit,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Initialize builds a Logger from configuration.
func Initialize(cfg config.LoggingConfig, opts ...Option) (*Logger, error) {
	level := ParseLevel(cfg.Level)

	output := strings.ToLower(cfg.Output)
	if output == "" {
		output = "stdout"
	}

	switch output {
	case "stdout":
		return New(os.Stdout, level, opts...), nil
	case "stderr":
		return New(os.Stderr, level, opts...), nil
	case "syslog":
		if runtime.GOOS == "windows" {
			return nil, fmt.Errorf("syslog output is not supported on windows")
		}
		w, err := syslog.New(syslog.LOG_INFO|syslog.LOG_DAEMON, "dovecot-expunge")
		if err != nil {
			return nil, fmt.Errorf("failed to connect to syslog: %w", err)
		}
		l := NewWithHandler(newSyslogHandler(w, level), level, opts...)
		l.closer = w
		return l, nil
	default:
		return nil, fmt.Errorf("unknown log output %q (expected stdout, stderr or syslog)", cfg.Output)
	}
}

// ParseLevel converts a level name to a level, case-insensitively.
// Empty or unrecognized names return LevelInfo.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "fatal":
		return LevelFatal
	default:
		return LevelInfo
	}
}

// LevelName returns the upper-case name printed inside the brackets.
func LevelName(level slog.Level) string {
	switch {
	case level >= LevelFatal:
		return "FATAL"
	case level >= LevelError:
		return "ERROR"
	case level >= LevelWarn:
		return "WARN"
	case level >= LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}

// Level returns the threshold the logger was built with.
func (l *Logger) Level() slog.Level {
	return l.level
}

// Enabled reports whether a message at level would be written.
func (l *Logger) Enabled(level slog.Level) bool {
	return l.sl.Enabled(context.Background(), level)
}

// Slog exposes the underlying slog logger.
func (l *Logger) Slog() *slog.Logger {
	return l.sl
}

// Close releases the output, if the output needs releasing.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

func (l *Logger) Debug(msg string, args ...any) {
	l.sl.Log(context.Background(), LevelDebug, msg, args...)
}

func (l *Logger) Info(msg string, args ...any) {
	l.sl.Log(context.Background(), LevelInfo, msg, args...)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.sl.Log(context.Background(), LevelWarn, msg, args...)
}

func (l *Logger) Error(msg string, args ...any) {
	l.sl.Log(context.Background(), LevelError, msg, args...)
}

// Fatal logs at fatal level and terminates the process with status 1.
func (l *Logger) Fatal(msg string, args ...any) {
	l.sl.Log(context.Background(), LevelFatal, msg, args...)
	l.exit(1)
}

// Debugf logs a formatted debug message.
func (l *Logger) Debugf(format string, args ...any) {
	if !l.Enabled(LevelDebug) {
		return
	}
	l.Debug(fmt.Sprintf(format, args...))
}

// Infof logs a formatted info message.
func (l *Logger) Infof(format string, args ...any) {
	l.Info(fmt.Sprintf(format, args...))
}

// Warnf logs a formatted warning.
func (l *Logger) Warnf(format string, args ...any) {
	l.Warn(fmt.Sprintf(format, args...))
}

// Errorf logs a formatted error.
func (l *Logger) Errorf(format string, args ...any) {
	l.Error(fmt.Sprintf(format, args...))
}

// Fatalf logs a formatted fatal message and exits.
func (l *Logger) Fatalf(format string, args ...any) {
	l.Fatal(fmt.Sprintf(format, args...))
}
