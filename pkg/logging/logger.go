package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog.Logger with application-specific functionality
type Logger struct {
	*slog.Logger
}

// New creates a new JSON logger writing to stdout at the specified level.
func New(level string) *Logger {
	return NewWithWriter(level, os.Stdout)
}

// NewWithWriter creates a logger writing to the given writer. Tests use this
// to capture output.
func NewWithWriter(level string, w io.Writer) *Logger {
	var logLevel slog.Level

	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: logLevel})
	return &Logger{Logger: slog.New(handler)}
}

// With returns a logger carrying the supplied attributes on every record.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Default returns a logger with default settings
func Default() *Logger {
	return New("info")
}
