// Package log wraps log/slog with a per-component logger and the field
// names shared across the application.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog.Logger and stamps every record with its component.
type Logger struct {
	*slog.Logger
	base      *slog.Logger
	component string
}

// Config holds logger configuration.
type Config struct {
	Level     slog.Level
	Format    string // "text" or "json"
	Component string
	Output    io.Writer
	Handler   slog.Handler
}

// DefaultConfig returns sensible defaults for logging.
func DefaultConfig() Config {
	return Config{
		Level:     slog.LevelInfo,
		Format:    "text",
		Component: ComponentApp,
		Output:    os.Stdout,
	}
}

// New creates a logger. An explicit Handler wins over Format and Output.
func New(config Config) *Logger {
	handler := config.Handler
	if handler == nil {
		handler = NewHandler(config.Output, config.Format, config.Level)
	}
	component := config.Component
	if component == "" {
		component = ComponentApp
	}
	return newLogger(slog.New(handler), component)
}

func newLogger(base *slog.Logger, component string) *Logger {
	return &Logger{
		Logger:    base.With(FieldComponent, component),
		base:      base,
		component: component,
	}
}

// NewHandler builds a text or JSON slog handler writing to w (stdout when nil).
func NewHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	if w == nil {
		w = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// ParseLevel maps debug/info/warn/error to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Default wraps slog.Default.
func Default() *Logger {
	return newLogger(slog.Default(), ComponentApp)
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return New(Config{Handler: slog.NewTextHandler(io.Discard, nil)})
}

// With returns a new logger with the given attributes.
func (l *Logger) With(args ...any) *Logger {
	return newLogger(l.base.With(args...), l.component)
}

// WithComponent returns a logger tagged with a different component.
func (l *Logger) WithComponent(component string) *Logger {
	return newLogger(l.base, component)
}

// Component returns the logger's component name.
func (l *Logger) Component() string {
	return l.component
}

// LogError logs err with an operation tag at error level.
func (l *Logger) LogError(ctx context.Context, msg string, err error, operation string, args ...any) {
	fields := NewFields().WithError(err).WithOperation(operation).ToSlice()
	l.ErrorContext(ctx, msg, append(fields, args...)...)
}

// SetDefault installs logger as the slog default.
func SetDefault(logger *Logger) {
	slog.SetDefault(logger.Logger)
}
