// Package logging provides the structured logger shared by the compiler,
// the watcher and the CLI. It wraps log/slog with leveled methods that take
// an error argument, persistent fields and per-component loggers.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// LogLevel represents different log levels
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
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
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a configuration level name to a LogLevel.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

func (l LogLevel) slog() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger interface for structured logging
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...interface{})
	Info(ctx context.Context, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
	Error(ctx context.Context, err error, msg string, fields ...interface{})

	With(fields ...interface{}) Logger
	WithComponent(component string) Logger
}

// StructuredLogger implements Logger on top of slog.
type StructuredLogger struct {
	logger    *slog.Logger
	level     LogLevel
	component string
	fields    map[string]interface{}
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level     LogLevel
	Format    string // "json" or "text"
	Output    io.Writer
	AddSource bool
	Component string
}

// DefaultConfig returns default logger configuration
func DefaultConfig() *LoggerConfig {
	return &LoggerConfig{
		Level:  LevelInfo,
		Format: "text",
		Output: os.Stderr,
	}
}

// NewLogger creates a new structured logger
func NewLogger(config *LoggerConfig) *StructuredLogger {
	if config == nil {
		config = DefaultConfig()
	}
	out := config.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:     config.Level.slog(),
		AddSource: config.AddSource,
	}

	var handler slog.Handler
	if config.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return &StructuredLogger{
		logger:    slog.New(handler),
		level:     config.Level,
		component: config.Component,
		fields:    make(map[string]interface{}),
	}
}

// Discard returns a logger that drops every record.
func Discard() *StructuredLogger {
	return NewLogger(&LoggerConfig{Level: LevelError + 1, Output: io.Discard})
}

// Debug logs a debug message
func (l *StructuredLogger) Debug(ctx context.Context, msg string, fields ...interface{}) {
	if l.level > LevelDebug {
		return
	}
	l.log(ctx, slog.LevelDebug, nil, msg, fields...)
}

// Info logs an info message
func (l *StructuredLogger) Info(ctx context.Context, msg string, fields ...interface{}) {
	if l.level > LevelInfo {
		return
	}
	l.log(ctx, slog.LevelInfo, nil, msg, fields...)
}

// Warn logs a warning message
func (l *StructuredLogger) Warn(ctx context.Context, err error, msg string, fields ...interface{}) {
	if l.level > LevelWarn {
		return
	}
	l.log(ctx, slog.LevelWarn, err, msg, fields...)
}

// Error logs an error message
func (l *StructuredLogger) Error(ctx context.Context, err error, msg string, fields ...interface{}) {
	if l.level > LevelError {
		return
	}
	l.log(ctx, slog.LevelError, err, msg, fields...)
}

// With creates a new logger with additional fields
func (l *StructuredLogger) With(fields ...interface{}) Logger {
	newFields := make(map[string]interface{}, len(l.fields)+len(fields)/2)
	for k, v := range l.fields {
		newFields[k] = v
	}

	for i := 0; i+1 < len(fields); i += 2 {
		if key, ok := fields[i].(string); ok {
			newFields[key] = fields[i+1]
		}
	}

	return &StructuredLogger{
		logger:    l.logger,
		level:     l.level,
		component: l.component,
		fields:    newFields,
	}
}

// WithComponent creates a new logger with component context
func (l *StructuredLogger) WithComponent(component string) Logger {
	return &StructuredLogger{
		logger:    l.logger,
		level:     l.level,
		component: component,
		fields:    l.fields,
	}
}

// log is the internal logging method
func (l *StructuredLogger) log(ctx context.Context, level slog.Level, err error, msg string, fields ...interface{}) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.logger.Enabled(ctx, level) {
		return
	}

	attrs := make([]slog.Attr, 0, len(l.fields)+len(fields)/2+2)

	if l.component != "" {
		attrs = append(attrs, slog.String("component", l.component))
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}

	for k, v := range l.fields {
		attrs = append(attrs, slog.Any(k, v))
	}

	for i := 0; i+1 < len(fields); i += 2 {
		if key, ok := fields[i].(string); ok {
			attrs = append(attrs, slog.Any(key, fields[i+1]))
		}
	}

	record := slog.NewRecord(time.Now(), level, msg, 0)
	record.AddAttrs(attrs...)

	_ = l.logger.Handler().Handle(ctx, record)
}

// LevelStyles colors level names for terminal output.
type LevelStyles struct {
	UseColors bool
}

var levelColors = map[LogLevel]lipgloss.Color{
	LevelDebug: lipgloss.Color("6"),
	LevelInfo:  lipgloss.Color("2"),
	LevelWarn:  lipgloss.Color("3"),
	LevelError: lipgloss.Color("1"),
}

// FormatLevel formats log level with optional colors
func (f LevelStyles) FormatLevel(level LogLevel) string {
	color, ok := levelColors[level]
	if !f.UseColors || !ok {
		return level.String()
	}
	return lipgloss.NewStyle().Bold(true).Foreground(color).Render(level.String())
}

// PerfLogger tracks the duration of one operation.
type PerfLogger struct {
	Logger
	startTime time.Time
	operation string
}

// StartOperation begins performance tracking
func StartOperation(logger Logger, operation string) *PerfLogger {
	return &PerfLogger{
		Logger:    logger.With("operation", operation),
		startTime: time.Now(),
		operation: operation,
	}
}

// End completes performance tracking and logs the duration
func (p *PerfLogger) End(ctx context.Context, fields ...interface{}) {
	duration := time.Since(p.startTime)
	p.Debug(ctx, "Operation completed", append(fields,
		"duration_ms", duration.Milliseconds(),
	)...)
}

// EndWithError completes performance tracking and logs an error
func (p *PerfLogger) EndWithError(ctx context.Context, err error) {
	duration := time.Since(p.startTime)
	p.Error(ctx, err, "Operation failed",
		"duration_ms", duration.Milliseconds(),
	)
}
