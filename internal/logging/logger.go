package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"driftpursuit/corridor/internal/config"
)

// ServiceName tags every record written by loggers built through New.
const ServiceName = "cyclesim"

type contextKey string

var (
	loggerContextKey = contextKey("cyclesim-logger")

	globalMu     sync.RWMutex
	globalLogger = newNopLogger()
)

func parseLevel(raw string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return zerolog.DebugLevel, nil
	case "info", "":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	case "fatal":
		return zerolog.FatalLevel, nil
	default:
		return zerolog.InfoLevel, fmt.Errorf("unknown log level %q", raw)
	}
}

// Field represents a structured logging attribute.
type Field struct {
	Key   string
	Value any
}

// String returns a string field.
func String(key, value string) Field { return Field{Key: key, Value: value} }

// Strings returns a string slice field.
func Strings(key string, values []string) Field { return Field{Key: key, Value: values} }

// Int returns an int field.
func Int(key string, value int) Field { return Field{Key: key, Value: value} }

// Int64 returns an int64 field.
func Int64(key string, value int64) Field { return Field{Key: key, Value: value} }

// Uint32 returns a uint32 field, used for seeds.
func Uint32(key string, value uint32) Field { return Field{Key: key, Value: value} }

// Float64 returns a float64 field.
func Float64(key string, value float64) Field { return Field{Key: key, Value: value} }

// Duration returns a duration field.
func Duration(key string, value time.Duration) Field { return Field{Key: key, Value: value} }

// Bool returns a bool field.
func Bool(key string, value bool) Field { return Field{Key: key, Value: value} }

// Error returns an error field.
func Error(err error) Field { return Field{Key: "error", Value: err} }

// Logger emits JSON-formatted structured logs with optional contextual fields.
type Logger struct {
	zl   zerolog.Logger
	sink syncWriter
}

// syncWriter describes a writer that can flush to durable storage.
type syncWriter interface {
	io.Writer
	Sync() error
}

// multiWriter writes to multiple sync writers.
type multiWriter struct {
	writers []syncWriter
}

func (m *multiWriter) Write(p []byte) (int, error) {
	for _, w := range m.writers {
		if _, err := w.Write(p); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

func (m *multiWriter) Sync() error {
	var firstErr error
	for _, w := range m.writers {
		if err := w.Sync(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// New constructs a JSON logger configured with on-disk rotation and stdout mirroring.
func New(cfg config.LoggingConfig) (*Logger, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("logging path must be specified")
	}
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	writer, err := newRotatingWriter(cfg)
	if err != nil {
		return nil, err
	}
	combined := &multiWriter{writers: []syncWriter{writer}}
	if os.Stdout != nil {
		combined.writers = append(combined.writers, os.Stdout)
	}
	logger := newLogger(combined, level).With(String("service", ServiceName))
	ReplaceGlobals(logger)
	return logger, nil
}

// NewTestLogger returns a logger that discards output, suitable for tests.
func NewTestLogger() *Logger {
	return newNopLogger()
}

// NewWriterLogger writes JSON records to w at the given level without rotation.
func NewWriterLogger(w io.Writer, level string) (*Logger, error) {
	parsed, err := parseLevel(level)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return newLogger(discardSyncWriter{}, parsed), nil
	}
	sink, ok := w.(syncWriter)
	if !ok {
		sink = plainSyncWriter{w}
	}
	return newLogger(sink, parsed), nil
}

func newNopLogger() *Logger {
	return newLogger(discardSyncWriter{}, zerolog.DebugLevel)
}

func newLogger(sink syncWriter, level zerolog.Level) *Logger {
	zl := zerolog.New(sink).Level(level).With().Timestamp().Logger()
	return &Logger{zl: zl, sink: sink}
}

// ReplaceGlobals swaps the fallback logger used when no context logger is present.
func ReplaceGlobals(logger *Logger) {
	if logger == nil {
		return
	}
	globalMu.Lock()
	globalLogger = logger
	globalMu.Unlock()
}

// L returns the current global logger.
func L() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// With augments the logger with additional structured fields.
func (l *Logger) With(fields ...Field) *Logger {
	if l == nil {
		return L().With(fields...)
	}
	ctx := l.zl.With()
	for _, field := range fields {
		ctx = withField(ctx, field)
	}
	return &Logger{zl: ctx.Logger(), sink: l.sink}
}

// Sync flushes buffered output to durable storage.
func (l *Logger) Sync() error {
	if l == nil || l.sink == nil {
		return nil
	}
	return l.sink.Sync()
}

// Debug logs a debug message.
func (l *Logger) Debug(message string, fields ...Field) { l.log(zerolog.DebugLevel, message, fields...) }

// Info logs an informational message.
func (l *Logger) Info(message string, fields ...Field) { l.log(zerolog.InfoLevel, message, fields...) }

// Warn logs a warning message.
func (l *Logger) Warn(message string, fields ...Field) { l.log(zerolog.WarnLevel, message, fields...) }

// Error logs an error message.
func (l *Logger) Error(message string, fields ...Field) { l.log(zerolog.ErrorLevel, message, fields...) }

// Fatal logs a fatal message and exits the process.
func (l *Logger) Fatal(message string, fields ...Field) { l.log(zerolog.FatalLevel, message, fields...) }

func (l *Logger) log(level zerolog.Level, message string, fields ...Field) {
	if l == nil {
		L().log(level, message, fields...)
		return
	}
	//1.- WithLevel never exits on its own, so fatal records get flushed below first.
	event := l.zl.WithLevel(level)
	if event == nil {
		return
	}
	for _, field := range fields {
		event = withEventField(event, field)
	}
	event.Msg(message)
	if level == zerolog.FatalLevel {
		_ = l.Sync()
		os.Exit(1)
	}
}

func withField(ctx zerolog.Context, field Field) zerolog.Context {
	switch value := field.Value.(type) {
	case string:
		return ctx.Str(field.Key, value)
	case []string:
		return ctx.Strs(field.Key, value)
	case int:
		return ctx.Int(field.Key, value)
	case int64:
		return ctx.Int64(field.Key, value)
	case uint32:
		return ctx.Uint32(field.Key, value)
	case float64:
		return ctx.Float64(field.Key, value)
	case bool:
		return ctx.Bool(field.Key, value)
	case time.Duration:
		return ctx.Dur(field.Key, value)
	case error:
		return ctx.AnErr(field.Key, value)
	default:
		return ctx.Interface(field.Key, value)
	}
}

func withEventField(event *zerolog.Event, field Field) *zerolog.Event {
	switch value := field.Value.(type) {
	case string:
		return event.Str(field.Key, value)
	case []string:
		return event.Strs(field.Key, value)
	case int:
		return event.Int(field.Key, value)
	case int64:
		return event.Int64(field.Key, value)
	case uint32:
		return event.Uint32(field.Key, value)
	case float64:
		return event.Float64(field.Key, value)
	case bool:
		return event.Bool(field.Key, value)
	case time.Duration:
		return event.Dur(field.Key, value)
	case error:
		return event.AnErr(field.Key, value)
	default:
		return event.Interface(field.Key, value)
	}
}

// ContextWithLogger stores a logger in the provided context.
func ContextWithLogger(ctx context.Context, logger *Logger) context.Context {
	if logger == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerContextKey, logger)
}

// LoggerFromContext retrieves a logger from context or falls back to the global logger.
func LoggerFromContext(ctx context.Context) *Logger {
	if ctx == nil {
		return L()
	}
	if logger, ok := ctx.Value(loggerContextKey).(*Logger); ok && logger != nil {
		return logger
	}
	return L()
}

type plainSyncWriter struct{ io.Writer }

func (plainSyncWriter) Sync() error { return nil }

type discardSyncWriter struct{}

func (discardSyncWriter) Write(p []byte) (int, error) { return len(p), nil }

func (discardSyncWriter) Sync() error { return nil }
