package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// ZeroLogger implements Logger on top of zerolog.
type ZeroLogger struct {
	zlog *zerolog.Logger
}

var _ Logger = (*ZeroLogger)(nil)

// New creates a ZeroLogger writing JSON to stdout at the given level.
// If pretty is true the output is formatted for human readability instead.
// Unknown levels fall back to info.
func New(level string, pretty bool) *ZeroLogger {
	return NewWithWriter(level, pretty, os.Stdout)
}

// NewWithWriter is like New but writes to the supplied writer.
// Tests use this to capture log output.
func NewWithWriter(level string, pretty bool, w io.Writer) *ZeroLogger {
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	l := zerolog.New(w).With().Timestamp().Logger()

	zLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		zLevel = zerolog.InfoLevel
	}
	l = l.Level(zLevel)

	return &ZeroLogger{zlog: &l}
}

// WithFields returns a logger with additional fields attached to all entries.
func (l *ZeroLogger) WithFields(fields map[string]any) Logger {
	log := l.zlog.With().Fields(fields).Logger()
	return &ZeroLogger{zlog: &log}
}

// Debug creates a debug-level log event.
func (l *ZeroLogger) Debug() LogEvent { return &zerologEvent{event: l.zlog.Debug()} }

// Info creates an info-level log event.
func (l *ZeroLogger) Info() LogEvent { return &zerologEvent{event: l.zlog.Info()} }

// Warn creates a warn-level log event.
func (l *ZeroLogger) Warn() LogEvent { return &zerologEvent{event: l.zlog.Warn()} }

// Error creates an error-level log event.
func (l *ZeroLogger) Error() LogEvent { return &zerologEvent{event: l.zlog.Error()} }

// Fatal creates a fatal-level log event. Sending it exits the process.
func (l *ZeroLogger) Fatal() LogEvent { return &zerologEvent{event: l.zlog.Fatal()} }

// zerologEvent adapts *zerolog.Event to the LogEvent interface.
type zerologEvent struct {
	event *zerolog.Event
}

func (e *zerologEvent) Msg(msg string) { e.event.Msg(msg) }

func (e *zerologEvent) Msgf(format string, args ...any) { e.event.Msgf(format, args...) }

func (e *zerologEvent) Err(err error) LogEvent {
	e.event = e.event.Err(err)
	return e
}

func (e *zerologEvent) Str(key, value string) LogEvent {
	e.event = e.event.Str(key, value)
	return e
}

func (e *zerologEvent) Int(key string, value int) LogEvent {
	e.event = e.event.Int(key, value)
	return e
}

func (e *zerologEvent) Int64(key string, value int64) LogEvent {
	e.event = e.event.Int64(key, value)
	return e
}

func (e *zerologEvent) Float64(key string, value float64) LogEvent {
	e.event = e.event.Float64(key, value)
	return e
}

func (e *zerologEvent) Dur(key string, d time.Duration) LogEvent {
	e.event = e.event.Dur(key, d)
	return e
}

func (e *zerologEvent) Time(key string, t time.Time) LogEvent {
	e.event = e.event.Time(key, t)
	return e
}

func (e *zerologEvent) Interface(key string, i any) LogEvent {
	e.event = e.event.Interface(key, i)
	return e
}
