// Package logger defines the structured logging contract used throughout the
// service and its zerolog-backed implementation.
package logger

import "time"

// Logger is the logging contract every component depends on.
// Components never hold the concrete zerolog type directly so tests can
// substitute a silent or recording logger.
type Logger interface {
	Debug() LogEvent
	Info() LogEvent
	Warn() LogEvent
	Error() LogEvent
	Fatal() LogEvent
	WithFields(fields map[string]any) Logger
}

// LogEvent is a structured log event under construction. Calling Msg or Msgf
// sends the event; an event must not be reused afterwards.
type LogEvent interface {
	Msg(msg string)
	Msgf(format string, args ...any)
	Err(err error) LogEvent
	Str(key, value string) LogEvent
	Int(key string, value int) LogEvent
	Int64(key string, value int64) LogEvent
	Float64(key string, value float64) LogEvent
	Dur(key string, d time.Duration) LogEvent
	Time(key string, t time.Time) LogEvent
	Interface(key string, i any) LogEvent
}
