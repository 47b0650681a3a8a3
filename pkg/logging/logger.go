package logging

import (
	"context"
	"strings"
)

// Level represents log severity
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var levelNames = map[Level]string{
	DebugLevel: "DEBUG",
	InfoLevel:  "INFO",
	WarnLevel:  "WARN",
	ErrorLevel: "ERROR",
}

// String returns the upper-case name written to log lines
func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "UNKNOWN"
}

// LevelString returns the name of level
func LevelString(level Level) string {
	return level.String()
}

// ParseLevel parses a level name, case-insensitively.
// "warning" is accepted for warn; anything unknown is info.
func ParseLevel(s string) Level {
	name := strings.ToUpper(strings.TrimSpace(s))
	if name == "WARNING" {
		return WarnLevel
	}
	for level, n := range levelNames {
		if n == name {
			return level
		}
	}
	return InfoLevel
}

// Fields represents structured log fields
type Fields map[string]interface{}

// merge returns a new map holding f overlaid with more
func (f Fields) merge(more Fields) Fields {
	out := make(Fields, len(f)+len(more))
	for k, v := range f {
		out[k] = v
	}
	for k, v := range more {
		out[k] = v
	}
	return out
}

// Logger defines the interface for logging.
// FileLogger writes JSON or text lines, NullLogger discards everything.
type Logger interface {
	// Debug logs a debug message
	Debug(ctx context.Context, msg string, fields Fields)

	// Info logs an info message
	Info(ctx context.Context, msg string, fields Fields)

	// Warn logs a warning message
	Warn(ctx context.Context, msg string, fields Fields)

	// Error logs an error message
	Error(ctx context.Context, msg string, err error, fields Fields)

	// WithFields returns a logger with additional fields
	WithFields(fields Fields) Logger

	// Close flushes and closes the logger
	Close() error
}

// ForCheck returns a logger tagged with the identifiers of one check run.
// An empty ercID is omitted.
func ForCheck(l Logger, checkID, ercID string) Logger {
	fields := Fields{"check_id": checkID}
	if ercID != "" {
		fields["erc_id"] = ercID
	}
	return l.WithFields(fields)
}

// NullLogger discards everything. It is the library default and the
// logger of --quiet runs.
type NullLogger struct{}

// NewNullLogger creates a null logger
func NewNullLogger() *NullLogger { return &NullLogger{} }

func (l *NullLogger) Debug(context.Context, string, Fields)        {}
func (l *NullLogger) Info(context.Context, string, Fields)         {}
func (l *NullLogger) Warn(context.Context, string, Fields)         {}
func (l *NullLogger) Error(context.Context, string, error, Fields) {}
func (l *NullLogger) WithFields(Fields) Logger                     { return l }
func (l *NullLogger) Close() error                                 { return nil }
