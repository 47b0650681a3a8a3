package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Format represents the log output format
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// ParseFormat parses a log format string, defaulting to text
func ParseFormat(s string) Format {
	if strings.EqualFold(strings.TrimSpace(s), string(FormatJSON)) {
		return FormatJSON
	}
	return FormatText
}

// FileLoggerConfig holds configuration for file logging
type FileLoggerConfig struct {
	// Path is the log file path
	Path string
	// Format is the output format (json or text)
	Format Format
	// Level is the minimum log level
	Level Level
	// MaxSize is the size in bytes that triggers rotation (0 = never)
	MaxSize int64
	// MaxBackups is the number of rotated files kept as Path.1 .. Path.N
	MaxBackups int
}

// output is the destination shared by a logger and every logger derived
// from it. file is nil for writer loggers and after Close.
type output struct {
	config FileLoggerConfig

	mu   sync.Mutex
	file *os.File
	w    io.Writer
	size int64
}

// FileLogger implements Logger over a log file or any writer
type FileLogger struct {
	out    *output
	fields Fields
}

// NewFileLogger opens (appending) the log file at config.Path,
// creating its directory when needed
func NewFileLogger(config FileLoggerConfig) (*FileLogger, error) {
	if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	out := &output{config: config}
	if err := out.open(); err != nil {
		return nil, err
	}
	return &FileLogger{out: out}, nil
}

// NewWriterLogger creates a logger writing to w (typically stderr).
// It never rotates and Close does not close w.
func NewWriterLogger(w io.Writer, format Format, level Level) *FileLogger {
	return &FileLogger{out: &output{
		config: FileLoggerConfig{Format: format, Level: level},
		w:      w,
	}}
}

func (l *FileLogger) Debug(ctx context.Context, msg string, fields Fields) {
	l.log(DebugLevel, msg, nil, fields)
}

func (l *FileLogger) Info(ctx context.Context, msg string, fields Fields) {
	l.log(InfoLevel, msg, nil, fields)
}

func (l *FileLogger) Warn(ctx context.Context, msg string, fields Fields) {
	l.log(WarnLevel, msg, nil, fields)
}

func (l *FileLogger) Error(ctx context.Context, msg string, err error, fields Fields) {
	l.log(ErrorLevel, msg, err, fields)
}

// WithFields returns a logger with additional fields sharing the same output
func (l *FileLogger) WithFields(fields Fields) Logger {
	return &FileLogger{out: l.out, fields: l.fields.merge(fields)}
}

// Close closes the log file. Later writes are dropped.
func (l *FileLogger) Close() error {
	o := l.out
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.file == nil {
		return nil
	}
	err := o.file.Close()
	o.file, o.w = nil, io.Discard
	return err
}

func (l *FileLogger) log(level Level, msg string, err error, fields Fields) {
	o := l.out
	if level < o.config.Level {
		return
	}

	e := entry{
		time:   time.Now().UTC(),
		level:  level,
		msg:    msg,
		err:    err,
		fields: l.fields.merge(fields),
	}
	var line []byte
	if o.config.Format == FormatJSON {
		line = e.json()
	} else {
		line = e.text()
	}
	if line == nil {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.file != nil && o.config.MaxSize > 0 && o.size >= o.config.MaxSize {
		o.rotate()
	}
	n, _ := o.w.Write(line)
	o.size += int64(n)
}

// entry is one log line before encoding
type entry struct {
	time   time.Time
	level  Level
	msg    string
	err    error
	fields Fields
}

func (e entry) json() []byte {
	doc := make(map[string]interface{}, len(e.fields)+4)
	for k, v := range e.fields {
		doc[k] = v
	}
	doc["timestamp"] = e.time.Format(time.RFC3339)
	doc["level"] = e.level.String()
	doc["message"] = e.msg
	if e.err != nil {
		doc["error"] = e.err.Error()
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil
	}
	return append(data, '\n')
}

// text renders "<time> [LEVEL] msg error=".." k=v" with fields in key order
func (e entry) text() []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] %s", e.time.Format("2006-01-02T15:04:05.000Z"), e.level, e.msg)
	if e.err != nil {
		fmt.Fprintf(&b, " error=%q", e.err.Error())
	}

	keys := make([]string, 0, len(e.fields))
	for k := range e.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.fields[k])
	}
	b.WriteByte('\n')
	return []byte(b.String())
}

func (o *output) open() error {
	file, err := os.OpenFile(o.config.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	o.file, o.w, o.size = file, file, info.Size()
	return nil
}

// rotate shifts Path.N to Path.N+1, moves the current file to Path.1 and
// reopens Path. Backups beyond MaxBackups are removed.
// The caller holds o.mu.
func (o *output) rotate() {
	path := o.config.Path
	backup := func(n int) string { return fmt.Sprintf("%s.%d", path, n) }

	o.file.Close()
	for i := o.config.MaxBackups - 1; i >= 1; i-- {
		os.Rename(backup(i), backup(i+1))
	}
	os.Rename(path, backup(1))
	if o.config.MaxBackups > 0 {
		os.Remove(backup(o.config.MaxBackups + 1))
	}

	if err := o.open(); err != nil {
		o.file, o.w = nil, io.Discard
	}
}
