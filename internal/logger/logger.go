package logger

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level controls which messages are emitted
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelSilent
)

func (l Level) String() string {
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
		return "SILENT"
	}
}

// Logger emits leveled, optionally field-annotated log lines
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
}

type logger struct {
	fields map[string]interface{}
}

var (
	mu       sync.Mutex
	minLevel = LevelWarn
	output   io.Writer = os.Stderr
)

// SetLevel sets the global minimum level
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	minLevel = l
}

// SetOutput redirects log output, mainly for tests
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// ParseLevel maps a config string to a Level, defaulting to warn
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "silent", "off":
		return LevelSilent
	default:
		return LevelWarn
	}
}

func (l *logger) log(level Level, msg string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()

	if level < minLevel {
		return
	}

	var b strings.Builder
	b.WriteString(time.Now().Format("2006-01-02T15:04:05Z07:00"))
	b.WriteString(" [")
	b.WriteString(level.String())
	b.WriteString("] ")
	b.WriteString(msg)

	if len(l.fields) > 0 {
		keys := make([]string, 0, len(l.fields))
		for k := range l.fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, l.fields[k])
		}
	}

	// args are alternating key/value pairs; a dangling key prints alone
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
		} else {
			fmt.Fprintf(&b, " %v", args[i])
		}
	}

	fmt.Fprintln(output, b.String())
}

func (l *logger) Debug(msg string, args ...interface{}) { l.log(LevelDebug, msg, args...) }
func (l *logger) Info(msg string, args ...interface{})  { l.log(LevelInfo, msg, args...) }
func (l *logger) Warn(msg string, args ...interface{})  { l.log(LevelWarn, msg, args...) }
func (l *logger) Error(msg string, args ...interface{}) { l.log(LevelError, msg, args...) }

func (l *logger) WithField(key string, value interface{}) Logger {
	fields := make(map[string]interface{}, len(l.fields)+1)
	for k, v := range l.fields {
		fields[k] = v
	}
	fields[key] = value
	return &logger{fields: fields}
}

func (l *logger) WithFields(fields map[string]interface{}) Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &logger{fields: merged}
}

var root = &logger{}

// Package-level convenience functions on the root logger

func Debug(msg string, args ...interface{}) { root.Debug(msg, args...) }
func Info(msg string, args ...interface{})  { root.Info(msg, args...) }
func Warn(msg string, args ...interface{})  { root.Warn(msg, args...) }
func Error(msg string, args ...interface{}) { root.Error(msg, args...) }

// WithField returns a logger annotated with a single field
func WithField(key string, value interface{}) Logger {
	return root.WithField(key, value)
}

// WithFields returns a logger annotated with multiple fields
func WithFields(fields map[string]interface{}) Logger {
	return root.WithFields(fields)
}
