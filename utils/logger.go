package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// LogLevel orders log severities.
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel maps a config string to a level, defaulting to INFO.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

// LogEntry is one structured log record.
type LogEntry struct {
	Timestamp string         `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Component string         `json:"component,omitempty"`
	Error     string         `json:"error,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Logger is a leveled structured logger writing text or JSON lines.
type Logger struct {
	mu     sync.RWMutex
	level  LogLevel
	format string // "text" or "json"
	output io.Writer
}

// NewLogger creates a text logger at INFO writing to stdout.
func NewLogger() *Logger {
	return &Logger{
		level:  INFO,
		format: "text",
		output: os.Stdout,
	}
}

// SetLevel sets the minimum level that is emitted.
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// SetFormat selects "text" or "json" output.
func (l *Logger) SetFormat(format string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.format = strings.ToLower(format)
}

// SetOutput redirects log output.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = w
}

// Debug logs at DEBUG level.
func (l *Logger) Debug(msg string, fields ...Field) { l.log(DEBUG, msg, fields...) }

// Info logs at INFO level.
func (l *Logger) Info(msg string, fields ...Field) { l.log(INFO, msg, fields...) }

// Warn logs at WARN level.
func (l *Logger) Warn(msg string, fields ...Field) { l.log(WARN, msg, fields...) }

// Error logs at ERROR level with an optional error value.
func (l *Logger) Error(msg string, err error, fields ...Field) {
	if err != nil {
		fields = append(fields, ErrorField{Err: err})
	}
	l.log(ERROR, msg, fields...)
}

func (l *Logger) log(level LogLevel, msg string, fields ...Field) {
	l.mu.RLock()
	minLevel, format, out := l.level, l.format, l.output
	l.mu.RUnlock()
	if level < minLevel {
		return
	}

	entry := &LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     level.String(),
		Message:   msg,
		Fields:    make(map[string]any),
	}
	for _, f := range fields {
		f.Apply(entry)
	}

	var line string
	if format == "json" {
		if data, err := json.Marshal(entry); err == nil {
			line = string(data)
		} else {
			line = fmt.Sprintf("log marshal failed: %v", err)
		}
	} else {
		line = formatText(entry)
	}

	l.mu.Lock()
	fmt.Fprintln(out, line)
	l.mu.Unlock()
}

func formatText(entry *LogEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] %s", entry.Timestamp, entry.Level, entry.Message)
	if entry.Component != "" {
		fmt.Fprintf(&b, " component=%s", entry.Component)
	}
	if entry.Error != "" {
		fmt.Fprintf(&b, " error=%s", entry.Error)
	}
	for key, value := range entry.Fields {
		fmt.Fprintf(&b, " %s=%v", key, value)
	}
	return b.String()
}

// Field attaches structured data to a log entry.
type Field interface {
	Apply(entry *LogEntry)
}

// StringField is a string key/value pair.
type StringField struct {
	Key   string
	Value string
}

func (f StringField) Apply(entry *LogEntry) { entry.Fields[f.Key] = f.Value }

// IntField is an integer key/value pair.
type IntField struct {
	Key   string
	Value int
}

func (f IntField) Apply(entry *LogEntry) { entry.Fields[f.Key] = f.Value }

// FloatField is a float key/value pair.
type FloatField struct {
	Key   string
	Value float64
}

func (f FloatField) Apply(entry *LogEntry) { entry.Fields[f.Key] = f.Value }

// ErrorField carries an error value.
type ErrorField struct {
	Err error
}

func (f ErrorField) Apply(entry *LogEntry) { entry.Error = f.Err.Error() }

// ComponentField names the emitting component.
type ComponentField struct {
	Component string
}

func (f ComponentField) Apply(entry *LogEntry) { entry.Component = f.Component }

// String creates a string field.
func String(key, value string) Field { return StringField{Key: key, Value: value} }

// Int creates an integer field.
func Int(key string, value int) Field { return IntField{Key: key, Value: value} }

// Float creates a float field.
func Float(key string, value float64) Field { return FloatField{Key: key, Value: value} }

// Component creates a component field.
func Component(component string) Field { return ComponentField{Component: component} }

var (
	globalLogger *Logger
	loggerOnce   sync.Once
)

// GetLogger returns the process-wide logger.
func GetLogger() *Logger {
	loggerOnce.Do(func() {
		globalLogger = NewLogger()
	})
	return globalLogger
}

// InitLogger applies logging configuration to the global logger.
func InitLogger(cfg LoggingConfig) {
	logger := GetLogger()
	logger.SetLevel(ParseLogLevel(cfg.Level))
	if cfg.Format != "" {
		logger.SetFormat(cfg.Format)
	}
}
