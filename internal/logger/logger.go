// Package logger provides the leveled logger shared by every adreel component.
// Output is discarded unless a log file is configured, since the wizard owns the terminal.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// Level represents a log level
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Environment variables read by New.
const (
	EnvLevel = "ADREEL_LOG_LEVEL"
	EnvFile  = "ADREEL_LOG_FILE"
)

// String returns the string representation of a log level
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
		return "UNKNOWN"
	}
}

// ParseLevel parses a log level string
func ParseLevel(s string) (Level, error) {
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
		return LevelInfo, fmt.Errorf("invalid log level: %s", s)
	}
}

// sink is the shared destination of a logger and all of its component children.
type sink struct {
	mu     sync.Mutex
	level  Level
	logger *log.Logger
	file   *os.File
}

// Logger writes leveled, optionally component-tagged lines to a shared sink.
type Logger struct {
	sink      *sink
	component string
}

// Default is the process-wide logger used by the package-level helpers.
var Default = New()

// New creates a logger configured from ADREEL_LOG_LEVEL and ADREEL_LOG_FILE.
func New() *Logger {
	l := &Logger{sink: &sink{
		level:  LevelInfo,
		logger: log.New(io.Discard, "", log.LstdFlags),
	}}

	if levelStr := os.Getenv(EnvLevel); levelStr != "" {
		if level, err := ParseLevel(levelStr); err == nil {
			l.sink.level = level
		}
	}
	if logFile := os.Getenv(EnvFile); logFile != "" {
		_ = l.OpenFile(logFile)
	}

	return l
}

// For returns a child logger that tags every line with the component name.
// Children share level, output and file with their parent.
func (l *Logger) For(component string) *Logger {
	return &Logger{sink: l.sink, component: component}
}

// Configure applies the level and file from loaded configuration.
// An empty file keeps the current output.
func (l *Logger) Configure(level, file string) error {
	parsed, err := ParseLevel(level)
	if err != nil {
		return err
	}
	l.SetLevel(parsed)
	if file == "" {
		return nil
	}
	return l.OpenFile(file)
}

// OpenFile redirects output to the given file, closing any previously opened one.
func (l *Logger) OpenFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("opening log file %s: %w", path, err)
	}

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	if l.sink.file != nil {
		_ = l.sink.file.Close()
	}
	l.sink.file = f
	l.sink.logger.SetOutput(f)
	return nil
}

// Close closes the logger and any open file handles
func (l *Logger) Close() error {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	if l.sink.file == nil {
		return nil
	}
	err := l.sink.file.Close()
	l.sink.file = nil
	l.sink.logger.SetOutput(io.Discard)
	return err
}

// SetLevel sets the log level
func (l *Logger) SetLevel(level Level) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.level = level
}

// SetOutput sets the output writer
func (l *Logger) SetOutput(w io.Writer) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.logger.SetOutput(w)
}

// Enabled reports whether messages at the given level are written.
func (l *Logger) Enabled(level Level) bool {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	return level >= l.sink.level
}

// Debug logs a debug message
func (l *Logger) Debug(format string, v ...any) {
	l.log(LevelDebug, format, v...)
}

// Info logs an info message
func (l *Logger) Info(format string, v ...any) {
	l.log(LevelInfo, format, v...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, v ...any) {
	l.log(LevelWarn, format, v...)
}

// Error logs an error message
func (l *Logger) Error(format string, v ...any) {
	l.log(LevelError, format, v...)
}

func (l *Logger) log(level Level, format string, v ...any) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	if level < l.sink.level {
		return
	}

	msg := fmt.Sprintf(format, v...)
	if l.component != "" {
		l.sink.logger.Printf("[%s] %s: %s", level, l.component, msg)
		return
	}
	l.sink.logger.Printf("[%s] %s", level, msg)
}

// Package-level functions that use the default logger

// For returns a component logger backed by the default logger.
func For(component string) *Logger {
	return Default.For(component)
}

// Debug logs a debug message using the default logger
func Debug(format string, v ...any) {
	Default.Debug(format, v...)
}

// Info logs an info message using the default logger
func Info(format string, v ...any) {
	Default.Info(format, v...)
}

// Warn logs a warning message using the default logger
func Warn(format string, v ...any) {
	Default.Warn(format, v...)
}

// Error logs an error message using the default logger
func Error(format string, v ...any) {
	Default.Error(format, v...)
}

// Close closes the default logger
func Close() error {
	return Default.Close()
}
