package core

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"
)

// Logger provides structured logging capabilities
// This abstraction allows swapping logging implementations
type Logger interface {
	// Error logs an error message
	Error(args ...interface{})

	// Info logs an informational message
	Info(args ...interface{})

	// Debug logs a debug message
	Debug(args ...interface{})

	// WithFields returns a new logger with structured fields
	WithFields(fields map[string]interface{}) Logger

	// WithContext returns a new logger carrying the request ID found in ctx
	WithContext(ctx context.Context) Logger
}

// LoggerConfig configures logger behavior
type LoggerConfig struct {
	// JSONOutput enables JSON structured output
	JSONOutput bool
	// Level sets the minimum log level (DEBUG, INFO, ERROR)
	Level string
	// Output overrides stdout/stderr; used by tests
	Output io.Writer
}

// defaultLogger implements Logger on top of the standard log package
type defaultLogger struct {
	errorLogger *log.Logger
	infoLogger  *log.Logger
	debugLogger *log.Logger
	config      LoggerConfig
	fields      map[string]interface{}
}

// NewDefaultLogger creates a plain-text logger at DEBUG level
func NewDefaultLogger() Logger {
	return NewLogger(LoggerConfig{Level: "DEBUG"})
}

// NewJSONLogger creates a logger with JSON output enabled
func NewJSONLogger() Logger {
	return NewLogger(LoggerConfig{JSONOutput: true, Level: "DEBUG"})
}

// NewLogger creates a new logger with configuration
func NewLogger(config LoggerConfig) Logger {
	config.Level = strings.ToUpper(config.Level)
	var errOut, stdOut io.Writer = os.Stderr, os.Stdout
	if config.Output != nil {
		errOut, stdOut = config.Output, config.Output
	}
	if config.JSONOutput {
		return &defaultLogger{
			errorLogger: log.New(errOut, "", 0),
			infoLogger:  log.New(stdOut, "", 0),
			debugLogger: log.New(stdOut, "", 0),
			config:      config,
			fields:      make(map[string]interface{}),
		}
	}
	flags := log.LstdFlags | log.Lshortfile
	return &defaultLogger{
		errorLogger: log.New(errOut, "[ERROR] ", flags),
		infoLogger:  log.New(stdOut, "[INFO] ", flags),
		debugLogger: log.New(stdOut, "[DEBUG] ", flags),
		config:      config,
		fields:      make(map[string]interface{}),
	}
}

// logEntry represents a structured log entry
type logEntry struct {
	Timestamp string                 `json:"timestamp,omitempty"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

func (l *defaultLogger) log(level string, logger *log.Logger, message string) {
	if !l.shouldLog(level) {
		return
	}

	// depth 3 reports the caller of Error/Info/Debug
	if l.config.JSONOutput {
		entry := logEntry{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Level:     level,
			Message:   message,
		}
		if len(l.fields) > 0 {
			entry.Fields = l.fields
		}
		jsonData, err := json.Marshal(entry)
		if err == nil {
			_ = logger.Output(3, string(jsonData))
			return
		}
		_ = logger.Output(3, fmt.Sprintf("%s %v", message, l.fields))
		return
	}

	if len(l.fields) > 0 {
		_ = logger.Output(3, fmt.Sprintf("%s %v", message, l.fields))
	} else {
		_ = logger.Output(3, message)
	}
}

// shouldLog checks the level against the configured minimum
func (l *defaultLogger) shouldLog(level string) bool {
	levels := map[string]int{
		"DEBUG": 0,
		"INFO":  1,
		"ERROR": 2,
	}

	configLevel, ok := levels[l.config.Level]
	if !ok {
		configLevel = 0
	}
	logLevel, ok := levels[level]
	if !ok {
		return true
	}
	return logLevel >= configLevel
}

func (l *defaultLogger) Error(args ...interface{}) {
	l.log("ERROR", l.errorLogger, sprint(args...))
}

func (l *defaultLogger) Info(args ...interface{}) {
	l.log("INFO", l.infoLogger, sprint(args...))
}

func (l *defaultLogger) Debug(args ...interface{}) {
	l.log("DEBUG", l.debugLogger, sprint(args...))
}

// WithFields returns a new logger with structured fields.
// New fields override existing ones with the same key.
func (l *defaultLogger) WithFields(fields map[string]interface{}) Logger {
	newFields := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		newFields[k] = v
	}
	for k, v := range fields {
		newFields[k] = v
	}
	return &defaultLogger{
		errorLogger: l.errorLogger,
		infoLogger:  l.infoLogger,
		debugLogger: l.debugLogger,
		config:      l.config,
		fields:      newFields,
	}
}

func (l *defaultLogger) WithContext(ctx context.Context) Logger {
	if requestID := GetRequestID(ctx); requestID != "" {
		return l.WithFields(map[string]interface{}{"request_id": requestID})
	}
	return l
}

// sprint joins args with spaces, like log.Println without the newline.
// A leading format string with more args is treated as Sprintf.
func sprint(args ...interface{}) string {
	if len(args) > 1 {
		if format, ok := args[0].(string); ok && strings.Contains(format, "%") {
			return fmt.Sprintf(format, args[1:]...)
		}
	}
	s := fmt.Sprintln(args...)
	return s[:len(s)-1]
}
