// Package logging provides structured logging for VibeForge.
// It keeps a small leveled API with fields on top of zerolog.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// Level represents log level
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func (l Level) String() string {
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

func (l Level) zerolog() zerolog.Level {
	switch l {
	case DEBUG:
		return zerolog.DebugLevel
	case INFO:
		return zerolog.InfoLevel
	case WARN:
		return zerolog.WarnLevel
	case ERROR:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// ParseLevel converts a level name to a Level
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG, nil
	case "info", "":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("unknown log level %q", s)
	}
}

// Output formats
const (
	FormatAuto    = "auto"
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Logger is a structured logger
type Logger struct {
	zl    zerolog.Logger
	level Level
}

var (
	defaultMu     sync.RWMutex
	defaultLogger = New(os.Stdout, INFO, FormatAuto)
)

// New creates a logger writing to w in the given format
func New(w io.Writer, level Level, format string) *Logger {
	if format == FormatConsole || (format == FormatAuto && isTerminal(w)) {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}
	zl := zerolog.New(w).With().Timestamp().Logger().Level(level.zerolog())
	return &Logger{zl: zl, level: level}
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop(), level: ERROR}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Setup replaces the default logger
func Setup(level Level, format string, w io.Writer) *Logger {
	l := New(w, level, format)
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
	return l
}

// Default returns the process-wide logger
func Default() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetLevel sets the global log level
func SetLevel(level Level) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = &Logger{zl: defaultLogger.zl.Level(level.zerolog()), level: level}
}

// SetOutput sets the output writer, keeping JSON format
func SetOutput(w io.Writer) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = New(w, defaultLogger.level, FormatJSON)
}

// WithField returns a logger with a field added
func WithField(key string, value interface{}) *Logger {
	return Default().WithField(key, value)
}

// WithFields returns a logger with multiple fields added
func WithFields(fields map[string]interface{}) *Logger {
	return Default().WithFields(fields)
}

// Level returns the minimum level this logger emits
func (l *Logger) Level() Level {
	return l.level
}

// WithField adds a field to the logger
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{zl: l.zl.With().Interface(key, value).Logger(), level: l.level}
}

// WithFields adds multiple fields
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return &Logger{zl: l.zl.With().Fields(fields).Logger(), level: l.level}
}

// WithError attaches err under the "error" key
func (l *Logger) WithError(err error) *Logger {
	return &Logger{zl: l.zl.With().Err(err).Logger(), level: l.level}
}

func (l *Logger) log(ev *zerolog.Event, msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	ev.Msg(msg)
}

// Debug logs a debug message
func Debug(msg string, args ...interface{}) { Default().Debug(msg, args...) }

// Info logs an info message
func Info(msg string, args ...interface{}) { Default().Info(msg, args...) }

// Warn logs a warning message
func Warn(msg string, args ...interface{}) { Default().Warn(msg, args...) }

// Error logs an error message
func Error(msg string, args ...interface{}) { Default().Error(msg, args...) }

// Logger methods
func (l *Logger) Debug(msg string, args ...interface{}) { l.log(l.zl.Debug(), msg, args...) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log(l.zl.Info(), msg, args...) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log(l.zl.Warn(), msg, args...) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log(l.zl.Error(), msg, args...) }

