// Package logging provides the leveled console logger used by buildrig.
package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

// Level represents the severity level of a log message.
type Level int

const (
	// LevelDebug is for verbose diagnostics (--verbose).
	LevelDebug Level = iota
	// LevelInfo is for general progress messages.
	LevelInfo
	// LevelWarn is for task warnings.
	LevelWarn
	// LevelError is for failures.
	LevelError
)

// String returns the string representation of the log level.
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

// ParseLevel parses a string into a Level. Unknown values map to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug", "verbose":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

const (
	ansiReset     = "\x1b[0m"
	ansiRed       = "\x1b[31m"
	ansiGreen     = "\x1b[32m"
	ansiYellow    = "\x1b[33m"
	ansiGray      = "\x1b[90m"
	ansiUnderline = "\x1b[4m"
)

// Logger writes leveled messages to a single sink.
type Logger struct {
	mu         *sync.Mutex
	level      *Level
	output     io.Writer
	prefix     string
	fields     map[string]any
	color      bool
	timestamps bool
	disabled   bool
}

// Config configures the logger.
type Config struct {
	// Level is the minimum log level to output.
	Level Level
	// Output is where logs are written. Defaults to os.Stderr.
	Output io.Writer
	// Prefix is prepended to every message.
	Prefix string
	// Timestamps adds an RFC3339-ish timestamp to each line.
	Timestamps bool
	// Color forces ANSI colour on or off. Nil means detect from Output.
	Color *bool
}

// DefaultConfig returns the console configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Output: os.Stderr,
	}
}

// New creates a logger from cfg.
func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	color := isTerminal(cfg.Output)
	if cfg.Color != nil {
		color = *cfg.Color
	}
	level := cfg.Level
	return &Logger{
		mu:         &sync.Mutex{},
		level:      &level,
		output:     cfg.Output,
		prefix:     cfg.Prefix,
		fields:     map[string]any{},
		color:      color,
		timestamps: cfg.Timestamps,
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Null returns a logger that discards all output.
func Null() *Logger {
	l := New(Config{Output: io.Discard})
	l.disabled = true
	return l
}

// WithField returns a logger that appends key=value to every line.
// The returned logger shares level and sink with its parent.
func (l *Logger) WithField(key string, value any) *Logger {
	return l.WithFields(map[string]any{key: value})
}

// WithFields returns a logger with the given fields added.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	newFields := make(map[string]any, len(l.fields)+len(fields))
	for k, v := range l.fields {
		newFields[k] = v
	}
	for k, v := range fields {
		newFields[k] = v
	}
	cp := *l
	cp.fields = newFields
	return &cp
}

// WithComponent returns a logger with the component field set.
func (l *Logger) WithComponent(component string) *Logger {
	return l.WithField("component", component)
}

// SetLevel sets the minimum log level.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.level = level
}

// Level returns the current minimum level.
func (l *Logger) Level() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return *l.level
}

// Enabled reports whether messages at level are written.
func (l *Logger) Enabled(level Level) bool {
	return !l.disabled && level >= l.Level()
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...any) {
	l.log(LevelDebug, "", msg, args...)
}

// Verbose is Debug under the name the build output uses.
func (l *Logger) Verbose(msg string, args ...any) {
	l.log(LevelDebug, "", msg, args...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, args ...any) {
	l.log(LevelInfo, "", msg, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, args ...any) {
	l.log(LevelWarn, ansiYellow, msg, args...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, args ...any) {
	l.log(LevelError, ansiRed, msg, args...)
}

// OK logs a success line at info level.
func (l *Logger) OK(msg string, args ...any) {
	l.log(LevelInfo, ansiGreen, ">> "+msg, args...)
}

// Header logs a task banner preceded by a blank line.
func (l *Logger) Header(msg string, args ...any) {
	if !l.Enabled(LevelInfo) {
		return
	}
	l.mu.Lock()
	_, _ = io.WriteString(l.output, "\n")
	l.mu.Unlock()
	l.log(LevelInfo, ansiUnderline, msg, args...)
}

func (l *Logger) log(level Level, color string, msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.disabled || level < *l.level {
		return
	}

	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}

	var b strings.Builder
	if l.timestamps {
		b.WriteString(time.Now().Format("2006-01-02T15:04:05.000"))
		b.WriteByte(' ')
	}
	if level != LevelInfo {
		b.WriteString("[" + level.String() + "] ")
	}
	if l.prefix != "" {
		b.WriteString(l.prefix)
		b.WriteString(": ")
	}

	if level == LevelDebug && l.color {
		color = ansiGray
	}
	if l.color && color != "" {
		b.WriteString(color + msg + ansiReset)
	} else {
		b.WriteString(msg)
	}

	if len(l.fields) > 0 {
		keys := make([]string, 0, len(l.fields))
		for k := range l.fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" {")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%v", k, l.fields[k])
		}
		b.WriteString("}")
	}
	b.WriteByte('\n')

	_, _ = io.WriteString(l.output, b.String())
}
