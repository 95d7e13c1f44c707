package log

import (
	"github.com/kataras/golog"
)

// GologLogger adapts kataras/golog to the Logger interface. Every package
// in this module logs through a short component prefix ("retrieval: ",
// "glossary: ", "cache: ", ...); GologLogger carries that prefix itself
// so callers that want golog's structured output don't have to repeat it
// in every format string the way the stdlib-backed DefaultLogger's
// callers do.
type GologLogger struct {
	logger    *golog.Logger
	level     LogLevel
	component string
}

var _ Logger = (*GologLogger)(nil)

// NewGologLogger wraps an existing golog.Logger with no component prefix.
func NewGologLogger(logger *golog.Logger) *GologLogger {
	return NewComponentGologLogger(logger, "")
}

// NewComponentGologLogger wraps logger and prefixes every message with
// "component: ", matching the convention the rest of the module uses for
// its log lines.
func NewComponentGologLogger(logger *golog.Logger, component string) *GologLogger {
	return &GologLogger{
		logger:    logger,
		level:     LogLevelInfo,
		component: component,
	}
}

func (l *GologLogger) prefixed(format string) string {
	if l.component == "" {
		return format
	}
	return l.component + ": " + format
}

// Debug logs debug messages
func (l *GologLogger) Debug(format string, v ...any) {
	if l.level > LogLevelDebug {
		return
	}
	l.logger.Debug(append([]any{l.prefixed(format)}, v...)...)
}

// Info logs informational messages
func (l *GologLogger) Info(format string, v ...any) {
	if l.level > LogLevelInfo {
		return
	}
	l.logger.Info(append([]any{l.prefixed(format)}, v...)...)
}

// Warn logs warning messages
func (l *GologLogger) Warn(format string, v ...any) {
	if l.level > LogLevelWarn {
		return
	}
	l.logger.Warn(append([]any{l.prefixed(format)}, v...)...)
}

// Error logs error messages
func (l *GologLogger) Error(format string, v ...any) {
	if l.level > LogLevelError {
		return
	}
	l.logger.Error(append([]any{l.prefixed(format)}, v...)...)
}

// levelNames maps our LogLevel to the level strings golog.SetLevel expects.
var levelNames = map[LogLevel]string{
	LogLevelDebug: "debug",
	LogLevelInfo:  "info",
	LogLevelWarn:  "warn",
	LogLevelError: "error",
	LogLevelNone:  "disable",
}

// SetLevel sets the log level, on both the adapter and the underlying
// golog.Logger so golog's own filtering stays in sync with ours.
func (l *GologLogger) SetLevel(level LogLevel) {
	l.level = level
	name, ok := levelNames[level]
	if !ok {
		name = "info"
	}
	l.logger.SetLevel(name)
}

// GetLevel returns the current log level
func (l *GologLogger) GetLevel() LogLevel {
	return l.level
}