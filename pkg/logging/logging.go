package logging

import (
	"fmt"
	"strings"
)

const (
	LogLevelDebug = 0
	LogLevelInfo  = 1
	LogLevelWarn  = 2
	LogLevelError = 3
)

type Logger interface {
	LogLevelf(level int, format string, args ...interface{})
	Debugf(msg string, args ...interface{})
	Infof(msg string, args ...interface{})
	Warnf(msg string, args ...interface{})
	Errorf(msg string, args ...interface{})
}

type LogLevelFunc func(level int, format string, args ...interface{})
type LogFunc func(format string, args ...interface{})

// WithFunc derives sink functions whose entries carry extra key/value pairs
type WithFunc func(keysAndValues ...interface{}) LogFuncs

type LogFuncs struct {
	LogLevelf LogLevelFunc
	Debugf    LogFunc
	Infof     LogFunc
	Warnf     LogFunc
	Errorf    LogFunc

	// With is optional; sinks without it get fields rendered into the message
	With WithFunc
}

type logger struct {
	prefix string
	funcs  LogFuncs
}

// NewLogger wraps plain log functions; nil functions drop the message.
func NewLogger(prefix string, funcs LogFuncs) Logger {
	return &logger{
		prefix: prefix,
		funcs:  funcs,
	}
}

// NewNopLogger discards everything.
func NewNopLogger() Logger {
	return NewLogger("", LogFuncs{})
}

// WithPrefix scopes a logger to a component. Structured sinks record it as
// the "component" field, others get a "component: " message prefix.
func WithPrefix(parent Logger, component string) Logger {
	if l, ok := parent.(*logger); ok && l.funcs.With != nil {
		return NewLogger(l.prefix, l.funcs.With("component", component))
	}
	return NewLogger(component+": ", LogFuncs{LogLevelf: parent.LogLevelf})
}

// WithFields returns a logger whose entries carry the given key/value pairs
func WithFields(parent Logger, keysAndValues ...interface{}) Logger {
	if len(keysAndValues) == 0 {
		return parent
	}
	if l, ok := parent.(*logger); ok && l.funcs.With != nil {
		return NewLogger(l.prefix, l.funcs.With(keysAndValues...))
	}
	return NewLogger(formatFields(keysAndValues)+" ", LogFuncs{LogLevelf: parent.LogLevelf})
}

// formatFields renders pairs as "[k=v k=v]"; a dangling key gets no value
func formatFields(keysAndValues []interface{}) string {
	parts := make([]string, 0, (len(keysAndValues)+1)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		if i+1 < len(keysAndValues) {
			parts = append(parts, fmt.Sprintf("%v=%v", keysAndValues[i], keysAndValues[i+1]))
		} else {
			parts = append(parts, fmt.Sprintf("%v", keysAndValues[i]))
		}
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func (l *logger) logf(level int, msg string, args ...interface{}) {
	if l.prefix != "" {
		msg = l.prefix + msg
	}
	if l.funcs.LogLevelf != nil {
		l.funcs.LogLevelf(level, msg, args...)
		return
	}

	var sink LogFunc
	switch level {
	case LogLevelDebug:
		sink = l.funcs.Debugf
	case LogLevelInfo:
		sink = l.funcs.Infof
	case LogLevelWarn:
		sink = l.funcs.Warnf
	case LogLevelError:
		sink = l.funcs.Errorf
	}
	if sink != nil {
		sink(msg, args...)
	}
}

func (l *logger) LogLevelf(level int, format string, args ...interface{}) {
	l.logf(level, format, args...)
}

func (l *logger) Debugf(msg string, args ...interface{}) {
	l.logf(LogLevelDebug, msg, args...)
}

func (l *logger) Infof(msg string, args ...interface{}) {
	l.logf(LogLevelInfo, msg, args...)
}

func (l *logger) Warnf(msg string, args ...interface{}) {
	l.logf(LogLevelWarn, msg, args...)
}

func (l *logger) Errorf(msg string, args ...interface{}) {
	l.logf(LogLevelError, msg, args...)
}
