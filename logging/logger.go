package logging

import (
	"io"
	"os"
	"sync"
	"time"
)

// Logger is the diagnostic channel. It reports on the server and on the
// logging pipeline itself and never receives unsanitized tool payloads.
type Logger interface {
	Debug(component, action, msg string)
	Info(component, action, msg string)
	Warn(component, action, msg string)
	Error(component, action, msg string)
	WithFields(fields Fields) Logger
	WithError(err error) Logger
	WithTraceID(traceID string) Logger
}

type StandardLogger struct {
	mu        *sync.Mutex
	out       io.Writer
	formatter Formatter
	level     LogLevel
	fields    Fields
	traceID   string
	sanitize  bool
	errType   string
	now       func() time.Time
}

type LoggerConfig struct {
	Output    io.Writer
	Formatter Formatter
	Level     LogLevel
	Sanitize  bool
	Now       func() time.Time
}

func NewLogger(cfg LoggerConfig) *StandardLogger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	formatter := cfg.Formatter
	if formatter == nil {
		formatter = NewHumanFormatter(out)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &StandardLogger{
		mu:        &sync.Mutex{},
		out:       out,
		formatter: formatter,
		level:     cfg.Level,
		fields:    make(Fields),
		sanitize:  cfg.Sanitize,
		now:       now,
	}
}

func (l *StandardLogger) log(level LogLevel, component, action, msg string) {
	if !level.ShouldLog(l.level) {
		return
	}

	fields := l.fields
	if l.sanitize {
		fields = fields.Sanitize()
	}

	entry := LogEntry{
		Timestamp: l.now(),
		Level:     level,
		Component: component,
		Action:    action,
		Message:   msg,
		Fields:    fields,
		TraceID:   l.traceID,
		ErrorType: l.errType,
	}

	if errField, ok := fields["error"]; ok {
		if errStr, ok := errField.(string); ok {
			entry.Error = errStr
		}
	}

	data, err := l.formatter.Format(entry)
	if err != nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.out.Write(data)
}

func (l *StandardLogger) Debug(component, action, msg string) {
	l.log(DEBUG, component, action, msg)
}

func (l *StandardLogger) Info(component, action, msg string) {
	l.log(INFO, component, action, msg)
}

func (l *StandardLogger) Warn(component, action, msg string) {
	l.log(WARNING, component, action, msg)
}

func (l *StandardLogger) Error(component, action, msg string) {
	l.log(ERROR, component, action, msg)
}

func (l *StandardLogger) clone() *StandardLogger {
	c := *l
	return &c
}

func (l *StandardLogger) WithFields(fields Fields) Logger {
	newFields := make(Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		newFields[k] = v
	}
	for k, v := range fields {
		newFields[k] = v
	}

	c := l.clone()
	c.fields = newFields
	return c
}

func (l *StandardLogger) WithError(err error) Logger {
	if err == nil {
		return l
	}
	newLogger := l.WithFields(Fields{"error": err.Error()}).(*StandardLogger)
	newLogger.errType = ErrorType(err)
	return newLogger
}

func (l *StandardLogger) WithTraceID(traceID string) Logger {
	c := l.clone()
	c.traceID = traceID
	return c
}

type NopLogger struct{}

func (NopLogger) Debug(component, action, msg string) {}
func (NopLogger) Info(component, action, msg string)  {}
func (NopLogger) Warn(component, action, msg string)  {}
func (NopLogger) Error(component, action, msg string) {}
func (n NopLogger) WithFields(fields Fields) Logger   { return n }
func (n NopLogger) WithError(err error) Logger        { return n }
func (n NopLogger) WithTraceID(traceID string) Logger { return n }
