// Package pipeline turns tool invocations into sanitized log records.
// Nothing in here returns an error to the caller: a tool call never fails
// because its log line could not be written.
package pipeline

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/auditmos/logseq-mcp/logging"
	"github.com/auditmos/logseq-mcp/privacy"
	"github.com/auditmos/logseq-mcp/storage"
)

const DefaultLoggerName = "logseq-mcp"

// Invocation is what the dispatch layer reports about one finished tool
// call. Arguments and Result are raw; the pipeline does the redaction.
type Invocation struct {
	ToolName  string
	Arguments map[string]any
	Result    any
	Err       error
	Duration  time.Duration
	// Hints classifies argument names the field table does not know.
	Hints privacy.Hints
}

type Options struct {
	Sanitizer  *privacy.Sanitizer
	Writer     storage.EventWriter
	MinLevel   logging.LogLevel
	LoggerName string
	Diag       logging.Logger
	Now        func() time.Time
	// Closers run after Writer is closed, in order.
	Closers []func() error
}

type Pipeline struct {
	sanitizer  *privacy.Sanitizer
	writer     storage.EventWriter
	minLevel   logging.LogLevel
	loggerName string
	diag       logging.Logger
	now        func() time.Time
	closers    []func() error
	closeOnce  sync.Once
	closeErr   error
}

func New(opts Options) *Pipeline {
	p := &Pipeline{
		sanitizer:  opts.Sanitizer,
		writer:     opts.Writer,
		minLevel:   opts.MinLevel,
		loggerName: opts.LoggerName,
		diag:       opts.Diag,
		now:        opts.Now,
		closers:    opts.Closers,
	}
	if p.sanitizer == nil {
		p.sanitizer = privacy.NewSanitizer(privacy.ModePrivacy, nil)
	}
	if p.loggerName == "" {
		p.loggerName = DefaultLoggerName
	}
	if p.diag == nil {
		p.diag = logging.NopLogger{}
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

func (p *Pipeline) Mode() privacy.Mode { return p.sanitizer.Mode() }

// LogToolCall records a finished invocation, at ERROR when it failed and
// INFO otherwise.
func (p *Pipeline) LogToolCall(inv Invocation) {
	level := logging.INFO
	if inv.Err != nil {
		level = logging.ERROR
	}
	p.Log(level, inv)
}

// Log builds, sanitizes and writes one record for inv. Failures are
// reported on the diagnostic logger only.
func (p *Pipeline) Log(level logging.LogLevel, inv Invocation) {
	if !level.ShouldLog(p.minLevel) || p.writer == nil {
		return
	}

	diag := p.diag.WithFields(logging.Fields{"tool": inv.ToolName})
	defer func() {
		if r := recover(); r != nil {
			diag.WithError(&logging.PanicError{Value: r}).Error("pipeline", "log", "Logging a tool call panicked")
		}
	}()

	ev := p.event(level, inv)
	sanitized, ok := p.sanitizer.Sanitize(ev, inv.Hints)
	if !ok {
		return
	}
	if err := p.writer.Write(sanitized); err != nil {
		diag.WithError(err).Warn("pipeline", "write", "Writing log record failed")
	}
}

func (p *Pipeline) event(level logging.LogLevel, inv Invocation) logging.LogEvent {
	ev := logging.LogEvent{
		Timestamp:  p.now(),
		Level:      level,
		Logger:     p.loggerName,
		ToolName:   inv.ToolName,
		Arguments:  inv.Arguments,
		Result:     inv.Result,
		DurationMs: float64(inv.Duration.Microseconds()) / 1000,
	}
	if inv.Err != nil {
		ev.Message = fmt.Sprintf("Tool %s failed", inv.ToolName)
		ev.Result = logging.ErrorDescriptor(inv.Err)
	} else {
		ev.Message = fmt.Sprintf("Tool %s completed successfully", inv.ToolName)
	}
	return ev
}

// Close flushes pending records and releases the log file.
func (p *Pipeline) Close() error {
	p.closeOnce.Do(func() {
		var errs []error
		if p.writer != nil {
			if err := p.writer.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		for _, c := range p.closers {
			if err := c(); err != nil {
				errs = append(errs, err)
			}
		}
		p.closeErr = errors.Join(errs...)
	})
	return p.closeErr
}
