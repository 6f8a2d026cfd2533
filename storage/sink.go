package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/auditmos/logseq-mcp/logging"
)

var ErrClosed = errors.New("storage: writer closed")

// EventWriter persists already sanitized events.
type EventWriter interface {
	Write(ev logging.LogEvent) error
	Close() error
}

// FileSink appends one JSON line per event to a rotating file. The rotation
// check and the append happen under one lock so lines never interleave.
type FileSink struct {
	mu     sync.Mutex
	rot    *RotationManager
	closed bool
}

func NewFileSink(rot *RotationManager) *FileSink {
	return &FileSink{rot: rot}
}

func OpenFileSink(cfg RotationConfig) (*FileSink, error) {
	rot, err := NewRotationManager(cfg)
	if err != nil {
		return nil, err
	}
	return NewFileSink(rot), nil
}

func (s *FileSink) Write(ev logging.LogEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("file sink: marshal: %w", err)
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.rot.BeforeWrite(len(data)); err != nil {
		return fmt.Errorf("file sink: %w", err)
	}
	if _, err := s.rot.Write(data); err != nil {
		return fmt.Errorf("file sink: %w", err)
	}
	return nil
}

func (s *FileSink) State() RotationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rot.State()
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.rot.Close()
}

// ConsoleSink echoes events in human readable form, stderr by default.
type ConsoleSink struct {
	mu        sync.Mutex
	out       io.Writer
	formatter logging.Formatter
}

func NewConsoleSink(w io.Writer) *ConsoleSink {
	if w == nil {
		w = os.Stderr
	}
	return &ConsoleSink{out: w, formatter: logging.NewHumanFormatter(w)}
}

func (s *ConsoleSink) Write(ev logging.LogEvent) error {
	fields := logging.Fields{
		"arguments":   compactJSON(ev.Arguments),
		"duration_ms": ev.DurationMs,
	}
	if ev.Result != nil {
		fields["result"] = compactJSON(ev.Result)
	}

	data, err := s.formatter.Format(logging.LogEntry{
		Timestamp: ev.Timestamp,
		Level:     ev.Level,
		Component: ev.Logger,
		Action:    ev.ToolName,
		Message:   ev.Message,
		Fields:    fields,
	})
	if err != nil {
		return fmt.Errorf("console sink: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.out.Write(data); err != nil {
		return fmt.Errorf("console sink: %w", err)
	}
	return nil
}

func (s *ConsoleSink) Close() error { return nil }

func compactJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "?"
	}
	return string(data)
}

// MultiSink delivers every event to each writer in turn. A failing writer
// does not stop delivery to the rest.
type MultiSink struct {
	writers []EventWriter
}

func NewMultiSink(writers ...EventWriter) *MultiSink {
	return &MultiSink{writers: writers}
}

func (m *MultiSink) Write(ev logging.LogEvent) error {
	var errs []error
	for _, w := range m.writers {
		if err := w.Write(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) Close() error {
	var errs []error
	for _, w := range m.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
