package storage

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/auditmos/logseq-mcp/logging"
)

const (
	defaultBufferSize   = 1024
	defaultDrainTimeout = 5 * time.Second
	defaultWarnLimit    = 10
	defaultWarnWindow   = time.Minute
)

type AsyncOption func(*AsyncWriter)

func WithBufferSize(n int) AsyncOption {
	return func(a *AsyncWriter) {
		if n > 0 {
			a.bufSize = n
		}
	}
}

func WithDrainTimeout(d time.Duration) AsyncOption {
	return func(a *AsyncWriter) { a.drainTimeout = d }
}

// WithDiagnostics sets where dropped events and inner write failures are
// reported.
func WithDiagnostics(l logging.Logger) AsyncOption {
	return func(a *AsyncWriter) {
		if l != nil {
			a.diag = l
		}
	}
}

// WithWarnLimit caps drop and write failure diagnostics to n per window
// each. Zero disables the cap.
func WithWarnLimit(n int, window time.Duration, now func() time.Time) AsyncOption {
	return func(a *AsyncWriter) { a.warns = newWarnLimiter(n, window, now) }
}

// AsyncWriter hands events to a background goroutine. Write never blocks:
// when the buffer is full the event is dropped and counted.
type AsyncWriter struct {
	inner        EventWriter
	ch           chan logging.LogEvent
	done         chan struct{}
	diag         logging.Logger
	bufSize      int
	drainTimeout time.Duration
	dropped      atomic.Uint64
	warns        *warnLimiter

	mu     sync.RWMutex
	closed bool
}

func NewAsyncWriter(inner EventWriter, opts ...AsyncOption) *AsyncWriter {
	a := &AsyncWriter{
		inner:        inner,
		diag:         logging.NopLogger{},
		bufSize:      defaultBufferSize,
		drainTimeout: defaultDrainTimeout,
		warns:        newWarnLimiter(defaultWarnLimit, defaultWarnWindow, nil),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.ch = make(chan logging.LogEvent, a.bufSize)
	a.done = make(chan struct{})
	go a.drain()
	return a
}

func (a *AsyncWriter) Write(ev logging.LogEvent) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}

	select {
	case a.ch <- ev:
	default:
		total := a.dropped.Add(1)
		if ok, suppressed := a.warns.allow("drop"); ok {
			a.diag.WithFields(logging.Fields{
				"tool":          ev.ToolName,
				"dropped_total": total,
				"suppressed":    suppressed,
			}).Warn("async", "write", "Log buffer full, event dropped")
		}
	}
	return nil
}

// Dropped reports how many events were discarded because the buffer was full.
func (a *AsyncWriter) Dropped() uint64 {
	return a.dropped.Load()
}

// Close stops accepting events, waits up to the drain timeout for queued
// events, then closes the inner writer.
func (a *AsyncWriter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.ch)
	a.mu.Unlock()

	select {
	case <-a.done:
	case <-time.After(a.drainTimeout):
		a.diag.WithFields(logging.Fields{"pending": len(a.ch)}).
			Warn("async", "close", "Log drain timed out")
	}
	return a.inner.Close()
}

func (a *AsyncWriter) drain() {
	defer close(a.done)
	for ev := range a.ch {
		if err := a.inner.Write(ev); err != nil {
			if ok, suppressed := a.warns.allow("write"); ok {
				a.diag.WithError(err).WithFields(logging.Fields{"suppressed": suppressed}).
					Warn("async", "write", "Log write failed")
			}
		}
	}
}
