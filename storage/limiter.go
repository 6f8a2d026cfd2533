package storage

import (
	"sync"
	"time"
)

// warnLimiter caps how often a diagnostic of one kind is emitted in a
// sliding window, so a stuck disk does not flood stderr.
type warnLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	now     func() time.Time
	windows map[string]*slidingWindow
}

type slidingWindow struct {
	timestamps []time.Time
	// suppressed counts emissions refused since the last allowed one.
	suppressed int
}

func newWarnLimiter(limit int, window time.Duration, now func() time.Time) *warnLimiter {
	if now == nil {
		now = time.Now
	}
	return &warnLimiter{
		limit:   limit,
		window:  window,
		now:     now,
		windows: make(map[string]*slidingWindow),
	}
}

// allow reports whether a diagnostic of kind may be emitted now, and how
// many were suppressed before it. A non-positive limit allows everything.
func (l *warnLimiter) allow(kind string) (bool, int) {
	if l.limit <= 0 {
		return true, 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	start := now.Add(-l.window)

	w, ok := l.windows[kind]
	if !ok {
		w = &slidingWindow{}
		l.windows[kind] = w
	}

	valid := w.timestamps[:0]
	for _, ts := range w.timestamps {
		if ts.After(start) {
			valid = append(valid, ts)
		}
	}
	w.timestamps = valid

	if len(w.timestamps) >= l.limit {
		w.suppressed++
		return false, 0
	}

	w.timestamps = append(w.timestamps, now)
	suppressed := w.suppressed
	w.suppressed = 0
	return true, suppressed
}
