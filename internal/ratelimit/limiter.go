// Package ratelimit implements a fixed-window request throttle keyed by an
// arbitrary string (typically a credential).
//
// The limiter is a shared, process-wide store: any component holding a
// reference may call it concurrently, so the internal map is the single
// source of truth and every check-then-increment runs as one critical
// section under the mutex.
package ratelimit

import (
	"sync"
	"time"
)

// DefaultSweepInterval is how often elapsed windows are removed when no
// interval is configured.
const DefaultSweepInterval = time.Minute

// window tracks request admissions for one key within the current
// fixed window. It is replaced, not incremented, once the window elapses.
type window struct {
	count   int
	resetAt time.Time
}

// Limiter is a fixed-window counter keyed by string.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window

	max    int
	length time.Duration

	stopOnce sync.Once
	stop     chan struct{}

	// now is swappable for tests.
	now func() time.Time
}

// New creates a limiter admitting max requests per windowLength for each key
// and starts a background sweep that drops elapsed windows. Call Stop during
// shutdown to halt the sweep.
func New(max int, windowLength time.Duration) *Limiter {
	return NewWithSweep(max, windowLength, DefaultSweepInterval)
}

// NewWithSweep is New with an explicit sweep interval. A non-positive
// interval disables the background sweep (lazy expiration still applies).
func NewWithSweep(max int, windowLength, sweepInterval time.Duration) *Limiter {
	l := &Limiter{
		windows: make(map[string]*window),
		max:     max,
		length:  windowLength,
		stop:    make(chan struct{}),
		now:     time.Now,
	}
	if sweepInterval > 0 {
		go l.sweepLoop(sweepInterval)
	}
	return l
}

// Allow performs the admission check for key.
//
// If no window exists for the key, or the current window has elapsed, a
// fresh window is started and the request is admitted. If the window's
// count has reached the maximum the request is rejected and the window's
// reset time is returned so the caller can compute a wait duration.
func (l *Limiter) Allow(key string) (bool, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w := l.windows[key]
	if w == nil || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(l.length)}
		l.windows[key] = w
	}

	if w.count >= l.max {
		return false, w.resetAt
	}
	w.count++
	return true, w.resetAt
}

// Remaining reports how many admissions are left in the key's current
// window. A key with no live window has the full budget.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.windows[key]
	if w == nil || !l.now().Before(w.resetAt) {
		return l.max
	}
	if w.count >= l.max {
		return 0
	}
	return l.max - w.count
}

// Stop halts the background sweep. The limiter remains usable.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *Limiter) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

// sweep removes windows that have already elapsed, bounding memory for keys
// no longer in use.
func (l *Limiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, key)
		}
	}
}

// size reports the number of live windows. Test helper.
func (l *Limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
