package telemetry

import (
	"sync"
	"time"
)

// SlidingWindowLimiter caps how many viewers may connect within a window.
type SlidingWindowLimiter struct {
	window time.Duration
	limit  int
	now    func() time.Time

	mu      sync.Mutex
	accepts []time.Time
}

// NewSlidingWindowLimiter allows up to limit events per window. A zero window or
// limit disables the cap.
func NewSlidingWindowLimiter(window time.Duration, limit int, clock func() time.Time) *SlidingWindowLimiter {
	if clock == nil {
		clock = time.Now
	}
	return &SlidingWindowLimiter{window: window, limit: limit, now: clock}
}

// Allow reports whether another event fits in the current window and records it if so.
func (l *SlidingWindowLimiter) Allow() bool {
	if l == nil || l.limit <= 0 || l.window <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)
	//1.- Forget accepts that slid out of the window before counting.
	kept := l.accepts[:0]
	for _, ts := range l.accepts {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	l.accepts = kept
	if len(l.accepts) >= l.limit {
		return false
	}
	l.accepts = append(l.accepts, now)
	return true
}
