// Package ratelimit caps tool invocations per category over a fixed
// window. Check and record happen inside one critical section: two
// interleaved requests must never both pass the check against the same
// remaining quota.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter counts calls per category within a fixed window. Each category
// anchors and rolls over its own window independently.
type Limiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu     sync.Mutex
	starts map[string]time.Time
	counts map[string]int
}

// New creates a Limiter allowing limit calls per category per window.
func New(limit int, window time.Duration) *Limiter {
	return &Limiter{
		limit:  limit,
		window: window,
		now:    time.Now,
		starts: make(map[string]time.Time),
		counts: make(map[string]int),
	}
}

// Allow reports whether one more call in the category fits the window and,
// if so, records it. Returns the remaining quota after the call.
func (l *Limiter) Allow(category string) (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.starts[category]) >= l.window {
		l.counts[category] = 0
		l.starts[category] = now
	}

	if l.counts[category] >= l.limit {
		return false, 0
	}
	l.counts[category]++
	return true, l.limit - l.counts[category]
}

// Remaining reports the quota left in the current window without consuming.
func (l *Limiter) Remaining(category string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.now().Sub(l.starts[category]) >= l.window {
		return l.limit
	}
	left := l.limit - l.counts[category]
	if left < 0 {
		return 0
	}
	return left
}
