package ratelimiter

import (
	"sync"
	"time"
)

// FixedWindowCounter admits at most limit requests per fixed window.
type FixedWindowCounter struct {
	clock
	limit       int
	window      time.Duration
	count       int
	windowStart time.Time
	mu          sync.Mutex
}

// NewFixedWindowCounter starts the first window now.
func NewFixedWindowCounter(limit int, window time.Duration, opts ...Option) *FixedWindowCounter {
	c := newClock(opts)
	return &FixedWindowCounter{
		clock:       c,
		limit:       limit,
		window:      window,
		windowStart: c.now(),
	}
}

// Allow resets the counter once the window has passed.
func (f *FixedWindowCounter) Allow() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	if now.Sub(f.windowStart) >= f.window {
		f.windowStart = now
		f.count = 0
	}
	if f.count < f.limit {
		f.count++
		return true
	}
	return false
}
