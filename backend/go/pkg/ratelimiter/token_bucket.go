package ratelimiter

import (
	"sync"
	"time"
)

// TokenBucket allows bursts up to capacity and refills at rate tokens per second.
// Each agent connection gets its own bucket for inbound events.
type TokenBucket struct {
	clock
	rate     float64
	capacity float64
	tokens   float64
	last     time.Time
	mu       sync.Mutex
}

// NewTokenBucket creates a full bucket.
func NewTokenBucket(rate float64, capacity int, opts ...Option) *TokenBucket {
	c := newClock(opts)
	return &TokenBucket{
		clock:    c,
		rate:     rate,
		capacity: float64(capacity),
		tokens:   float64(capacity),
		last:     c.now(),
	}
}

// Allow refills the bucket for the elapsed time and takes one token if available.
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.now()
	if elapsed := now.Sub(tb.last); elapsed > 0 {
		tb.tokens += elapsed.Seconds() * tb.rate
		if tb.tokens > tb.capacity {
			tb.tokens = tb.capacity
		}
		tb.last = now
	}

	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}
