package ratelimiter

import (
	"sync"
	"time"
)

// LeakyBucket smooths bursts into a steady outflow of rate requests per second.
type LeakyBucket struct {
	clock
	rate     float64
	capacity float64
	level    float64
	last     time.Time
	mu       sync.Mutex
}

// NewLeakyBucket creates an empty bucket.
func NewLeakyBucket(rate float64, capacity int, opts ...Option) *LeakyBucket {
	c := newClock(opts)
	return &LeakyBucket{
		clock:    c,
		rate:     rate,
		capacity: float64(capacity),
		last:     c.now(),
	}
}

// Allow leaks the bucket for the elapsed time and admits the request if there is room.
func (lb *LeakyBucket) Allow() bool {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	now := lb.now()
	if leaked := now.Sub(lb.last).Seconds() * lb.rate; leaked > 0 {
		lb.level -= leaked
		if lb.level < 0 {
			lb.level = 0
		}
		lb.last = now
	}

	if lb.level < lb.capacity {
		lb.level++
		return true
	}
	return false
}
