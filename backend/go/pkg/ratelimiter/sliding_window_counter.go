package ratelimiter

import (
	"sync"
	"time"
)

// SlidingWindowCounter splits the window into buckets and sums them.
// Cheaper than the log and more accurate at window edges than the fixed counter.
type SlidingWindowCounter struct {
	clock
	limit      int
	numBuckets int
	bucketSize time.Duration
	buckets    []int
	current    int
	last       time.Time
	mu         sync.Mutex
}

// NewSlidingWindowCounter creates a counter with numBuckets buckets (10 when numBuckets <= 0).
func NewSlidingWindowCounter(limit int, window time.Duration, numBuckets int, opts ...Option) *SlidingWindowCounter {
	if numBuckets <= 0 {
		numBuckets = 10
	}
	c := newClock(opts)
	return &SlidingWindowCounter{
		clock:      c,
		limit:      limit,
		numBuckets: numBuckets,
		bucketSize: window / time.Duration(numBuckets),
		buckets:    make([]int, numBuckets),
		last:       c.now(),
	}
}

// slide clears the buckets that fell out of the window. Caller holds mu.
func (s *SlidingWindowCounter) slide(now time.Time) {
	steps := int(now.Sub(s.last) / s.bucketSize)
	if steps <= 0 {
		return
	}
	if steps >= s.numBuckets {
		for i := range s.buckets {
			s.buckets[i] = 0
		}
	} else {
		for i := 1; i <= steps; i++ {
			s.buckets[(s.current+i)%s.numBuckets] = 0
		}
	}
	s.current = (s.current + steps) % s.numBuckets
	s.last = s.last.Add(time.Duration(steps) * s.bucketSize)
}

// Allow admits the request if the sum over all buckets is below the limit.
func (s *SlidingWindowCounter) Allow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.slide(s.now())
	total := 0
	for _, n := range s.buckets {
		total += n
	}
	if total < s.limit {
		s.buckets[s.current]++
		return true
	}
	return false
}
