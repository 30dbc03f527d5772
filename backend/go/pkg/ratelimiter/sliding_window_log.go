package ratelimiter

import (
	"container/list"
	"sync"
	"time"
)

// SlidingWindowLog keeps the timestamp of every admitted request inside the window.
type SlidingWindowLog struct {
	clock
	limit  int
	window time.Duration
	log    *list.List
	mu     sync.Mutex
}

// NewSlidingWindowLog creates an empty log.
func NewSlidingWindowLog(limit int, window time.Duration, opts ...Option) *SlidingWindowLog {
	return &SlidingWindowLog{
		clock:  newClock(opts),
		limit:  limit,
		window: window,
		log:    list.New(),
	}
}

// Allow drops timestamps older than the window and admits the request if the log has room.
func (s *SlidingWindowLog) Allow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	boundary := now.Add(-s.window)
	// Timestamps are appended in order, so the oldest is at the front.
	for e := s.log.Front(); e != nil && !e.Value.(time.Time).After(boundary); e = s.log.Front() {
		s.log.Remove(e)
	}

	if s.log.Len() < s.limit {
		s.log.PushBack(now)
		return true
	}
	return false
}
