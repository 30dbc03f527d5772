package ratelimiter

import (
	"fmt"
	"time"

	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/config"
)

// RateLimiter is the interface for rate limiting.
// Allow returns true if a request is allowed, and false otherwise.
type RateLimiter interface {
	Allow() bool
}

// Option configures a limiter at construction time.
type Option func(*clock)

// WithClock replaces the time source. Tests use it to step time deterministically.
func WithClock(now func() time.Time) Option {
	return func(c *clock) { c.now = now }
}

type clock struct {
	now func() time.Time
}

func newClock(opts []Option) clock {
	c := clock{now: time.Now}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// FromConfig builds the limiter selected by cfg.Algorithm. An empty algorithm means tokenBucket.
// The HTTP server and the gRPC server share this so both honour the same middleware section.
func FromConfig(cfg config.RateLimiterConfig, opts ...Option) (RateLimiter, error) {
	switch cfg.Algorithm {
	case "", "tokenBucket":
		return NewTokenBucket(cfg.TokenBucket.Rate, cfg.TokenBucket.Capacity, opts...), nil
	case "leakyBucket":
		return NewLeakyBucket(cfg.LeakyBucket.Rate, cfg.LeakyBucket.Capacity, opts...), nil
	case "fixedWindow":
		window, err := time.ParseDuration(cfg.FixedWindow.Window)
		if err != nil {
			return nil, fmt.Errorf("invalid fixedWindow duration: %w", err)
		}
		return NewFixedWindowCounter(cfg.FixedWindow.Limit, window, opts...), nil
	case "slidingLog":
		window, err := time.ParseDuration(cfg.SlidingLog.Window)
		if err != nil {
			return nil, fmt.Errorf("invalid slidingLog duration: %w", err)
		}
		return NewSlidingWindowLog(cfg.SlidingLog.Limit, window, opts...), nil
	case "slidingCounter":
		window, err := time.ParseDuration(cfg.SlidingCounter.Window)
		if err != nil {
			return nil, fmt.Errorf("invalid slidingCounter duration: %w", err)
		}
		return NewSlidingWindowCounter(cfg.SlidingCounter.Limit, window, cfg.SlidingCounter.NumBuckets, opts...), nil
	default:
		return nil, fmt.Errorf("unknown rate limiter algorithm: %s", cfg.Algorithm)
	}
}
