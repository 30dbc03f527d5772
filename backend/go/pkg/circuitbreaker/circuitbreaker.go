package circuitbreaker

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/config"
)

// State represents the state of the circuit breaker.
type State int

const (
	// Closed lets every call through.
	Closed State = iota
	// Open rejects calls until the timeout has elapsed.
	Open
	// HalfOpen lets trial calls through to probe recovery.
	HalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case Closed:
		return "Closed"
	case Open:
		return "Open"
	case HalfOpen:
		return "Half-Open"
	default:
		return "Unknown"
	}
}

// ErrCircuitOpen is returned when the circuit breaker is in the Open state.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker is the interface for the circuit breaker pattern.
type CircuitBreaker interface {
	// Execute runs req unless the circuit is open.
	Execute(req func() (interface{}, error)) (interface{}, error)
	// State returns the current state of the circuit breaker.
	State() State
}

// Option customises a breaker.
type Option func(*breaker)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(b *breaker) { b.now = now }
}

// OnStateChange registers a callback invoked after every transition, outside the lock.
func OnStateChange(fn func(from, to State)) Option {
	return func(b *breaker) { b.onChange = fn }
}

type breaker struct {
	failureThreshold uint32
	successThreshold uint32
	timeout          time.Duration
	now              func() time.Time
	onChange         func(from, to State)

	mu        sync.Mutex
	state     State
	failures  uint32
	successes uint32
	openedAt  time.Time
}

// New creates a breaker that opens after failureThreshold consecutive failures,
// stays open for timeout, and closes again after successThreshold consecutive
// successes in the half-open state.
func New(failureThreshold, successThreshold uint32, timeout time.Duration, opts ...Option) CircuitBreaker {
	if failureThreshold == 0 {
		failureThreshold = 1
	}
	if successThreshold == 0 {
		successThreshold = 1
	}
	b := &breaker{
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		timeout:          timeout,
		now:              time.Now,
		state:            Closed,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// FromConfig builds a breaker from the middleware configuration section.
func FromConfig(cfg config.CircuitBreakerConfig, opts ...Option) (CircuitBreaker, error) {
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid circuit breaker timeout duration: %w", err)
	}
	return New(cfg.FailureThreshold, cfg.SuccessThreshold, timeout, opts...), nil
}

func (b *breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentLocked()
}

// currentLocked moves Open to HalfOpen once the timeout has passed.
func (b *breaker) currentLocked() State {
	if b.state == Open && b.now().Sub(b.openedAt) >= b.timeout {
		b.state = HalfOpen
		b.successes = 0
	}
	return b.state
}

func (b *breaker) Execute(req func() (interface{}, error)) (interface{}, error) {
	b.mu.Lock()
	before := b.state
	state := b.currentLocked()
	b.mu.Unlock()
	b.notify(before, state)

	if state == Open {
		return nil, ErrCircuitOpen
	}

	res, err := req()
	b.record(err == nil)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (b *breaker) record(ok bool) {
	b.mu.Lock()
	before := b.state
	switch b.state {
	case HalfOpen:
		if !ok {
			b.tripLocked()
			break
		}
		b.successes++
		if b.successes >= b.successThreshold {
			b.state = Closed
			b.failures = 0
			b.successes = 0
		}
	case Closed:
		if ok {
			b.failures = 0
			break
		}
		b.failures++
		if b.failures >= b.failureThreshold {
			b.tripLocked()
		}
	}
	after := b.state
	b.mu.Unlock()
	b.notify(before, after)
}

func (b *breaker) tripLocked() {
	b.state = Open
	b.openedAt = b.now()
	b.failures = 0
	b.successes = 0
}

func (b *breaker) notify(from, to State) {
	if from != to && b.onChange != nil {
		b.onChange(from, to)
	}
}
