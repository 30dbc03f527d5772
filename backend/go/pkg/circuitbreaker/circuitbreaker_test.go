package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/config"
)

var errBoom = errors.New("boom")

func fail() (interface{}, error)    { return nil, errBoom }
func succeed() (interface{}, error) { return "ok", nil }

func TestBreakerLifecycle(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var transitions []string
	b := New(2, 2, 30*time.Second,
		WithClock(func() time.Time { return now }),
		OnStateChange(func(from, to State) { transitions = append(transitions, from.String()+"->"+to.String()) }),
	)

	_, err := b.Execute(fail)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, Closed, b.State())

	_, err = b.Execute(fail)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, Open, b.State())

	_, err = b.Execute(succeed)
	assert.ErrorIs(t, err, ErrCircuitOpen)

	now = now.Add(30 * time.Second)
	res, err := b.Execute(succeed)
	require.NoError(t, err)
	assert.Equal(t, "ok", res)
	assert.Equal(t, HalfOpen, b.State())

	_, err = b.Execute(succeed)
	require.NoError(t, err)
	assert.Equal(t, Closed, b.State())

	assert.Equal(t, []string{"Closed->Open", "Open->Half-Open", "Half-Open->Closed"}, transitions)
}

func TestHalfOpenFailureReopens(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	b := New(1, 3, time.Second, WithClock(func() time.Time { return now }))

	_, _ = b.Execute(fail)
	now = now.Add(time.Second)
	_, err := b.Execute(fail)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, Open, b.State())
}

func TestSuccessResetsFailureCount(t *testing.T) {
	b := New(2, 1, time.Minute)
	_, _ = b.Execute(fail)
	_, _ = b.Execute(succeed)
	_, _ = b.Execute(fail)
	assert.Equal(t, Closed, b.State())
}

func TestFromConfig(t *testing.T) {
	b, err := FromConfig(config.CircuitBreakerConfig{FailureThreshold: 1, SuccessThreshold: 1, Timeout: "5s"})
	require.NoError(t, err)
	assert.Equal(t, Closed, b.State())

	_, err = FromConfig(config.CircuitBreakerConfig{Timeout: "later"})
	assert.Error(t, err)
}
