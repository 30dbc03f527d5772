package util

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLRU_RequiresCapacity(t *testing.T) {
	_, err := NewLRU[string, int](CacheConfig{})
	assert.Error(t, err)
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c, err := NewLRU[string, int](CacheConfig{Capacity: 2})
	require.NoError(t, err)

	c.Put("a", 1)
	c.Put("b", 2)
	_, _ = c.Get("a")
	c.Put("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Len())

	c.Remove("a")
	assert.Equal(t, 1, c.Len())
}

func TestLRU_TTL(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c, err := NewLRU[string, struct{}](CacheConfig{Capacity: 10, TTL: time.Minute, Now: func() time.Time { return now }})
	require.NoError(t, err)

	assert.True(t, c.AddIfAbsent("req-1", struct{}{}))
	assert.False(t, c.AddIfAbsent("req-1", struct{}{}))

	now = now.Add(time.Minute)
	assert.True(t, c.AddIfAbsent("req-1", struct{}{}), "expired entries can be added again")
}

func TestLRU_AddIfAbsentIsAtomic(t *testing.T) {
	c, err := NewLRU[string, bool](CacheConfig{Capacity: 100})
	require.NoError(t, err)

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.AddIfAbsent("same", true) {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, wins)
}
