package agent

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/models"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func newTestRegistry() (*Registry, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 9, 23, 12, 0, 0, 0, time.UTC)}
	r := NewRegistry()
	r.SetClock(clock.Now)
	return r, clock
}

func TestRegister_ReRegistrationSupersedesPreviousData(t *testing.T) {
	r, clock := newTestRegistry()
	first := clock.Now()

	_, err := r.Register(Registration{ID: "CURSOR_001", Name: "Cursor", Capabilities: []string{"code", "review"}, Understanding: models.Float(9)}, "c1")
	require.NoError(t, err)
	_, err = r.SetCurrentTask("CURSOR_001", "old work")
	require.NoError(t, err)

	clock.Set(first.Add(time.Minute))
	a, err := r.Register(Registration{ID: "CURSOR_001", Name: "Cursor 2", Capabilities: []string{"docs"}}, "c1")
	require.NoError(t, err)

	assert.Equal(t, []string{"docs"}, []string(a.Capabilities))
	assert.Equal(t, "Cursor 2", a.Name)
	assert.Equal(t, first.Add(time.Minute), a.LastSeen)
	assert.Equal(t, first.Add(time.Minute), a.RegisteredAt)
	assert.Nil(t, a.Understanding)
	assert.Empty(t, a.CurrentTask)

	got, ok := r.Get("CURSOR_001")
	require.True(t, ok)
	assert.Equal(t, a, got)
}

func TestRegister_DuplicateOnOtherLiveConnection(t *testing.T) {
	r, _ := newTestRegistry()
	_, err := r.Register(Registration{ID: "A"}, "c1")
	require.NoError(t, err)

	_, err = r.Register(Registration{ID: "A"}, "c2")
	assert.ErrorIs(t, err, models.ErrDuplicateAgent)

	r.MarkDisconnected("c1")
	a, err := r.Register(Registration{ID: "A"}, "c2")
	require.NoError(t, err)
	assert.Equal(t, "c2", a.ConnectionID)
	assert.Equal(t, models.AgentStatusActive, a.Status)
}

func TestRegister_RequiresID(t *testing.T) {
	r, _ := newTestRegistry()
	_, err := r.Register(Registration{Name: "nameless"}, "c1")
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestUpdateStatus(t *testing.T) {
	r, clock := newTestRegistry()
	_, err := r.Register(Registration{ID: "A"}, "c1")
	require.NoError(t, err)

	_, err = r.UpdateStatus("ghost", StatusUpdate{Status: models.AgentStatusStandby})
	assert.ErrorIs(t, err, models.ErrUnknownAgent)

	_, err = r.UpdateStatus("A", StatusUpdate{Status: "sleeping"})
	assert.ErrorIs(t, err, models.ErrInvalidStatus)

	clock.Set(clock.Now().Add(time.Second))
	task := "writing docs"
	a, err := r.UpdateStatus("A", StatusUpdate{Status: models.AgentStatusStandby, CurrentTask: &task, Understanding: models.Float(3), Alignment: models.Float(2)})
	require.NoError(t, err)
	assert.Equal(t, models.AgentStatusStandby, a.Status)
	assert.Equal(t, "writing docs", a.CurrentTask)
	assert.Equal(t, 3.0, *a.Understanding)
	assert.Equal(t, clock.Now(), a.LastSeen)
}

func TestLastSeenIsMonotonic(t *testing.T) {
	r, clock := newTestRegistry()
	start := clock.Now()
	_, err := r.Register(Registration{ID: "A"}, "c1")
	require.NoError(t, err)

	clock.Set(start.Add(-time.Hour))
	a, err := r.UpdateStatus("A", StatusUpdate{})
	require.NoError(t, err)
	assert.Equal(t, start, a.LastSeen)

	a, err = r.Touch("A")
	require.NoError(t, err)
	assert.Equal(t, start, a.LastSeen)
}

func TestMarkDisconnected_SetsOfflineAndKeepsAgent(t *testing.T) {
	r, _ := newTestRegistry()
	_, err := r.Register(Registration{ID: "A"}, "c1")
	require.NoError(t, err)
	_, err = r.Register(Registration{ID: "B"}, "c2")
	require.NoError(t, err)

	changed := r.MarkDisconnected("c1")
	require.Len(t, changed, 1)
	assert.Equal(t, "A", changed[0].ID)
	assert.Equal(t, models.AgentStatusOffline, changed[0].Status)

	assert.Len(t, r.List(), 2)
	assert.Equal(t, 1, r.ActiveCount())
	assert.Empty(t, r.MarkDisconnected("unknown"))
}

func TestListActive_WindowAndOrder(t *testing.T) {
	r, clock := newTestRegistry()
	start := clock.Now()
	for _, id := range []string{"C", "A", "B"} {
		_, err := r.Register(Registration{ID: id}, "conn-"+id)
		require.NoError(t, err)
	}
	_, err := r.UpdateStatus("B", StatusUpdate{Status: models.AgentStatusStandby})
	require.NoError(t, err)

	clock.Set(start.Add(30 * time.Minute))
	_, err = r.Touch("C")
	require.NoError(t, err)

	clock.Set(start.Add(90 * time.Minute))
	active := r.ListActive(time.Hour)
	require.Len(t, active, 1)
	assert.Equal(t, "C", active[0].ID)

	active = r.ListActive(2 * time.Hour)
	require.Len(t, active, 2)
	assert.Equal(t, "A", active[0].ID)
	assert.Equal(t, "C", active[1].ID)
}

func TestExpireStaleAndTouchRevives(t *testing.T) {
	r, clock := newTestRegistry()
	start := clock.Now()
	_, err := r.Register(Registration{ID: "A"}, "c1")
	require.NoError(t, err)

	clock.Set(start.Add(time.Minute))
	assert.Empty(t, r.ExpireStale(2*time.Minute))

	clock.Set(start.Add(3 * time.Minute))
	expired := r.ExpireStale(2 * time.Minute)
	require.Len(t, expired, 1)
	assert.Equal(t, models.AgentStatusOffline, expired[0].Status)

	a, err := r.Touch("A")
	require.NoError(t, err)
	assert.Equal(t, models.AgentStatusActive, a.Status)
}

func TestCurrentTaskHelpers(t *testing.T) {
	r, _ := newTestRegistry()
	_, err := r.Register(Registration{ID: "A"}, "c1")
	require.NoError(t, err)

	_, err = r.SetCurrentTask("ghost", "x")
	assert.ErrorIs(t, err, models.ErrUnknownAgent)
	snap, err := r.SetCurrentTask("A", "first")
	require.NoError(t, err)
	assert.Equal(t, "first", snap.CurrentTask)

	_, cleared := r.ClearCurrentTask("A", "other")
	assert.False(t, cleared)
	a, _ := r.Get("A")
	assert.Equal(t, "first", a.CurrentTask)

	snap, cleared = r.ClearCurrentTask("A", "first")
	assert.True(t, cleared)
	assert.Empty(t, snap.CurrentTask)
	a, _ = r.Get("A")
	assert.Empty(t, a.CurrentTask)
}

func TestRestore(t *testing.T) {
	r, _ := newTestRegistry()
	_, err := r.Register(Registration{ID: "live"}, "c1")
	require.NoError(t, err)

	n := r.Restore([]models.Agent{
		{ID: "live", Status: models.AgentStatusStandby},
		{ID: "old", Status: models.AgentStatusActive, ConnectionID: "stale"},
		{ID: ""},
	})
	assert.Equal(t, 1, n)

	old, ok := r.Get("old")
	require.True(t, ok)
	assert.Equal(t, models.AgentStatusOffline, old.Status)
	assert.Empty(t, old.ConnectionID)

	live, _ := r.Get("live")
	assert.Equal(t, models.AgentStatusActive, live.Status)
}

func TestObserversReceiveSnapshots(t *testing.T) {
	r, _ := newTestRegistry()
	var seen []models.Agent
	r.AddObserver(ObserverFunc(func(a models.Agent) {
		// 回调在锁外执行，这里可以安全地重新进入注册表。
		_, _ = r.Get(a.ID)
		seen = append(seen, a)
	}))

	_, err := r.Register(Registration{ID: "A", Capabilities: []string{"x"}}, "c1")
	require.NoError(t, err)
	_, err = r.UpdateStatus("A", StatusUpdate{Status: models.AgentStatusStandby})
	require.NoError(t, err)
	r.MarkDisconnected("c1")

	require.Len(t, seen, 3)
	assert.Equal(t, models.AgentStatusActive, seen[0].Status)
	assert.Equal(t, models.AgentStatusStandby, seen[1].Status)
	assert.Equal(t, models.AgentStatusOffline, seen[2].Status)

	seen[0].Capabilities[0] = "mutated"
	a, _ := r.Get("A")
	assert.Equal(t, "x", a.Capabilities[0])
}

func TestConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('A' + i))
			for j := 0; j < 100; j++ {
				_, _ = r.Register(Registration{ID: id}, id)
				_, _ = r.UpdateStatus(id, StatusUpdate{Understanding: models.Float(float64(j % 10))})
				_ = r.ListActive(time.Hour)
			}
		}(i)
	}
	wg.Wait()
	assert.Len(t, r.List(), 8)
}
