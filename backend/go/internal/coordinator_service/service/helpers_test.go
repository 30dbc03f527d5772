package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/agent"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/coordinator_service/store"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/models"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/pkg/logger"
)

// fakeConn records every event it is sent.
type fakeConn struct {
	id      string
	mu      sync.Mutex
	events  []models.Event
	fail    bool
	closed  bool
	onClose func()
}

func newFakeConn(id string) *fakeConn { return &fakeConn{id: id} }

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(ev models.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return models.ErrDeliveryFailure
	}
	c.events = append(c.events, ev)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.closed = true
	onClose := c.onClose
	c.mu.Unlock()
	if onClose != nil {
		onClose()
	}
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) received() []models.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Event(nil), c.events...)
}

func (c *fakeConn) ofType(t string) []models.Event {
	var out []models.Event
	for _, ev := range c.received() {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// recordingSink captures mirrored events.
type recordingSink struct {
	mu   sync.Mutex
	keys []string
}

func (s *recordingSink) Publish(_ context.Context, key string, _ interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, key)
	return nil
}

func (s *recordingSink) Close() error { return nil }

func (s *recordingSink) published() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.keys...)
}

func newTestService() (*Service, *store.MemoryStore) {
	st := store.NewMemoryStore()
	return NewService(st, agent.NewRegistry(), nil, logger.Discard()), st
}

// stallingStore does not answer calls for the given sender or task until the
// caller gives up.
type stallingStore struct {
	*store.MemoryStore
	sender  string
	taskID  string
	stalled chan struct{}
}

func newStallingStore(sender, taskID string) *stallingStore {
	return &stallingStore{
		MemoryStore: store.NewMemoryStore(),
		sender:      sender,
		taskID:      taskID,
		stalled:     make(chan struct{}, 1),
	}
}

func (s *stallingStore) stall(ctx context.Context) error {
	select {
	case s.stalled <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *stallingStore) AppendMessage(ctx context.Context, m *models.Message) error {
	if m.From == s.sender {
		return s.stall(ctx)
	}
	return s.MemoryStore.AppendMessage(ctx, m)
}

func (s *stallingStore) GetTask(ctx context.Context, id string) (*models.Task, error) {
	if id == s.taskID {
		return nil, s.stall(ctx)
	}
	return s.MemoryStore.GetTask(ctx, id)
}

func storedAgent(t *testing.T, st store.AgentStore, id string) models.Agent {
	t.Helper()
	agents, err := st.ListAgents(context.Background())
	require.NoError(t, err)
	for _, a := range agents {
		if a.ID == id {
			return a
		}
	}
	t.Fatalf("agent %s was never saved", id)
	return models.Agent{}
}

// finishWithin fails the test when fn has not returned after d.
func finishWithin(t *testing.T, d time.Duration, what string, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatalf("%s did not finish within %s", what, d)
	}
}
