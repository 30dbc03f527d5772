package convergence

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/agent"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/coordinator_service/store"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/models"
)

type sentMessage struct {
	from, to, kind, content string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (s *fakeSender) Send(_ context.Context, from, to, kind, content string) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return models.Message{}, s.err
	}
	s.sent = append(s.sent, sentMessage{from, to, kind, content})
	return models.Message{ID: "m", From: from, To: to, Kind: kind, Content: content}, nil
}

func (s *fakeSender) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *fakeSender) messages() []sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentMessage(nil), s.sent...)
}

type fakeNotifier struct {
	mu       sync.Mutex
	subjects []string
	err      error
}

func (n *fakeNotifier) Notify(_ context.Context, _, subject, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subjects = append(n.subjects, subject)
	return n.err
}

type fakeEvents struct {
	mu    sync.Mutex
	types []string
}

func (e *fakeEvents) Notify(_ context.Context, ev models.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.types = append(e.types, ev.Type)
}

// flakyStore fails assessment writes for the listed agents.
type flakyStore struct {
	*store.MemoryStore
	mu      sync.Mutex
	failFor map[string]bool
}

func (s *flakyStore) heal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failFor = nil
}

var errDiskFull = errors.New("disk full")

func (s *flakyStore) AppendAssessment(ctx context.Context, a *models.Assessment) error {
	s.mu.Lock()
	fail := s.failFor[a.AgentID]
	s.mu.Unlock()
	if fail {
		return errors.Join(models.ErrStoreUnavailable, errDiskFull)
	}
	return s.MemoryStore.AppendAssessment(ctx, a)
}

type fixture struct {
	now      time.Time
	registry *agent.Registry
	store    *store.MemoryStore
	sender   *fakeSender
	notifier *fakeNotifier
	events   *fakeEvents
}

func newFixture() *fixture {
	f := &fixture{
		now:      time.Date(2025, 9, 23, 12, 0, 0, 0, time.UTC),
		registry: agent.NewRegistry(),
		store:    store.NewMemoryStore(),
		sender:   &fakeSender{},
		notifier: &fakeNotifier{},
		events:   &fakeEvents{},
	}
	f.registry.SetClock(f.clock)
	return f
}

func (f *fixture) clock() time.Time { return f.now }

func (f *fixture) register(id string, understanding, alignment float64) {
	_, err := f.registry.Register(agent.Registration{
		ID:            id,
		Name:          id,
		Understanding: models.Float(understanding),
		Alignment:     models.Float(alignment),
	}, "conn-"+id)
	if err != nil {
		panic(err)
	}
}

func agentStandby() agent.StatusUpdate {
	return agent.StatusUpdate{Status: models.AgentStatusStandby}
}

// blockingNotifier holds every alert until release is closed.
type blockingNotifier struct {
	entered chan string
	release chan struct{}
}

func newBlockingNotifier() *blockingNotifier {
	return &blockingNotifier{entered: make(chan string, 8), release: make(chan struct{})}
}

func (n *blockingNotifier) Notify(ctx context.Context, _, subject, _ string) error {
	n.entered <- subject
	select {
	case <-n.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
