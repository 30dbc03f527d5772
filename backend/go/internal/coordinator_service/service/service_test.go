package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/agent"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/coordinator_service/store"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/models"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/pkg/logger"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestService_ConnectAndRegister(t *testing.T) {
	svc, st := newTestService()
	ctx := context.Background()

	c := newFakeConn("c-1")
	svc.Connect(c)
	require.Len(t, c.ofType(models.EventConnected), 1)

	a, err := svc.RegisterAgent(ctx, "c-1", agent.Registration{
		ID:            "CURSOR_001",
		Name:          "Cursor",
		Capabilities:  []string{"code", "review"},
		Understanding: models.Float(9),
		Alignment:     models.Float(8),
	})
	require.NoError(t, err)
	assert.Equal(t, models.AgentStatusActive, a.Status)

	replies := c.ofType(models.EventAgentRegistered)
	require.Len(t, replies, 1)
	assert.Equal(t, "success", replies[0].Payload.(map[string]interface{})["status"])
	assert.Len(t, c.ofType(models.EventAgentListUpdated), 1)

	stored, err := st.ListAgents(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "CURSOR_001", stored[0].ID)
}

func TestService_DuplicateRegistrationRepliesError(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	connectAgent(t, svc, "c-1", "A")

	c2 := newFakeConn("c-2")
	svc.Connect(c2)
	_, err := svc.RegisterAgent(ctx, "c-2", agent.Registration{ID: "A"})
	assert.ErrorIs(t, err, models.ErrDuplicateAgent)

	replies := c2.ofType(models.EventAgentRegistered)
	require.Len(t, replies, 1)
	payload := replies[0].Payload.(map[string]interface{})
	assert.Equal(t, "error", payload["status"])
	assert.NotEmpty(t, payload["error"])

	_, err = svc.RegisterAgent(ctx, "c-2", agent.Registration{})
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestService_DisconnectMarksOffline(t *testing.T) {
	svc, st := newTestService()
	ctx := context.Background()
	connectAgent(t, svc, "c-a", "A")
	b := connectAgent(t, svc, "c-b", "B")
	require.NoError(t, svc.JoinRoom("c-a", "lobby"))

	svc.Disconnect(ctx, "c-a")

	a, ok := svc.Registry().Get("A")
	require.True(t, ok)
	assert.Equal(t, models.AgentStatusOffline, a.Status)
	assert.Equal(t, 1, svc.Connections().Count())
	assert.Empty(t, svc.Connections().Rooms("c-a"))

	updates := b.ofType(models.EventAgentStatusUpdated)
	require.Len(t, updates, 1)
	assert.Equal(t, "A", updates[0].Payload.(models.Agent).ID)

	stored, err := st.ListAgents(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, models.AgentStatusOffline, stored[0].Status)

	// The agent can come back on a fresh connection.
	connectAgent(t, svc, "c-a2", "A")
	a, _ = svc.Registry().Get("A")
	assert.Equal(t, models.AgentStatusActive, a.Status)
}

func TestService_StatusAndHeartbeat(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	c := connectAgent(t, svc, "c-a", "A")

	_, err := svc.Heartbeat(ctx, "c-none")
	assert.ErrorIs(t, err, models.ErrNotRegistered)

	_, err = svc.Heartbeat(ctx, "c-a")
	require.NoError(t, err)
	assert.Len(t, c.ofType(models.EventHeartbeatAck), 1)

	task := "writing docs"
	a, err := svc.UpdateStatus(ctx, "c-a", "", agent.StatusUpdate{Status: models.AgentStatusStandby, CurrentTask: &task, Understanding: models.Float(4)})
	require.NoError(t, err)
	assert.Equal(t, models.AgentStatusStandby, a.Status)
	assert.Equal(t, task, a.CurrentTask)
	assert.Len(t, c.ofType(models.EventStatusUpdated), 1)

	_, err = svc.UpdateStatus(ctx, "c-a", "", agent.StatusUpdate{Status: "sleeping"})
	assert.ErrorIs(t, err, models.ErrInvalidStatus)

	_, err = svc.UpdateStatus(ctx, "", "NOPE", agent.StatusUpdate{})
	assert.ErrorIs(t, err, models.ErrUnknownAgent)
}

func TestService_SweepPresence(t *testing.T) {
	st := store.NewMemoryStore()
	reg := agent.NewRegistry()
	now := time.Date(2025, 9, 23, 10, 0, 0, 0, time.UTC)
	reg.SetClock(func() time.Time { return now })
	svc := NewService(st, reg, nil, logger.Discard())
	ctx := context.Background()

	connectAgent(t, svc, "c-a", "A")
	b := connectAgent(t, svc, "c-b", "B")

	now = now.Add(3 * time.Minute)
	_, err := svc.Heartbeat(ctx, "c-b")
	require.NoError(t, err)

	expired := svc.SweepPresence(ctx, 2*time.Minute)
	require.Len(t, expired, 1)
	assert.Equal(t, "A", expired[0].ID)
	assert.Len(t, b.ofType(models.EventAgentStatusUpdated), 1)

	// A heartbeat on the still-open connection revives the agent.
	_, err = svc.Heartbeat(ctx, "c-a")
	require.NoError(t, err)
	a, _ := reg.Get("A")
	assert.Equal(t, models.AgentStatusActive, a.Status)
}

func TestService_Health(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	connectAgent(t, svc, "c-a", "A")
	connectAgent(t, svc, "c-b", "B")
	svc.Connect(newFakeConn("c-idle"))

	_, err := svc.Tasks().Create(ctx, TaskSpec{Description: "one"})
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, "c-a", "B", "", "hi")
	require.NoError(t, err)

	h, err := svc.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "healthy", h.Status)
	assert.Equal(t, 2, h.ActiveAgents)
	assert.Equal(t, 3, h.Connections)
	assert.EqualValues(t, 1, h.OpenTasks)
	assert.EqualValues(t, 1, h.Messages)
}

func TestService_EventsAreMirrored(t *testing.T) {
	sink := &recordingSink{}
	svc := NewService(store.NewMemoryStore(), agent.NewRegistry(), sink, logger.Discard())
	connectAgent(t, svc, "c-a", "A")
	_, err := svc.Tasks().Create(context.Background(), TaskSpec{Description: "mirror me"})
	require.NoError(t, err)

	keys := sink.published()
	assert.Contains(t, keys, models.EventAgentListUpdated)
	assert.Contains(t, keys, models.EventTaskCreated)
}

type fakeAcker struct {
	gotID, gotAgent string
}

func (f *fakeAcker) Acknowledge(_ context.Context, id, agentID string) (models.Intervention, error) {
	f.gotID, f.gotAgent = id, agentID
	if id == "missing" {
		return models.Intervention{}, models.ErrUnknownIntervention
	}
	return models.Intervention{ID: id, AgentID: agentID, Status: models.InterventionAcknowledged}, nil
}

func TestService_AcknowledgeIntervention(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	connectAgent(t, svc, "c-a", "A")

	_, err := svc.AcknowledgeIntervention(ctx, "c-a", "iv-1")
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	acker := &fakeAcker{}
	svc.SetInterventionAcknowledger(acker)
	iv, err := svc.AcknowledgeIntervention(ctx, "c-a", "iv-1")
	require.NoError(t, err)
	assert.Equal(t, models.InterventionAcknowledged, iv.Status)
	assert.Equal(t, "A", acker.gotAgent)

	_, err = svc.AcknowledgeIntervention(ctx, "c-a", "missing")
	assert.True(t, errors.Is(err, models.ErrUnknownIntervention))
}

func TestService_ReportHealth(t *testing.T) {
	svc, _ := newTestService()
	hs := health.NewServer()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc.ReportHealth(ctx, hs, 0)

	resp, err := hs.Check(context.Background(), &healthpb.HealthCheckRequest{Service: HealthServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestService_CloseAllWaitsForDisconnects(t *testing.T) {
	svc, st := newTestService()
	ctx := context.Background()
	a := connectAgent(t, svc, "c-a", "A")
	b := connectAgent(t, svc, "c-b", "B")
	for _, c := range []*fakeConn{a, b} {
		id := c.ID()
		// Closing the socket ends the reader, which then disconnects.
		c.onClose = func() { go svc.Disconnect(ctx, id) }
	}

	closeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, svc.CloseAll(closeCtx))

	assert.True(t, a.isClosed())
	assert.True(t, b.isClosed())
	assert.Zero(t, svc.Connections().Count())
	assert.Equal(t, models.AgentStatusOffline, storedAgent(t, st, "A").Status)
	assert.Equal(t, models.AgentStatusOffline, storedAgent(t, st, "B").Status)
}

func TestService_CloseAllGivesUpOnAStuckReader(t *testing.T) {
	svc, _ := newTestService()
	c := connectAgent(t, svc, "c-a", "A")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, svc.CloseAll(ctx), context.DeadlineExceeded)
	assert.True(t, c.isClosed())
}
