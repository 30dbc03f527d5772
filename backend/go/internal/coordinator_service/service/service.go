package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/agent"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/coordinator_service/store"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/models"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/pkg/logger"
)

// DefaultStoreTimeout bounds one store call made under a lock.
const DefaultStoreTimeout = 5 * time.Second

// InterventionAcknowledger lets an agent acknowledge an intervention addressed to it.
type InterventionAcknowledger interface {
	Acknowledge(ctx context.Context, interventionID, agentID string) (models.Intervention, error)
}

// Health is the coordinator's health summary.
type Health struct {
	Status       string    `json:"status"`
	ActiveAgents int       `json:"active_agents"`
	Connections  int       `json:"connections"`
	OpenTasks    int64     `json:"open_tasks"`
	Messages     int64     `json:"messages"`
	Timestamp    time.Time `json:"timestamp"`
}

// Service is the coordinator: it ties presence, messaging and tasks to the
// agent connections and keeps the store in step with the registry.
type Service struct {
	store    store.Store
	registry *agent.Registry
	conns    *ConnectionManager
	router   *Router
	tasks    *TaskBoard
	events   EventSink
	acks     InterventionAcknowledger
	logger   *logger.Logger

	// live counts connections between Connect and Disconnect.
	live sync.WaitGroup
}

// NewService creates a new Service.
func NewService(st store.Store, registry *agent.Registry, events EventSink, log *logger.Logger) *Service {
	if events == nil {
		events = NopSink{}
	}
	conns := NewConnectionManager(log)
	s := &Service{
		store:    st,
		registry: registry,
		conns:    conns,
		router:   NewRouter(st, conns, events, log),
		tasks:    NewTaskBoard(st, registry, conns, events, log),
		events:   events,
		logger:   log.Component("coordinator"),
	}
	s.tasks.saveAgent = s.persistAgent
	return s
}

// SetStoreTimeout bounds the store calls the router and the task board
// make while holding their locks. Non-positive values are ignored.
func (s *Service) SetStoreTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	s.router.timeout = d
	s.tasks.timeout = d
}

// CloseAll closes every live connection and waits until each one has been
// disconnected, so nothing writes to the store afterwards. Used on shutdown
// after the HTTP server stopped accepting new connections.
func (s *Service) CloseAll(ctx context.Context) error {
	n := s.conns.CloseAll()
	done := make(chan struct{})
	go func() {
		s.live.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.logger.WithPayload(map[string]interface{}{"connections": n}).Info("All connections closed")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("close connections: %w", ctx.Err())
	}
}

// SetInterventionAcknowledger wires the escalator in once it exists.
func (s *Service) SetInterventionAcknowledger(a InterventionAcknowledger) { s.acks = a }

func (s *Service) Registry() *agent.Registry { return s.registry }

func (s *Service) Router() *Router { return s.router }

func (s *Service) Tasks() *TaskBoard { return s.tasks }

func (s *Service) Connections() *ConnectionManager { return s.conns }

// Restore rebuilds in-memory state from the store after a restart.
func (s *Service) Restore(ctx context.Context) error {
	agents, err := s.store.ListAgents(ctx)
	if err != nil {
		return fmt.Errorf("restore agents: %w", err)
	}
	n := s.registry.Restore(agents)
	assigned, err := s.tasks.Restore(ctx)
	if err != nil {
		return fmt.Errorf("restore tasks: %w", err)
	}
	s.logger.WithPayload(map[string]interface{}{
		"agents":      n,
		"assignments": assigned,
	}).Info("Coordinator state restored")
	return nil
}

// Connect admits a new connection and greets it.
func (s *Service) Connect(c Conn) {
	s.live.Add(1)
	s.conns.Add(c)
	s.conns.Deliver(c, models.NewEvent(models.EventConnected, map[string]string{"connection_id": c.ID()}))
	s.logger.WithPayload(map[string]interface{}{"connection_id": c.ID()}).Info("Connection opened")
}

// Disconnect forgets a connection and marks the agent it carried offline.
func (s *Service) Disconnect(ctx context.Context, connID string) {
	if _, ok := s.conns.Get(connID); !ok {
		return
	}
	defer s.live.Done()
	offline := s.registry.MarkDisconnected(connID)
	s.conns.Remove(connID)

	for i := range offline {
		s.persistAgent(ctx, offline[i])
		s.broadcast(ctx, models.NewEvent(models.EventAgentStatusUpdated, offline[i]), connID)
	}
	if len(offline) > 0 {
		s.broadcastAgentList(ctx)
	}
	s.logger.WithPayload(map[string]interface{}{
		"connection_id": connID,
		"agents":        len(offline),
	}).Info("Connection closed")
}

// RegisterAgent binds an agent to connID. The caller always receives an
// agent_registered reply, with status "error" when registration fails.
func (s *Service) RegisterAgent(ctx context.Context, connID string, reg agent.Registration) (models.Agent, error) {
	a, err := s.registry.Register(reg, connID)
	if err == nil {
		err = s.conns.Bind(connID, a.ID)
	}
	if err != nil {
		s.conns.SendTo(connID, models.NewEvent(models.EventAgentRegistered, map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		}))
		s.logger.WithError(models.ErrorInfo{Message: err.Error()}).
			WithPayload(map[string]interface{}{"agent_id": reg.ID, "connection_id": connID}).
			Warn("Agent registration rejected")
		return models.Agent{}, err
	}

	s.persistAgent(ctx, a)
	s.conns.SendTo(connID, models.NewEvent(models.EventAgentRegistered, map[string]interface{}{
		"status": "success",
		"agent":  a,
	}))
	s.broadcastAgentList(ctx)
	s.logger.WithAgent(a.ID).WithPayload(map[string]interface{}{
		"connection_id": connID,
		"capabilities":  []string(a.Capabilities),
	}).Info("Agent registered")
	return a, nil
}

// UpdateStatus applies a status report. An empty agentID means the agent
// bound to connID.
func (s *Service) UpdateStatus(ctx context.Context, connID, agentID string, upd agent.StatusUpdate) (models.Agent, error) {
	if agentID == "" {
		bound, err := s.boundAgent(connID)
		if err != nil {
			return models.Agent{}, err
		}
		agentID = bound
	}
	a, err := s.registry.UpdateStatus(agentID, upd)
	if err != nil {
		return models.Agent{}, err
	}
	s.persistAgent(ctx, a)
	s.broadcast(ctx, models.NewEvent(models.EventStatusUpdated, a), "")
	return a, nil
}

// Heartbeat refreshes the last-seen time of the agent bound to connID.
func (s *Service) Heartbeat(ctx context.Context, connID string) (models.Agent, error) {
	agentID, err := s.boundAgent(connID)
	if err != nil {
		return models.Agent{}, err
	}
	a, err := s.registry.Touch(agentID)
	if err != nil {
		return models.Agent{}, err
	}
	s.conns.SendTo(connID, models.NewEvent(models.EventHeartbeatAck, map[string]interface{}{
		"agent_id":  a.ID,
		"last_seen": a.LastSeen,
	}))
	return a, nil
}

// SendMessage routes a message from the agent bound to connID.
func (s *Service) SendMessage(ctx context.Context, connID, to, kind, content string) (models.Message, error) {
	from, err := s.boundAgent(connID)
	if err != nil {
		return models.Message{}, err
	}
	return s.router.Send(ctx, from, to, kind, content)
}

// JoinRoom adds connID to room and confirms it.
func (s *Service) JoinRoom(connID, room string) error {
	if err := s.router.JoinRoom(connID, room); err != nil {
		return err
	}
	s.conns.SendTo(connID, models.NewEvent(models.EventJoinedRoom, map[string]string{"room": room}))
	return nil
}

// LeaveRoom removes connID from room and confirms it.
func (s *Service) LeaveRoom(connID, room string) error {
	if err := s.router.LeaveRoom(connID, room); err != nil {
		return err
	}
	s.conns.SendTo(connID, models.NewEvent(models.EventLeftRoom, map[string]string{"room": room}))
	return nil
}

// UpdateTask changes a task status on behalf of the agent bound to connID.
func (s *Service) UpdateTask(ctx context.Context, connID, taskID string, status models.TaskStatus) (models.Task, error) {
	actor, err := s.boundAgent(connID)
	if err != nil {
		return models.Task{}, err
	}
	return s.tasks.UpdateStatus(ctx, taskID, status, actor)
}

// AcknowledgeIntervention acknowledges an intervention on behalf of the agent bound to connID.
func (s *Service) AcknowledgeIntervention(ctx context.Context, connID, interventionID string) (models.Intervention, error) {
	agentID, err := s.boundAgent(connID)
	if err != nil {
		return models.Intervention{}, err
	}
	if s.acks == nil {
		return models.Intervention{}, fmt.Errorf("%w: interventions are not enabled", models.ErrInvalidArgument)
	}
	return s.acks.Acknowledge(ctx, interventionID, agentID)
}

// Agents returns every known agent, sorted by ID.
func (s *Service) Agents() []models.Agent {
	return s.registry.List()
}

// Health returns the current counts. An error means the store could not be read.
func (s *Service) Health(ctx context.Context) (Health, error) {
	h := Health{
		Status:       "healthy",
		ActiveAgents: s.registry.ActiveCount(),
		Connections:  s.conns.Count(),
		Timestamp:    time.Now().UTC(),
	}
	if err := s.store.Ping(ctx); err != nil {
		h.Status = "degraded"
		return h, err
	}
	open, err := s.tasks.OpenCount(ctx)
	if err != nil {
		h.Status = "degraded"
		return h, err
	}
	msgs, err := s.store.CountMessages(ctx)
	if err != nil {
		h.Status = "degraded"
		return h, err
	}
	h.OpenTasks = open
	h.Messages = msgs
	return h, nil
}

// SweepPresence marks agents offline whose last heartbeat is older than timeout.
func (s *Service) SweepPresence(ctx context.Context, timeout time.Duration) []models.Agent {
	expired := s.registry.ExpireStale(timeout)
	for i := range expired {
		s.persistAgent(ctx, expired[i])
		s.broadcast(ctx, models.NewEvent(models.EventAgentStatusUpdated, expired[i]), "")
	}
	if len(expired) > 0 {
		s.broadcastAgentList(ctx)
		s.logger.WithPayload(map[string]interface{}{"agents": len(expired)}).Info("Stale agents marked offline")
	}
	return expired
}

// RunPresenceSweeper calls SweepPresence every interval until ctx is done.
func (s *Service) RunPresenceSweeper(ctx context.Context, timeout, interval time.Duration) {
	if timeout <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepPresence(ctx, timeout)
		}
	}
}

// Notify pushes an event to every connection and to the event sink.
func (s *Service) Notify(ctx context.Context, ev models.Event) {
	s.broadcast(ctx, ev, "")
}

func (s *Service) boundAgent(connID string) (string, error) {
	id, ok := s.conns.AgentFor(connID)
	if !ok {
		return "", models.ErrNotRegistered
	}
	return id, nil
}

func (s *Service) broadcastAgentList(ctx context.Context) {
	s.broadcast(ctx, models.NewEvent(models.EventAgentListUpdated, map[string]interface{}{
		"agents": s.registry.List(),
	}), "")
}

func (s *Service) broadcast(ctx context.Context, ev models.Event, exceptConnID string) {
	s.conns.Broadcast(ev, exceptConnID)
	if err := s.events.Publish(ctx, ev.Type, ev); err != nil {
		s.logger.WithError(models.ErrorInfo{Message: err.Error()}).
			WithPayload(map[string]interface{}{"event": ev.Type}).
			Warn("Failed to mirror event")
	}
}

// persistAgent saves a registry snapshot. The registry stays authoritative
// for presence, so a failed write is logged and not returned.
func (s *Service) persistAgent(ctx context.Context, a models.Agent) {
	if err := s.store.SaveAgent(ctx, &a); err != nil {
		s.logger.WithError(models.ErrorInfo{Message: err.Error(), Type: "store_unavailable"}).
			WithAgent(a.ID).
			Error("Failed to save agent snapshot")
	}
}
