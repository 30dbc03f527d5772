package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gobwas/glob"
	"github.com/google/uuid"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/coordinator_service/store"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/models"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/pkg/logger"
)

// Router persists and delivers messages between agents.
type Router struct {
	store  store.MessageStore
	conns  *ConnectionManager
	events EventSink
	logger *logger.Logger

	// mu orders persist+enqueue so that every recipient sees messages in
	// the order they were stored. The write under it is bounded by timeout.
	mu      sync.Mutex
	timeout time.Duration
	now     func() time.Time
}

// NewRouter creates a new Router.
func NewRouter(st store.MessageStore, conns *ConnectionManager, events EventSink, log *logger.Logger) *Router {
	if events == nil {
		events = NopSink{}
	}
	return &Router{
		store:   st,
		conns:   conns,
		events:  events,
		logger:  log.Component("router"),
		timeout: DefaultStoreTimeout,
		now:     time.Now,
	}
}

// Send stores one message and pushes it to the connections it addresses.
// to is an agent ID, models.BroadcastRecipient, or "room:<glob>".
// A direct recipient without a live connection only gets the stored copy.
func (r *Router) Send(ctx context.Context, from, to, kind, content string) (models.Message, error) {
	if from == "" || to == "" {
		return models.Message{}, fmt.Errorf("%w: message needs a sender and a recipient", models.ErrInvalidArgument)
	}
	if kind == "" {
		kind = models.DefaultMessageKind
	}

	msg := models.Message{
		ID:      uuid.Must(uuid.NewV7()).String(),
		From:    from,
		To:      to,
		Kind:    kind,
		Content: content,
	}

	var pattern glob.Glob
	if raw, ok := msg.RoomPattern(); ok {
		if raw == "" {
			return models.Message{}, fmt.Errorf("%w: empty room pattern", models.ErrInvalidArgument)
		}
		g, err := glob.Compile(raw)
		if err != nil {
			return models.Message{}, fmt.Errorf("%w: bad room pattern %q: %v", models.ErrInvalidArgument, raw, err)
		}
		pattern = g
	}

	r.mu.Lock()
	msg.CreatedAt = r.now().UTC()
	if err := r.persist(ctx, &msg); err != nil {
		r.mu.Unlock()
		r.logger.WithError(models.ErrorInfo{Message: err.Error(), Type: "store_unavailable"}).
			WithPayload(map[string]interface{}{"from": from, "to": to}).
			Error("Failed to persist message")
		return models.Message{}, err
	}
	ev := models.NewEvent(models.EventMessageReceived, msg)
	targets := r.targets(msg, pattern)
	for _, c := range targets {
		r.conns.Deliver(c, ev)
	}
	r.mu.Unlock()

	if err := r.events.Publish(ctx, msg.ID, ev); err != nil {
		r.logger.WithError(models.ErrorInfo{Message: err.Error()}).
			WithPayload(map[string]interface{}{"message_id": msg.ID}).
			Warn("Failed to mirror message event")
	}

	r.logger.WithPayload(map[string]interface{}{
		"message_id": msg.ID,
		"from":       from,
		"to":         to,
		"recipients": len(targets),
	}).Debug("Message routed")
	return msg, nil
}

func (r *Router) persist(ctx context.Context, msg *models.Message) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.store.AppendMessage(ctx, msg)
}

func (r *Router) targets(msg models.Message, pattern glob.Glob) []Conn {
	sender := ""
	if c, ok := r.conns.ConnForAgent(msg.From); ok {
		sender = c.ID()
	}
	switch {
	case msg.IsBroadcast():
		return r.conns.All(sender)
	case pattern != nil:
		return r.conns.RoomMembers(pattern, sender)
	default:
		if c, ok := r.conns.ConnForAgent(msg.To); ok {
			return []Conn{c}
		}
		return nil
	}
}

// JoinRoom adds a connection to a room.
func (r *Router) JoinRoom(connID, room string) error {
	if room == "" {
		return fmt.Errorf("%w: room name is required", models.ErrInvalidArgument)
	}
	return r.conns.Join(connID, room)
}

// LeaveRoom removes a connection from a room.
func (r *Router) LeaveRoom(connID, room string) error {
	if room == "" {
		return fmt.Errorf("%w: room name is required", models.ErrInvalidArgument)
	}
	r.conns.Leave(connID, room)
	return nil
}

// History returns stored messages, newest first.
func (r *Router) History(ctx context.Context, filter store.MessageFilter) ([]models.Message, error) {
	return r.store.ListMessages(ctx, filter)
}
