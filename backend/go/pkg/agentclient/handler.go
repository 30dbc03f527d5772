package agentclient

import (
	"context"
	"strings"

	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/models"
)

// Handler is an agent behaviour. OnMessage receives routed messages and
// OnEvent every other coordinator event.
type Handler interface {
	OnMessage(ctx context.Context, c *Client, msg Message) error
	OnEvent(ctx context.Context, c *Client, ev Event) error
}

// NopHandler ignores everything.
type NopHandler struct{}

func (NopHandler) OnMessage(context.Context, *Client, Message) error { return nil }

func (NopHandler) OnEvent(context.Context, *Client, Event) error { return nil }

// Handlers runs several behaviours in order and stops at the first error.
type Handlers []Handler

func (hs Handlers) OnMessage(ctx context.Context, c *Client, msg Message) error {
	for _, h := range hs {
		if err := h.OnMessage(ctx, c, msg); err != nil {
			return err
		}
	}
	return nil
}

func (hs Handlers) OnEvent(ctx context.Context, c *Client, ev Event) error {
	for _, h := range hs {
		if err := h.OnEvent(ctx, c, ev); err != nil {
			return err
		}
	}
	return nil
}

// KeywordRule maps keywords to the current task an agent reports while
// handling a matching message (Working) and once it is finished (Done).
type KeywordRule struct {
	Keywords []string
	Working  string
	Done     string
}

// KeywordHandler reacts to messages that mention one of its keywords by
// reporting the first matching rule's Working and then Done task. It also
// starts tasks assigned to the agent and acknowledges interventions opened
// for it.
type KeywordHandler struct {
	Rules []KeywordRule
}

func (h KeywordHandler) OnMessage(_ context.Context, c *Client, msg Message) error {
	content := strings.ToLower(msg.Content)
	for _, rule := range h.Rules {
		if !matchesAny(content, rule.Keywords) {
			continue
		}
		done := rule.Done
		if done == "" {
			done = rule.Working + " complete"
		}
		if err := c.UpdateStatus(string(models.AgentStatusActive), rule.Working); err != nil {
			return err
		}
		return c.UpdateStatus(string(models.AgentStatusActive), done)
	}
	return nil
}

func (h KeywordHandler) OnEvent(_ context.Context, c *Client, ev Event) error {
	switch ev.Type {
	case models.EventTaskAssigned:
		var task struct {
			ID         string `json:"id"`
			AssignedTo string `json:"assigned_to"`
		}
		if err := ev.Decode(&task); err != nil {
			return err
		}
		if task.AssignedTo != c.ID() {
			return nil
		}
		return c.UpdateTask(task.ID, string(models.TaskStatusInProgress))

	case models.EventInterventionOpened:
		var iv struct {
			ID      string `json:"id"`
			AgentID string `json:"agent_id"`
		}
		if err := ev.Decode(&iv); err != nil {
			return err
		}
		if iv.AgentID != c.ID() {
			return nil
		}
		return c.AcknowledgeIntervention(iv.ID)
	}
	return nil
}

func matchesAny(content string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(content, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

// LogHandler logs every message and event it sees.
type LogHandler struct{}

func (LogHandler) OnMessage(_ context.Context, c *Client, msg Message) error {
	c.log.WithPayload(map[string]interface{}{
		"from":    msg.From,
		"kind":    msg.Kind,
		"content": msg.Content,
	}).Info("Message received")
	return nil
}

func (LogHandler) OnEvent(_ context.Context, c *Client, ev Event) error {
	c.log.WithPayload(map[string]interface{}{
		"event":   ev.Type,
		"payload": string(ev.Payload),
	}).Info("Coordinator event")
	return nil
}
