// Package agentclient connects an agent to the coordinator over websocket.
// Behaviour is supplied as a Handler; the client owns the connection,
// registration and the heartbeat.
package agentclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/models"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/pkg/logger"
)

// DefaultHeartbeatInterval matches the coordinator's default presence timeout
// with room for three missed beats.
const DefaultHeartbeatInterval = 30 * time.Second

const (
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 10 * time.Second
)

// ErrRegistrationRejected is returned by Connect when the coordinator refuses the agent.
var ErrRegistrationRejected = errors.New("registration rejected")

// Config describes the agent and where to reach the coordinator.
type Config struct {
	// URL is the coordinator websocket endpoint, e.g. ws://localhost:8080/ws.
	URL               string
	AgentID           string
	AgentName         string
	Capabilities      []string
	Understanding     *float64
	Alignment         *float64
	HeartbeatInterval time.Duration
	Logger            *logger.Logger
}

// Event is an event received from the coordinator.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// Message is a routed message addressed to this agent.
type Message struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Kind      string    `json:"kind"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Client is one agent's connection to the coordinator. Its methods are safe
// for concurrent use; handlers may call them while the read loop runs.
type Client struct {
	cfg     Config
	handler Handler
	log     *logger.Logger

	conn    *websocket.Conn
	writeMu sync.Mutex

	mu          sync.Mutex
	currentTask string
}

// New validates cfg and creates a client. handler may be nil.
func New(cfg Config, handler Handler) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("agentclient: URL is required")
	}
	if cfg.AgentID == "" {
		return nil, errors.New("agentclient: AgentID is required")
	}
	if cfg.AgentName == "" {
		cfg.AgentName = cfg.AgentID
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.New("AgentClient", "", cfg.AgentID)
	}
	if handler == nil {
		handler = NopHandler{}
	}
	return &Client{cfg: cfg, handler: handler, log: cfg.Logger.WithAgent(cfg.AgentID)}, nil
}

// ID returns the agent ID.
func (c *Client) ID() string {
	return c.cfg.AgentID
}

// CurrentTask returns the task last reported through UpdateStatus.
func (c *Client) CurrentTask() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentTask
}

// Connect dials the coordinator and registers the agent. It returns once the
// coordinator has answered the registration.
func (c *Client) Connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}
	c.conn = conn

	if err := c.send(models.EventAgentRegister, map[string]interface{}{
		"agent_id":            c.cfg.AgentID,
		"agent_name":          c.cfg.AgentName,
		"capabilities":        c.cfg.Capabilities,
		"understanding_score": c.cfg.Understanding,
		"alignment_score":     c.cfg.Alignment,
	}); err != nil {
		_ = conn.Close()
		return err
	}

	deadline := time.Now().Add(handshakeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetReadDeadline(deadline)
	defer func() { _ = conn.SetReadDeadline(time.Time{}) }()

	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			_ = conn.Close()
			return fmt.Errorf("waiting for registration: %w", err)
		}
		if ev.Type != models.EventAgentRegistered {
			continue
		}
		var reply struct {
			Status string `json:"status"`
			Error  string `json:"error"`
		}
		if err := ev.Decode(&reply); err != nil {
			_ = conn.Close()
			return fmt.Errorf("decode registration reply: %w", err)
		}
		if reply.Status != "success" {
			_ = conn.Close()
			return fmt.Errorf("%w: %s", ErrRegistrationRejected, reply.Error)
		}
		c.log.WithPayload(map[string]interface{}{"url": c.cfg.URL}).Info("Registered with coordinator")
		return nil
	}
}

// Run reads events and sends heartbeats until ctx is cancelled or the
// connection drops. It returns nil on cancellation.
func (c *Client) Run(ctx context.Context) error {
	if c.conn == nil {
		return errors.New("agentclient: Run called before Connect")
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-runCtx.Done()
		_ = c.conn.Close()
	}()
	go c.heartbeatLoop(runCtx)

	for {
		var ev Event
		if err := c.conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("connection lost: %w", err)
		}
		c.dispatch(runCtx, ev)
	}
}

func (c *Client) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Heartbeat(); err != nil {
				c.log.WithError(models.ErrorInfo{Message: err.Error()}).Warn("Heartbeat failed")
			}
		}
	}
}

func (c *Client) dispatch(ctx context.Context, ev Event) {
	var err error
	if ev.Type == models.EventMessageReceived {
		var msg Message
		if err = ev.Decode(&msg); err == nil {
			err = c.handler.OnMessage(ctx, c, msg)
		}
	} else {
		err = c.handler.OnEvent(ctx, c, ev)
	}
	if err != nil {
		c.log.WithError(models.ErrorInfo{Message: err.Error()}).
			WithPayload(map[string]interface{}{"event": ev.Type}).
			Warn("Handler failed")
	}
}

// Close closes the connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	c.writeMu.Lock()
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	return c.conn.Close()
}

// UpdateStatus reports status and the current task. An empty status keeps the current one.
func (c *Client) UpdateStatus(status, currentTask string) error {
	c.mu.Lock()
	c.currentTask = currentTask
	c.mu.Unlock()
	payload := map[string]interface{}{
		"agent_id":     c.cfg.AgentID,
		"current_task": currentTask,
	}
	if status != "" {
		payload["status"] = status
	}
	return c.send(models.EventStatusUpdate, payload)
}

// Heartbeat refreshes the agent's last-seen time.
func (c *Client) Heartbeat() error {
	return c.send(models.EventHeartbeat, nil)
}

// SendMessage sends content to another agent, to "broadcast" or to a "room:<pattern>".
func (c *Client) SendMessage(to, kind, content string) error {
	return c.send(models.EventSendMessage, map[string]string{
		"to_agent":     to,
		"message_type": kind,
		"content":      content,
	})
}

// Broadcast sends content to every other connected agent.
func (c *Client) Broadcast(content string) error {
	return c.SendMessage(models.BroadcastRecipient, models.DefaultMessageKind, content)
}

func (c *Client) JoinRoom(room string) error {
	return c.send(models.EventJoinRoom, map[string]string{"room": room})
}

func (c *Client) LeaveRoom(room string) error {
	return c.send(models.EventLeaveRoom, map[string]string{"room": room})
}

// UpdateTask moves a task assigned to this agent to a new status.
func (c *Client) UpdateTask(taskID, status string) error {
	return c.send(models.EventTaskUpdate, map[string]string{"task_id": taskID, "status": status})
}

// AcknowledgeIntervention acknowledges an intervention opened for this agent.
func (c *Client) AcknowledgeIntervention(id string) error {
	return c.send(models.EventInterventionAck, map[string]string{"intervention_id": id})
}

func (c *Client) send(eventType string, payload interface{}) error {
	if c.conn == nil {
		return errors.New("agentclient: not connected")
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteJSON(map[string]interface{}{"type": eventType, "payload": payload}); err != nil {
		return fmt.Errorf("send %s: %w", eventType, err)
	}
	return nil
}
