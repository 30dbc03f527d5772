package api

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/models"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/pkg/logger"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/pkg/ratelimiter"
)

const maxFrameSize = 1 << 20

// wsConn adapts a websocket connection to service.Conn. Outbound events go
// through a bounded queue drained by writePump, so Send never blocks.
type wsConn struct {
	id           string
	conn         *websocket.Conn
	send         chan models.Event
	done         chan struct{}
	closeOnce    sync.Once
	writeTimeout time.Duration
	logger       *logger.Logger
}

func newWSConn(conn *websocket.Conn, buffer int, writeTimeout time.Duration, log *logger.Logger) *wsConn {
	id := uuid.NewString()
	return &wsConn{
		id:           id,
		conn:         conn,
		send:         make(chan models.Event, buffer),
		done:         make(chan struct{}),
		writeTimeout: writeTimeout,
		logger:       log.WithPayload(map[string]interface{}{"connection_id": id}),
	}
}

func (c *wsConn) ID() string {
	return c.id
}

func (c *wsConn) Send(ev models.Event) error {
	select {
	case <-c.done:
		return fmt.Errorf("%w: connection %s is closed", models.ErrDeliveryFailure, c.id)
	default:
	}
	select {
	case c.send <- ev:
		return nil
	default:
		return fmt.Errorf("%w: outbound queue full for connection %s", models.ErrDeliveryFailure, c.id)
	}
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

// writePump drains the outbound queue until the connection is closed.
func (c *wsConn) writePump() {
	for {
		select {
		case <-c.done:
			return
		case ev := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.conn.WriteJSON(ev); err != nil {
				c.logger.WithError(models.ErrorInfo{Message: err.Error(), Type: "delivery_failure"}).Warn("WebSocket write failed")
				_ = c.Close()
				return
			}
		}
	}
}

// WebSocketHandler upgrades the request and serves one agent connection.
// The handler goroutine is the connection's reader.
func (a *API) WebSocketHandler(c *gin.Context) {
	conn, err := a.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		a.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Failed to upgrade WebSocket connection")
		return
	}
	conn.SetReadLimit(maxFrameSize)

	wc := newWSConn(conn, a.transport.SendBuffer, time.Duration(a.transport.WriteTimeout)*time.Second, a.logger)
	go wc.writePump()
	a.service.Connect(wc)

	ctx := context.WithoutCancel(c.Request.Context())
	defer func() {
		a.service.Disconnect(ctx, wc.ID())
		_ = wc.Close()
	}()

	limiter := ratelimiter.NewTokenBucket(a.transport.InboundRate, a.transport.InboundBurst)
	for {
		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wc.logger.WithError(models.ErrorInfo{Message: err.Error()}).Warn("WebSocket read error")
			}
			return
		}
		if !limiter.Allow() {
			_ = wc.Send(models.ErrorEvent("rate limit exceeded"))
			continue
		}
		if err := a.dispatch(ctx, wc.ID(), env); err != nil {
			_ = wc.Send(models.ErrorEvent(err.Error()))
		}
	}
}

// dispatch applies one inbound event. The returned error is reported to the
// sender as an error event.
func (a *API) dispatch(ctx context.Context, connID string, env Envelope) error {
	switch env.Type {
	case models.EventAgentRegister:
		var p RegisterPayload
		if err := decodePayload(env, &p); err != nil {
			return err
		}
		// The service already replied with agent_registered {status: error}.
		_, _ = a.service.RegisterAgent(ctx, connID, p.registration())
		return nil

	case models.EventStatusUpdate:
		var p StatusPayload
		if err := decodePayload(env, &p); err != nil {
			return err
		}
		_, err := a.service.UpdateStatus(ctx, connID, p.AgentID, p.update())
		return err

	case models.EventHeartbeat:
		_, err := a.service.Heartbeat(ctx, connID)
		return err

	case models.EventSendMessage:
		var p SendPayload
		if err := decodePayload(env, &p); err != nil {
			return err
		}
		_, err := a.service.SendMessage(ctx, connID, p.ToAgent, p.MessageType, p.Content)
		return err

	case models.EventJoinRoom:
		var p RoomPayload
		if err := decodePayload(env, &p); err != nil {
			return err
		}
		return a.service.JoinRoom(connID, p.Room)

	case models.EventLeaveRoom:
		var p RoomPayload
		if err := decodePayload(env, &p); err != nil {
			return err
		}
		return a.service.LeaveRoom(connID, p.Room)

	case models.EventTaskUpdate:
		var p TaskUpdatePayload
		if err := decodePayload(env, &p); err != nil {
			return err
		}
		_, err := a.service.UpdateTask(ctx, connID, p.TaskID, p.Status)
		return err

	case models.EventInterventionAck:
		var p InterventionAckPayload
		if err := decodePayload(env, &p); err != nil {
			return err
		}
		_, err := a.service.AcknowledgeIntervention(ctx, connID, p.InterventionID)
		return err

	default:
		return fmt.Errorf("%w: unknown event type %q", models.ErrInvalidArgument, env.Type)
	}
}

func decodePayload(env Envelope, v interface{}) error {
	if len(env.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Payload, v); err != nil {
		return fmt.Errorf("%w: invalid %s payload: %v", models.ErrInvalidArgument, env.Type, err)
	}
	return nil
}
