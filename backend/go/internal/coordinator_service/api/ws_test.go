package api

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/config"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/models"
)

type inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	readUntil(t, conn, models.EventConnected)
	return conn
}

func send(t *testing.T, conn *websocket.Conn, eventType string, payload interface{}) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": eventType, "payload": payload}))
}

// readUntil skips events until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, eventType string) json.RawMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var ev inbound
		require.NoError(t, conn.ReadJSON(&ev), "waiting for %s", eventType)
		if ev.Type == eventType {
			return ev.Payload
		}
	}
}

func register(t *testing.T, conn *websocket.Conn, id string) {
	t.Helper()
	send(t, conn, models.EventAgentRegister, RegisterPayload{AgentID: id, AgentName: id})
	var reply struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(readUntil(t, conn, models.EventAgentRegistered), &reply))
	require.Equal(t, "success", reply.Status, reply.Error)
}

func TestWebSocket_MessagingBetweenAgents(t *testing.T) {
	env := newTestEnv(t, config.AuthConfig{})
	srv := httptest.NewServer(env.engine)
	defer srv.Close()

	a := dial(t, srv)
	b := dial(t, srv)
	register(t, a, "CURSOR_001")
	register(t, b, "CLAUDE_001")

	send(t, a, models.EventSendMessage, SendPayload{ToAgent: "CLAUDE_001", Content: "hello"})
	var msg models.Message
	require.NoError(t, json.Unmarshal(readUntil(t, b, models.EventMessageReceived), &msg))
	assert.Equal(t, "CURSOR_001", msg.From)
	assert.Equal(t, "hello", msg.Content)
	assert.Equal(t, "text", msg.Kind)

	send(t, a, models.EventHeartbeat, nil)
	readUntil(t, a, models.EventHeartbeatAck)

	send(t, b, models.EventJoinRoom, RoomPayload{Room: "reviewers"})
	readUntil(t, b, models.EventJoinedRoom)
	send(t, a, models.EventSendMessage, SendPayload{ToAgent: "room:review*", Content: "ping room"})
	require.NoError(t, json.Unmarshal(readUntil(t, b, models.EventMessageReceived), &msg))
	assert.Equal(t, "ping room", msg.Content)

	require.NoError(t, a.Close())
	var offline models.Agent
	require.NoError(t, json.Unmarshal(readUntil(t, b, models.EventAgentStatusUpdated), &offline))
	assert.Equal(t, "CURSOR_001", offline.ID)
	assert.Equal(t, models.AgentStatusOffline, offline.Status)
}

func TestWebSocket_Errors(t *testing.T) {
	env := newTestEnv(t, config.AuthConfig{})
	srv := httptest.NewServer(env.engine)
	defer srv.Close()

	c := dial(t, srv)

	send(t, c, models.EventSendMessage, SendPayload{ToAgent: "broadcast", Content: "hi"})
	assert.Contains(t, string(readUntil(t, c, models.EventError)), "no registered agent")

	send(t, c, "dream_fragment", nil)
	assert.Contains(t, string(readUntil(t, c, models.EventError)), "unknown event type")

	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte(`{"type":"join_room","payload":"oops"}`)))
	assert.Contains(t, string(readUntil(t, c, models.EventError)), "invalid join_room payload")

	register(t, c, "CURSOR_001")
	other := dial(t, srv)
	send(t, other, models.EventAgentRegister, RegisterPayload{AgentID: "CURSOR_001"})
	var reply struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(readUntil(t, other, models.EventAgentRegistered), &reply))
	assert.Equal(t, "error", reply.Status)
}

func TestWebSocket_InboundRateLimit(t *testing.T) {
	env := newTestEnv(t, config.AuthConfig{})
	env.api.transport.InboundRate = 0.001
	env.api.transport.InboundBurst = 1
	srv := httptest.NewServer(env.engine)
	defer srv.Close()

	c := dial(t, srv)
	register(t, c, "CURSOR_001")

	send(t, c, models.EventHeartbeat, nil)
	assert.Contains(t, string(readUntil(t, c, models.EventError)), "rate limit exceeded")
}

func TestWSConn_SendNeverBlocks(t *testing.T) {
	env := newTestEnv(t, config.AuthConfig{})
	srv := httptest.NewServer(env.engine)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	raw, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer raw.Close()

	wc := newWSConn(raw, 1, time.Second, env.api.logger)
	require.NoError(t, wc.Send(models.NewEvent("one", nil)))
	assert.ErrorIs(t, wc.Send(models.NewEvent("two", nil)), models.ErrDeliveryFailure)

	require.NoError(t, wc.Close())
	assert.ErrorIs(t, wc.Send(models.NewEvent("three", nil)), models.ErrDeliveryFailure)
}
