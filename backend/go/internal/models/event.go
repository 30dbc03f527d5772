package models

// 入站事件类型 (Agent -> 协调服务)。
const (
	EventAgentRegister   = "agent_register"
	EventStatusUpdate    = "status_update"
	EventHeartbeat       = "heartbeat"
	EventSendMessage     = "send_message"
	EventJoinRoom        = "join_room"
	EventLeaveRoom       = "leave_room"
	EventTaskUpdate      = "task_update"
	EventInterventionAck = "intervention_ack"
)

// 出站事件类型 (协调服务 -> Agent)。
const (
	EventConnected          = "connected"
	EventAgentRegistered    = "agent_registered"
	EventAgentListUpdated   = "agent_list_updated"
	EventStatusUpdated      = "status_updated"
	EventAgentStatusUpdated = "agent_status_updated"
	EventTaskCreated        = "task_created"
	EventTaskAssigned       = "task_assigned"
	EventTaskUpdated        = "task_updated"
	EventMessageReceived    = "message_received"
	EventJoinedRoom         = "joined_room"
	EventLeftRoom           = "left_room"
	EventHeartbeatAck       = "heartbeat_ack"
	EventInterventionOpened = "intervention_opened"
	EventInterventionUpdate = "intervention_updated"
	EventError              = "error"
)

// Event 是协调服务发出的事件信封，同时被推送到连接和 Kafka 事件主题。
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// NewEvent 构造一个事件。
func NewEvent(eventType string, payload interface{}) Event {
	return Event{Type: eventType, Payload: payload}
}

// ErrorEvent 构造一个错误事件。
func ErrorEvent(message string) Event {
	return Event{Type: EventError, Payload: map[string]string{"error": message}}
}
