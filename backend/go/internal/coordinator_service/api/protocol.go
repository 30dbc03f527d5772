package api

import (
	"encoding/json"

	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/agent"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/models"
)

// Envelope is the inbound websocket frame.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// RegisterPayload is the payload of agent_register.
type RegisterPayload struct {
	AgentID            string   `json:"agent_id"`
	AgentName          string   `json:"agent_name"`
	Capabilities       []string `json:"capabilities"`
	UnderstandingScore *float64 `json:"understanding_score"`
	AlignmentScore     *float64 `json:"alignment_score"`
}

func (p RegisterPayload) registration() agent.Registration {
	return agent.Registration{
		ID:            p.AgentID,
		Name:          p.AgentName,
		Capabilities:  p.Capabilities,
		Understanding: p.UnderstandingScore,
		Alignment:     p.AlignmentScore,
	}
}

// StatusPayload is the payload of status_update. AgentID may be omitted,
// in which case the agent bound to the connection is updated.
type StatusPayload struct {
	AgentID            string             `json:"agent_id"`
	Status             models.AgentStatus `json:"status"`
	CurrentTask        *string            `json:"current_task"`
	UnderstandingScore *float64           `json:"understanding_score"`
	AlignmentScore     *float64           `json:"alignment_score"`
}

func (p StatusPayload) update() agent.StatusUpdate {
	return agent.StatusUpdate{
		Status:        p.Status,
		CurrentTask:   p.CurrentTask,
		Understanding: p.UnderstandingScore,
		Alignment:     p.AlignmentScore,
	}
}

// SendPayload is the payload of send_message. The sender is always the
// agent bound to the connection.
type SendPayload struct {
	ToAgent     string `json:"to_agent"`
	MessageType string `json:"message_type"`
	Content     string `json:"content"`
}

// RoomPayload is the payload of join_room and leave_room.
type RoomPayload struct {
	Room string `json:"room"`
}

// TaskUpdatePayload is the payload of task_update.
type TaskUpdatePayload struct {
	TaskID string            `json:"task_id"`
	Status models.TaskStatus `json:"status"`
}

// InterventionAckPayload is the payload of intervention_ack.
type InterventionAckPayload struct {
	InterventionID string `json:"intervention_id"`
}
