package cmd

import "time"

// The CLI cannot import the backend models, so it decodes the fields it prints.

type agentView struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Capabilities  []string  `json:"capabilities"`
	Status        string    `json:"status"`
	LastSeen      time.Time `json:"last_seen"`
	CurrentTask   string    `json:"current_task"`
	Understanding *float64  `json:"understanding"`
	Alignment     *float64  `json:"alignment"`
}

type taskView struct {
	ID          string     `json:"id"`
	Kind        string     `json:"kind"`
	Description string     `json:"description"`
	AssignedTo  string     `json:"assigned_to"`
	CreatedBy   string     `json:"created_by"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	Deadline    *time.Time `json:"deadline"`
}

type interventionView struct {
	ID            string    `json:"id"`
	AgentID       string    `json:"agent_id"`
	Severity      string    `json:"severity"`
	ProtocolRef   string    `json:"protocol_ref"`
	Divergence    float64   `json:"divergence"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	Effectiveness *float64  `json:"effectiveness"`
	Note          string    `json:"note"`
}

type assessmentView struct {
	AgentID    string    `json:"agent_id"`
	Divergence float64   `json:"divergence"`
	AssessedAt time.Time `json:"assessed_at"`
}

type reportView struct {
	Since             time.Time          `json:"since"`
	GeneratedAt       time.Time          `json:"generated_at"`
	Threshold         float64            `json:"threshold"`
	AvgDivergence     float64            `json:"avg_divergence"`
	Converged         bool               `json:"converged"`
	Assessments       []assessmentView   `json:"assessments"`
	OpenInterventions []interventionView `json:"open_interventions"`
}

type cycleView struct {
	Opened            []interventionView `json:"opened_interventions"`
	ActiveAgents      int                `json:"active_agents"`
	AvgDivergence     float64            `json:"avg_divergence"`
	OpenInterventions int                `json:"open_interventions"`
	Converged         bool               `json:"converged"`
}

func score(v *float64) string {
	if v == nil {
		return "-"
	}
	return formatFloat(*v)
}
