package store

import (
	"context"
	"fmt"
	"time"

	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/models"
)

// AgentStore persists agent snapshots. Agents are upserted, never deleted.
type AgentStore interface {
	SaveAgent(ctx context.Context, agent *models.Agent) error
	ListAgents(ctx context.Context) ([]models.Agent, error)
}

// MessageStore is the append-only message history.
type MessageStore interface {
	AppendMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, filter MessageFilter) ([]models.Message, error)
	CountMessages(ctx context.Context) (int64, error)
}

// TaskStore persists tasks.
type TaskStore interface {
	CreateTask(ctx context.Context, task *models.Task) error
	UpdateTask(ctx context.Context, task *models.Task) error
	GetTask(ctx context.Context, id string) (*models.Task, error)
	ListTasks(ctx context.Context, filter TaskFilter) ([]models.Task, error)
	CountTasks(ctx context.Context, filter TaskFilter) (int64, error)
}

// AssessmentStore is the append-only assessment audit trail.
type AssessmentStore interface {
	AppendAssessment(ctx context.Context, a *models.Assessment) error
	// ListAssessments returns newest first. Equal timestamps are ordered by ID, descending.
	ListAssessments(ctx context.Context, filter AssessmentFilter) ([]models.Assessment, error)
}

// InterventionStore persists interventions.
type InterventionStore interface {
	CreateIntervention(ctx context.Context, iv *models.Intervention) error
	UpdateIntervention(ctx context.Context, iv *models.Intervention) error
	GetIntervention(ctx context.Context, id string) (*models.Intervention, error)
	ListInterventions(ctx context.Context, filter InterventionFilter) ([]models.Intervention, error)
}

// MetricStore is the append-only metric time series.
type MetricStore interface {
	AppendMetric(ctx context.Context, m *models.Metric) error
	ListMetrics(ctx context.Context, filter MetricFilter) ([]models.Metric, error)
}

// Store is the full durable store the coordinator needs.
type Store interface {
	AgentStore
	MessageStore
	TaskStore
	AssessmentStore
	InterventionStore
	MetricStore
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// MessageFilter selects messages. AgentID matches either sender or recipient.
// Results are newest first.
type MessageFilter struct {
	AgentID string
	Since   time.Time
	Limit   int
}

// TaskFilter selects tasks, newest first.
type TaskFilter struct {
	AssignedTo string
	Statuses   []models.TaskStatus
	Limit      int
}

// AssessmentFilter selects assessments with AssessedAt >= Since, newest first.
type AssessmentFilter struct {
	AgentID string
	Since   time.Time
	Limit   int
}

// InterventionFilter selects interventions, newest first.
type InterventionFilter struct {
	AgentID  string
	Statuses []models.InterventionStatus
	Limit    int
}

// MetricFilter selects metrics with RecordedAt >= Since, newest first.
type MetricFilter struct {
	Name  string
	Since time.Time
	Limit int
}

// unavailable wraps a driver error so callers can match models.ErrStoreUnavailable.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, models.ErrStoreUnavailable, err)
}

func containsTaskStatus(list []models.TaskStatus, s models.TaskStatus) bool {
	if len(list) == 0 {
		return true
	}
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsInterventionStatus(list []models.InterventionStatus, s models.InterventionStatus) bool {
	if len(list) == 0 {
		return true
	}
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
