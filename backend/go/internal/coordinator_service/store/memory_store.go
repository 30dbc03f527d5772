package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/models"
)

// MemoryStore keeps everything in process memory. Used for tests and for
// single-node deployments that do not need history across restarts.
type MemoryStore struct {
	mu            sync.RWMutex
	agents        map[string]models.Agent
	messages      []models.Message
	tasks         []models.Task
	taskIndex     map[string]int
	assessments   []models.Assessment
	interventions []models.Intervention
	ivIndex       map[string]int
	metrics       []models.Metric
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		agents:    make(map[string]models.Agent),
		taskIndex: make(map[string]int),
		ivIndex:   make(map[string]int),
	}
}

func (s *MemoryStore) SaveAgent(_ context.Context, agent *models.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := agent.Clone()
	a.ConnectionID = ""
	s.agents[a.ID] = a
	return nil
}

func (s *MemoryStore) ListAgents(_ context.Context) ([]models.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Agent, 0, len(s.agents))
	for _, a := range s.agents {
		out = append(out, a.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) AppendMessage(_ context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, *msg)
	return nil
}

func (s *MemoryStore) ListMessages(_ context.Context, f MessageFilter) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Message
	for i := len(s.messages) - 1; i >= 0; i-- {
		m := s.messages[i]
		if f.AgentID != "" && m.From != f.AgentID && m.To != f.AgentID {
			continue
		}
		if !f.Since.IsZero() && m.CreatedAt.Before(f.Since) {
			continue
		}
		out = append(out, m)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) CountMessages(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.messages)), nil
}

func (s *MemoryStore) CreateTask(_ context.Context, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.taskIndex[task.ID]; ok {
		return fmt.Errorf("%w: duplicate task id %s", models.ErrInvalidArgument, task.ID)
	}
	s.taskIndex[task.ID] = len(s.tasks)
	s.tasks = append(s.tasks, cloneTask(*task))
	return nil
}

func (s *MemoryStore) UpdateTask(_ context.Context, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.taskIndex[task.ID]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrUnknownTask, task.ID)
	}
	s.tasks[i] = cloneTask(*task)
	return nil
}

func (s *MemoryStore) GetTask(_ context.Context, id string) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.taskIndex[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownTask, id)
	}
	t := cloneTask(s.tasks[i])
	return &t, nil
}

func (s *MemoryStore) ListTasks(_ context.Context, f TaskFilter) ([]models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Task
	for i := len(s.tasks) - 1; i >= 0; i-- {
		t := s.tasks[i]
		if !matchTask(t, f) {
			continue
		}
		out = append(out, cloneTask(t))
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) CountTasks(_ context.Context, f TaskFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, t := range s.tasks {
		if matchTask(t, f) {
			n++
		}
	}
	return n, nil
}

func matchTask(t models.Task, f TaskFilter) bool {
	if f.AssignedTo != "" && t.AssignedTo != f.AssignedTo {
		return false
	}
	return containsTaskStatus(f.Statuses, t.Status)
}

func cloneTask(t models.Task) models.Task {
	if t.Deadline != nil {
		d := *t.Deadline
		t.Deadline = &d
	}
	return t
}

func (s *MemoryStore) AppendAssessment(_ context.Context, a *models.Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assessments = append(s.assessments, *a)
	return nil
}

func (s *MemoryStore) ListAssessments(_ context.Context, f AssessmentFilter) ([]models.Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Assessment
	for i := len(s.assessments) - 1; i >= 0; i-- {
		a := s.assessments[i]
		if f.AgentID != "" && a.AgentID != f.AgentID {
			continue
		}
		if !f.Since.IsZero() && a.AssessedAt.Before(f.Since) {
			continue
		}
		out = append(out, a)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) CreateIntervention(_ context.Context, iv *models.Intervention) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ivIndex[iv.ID]; ok {
		return fmt.Errorf("%w: duplicate intervention id %s", models.ErrInvalidArgument, iv.ID)
	}
	s.ivIndex[iv.ID] = len(s.interventions)
	s.interventions = append(s.interventions, *iv)
	return nil
}

func (s *MemoryStore) UpdateIntervention(_ context.Context, iv *models.Intervention) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.ivIndex[iv.ID]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrUnknownIntervention, iv.ID)
	}
	s.interventions[i] = *iv
	return nil
}

func (s *MemoryStore) GetIntervention(_ context.Context, id string) (*models.Intervention, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.ivIndex[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownIntervention, id)
	}
	iv := s.interventions[i]
	return &iv, nil
}

func (s *MemoryStore) ListInterventions(_ context.Context, f InterventionFilter) ([]models.Intervention, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Intervention
	for i := len(s.interventions) - 1; i >= 0; i-- {
		iv := s.interventions[i]
		if f.AgentID != "" && iv.AgentID != f.AgentID {
			continue
		}
		if !containsInterventionStatus(f.Statuses, iv.Status) {
			continue
		}
		out = append(out, iv)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) AppendMetric(_ context.Context, m *models.Metric) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = append(s.metrics, *m)
	return nil
}

func (s *MemoryStore) ListMetrics(_ context.Context, f MetricFilter) ([]models.Metric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Metric
	for i := len(s.metrics) - 1; i >= 0; i-- {
		m := s.metrics[i]
		if f.Name != "" && m.Name != f.Name {
			continue
		}
		if !f.Since.IsZero() && m.RecordedAt.Before(f.Since) {
			continue
		}
		out = append(out, m)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close(context.Context) error { return nil }
