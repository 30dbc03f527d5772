package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/agent"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/coordinator_service/store"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/models"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/pkg/logger"
)

// TaskSpec describes a task to create.
type TaskSpec struct {
	Kind        string              `json:"kind"`
	Description string              `json:"description"`
	AssignedTo  string              `json:"assigned_to,omitempty"`
	CreatedBy   string              `json:"created_by,omitempty"`
	Priority    models.TaskPriority `json:"priority,omitempty"`
	Deadline    *time.Time          `json:"deadline,omitempty"`
}

const defaultTaskKind = "general"

// AgentSaver stores an agent snapshot after the board changed its current task.
type AgentSaver func(ctx context.Context, a models.Agent)

// TaskBoard creates tasks and moves them through their lifecycle.
type TaskBoard struct {
	store     store.TaskStore
	registry  *agent.Registry
	conns     *ConnectionManager
	events    EventSink
	saveAgent AgentSaver
	logger    *logger.Logger

	// mu guards seq and serialises status changes. Store calls under it
	// are bounded by timeout.
	mu      sync.Mutex
	seq     uint64
	timeout time.Duration
	now     func() time.Time
}

// NewTaskBoard creates a new TaskBoard.
func NewTaskBoard(st store.TaskStore, registry *agent.Registry, conns *ConnectionManager, events EventSink, log *logger.Logger) *TaskBoard {
	if events == nil {
		events = NopSink{}
	}
	return &TaskBoard{
		store:     st,
		registry:  registry,
		conns:     conns,
		events:    events,
		saveAgent: func(context.Context, models.Agent) {},
		logger:    log.Component("taskboard"),
		timeout:   DefaultStoreTimeout,
		now:       time.Now,
	}
}

// nextIDLocked returns TASK_<yyyymmdd_hhmmss_micro>_<sequence>. Must hold b.mu.
func (b *TaskBoard) nextIDLocked(now time.Time) string {
	b.seq++
	stamp := strings.ReplaceAll(now.UTC().Format("20060102_150405.000000"), ".", "_")
	return fmt.Sprintf("TASK_%s_%06d", stamp, b.seq%1000000)
}

// Create validates spec, stores the new task and announces it.
func (b *TaskBoard) Create(ctx context.Context, spec TaskSpec) (models.Task, error) {
	if strings.TrimSpace(spec.Description) == "" {
		return models.Task{}, fmt.Errorf("%w: task description is required", models.ErrInvalidArgument)
	}
	if spec.Priority == "" {
		spec.Priority = models.TaskPriorityMedium
	}
	if !spec.Priority.Valid() {
		return models.Task{}, fmt.Errorf("%w: unknown priority %q", models.ErrInvalidArgument, spec.Priority)
	}
	if spec.Kind == "" {
		spec.Kind = defaultTaskKind
	}

	b.mu.Lock()
	now := b.now().UTC()
	task := models.Task{
		ID:          b.nextIDLocked(now),
		Kind:        spec.Kind,
		Description: spec.Description,
		AssignedTo:  spec.AssignedTo,
		CreatedBy:   spec.CreatedBy,
		Priority:    spec.Priority,
		Status:      models.TaskStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
		Deadline:    spec.Deadline,
	}
	b.mu.Unlock()

	if err := b.create(ctx, &task); err != nil {
		b.logger.WithError(models.ErrorInfo{Message: err.Error()}).
			WithPayload(map[string]interface{}{"task_id": task.ID}).
			Error("Failed to save task")
		return models.Task{}, err
	}

	b.announce(ctx, models.NewEvent(models.EventTaskCreated, task))

	if task.AssignedTo != "" {
		if c, ok := b.conns.ConnForAgent(task.AssignedTo); ok {
			b.conns.Deliver(c, models.NewEvent(models.EventTaskAssigned, task))
			a, err := b.registry.SetCurrentTask(task.AssignedTo, task.Description)
			if err != nil {
				b.logger.WithError(models.ErrorInfo{Message: err.Error()}).
					WithPayload(map[string]interface{}{"task_id": task.ID, "agent_id": task.AssignedTo}).
					Warn("Failed to set current task")
			} else {
				b.saveAgent(ctx, a)
			}
		}
	}

	b.logger.WithPayload(map[string]interface{}{
		"task_id":     task.ID,
		"assigned_to": task.AssignedTo,
		"priority":    task.Priority,
	}).Info("Task created")
	return task, nil
}

// UpdateStatus moves a task to status on behalf of actor.
// An empty actor is the coordinator itself; any other actor must be the assignee.
func (b *TaskBoard) UpdateStatus(ctx context.Context, taskID string, status models.TaskStatus, actor string) (models.Task, error) {
	if !status.Valid() {
		return models.Task{}, fmt.Errorf("%w: task status %q", models.ErrInvalidStatus, status)
	}

	task, err := b.transition(ctx, taskID, status, actor)
	if err != nil {
		return models.Task{}, err
	}

	if status.Terminal() && task.AssignedTo != "" {
		if a, cleared := b.registry.ClearCurrentTask(task.AssignedTo, task.Description); cleared {
			b.saveAgent(ctx, a)
		}
	}

	b.announce(ctx, models.NewEvent(models.EventTaskUpdated, task))
	b.logger.WithPayload(map[string]interface{}{
		"task_id": task.ID,
		"status":  task.Status,
		"actor":   actor,
	}).Info("Task status updated")
	return task, nil
}

// transition checks and stores one status change. Serialised so two
// concurrent updates cannot both pass the transition check.
func (b *TaskBoard) transition(ctx context.Context, taskID string, status models.TaskStatus, actor string) (models.Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	current, err := b.store.GetTask(ctx, taskID)
	if err != nil {
		return models.Task{}, err
	}
	if actor != "" && current.AssignedTo != "" && actor != current.AssignedTo {
		return models.Task{}, fmt.Errorf("%w: task %s is assigned to %s", models.ErrNotAssignee, taskID, current.AssignedTo)
	}
	if !current.Status.CanTransitionTo(status) {
		return models.Task{}, fmt.Errorf("%w: task %s %s -> %s", models.ErrInvalidTransition, taskID, current.Status, status)
	}
	task := *current
	task.Status = status
	task.UpdatedAt = b.now().UTC()
	if err := b.store.UpdateTask(ctx, &task); err != nil {
		return models.Task{}, err
	}
	return task, nil
}

func (b *TaskBoard) create(ctx context.Context, task *models.Task) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return b.store.CreateTask(ctx, task)
}

// Get returns one task.
func (b *TaskBoard) Get(ctx context.Context, taskID string) (models.Task, error) {
	t, err := b.store.GetTask(ctx, taskID)
	if err != nil {
		return models.Task{}, err
	}
	return *t, nil
}

// List returns stored tasks, newest first.
func (b *TaskBoard) List(ctx context.Context, filter store.TaskFilter) ([]models.Task, error) {
	return b.store.ListTasks(ctx, filter)
}

// OpenCount returns the number of tasks that are pending or in progress.
func (b *TaskBoard) OpenCount(ctx context.Context) (int64, error) {
	return b.store.CountTasks(ctx, store.TaskFilter{
		Statuses: []models.TaskStatus{models.TaskStatusPending, models.TaskStatusInProgress},
	})
}

// Restore puts the in-progress tasks of the store back on their assignees
// after a restart. It returns the number of assignments restored.
func (b *TaskBoard) Restore(ctx context.Context) (int, error) {
	tasks, err := b.store.ListTasks(ctx, store.TaskFilter{Statuses: []models.TaskStatus{models.TaskStatusInProgress}})
	if err != nil {
		return 0, err
	}
	restored := 0
	// ListTasks is newest first; walk backwards so the newest task wins.
	for i := len(tasks) - 1; i >= 0; i-- {
		t := tasks[i]
		if t.AssignedTo == "" {
			continue
		}
		if _, err := b.registry.SetCurrentTask(t.AssignedTo, t.Description); err == nil {
			restored++
		}
	}
	return restored, nil
}

func (b *TaskBoard) announce(ctx context.Context, ev models.Event) {
	b.conns.Broadcast(ev, "")
	if err := b.events.Publish(ctx, ev.Type, ev); err != nil {
		b.logger.WithError(models.ErrorInfo{Message: err.Error()}).
			WithPayload(map[string]interface{}{"event": ev.Type}).
			Warn("Failed to mirror task event")
	}
}
