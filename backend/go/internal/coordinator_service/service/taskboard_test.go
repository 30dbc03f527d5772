package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/agent"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/coordinator_service/store"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/models"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/pkg/logger"
)

var taskIDPattern = regexp.MustCompile(`^TASK_\d{8}_\d{6}_\d{6}_\d{6}$`)

func TestTaskBoard_CreateAssignsConnectedAgent(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	a := connectAgent(t, svc, "c-a", "A")
	b := connectAgent(t, svc, "c-b", "B")

	task, err := svc.Tasks().Create(ctx, TaskSpec{Description: "Review the auth module", AssignedTo: "A"})
	require.NoError(t, err)
	assert.Regexp(t, taskIDPattern, task.ID)
	assert.Equal(t, models.TaskPriorityMedium, task.Priority)
	assert.Equal(t, models.TaskStatusPending, task.Status)
	assert.Equal(t, defaultTaskKind, task.Kind)

	assert.Len(t, a.ofType(models.EventTaskCreated), 1)
	assert.Len(t, b.ofType(models.EventTaskCreated), 1)
	assert.Len(t, a.ofType(models.EventTaskAssigned), 1)
	assert.Empty(t, b.ofType(models.EventTaskAssigned))

	got, ok := svc.Registry().Get("A")
	require.True(t, ok)
	assert.Equal(t, "Review the auth module", got.CurrentTask)
}

func TestTaskBoard_CreateValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Tasks().Create(ctx, TaskSpec{Description: "  "})
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	_, err = svc.Tasks().Create(ctx, TaskSpec{Description: "x", Priority: "urgent"})
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	// Unknown assignees are accepted; the task waits for them.
	task, err := svc.Tasks().Create(ctx, TaskSpec{Description: "later", AssignedTo: "NOBODY"})
	require.NoError(t, err)
	assert.Equal(t, "NOBODY", task.AssignedTo)
}

func TestTaskBoard_IDsAreUniqueAndSortable(t *testing.T) {
	board := NewTaskBoard(store.NewMemoryStore(), agent.NewRegistry(), NewConnectionManager(logger.Discard()), nil, logger.Discard())
	fixed := time.Date(2025, 9, 23, 12, 0, 0, 0, time.UTC)
	board.now = func() time.Time { return fixed }

	var prev string
	for i := 0; i < 50; i++ {
		task, err := board.Create(context.Background(), TaskSpec{Description: "t"})
		require.NoError(t, err)
		assert.Regexp(t, taskIDPattern, task.ID)
		assert.Greater(t, task.ID, prev)
		prev = task.ID
	}
	assert.Equal(t, "TASK_20250923_120000_000000_000050", prev)
}

func TestTaskBoard_Transitions(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	connectAgent(t, svc, "c-a", "A")
	b := connectAgent(t, svc, "c-b", "B")

	task, err := svc.Tasks().Create(ctx, TaskSpec{Description: "ship it", AssignedTo: "A", Priority: models.TaskPriorityHigh})
	require.NoError(t, err)

	_, err = svc.UpdateTask(ctx, "c-b", task.ID, models.TaskStatusInProgress)
	assert.ErrorIs(t, err, models.ErrNotAssignee)

	_, err = svc.UpdateTask(ctx, "c-a", task.ID, models.TaskStatusDone)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	_, err = svc.UpdateTask(ctx, "c-a", task.ID, "paused")
	assert.ErrorIs(t, err, models.ErrInvalidStatus)

	updated, err := svc.UpdateTask(ctx, "c-a", task.ID, models.TaskStatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusInProgress, updated.Status)
	assert.Len(t, b.ofType(models.EventTaskUpdated), 1)

	updated, err = svc.Tasks().UpdateStatus(ctx, task.ID, models.TaskStatusDone, "")
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusDone, updated.Status)

	a, _ := svc.Registry().Get("A")
	assert.Empty(t, a.CurrentTask)

	_, err = svc.Tasks().UpdateStatus(ctx, task.ID, models.TaskStatusCancelled, "")
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	_, err = svc.Tasks().UpdateStatus(ctx, "TASK_missing", models.TaskStatusDone, "")
	assert.ErrorIs(t, err, models.ErrUnknownTask)

	open, err := svc.Tasks().OpenCount(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, open)
}

func TestTaskBoard_Restore(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, st.CreateTask(ctx, &models.Task{ID: "TASK_1", Description: "old", AssignedTo: "A", Status: models.TaskStatusInProgress, CreatedAt: now}))
	require.NoError(t, st.CreateTask(ctx, &models.Task{ID: "TASK_2", Description: "waiting", AssignedTo: "B", Status: models.TaskStatusPending, CreatedAt: now}))
	require.NoError(t, st.SaveAgent(ctx, &models.Agent{ID: "A", Status: models.AgentStatusActive}))

	svc := NewService(st, agent.NewRegistry(), nil, logger.Discard())
	require.NoError(t, svc.Restore(ctx))

	a, ok := svc.Registry().Get("A")
	require.True(t, ok)
	assert.Equal(t, models.AgentStatusOffline, a.Status)
	assert.Equal(t, "old", a.CurrentTask)

	tasks, err := svc.Tasks().List(ctx, store.TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
}

func TestTaskBoard_AssignmentIsSavedWithTheAgent(t *testing.T) {
	svc, st := newTestService()
	ctx := context.Background()
	connectAgent(t, svc, "c-a", "A")

	task, err := svc.Tasks().Create(ctx, TaskSpec{Description: "Write the report", AssignedTo: "A"})
	require.NoError(t, err)
	assert.Equal(t, "Write the report", storedAgent(t, st, "A").CurrentTask)

	_, err = svc.Tasks().UpdateStatus(ctx, task.ID, models.TaskStatusInProgress, "A")
	require.NoError(t, err)
	_, err = svc.Tasks().UpdateStatus(ctx, task.ID, models.TaskStatusDone, "A")
	require.NoError(t, err)
	assert.Empty(t, storedAgent(t, st, "A").CurrentTask)
}

func TestTaskBoard_StalledUpdateDoesNotHoldUpTheBoard(t *testing.T) {
	st := newStallingStore("", "TASK_STUCK")
	svc := NewService(st, agent.NewRegistry(), nil, logger.Discard())
	svc.SetStoreTimeout(200 * time.Millisecond)
	ctx := context.Background()

	stuck := make(chan error, 1)
	go func() {
		_, err := svc.Tasks().UpdateStatus(ctx, "TASK_STUCK", models.TaskStatusDone, "")
		stuck <- err
	}()
	<-st.stalled

	finishWithin(t, 2*time.Second, "create and start another task", func() {
		task, err := svc.Tasks().Create(ctx, TaskSpec{Description: "unrelated"})
		if !assert.NoError(t, err) {
			return
		}
		_, err = svc.Tasks().UpdateStatus(ctx, task.ID, models.TaskStatusInProgress, "")
		assert.NoError(t, err)
	})
	assert.ErrorIs(t, <-stuck, context.DeadlineExceeded)
}
