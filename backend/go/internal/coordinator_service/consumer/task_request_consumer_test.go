package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/coordinator_service/service"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/models"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/pkg/logger"
)

// fakeReader hands out queued messages and then reports io.EOF.
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.queue) == 0 {
		return kafka.Message{}, io.EOF
	}
	msg := r.queue[0]
	r.queue = r.queue[1:]
	return msg, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

type fakeCreator struct {
	specs []service.TaskSpec
	err   error
}

func (c *fakeCreator) Create(_ context.Context, spec service.TaskSpec) (models.Task, error) {
	if c.err != nil {
		return models.Task{}, c.err
	}
	c.specs = append(c.specs, spec)
	return models.Task{ID: "TASK_x", Description: spec.Description}, nil
}

func request(t *testing.T, offset int64, req TaskRequest) kafka.Message {
	t.Helper()
	b, err := json.Marshal(req)
	require.NoError(t, err)
	return kafka.Message{Offset: offset, Value: b}
}

func TestTaskRequestConsumer_Run(t *testing.T) {
	deadline := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	r := &fakeReader{queue: []kafka.Message{
		request(t, 1, TaskRequest{RequestID: "r1", Description: "review docs", AssignedTo: "A", Priority: models.TaskPriorityHigh, Deadline: &deadline}),
		request(t, 2, TaskRequest{RequestID: "r1", Description: "review docs"}),
		{Offset: 3, Value: []byte("{not json")},
		{Offset: 4, Key: []byte("r2"), Value: []byte(`{"description":"from key"}`)},
	}}
	creator := &fakeCreator{}
	c, err := NewTaskRequestConsumerWithReader(r, creator, logger.Discard())
	require.NoError(t, err)

	c.Run(context.Background())

	require.Len(t, creator.specs, 2)
	assert.Equal(t, "review docs", creator.specs[0].Description)
	assert.Equal(t, models.TaskPriorityHigh, creator.specs[0].Priority)
	assert.Equal(t, "kafka", creator.specs[0].CreatedBy)
	require.NotNil(t, creator.specs[0].Deadline)
	assert.Equal(t, "from key", creator.specs[1].Description)
	assert.Equal(t, []int64{1, 2, 3, 4}, r.committed)
}

func TestTaskRequestConsumer_TransientFailureCanRetry(t *testing.T) {
	creator := &fakeCreator{err: models.ErrStoreUnavailable}
	c, err := NewTaskRequestConsumerWithReader(&fakeReader{}, creator, logger.Discard())
	require.NoError(t, err)

	msg := request(t, 1, TaskRequest{RequestID: "r1", Description: "x"})
	assert.ErrorIs(t, c.Handle(context.Background(), msg), models.ErrStoreUnavailable)

	creator.err = nil
	require.NoError(t, c.Handle(context.Background(), msg))
	assert.Len(t, creator.specs, 1)
}

func TestTaskRequestConsumer_InvalidRequestIsNotRetried(t *testing.T) {
	creator := &fakeCreator{err: errors.Join(models.ErrInvalidArgument, errors.New("no description"))}
	c, err := NewTaskRequestConsumerWithReader(&fakeReader{}, creator, logger.Discard())
	require.NoError(t, err)

	msg := request(t, 1, TaskRequest{RequestID: "r1"})
	assert.ErrorIs(t, c.Handle(context.Background(), msg), models.ErrInvalidArgument)

	creator.err = nil
	require.NoError(t, c.Handle(context.Background(), msg))
	assert.Empty(t, creator.specs)

	assert.ErrorIs(t, c.Handle(context.Background(), kafka.Message{Value: []byte(`{}`)}), models.ErrInvalidArgument)
}
