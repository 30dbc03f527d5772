package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/models"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/pkg/logger"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestEventPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := NewEventPublisherWithWriter(w, "convergence.events", logger.Discard())

	ev := models.NewEvent(models.EventTaskCreated, map[string]string{"id": "TASK_1"})
	require.NoError(t, p.Publish(context.Background(), ev.Type, ev))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, models.EventTaskCreated, string(w.msgs[0].Key))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, models.EventTaskCreated, decoded["type"])

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestEventPublisher_Errors(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := NewEventPublisherWithWriter(w, "convergence.events", logger.Discard())
	assert.Error(t, p.Publish(context.Background(), "k", "v"))
	assert.Error(t, p.Publish(context.Background(), "k", make(chan int)))
}
