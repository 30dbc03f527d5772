package kafka

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/config"
)

func TestTopics(t *testing.T) {
	cfg := config.Default().Databases.Kafka
	assert.Equal(t, []string{"convergence.events", "convergence.task-requests"}, Topics(&cfg))
}

func TestEnsureTopics_NoBrokers(t *testing.T) {
	err := EnsureTopics(context.Background(), &config.KafkaConfig{})
	assert.Error(t, err)
}

func TestNewWriter(t *testing.T) {
	cfg := &config.KafkaConfig{Brokers: []string{"localhost:9092"}}
	w := NewWriter(cfg, "events")
	defer w.Close()

	assert.Equal(t, "events", w.Topic)
	assert.True(t, w.Async)
	assert.IsType(t, &kafka.Hash{}, w.Balancer)
}
