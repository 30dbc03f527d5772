package publisher

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/config"
	kafkadb "github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/database/kafka"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/models"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/pkg/logger"
)

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// EventPublisher mirrors coordination events to a Kafka topic.
type EventPublisher struct {
	writer MessageWriter
	topic  string
	logger *logger.Logger
}

// NewEventPublisher creates a publisher writing to the configured events topic.
func NewEventPublisher(cfg *config.KafkaConfig, logger *logger.Logger) *EventPublisher {
	return NewEventPublisherWithWriter(kafkadb.NewWriter(cfg, cfg.EventsTopic), cfg.EventsTopic, logger)
}

// NewEventPublisherWithWriter creates a publisher over an existing writer.
func NewEventPublisherWithWriter(w MessageWriter, topic string, logger *logger.Logger) *EventPublisher {
	return &EventPublisher{writer: w, topic: topic, logger: logger.Component("event_publisher")}
}

// Publish sends one event to the topic.
func (p *EventPublisher) Publish(ctx context.Context, key string, value interface{}) error {
	msgBytes, err := json.Marshal(value)
	if err != nil {
		p.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Failed to marshal event for Kafka")
		return err
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: msgBytes,
	})
	if err != nil {
		p.logger.WithError(models.ErrorInfo{Message: err.Error()}).WithPayload(map[string]interface{}{"topic": p.topic}).Error("Failed to write event to Kafka")
		return err
	}
	return nil
}

// Close flushes and closes the underlying Kafka writer.
func (p *EventPublisher) Close() error {
	return p.writer.Close()
}
