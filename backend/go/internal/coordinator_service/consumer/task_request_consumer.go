package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/config"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/coordinator_service/service"
	kafkadb "github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/database/kafka"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/models"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/pkg/logger"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/pkg/util"
)

// MessageReader is the subset of *kafka.Reader the consumer needs.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// TaskCreator creates tasks on the task board.
type TaskCreator interface {
	Create(ctx context.Context, spec service.TaskSpec) (models.Task, error)
}

// TaskRequest is the JSON body of a message on the task request topic.
type TaskRequest struct {
	RequestID   string              `json:"request_id"`
	Kind        string              `json:"kind"`
	Description string              `json:"description"`
	AssignedTo  string              `json:"assigned_to,omitempty"`
	Priority    models.TaskPriority `json:"priority,omitempty"`
	Deadline    *time.Time          `json:"deadline,omitempty"`
	RequestedBy string              `json:"requested_by,omitempty"`
}

const (
	dedupCapacity = 10000
	dedupTTL      = 24 * time.Hour
	fetchBackoff  = time.Second
)

// TaskRequestConsumer turns task requests from Kafka into tasks. Each
// request ID is handled at most once while it stays in the dedup cache.
type TaskRequestConsumer struct {
	reader MessageReader
	tasks  TaskCreator
	seen   *util.LRUCache[string, struct{}]
	logger *logger.Logger
}

// NewTaskRequestConsumer creates a consumer for the configured task request topic.
func NewTaskRequestConsumer(cfg *config.KafkaConfig, tasks TaskCreator, logger *logger.Logger) (*TaskRequestConsumer, error) {
	return NewTaskRequestConsumerWithReader(kafkadb.NewReader(cfg, cfg.TaskRequestsTopic), tasks, logger)
}

// NewTaskRequestConsumerWithReader creates a consumer over an existing reader.
func NewTaskRequestConsumerWithReader(r MessageReader, tasks TaskCreator, logger *logger.Logger) (*TaskRequestConsumer, error) {
	seen, err := util.NewLRU[string, struct{}](util.CacheConfig{Capacity: dedupCapacity, TTL: dedupTTL})
	if err != nil {
		return nil, err
	}
	return &TaskRequestConsumer{
		reader: r,
		tasks:  tasks,
		seen:   seen,
		logger: logger.Component("task_request_consumer"),
	}, nil
}

// Run consumes until ctx is cancelled or the reader is closed.
func (c *TaskRequestConsumer) Run(ctx context.Context) {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				c.logger.Info("Stopping Kafka task request consumer...")
				return
			}
			c.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Error fetching message from Kafka")
			select {
			case <-ctx.Done():
				return
			case <-time.After(fetchBackoff):
			}
			continue
		}

		if err := c.Handle(ctx, msg); err != nil {
			c.logger.WithError(models.ErrorInfo{Message: err.Error()}).WithPayload(map[string]interface{}{
				"topic":     msg.Topic,
				"partition": msg.Partition,
				"offset":    msg.Offset,
			}).Error("Error handling Kafka message")
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Failed to commit Kafka message")
		}
	}
}

// Handle processes one message. Duplicates are skipped without error.
func (c *TaskRequestConsumer) Handle(ctx context.Context, msg kafka.Message) error {
	var req TaskRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		return fmt.Errorf("%w: decode task request: %v", models.ErrInvalidArgument, err)
	}
	id := req.RequestID
	if id == "" {
		id = string(msg.Key)
	}
	if id == "" {
		return fmt.Errorf("%w: task request has no request_id", models.ErrInvalidArgument)
	}
	if !c.seen.AddIfAbsent(id, struct{}{}) {
		c.logger.WithPayload(map[string]interface{}{"request_id": id}).Debug("Duplicate task request skipped")
		return nil
	}

	createdBy := req.RequestedBy
	if createdBy == "" {
		createdBy = "kafka"
	}
	task, err := c.tasks.Create(ctx, service.TaskSpec{
		Kind:        req.Kind,
		Description: req.Description,
		AssignedTo:  req.AssignedTo,
		CreatedBy:   createdBy,
		Priority:    req.Priority,
		Deadline:    req.Deadline,
	})
	if err != nil {
		// A request that failed for a transient reason may be retried by a producer.
		if !errors.Is(err, models.ErrInvalidArgument) {
			c.seen.Remove(id)
		}
		return fmt.Errorf("create task for request %s: %w", id, err)
	}
	c.logger.WithPayload(map[string]interface{}{
		"request_id": id,
		"task_id":    task.ID,
	}).Info("Task created from Kafka request")
	return nil
}

// Close closes the underlying Kafka reader.
func (c *TaskRequestConsumer) Close() error {
	return c.reader.Close()
}
