package service

import "context"

// EventSink mirrors coordination events to an external bus such as Kafka.
type EventSink interface {
	Publish(ctx context.Context, key string, value interface{}) error
	Close() error
}

// NopSink discards every event. It is used when no bus is configured.
type NopSink struct{}

func (NopSink) Publish(context.Context, string, interface{}) error { return nil }

func (NopSink) Close() error { return nil }
