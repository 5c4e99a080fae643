package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/notekeeper/apiserver/config"
	"github.com/notekeeper/apiserver/internal/metrics"
	"github.com/notekeeper/apiserver/types"
)

const (
	BackendNone     = "none"
	BackendRabbitMQ = "rabbitmq"
	BackendPubSub   = "pubsub"
)

// ErrNoBroker is returned by Tail on a nil bus.
var ErrNoBroker = errors.New("no mq backend configured")

// EventBus publishes domain events as JSON onto a single topic. A nil
// *EventBus is valid and drops every event.
type EventBus struct {
	broker Broker
	topic  string
}

func NewEventBus(broker Broker, topic string) *EventBus {
	return &EventBus{broker: broker, topic: topic}
}

// Open connects the configured backend and returns an event bus over
// cfg.EventsChannel. It returns nil without error when the backend is "none".
func Open(ctx context.Context, cfg config.MQConfig) (*EventBus, error) {
	var (
		broker Broker
		err    error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendNone:
		return nil, nil
	case BackendRabbitMQ:
		broker, err = NewRabbitBroker(cfg.RabbitMQ)
	case BackendPubSub:
		broker, err = NewPubSubBroker(ctx, cfg.PubSub)
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s backend: %w", cfg.Backend, err)
	}
	return NewEventBus(broker, cfg.EventsChannel), nil
}

// PublishEvent encodes event and hands it to the broker under a fresh id.
func (b *EventBus) PublishEvent(ctx context.Context, event types.Event) error {
	if b == nil {
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	err = b.broker.Publish(ctx, b.topic, Envelope{
		ID:        uuid.NewString(),
		EventType: string(event.Type),
		Body:      body,
	})
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.EventsPublishedTotal.WithLabelValues(string(event.Type), result).Inc()
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

// Tail consumes the events topic and calls fn for each decoded event until
// ctx is done. Envelopes that do not decode are acknowledged and skipped.
func (b *EventBus) Tail(ctx context.Context, fn func(types.Event) error) error {
	if b == nil {
		return ErrNoBroker
	}
	return b.broker.Consume(ctx, b.topic, func(ctx context.Context, env Envelope) error {
		var event types.Event
		if err := json.Unmarshal(env.Body, &event); err != nil {
			return nil
		}
		return fn(event)
	})
}

// Channel returns the topic events are published to.
func (b *EventBus) Channel() string {
	return b.topic
}

// Close releases the broker connection. Safe on a nil bus.
func (b *EventBus) Close() error {
	if b == nil {
		return nil
	}
	return b.broker.Close()
}
