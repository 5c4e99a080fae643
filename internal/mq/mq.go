// Package mq carries domain events over a message broker. RabbitMQ and
// Google Pub/Sub are supported; both are reached through Broker.
package mq

import "context"

// Envelope is one encoded event in transit.
type Envelope struct {
	ID        string
	EventType string
	Body      []byte
}

// Consumer handles a delivered envelope. A returned error asks the broker to
// redeliver it.
type Consumer func(ctx context.Context, env Envelope) error

// Broker moves envelopes over a named topic.
type Broker interface {
	Publish(ctx context.Context, topic string, env Envelope) error
	// Consume blocks, feeding envelopes to fn until ctx is done.
	Consume(ctx context.Context, topic string, fn Consumer) error
	Close() error
}
