package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/notekeeper/apiserver/config"
)

const headerEventType = "event_type"

// RabbitBroker publishes each topic to a fanout exchange of the same name.
// Every consumer binds its own exclusive queue, so two tails both see every
// event.
type RabbitBroker struct {
	conn       *amqp.Connection
	ch         *amqp.Channel
	durable    bool
	autoDelete bool
}

// NewRabbitBroker dials cfg.URL and opens a single channel.
func NewRabbitBroker(cfg config.RabbitMQConfig) (*RabbitBroker, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rabbitmq url is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}
	if cfg.PrefetchCount > 0 {
		if err := ch.Qos(cfg.PrefetchCount, 0, false); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, fmt.Errorf("set rabbitmq prefetch: %w", err)
		}
	}

	return &RabbitBroker{
		conn:       conn,
		ch:         ch,
		durable:    cfg.QueueDurable,
		autoDelete: cfg.QueueAutoDelete,
	}, nil
}

func (r *RabbitBroker) Publish(ctx context.Context, topic string, env Envelope) error {
	if err := r.declareExchange(topic); err != nil {
		return err
	}

	mode := amqp.Transient
	if r.durable {
		mode = amqp.Persistent
	}
	return r.ch.PublishWithContext(ctx, topic, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: mode,
		MessageId:    env.ID,
		Type:         env.EventType,
		Headers:      amqp.Table{headerEventType: env.EventType},
		Body:         env.Body,
	})
}

func (r *RabbitBroker) Consume(ctx context.Context, topic string, fn Consumer) error {
	if err := r.declareExchange(topic); err != nil {
		return err
	}

	queue, err := r.ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("declare tail queue: %w", err)
	}
	if err := r.ch.QueueBind(queue.Name, "", topic, false, nil); err != nil {
		return fmt.Errorf("bind %s to %s: %w", queue.Name, topic, err)
	}

	deliveries, err := r.ch.Consume(queue.Name, "", false, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", queue.Name, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			env := Envelope{ID: d.MessageId, EventType: d.Type, Body: d.Body}
			if env.EventType == "" {
				if v, ok := d.Headers[headerEventType].(string); ok {
					env.EventType = v
				}
			}
			if err := fn(ctx, env); err != nil {
				_ = d.Nack(false, true)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Close closes the channel, then the connection.
func (r *RabbitBroker) Close() error {
	_ = r.ch.Close()
	return r.conn.Close()
}

func (r *RabbitBroker) declareExchange(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("rabbitmq topic is required")
	}
	if err := r.ch.ExchangeDeclare(name, amqp.ExchangeFanout, r.durable, r.autoDelete, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", name, err)
	}
	return nil
}
