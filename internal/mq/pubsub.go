package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"

	"github.com/notekeeper/apiserver/config"
)

const attrEventID = "event_id"

// PubSubBroker maps topics one-to-one onto Pub/Sub topics. Consumers share a
// single subscription named topic+suffix.
type PubSubBroker struct {
	client *pubsub.Client
	suffix string

	mu     sync.Mutex
	topics map[string]*pubsub.Topic
}

// NewPubSubBroker opens a client for cfg.ProjectID.
func NewPubSubBroker(ctx context.Context, cfg config.PubSubConfig) (*PubSubBroker, error) {
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, errors.New("pubsub project id is required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("pubsub client: %w", err)
	}

	suffix := cfg.SubscriptionSuffix
	if suffix == "" {
		suffix = "-sub"
	}
	return &PubSubBroker{
		client: client,
		suffix: suffix,
		topics: make(map[string]*pubsub.Topic),
	}, nil
}

func (p *PubSubBroker) Publish(ctx context.Context, topic string, env Envelope) error {
	t, err := p.topic(ctx, topic)
	if err != nil {
		return err
	}
	_, err = t.Publish(ctx, &pubsub.Message{
		Data: env.Body,
		Attributes: map[string]string{
			attrEventID:     env.ID,
			headerEventType: env.EventType,
		},
	}).Get(ctx)
	return err
}

func (p *PubSubBroker) Consume(ctx context.Context, topic string, fn Consumer) error {
	t, err := p.topic(ctx, topic)
	if err != nil {
		return err
	}

	name := topic + p.suffix
	sub := p.client.Subscription(name)
	ok, err := sub.Exists(ctx)
	if err != nil {
		return fmt.Errorf("lookup subscription %s: %w", name, err)
	}
	if !ok {
		sub, err = p.client.CreateSubscription(ctx, name, pubsub.SubscriptionConfig{Topic: t})
		if err != nil {
			return fmt.Errorf("create subscription %s: %w", name, err)
		}
	}

	return sub.Receive(ctx, func(ctx context.Context, m *pubsub.Message) {
		env := Envelope{
			ID:        m.Attributes[attrEventID],
			EventType: m.Attributes[headerEventType],
			Body:      m.Data,
		}
		if env.ID == "" {
			env.ID = m.ID
		}
		if err := fn(ctx, env); err != nil {
			m.Nack()
			return
		}
		m.Ack()
	})
}

// Close flushes buffered publishes on every cached topic before closing the
// client.
func (p *PubSubBroker) Close() error {
	p.mu.Lock()
	for name, t := range p.topics {
		t.Stop()
		delete(p.topics, name)
	}
	p.mu.Unlock()
	return p.client.Close()
}

// topic returns the cached handle for name, creating the topic if needed.
func (p *PubSubBroker) topic(ctx context.Context, name string) (*pubsub.Topic, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("pubsub topic is required")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if t, ok := p.topics[name]; ok {
		return t, nil
	}
	t := p.client.Topic(name)
	ok, err := t.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("lookup topic %s: %w", name, err)
	}
	if !ok {
		if t, err = p.client.CreateTopic(ctx, name); err != nil {
			return nil, fmt.Errorf("create topic %s: %w", name, err)
		}
	}
	p.topics[name] = t
	return t, nil
}
