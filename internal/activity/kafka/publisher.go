// Package kafka streams recorded activity entries to a topic for downstream
// consumers (reporting, archival). The HTTP path never waits on the broker.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"opsdesk/internal/activity"
)

// Publisher implements activity.Sink over a Kafka topic. Entries are keyed by
// user ID so one user's trail stays ordered within a partition.
type Publisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewPublisher connects to the brokers and ensures the topic exists.
func NewPublisher(ctx context.Context, brokers []string, topic string, logger *slog.Logger) (*Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	admin := kadm.NewClient(client)
	if _, err := admin.CreateTopic(ctx, 1, 1, nil, topic); err != nil && !errors.Is(err, kerr.TopicAlreadyExists) {
		client.Close()
		return nil, fmt.Errorf("ensure topic %s: %w", topic, err)
	}

	return &Publisher{client: client, topic: topic, logger: logger}, nil
}

// Publish produces the entry without blocking. Delivery failures are logged
// and otherwise dropped; the durable copy already lives in the store.
func (p *Publisher) Publish(ctx context.Context, entry activity.Entry) {
	value, err := json.Marshal(entry)
	if err != nil {
		p.logger.WarnContext(ctx, "activity entry marshal failed", "error", err.Error())
		return
	}

	record := &kgo.Record{
		Key:   []byte(entry.UserID.String()),
		Value: value,
	}
	p.client.Produce(context.WithoutCancel(ctx), record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.Warn("activity entry produce failed",
				"topic", p.topic,
				"action", entry.Action,
				"error", err.Error(),
			)
		}
	})
}

// Flush drains in-flight records, for shutdown.
func (p *Publisher) Flush(ctx context.Context) error {
	return p.client.Flush(ctx)
}

// Close flushes and releases the client.
func (p *Publisher) Close() {
	p.client.Close()
}
