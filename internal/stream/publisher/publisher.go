// Package publisher delivers prepared messages to the destination queue as
// one Kafka batch, keyed by Guardian content id.
package publisher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/guardianstream/internal/stream"
	"github.com/Adithya-Monish-Kumar-K/guardianstream/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/guardianstream/pkg/logger"
)

// BatchProducer writes a batch of events to a topic in one request.
type BatchProducer interface {
	PublishBatch(ctx context.Context, topic string, events []kafka.Event) error
}

// Publisher adapts a BatchProducer to the queue-publisher contract.
type Publisher struct {
	producer BatchProducer
	logger   *slog.Logger
}

func New(producer BatchProducer) *Publisher {
	return &Publisher{
		producer: producer,
		logger:   logger.WithComponent("publisher"),
	}
}

// Publish sends msgs to queue. The batch is all-or-nothing from the
// caller's point of view: any error means the invocation failed.
func (p *Publisher) Publish(ctx context.Context, queue string, msgs []stream.PreparedMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	events := make([]kafka.Event, 0, len(msgs))
	for _, msg := range msgs {
		events = append(events, kafka.Event{Key: msg.ID, Value: msg})
	}
	if err := p.producer.PublishBatch(ctx, queue, events); err != nil {
		return fmt.Errorf("publishing %d messages to %s: %w", len(msgs), queue, err)
	}
	p.logger.Debug("messages published", "queue", queue, "count", len(msgs))
	return nil
}
