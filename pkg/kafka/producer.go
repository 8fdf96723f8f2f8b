// Package kafka provides the queue transport backed by segmentio/kafka-go.
// The producer writes JSON-encoded batches to a topic named per call, and
// the consumer hands decoded messages to a MessageHandler callback.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/guardianstream/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/guardianstream/pkg/logger"
	"github.com/segmentio/kafka-go"
)

// ErrEmptyTopic is returned when a batch is published without a topic.
var ErrEmptyTopic = errors.New("topic must not be empty")

// Event is the unit of data published to Kafka. Key is used for partition
// hashing and Value is JSON-serialised.
type Event struct {
	Key   string
	Value any
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes JSON-encoded events. The writer carries no default
// topic; every message names its own.
type Producer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewProducer creates a Producer for the configured brokers. MaxAttempts is
// pinned to 1 so that a failed write surfaces to the caller unretried.
func NewProducer(cfg config.KafkaConfig) *Producer {
	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 10 * time.Millisecond
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           batchTimeout,
		MaxAttempts:            1,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: false,
		Async:                  false,
	}
	return newProducer(w)
}

func newProducer(w messageWriter) *Producer {
	return &Producer{
		writer: w,
		logger: logger.WithComponent("kafka-producer"),
	}
}

// PublishBatch serialises every event first and then writes the whole batch
// in a single call, so nothing is sent when any event fails to encode.
func (p *Producer) PublishBatch(ctx context.Context, topic string, events []Event) error {
	if topic == "" {
		return ErrEmptyTopic
	}
	messages, err := encode(topic, events)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		return nil
	}
	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		p.logger.Error("failed to publish batch",
			"topic", topic,
			"count", len(messages),
			"error", err,
		)
		return fmt.Errorf("publishing batch to %s: %w", topic, err)
	}
	p.logger.Debug("batch published", "topic", topic, "count", len(messages))
	return nil
}

// Close flushes pending writes and closes the underlying Kafka writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

func encode(topic string, events []Event) ([]kafka.Message, error) {
	messages := make([]kafka.Message, 0, len(events))
	for i, event := range events {
		value, err := json.Marshal(event.Value)
		if err != nil {
			return nil, fmt.Errorf("marshaling event %d: %w", i, err)
		}
		messages = append(messages, kafka.Message{
			Topic: topic,
			Key:   []byte(event.Key),
			Value: value,
		})
	}
	return messages, nil
}
