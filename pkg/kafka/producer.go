// Package kafka publishes JSON events with segmentio/kafka-go.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/resilience"
)

// TypeHeader carries Event.Type so consumers can route without decoding
// the value.
const TypeHeader = "event-type"

// Event is one message. Key selects the partition; Value is JSON encoded.
type Event struct {
	Key   string
	Type  string
	Value any
}

// Writer is the part of *kafka.Writer the producer uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer  Writer
	topic   string
	backoff resilience.Backoff
	logger  *slog.Logger
}

// NewProducer creates a synchronous producer for topic. Batching follows
// cfg.BatchSize and cfg.FlushInterval; every write waits for all in-sync
// replicas.
func NewProducer(cfg config.KafkaConfig, topic string) *Producer {
	batchTimeout := cfg.FlushInterval
	if batchTimeout <= 0 || batchTimeout > time.Second {
		batchTimeout = 10 * time.Millisecond
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              max(cfg.BatchSize, 1),
		BatchTimeout:           batchTimeout,
		MaxAttempts:            1,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return newProducer(w, topic)
}

func newProducer(w Writer, topic string) *Producer {
	return &Producer{
		writer:  w,
		topic:   topic,
		backoff: resilience.Backoff{Attempts: 3, Initial: 200 * time.Millisecond},
		logger:  slog.Default().With("component", "kafka-producer", "topic", topic),
	}
}

func (p *Producer) Publish(ctx context.Context, event Event) error {
	return p.PublishBatch(ctx, []Event{event})
}

// PublishBatch encodes events and writes them in one call, retrying
// transient broker errors with backoff. An event that cannot be encoded
// fails the whole batch before anything is sent.
func (p *Producer) PublishBatch(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	messages, err := encode(events)
	if err != nil {
		return err
	}

	err = resilience.Retry(ctx, "kafka publish "+p.topic, p.backoff, func(ctx context.Context) error {
		err := p.writer.WriteMessages(ctx, messages...)
		if errors.Is(err, kafka.MessageSizeTooLarge) {
			return resilience.Permanent(err)
		}
		return err
	})
	if err != nil {
		p.logger.Error("failed to publish batch", "count", len(messages), "error", err)
		return fmt.Errorf("publishing batch to kafka: %w", err)
	}
	p.logger.Debug("batch published", "count", len(messages))
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

func encode(events []Event) ([]kafka.Message, error) {
	messages := make([]kafka.Message, 0, len(events))
	for i, event := range events {
		value, err := json.Marshal(event.Value)
		if err != nil {
			return nil, fmt.Errorf("marshaling event %d (key %q): %w", i, event.Key, err)
		}
		msg := kafka.Message{Key: []byte(event.Key), Value: value}
		if event.Type != "" {
			msg.Headers = []kafka.Header{{Key: TypeHeader, Value: []byte(event.Type)}}
		}
		messages = append(messages, msg)
	}
	return messages, nil
}
