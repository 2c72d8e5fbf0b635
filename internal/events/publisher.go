// Package events publishes creation events for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"

	"github.com/illegalcall/quickai/internal/models"
)

type Publisher interface {
	Publish(ctx context.Context, event models.CreationEvent) error
}

type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger
}

func NewKafkaPublisher(producer sarama.SyncProducer, topic string, logger *slog.Logger) *KafkaPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaPublisher{
		producer: producer,
		topic:    topic,
		logger:   logger.With("component", "events"),
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event models.CreationEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.UserID),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("Event published", "type", event.Type, "creation_id", event.CreationID, "partition", partition, "offset", offset)
	return nil
}

// Noop drops every event. Used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, models.CreationEvent) error { return nil }

// Func delivers events in process by calling the function directly.
type Func func(ctx context.Context, event models.CreationEvent) error

func (f Func) Publish(ctx context.Context, event models.CreationEvent) error {
	return f(ctx, event)
}
