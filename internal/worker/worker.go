package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"github.com/illegalcall/quickai/internal/config"
	"github.com/illegalcall/quickai/internal/models"
)

type Handler interface {
	Handle(ctx context.Context, event models.CreationEvent) error
}

type Worker struct {
	cfg      config.KafkaConfig
	consumer sarama.ConsumerGroup
	handler  Handler
	logger   *slog.Logger
}

func NewWorker(cfg config.KafkaConfig, consumer sarama.ConsumerGroup, handler Handler, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "worker")
	logger.Info("Initializing new Worker", "topic", cfg.Topic, "group", cfg.Group)
	return &Worker{
		cfg:      cfg,
		consumer: consumer,
		handler:  handler,
		logger:   logger,
	}
}

// Start consumes until ctx is cancelled or the group is closed. A session
// ends on every rebalance, so Consume is called in a loop.
func (w *Worker) Start(ctx context.Context) error {
	topics := []string{w.cfg.Topic}
	w.logger.Info("Starting worker", "topics", topics)

	go func() {
		for err := range w.consumer.Errors() {
			w.logger.Error("Kafka consumer error received", "error", err)
		}
	}()

	for {
		if err := w.consumer.Consume(ctx, topics, w); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				w.logger.Info("Consumer group closed")
				return nil
			}
			w.logger.Error("Error from consumer.Consume", "error", err)

			select {
			case <-ctx.Done():
			case <-time.After(w.cfg.RetryBackoff):
			}
		}
		if ctx.Err() != nil {
			w.logger.Info("Context cancelled; shutting down worker")
			return nil
		}
	}
}

// Setup is run at the beginning of a new session, before ConsumeClaim.
func (w *Worker) Setup(session sarama.ConsumerGroupSession) error {
	w.logger.Info("Consumer group session setup complete", "member", session.MemberID())
	return nil
}

// Cleanup is run at the end of a session, once all ConsumeClaim goroutines have exited.
func (w *Worker) Cleanup(sarama.ConsumerGroupSession) error {
	w.logger.Info("Consumer group session cleanup complete")
	return nil
}

func (w *Worker) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		if err := w.process(session.Context(), message); err != nil {
			w.logger.Error("Failed to process event", "offset", message.Offset, "partition", message.Partition, "error", err)
		}
		session.MarkMessage(message, "")
	}
	return nil
}

// process never blocks the partition: malformed messages and events that
// still fail after the retries are logged and skipped.
func (w *Worker) process(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var event models.CreationEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to parse event: %w", err)
	}

	attempts := w.cfg.RetryMax
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = w.handler.Handle(ctx, event); err == nil {
			return nil
		}
		w.logger.Warn("Event handling failed", "type", event.Type, "attempt", attempt, "error", err)
		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.cfg.RetryBackoff):
		}
	}
	return fmt.Errorf("giving up after %d attempts: %w", attempts, err)
}
