package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
)

const (
	maxRetries = 10
	retryDelay = 3 * time.Second
)

func waitForKafka(ctx context.Context, brokers []string) error {
	for i := 0; i < maxRetries; i++ {
		config := sarama.NewConfig()
		config.Net.DialTimeout = 1 * time.Second
		client, err := sarama.NewClient(brokers, config)
		if err == nil {
			client.Close()
			return nil
		}
		slog.Info("Waiting for Kafka to be ready...", "attempt", i+1)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryDelay):
		}
	}
	return fmt.Errorf("kafka not available after %d attempts", maxRetries)
}

// NewProducer returns a synchronous producer. Messages are keyed, so all
// events of one user land on the same partition.
func NewProducer(ctx context.Context, broker string, retryMax int, retryBackoff time.Duration) (sarama.SyncProducer, error) {
	brokers := []string{broker}
	if err := waitForKafka(ctx, brokers); err != nil {
		return nil, err
	}

	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Partitioner = sarama.NewHashPartitioner
	config.Producer.Retry.Max = retryMax
	config.Producer.Retry.Backoff = retryBackoff

	return sarama.NewSyncProducer(brokers, config)
}

func NewConsumer(ctx context.Context, broker, group string) (sarama.ConsumerGroup, error) {
	brokers := []string{broker}
	if err := waitForKafka(ctx, brokers); err != nil {
		return nil, err
	}

	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	config.Consumer.Offsets.Initial = sarama.OffsetNewest
	config.Consumer.Return.Errors = true

	return sarama.NewConsumerGroup(brokers, group, config)
}
