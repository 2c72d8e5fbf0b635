package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illegalcall/quickai/internal/models"
)

type MockProducer struct {
	sarama.SyncProducer
	messages []*sarama.ProducerMessage
	err      error
}

func (m *MockProducer) SendMessage(msg *sarama.ProducerMessage) (int32, int64, error) {
	if m.err != nil {
		return 0, 0, m.err
	}
	m.messages = append(m.messages, msg)
	return 0, int64(len(m.messages)), nil
}

func TestKafkaPublisherPublish(t *testing.T) {
	producer := &MockProducer{}
	pub := NewKafkaPublisher(producer, "creations", nil)

	event := models.CreationEvent{
		Type:       models.EventCreationCreated,
		CreationID: 12,
		UserID:     "user-1",
		Kind:       models.CreationImage,
		Publish:    true,
		OccurredAt: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, pub.Publish(context.Background(), event))
	require.Len(t, producer.messages, 1)

	msg := producer.messages[0]
	assert.Equal(t, "creations", msg.Topic)
	assert.Equal(t, sarama.StringEncoder("user-1"), msg.Key)

	var decoded models.CreationEvent
	require.NoError(t, json.Unmarshal(msg.Value.(sarama.ByteEncoder), &decoded))
	assert.Equal(t, event, decoded)
}

func TestKafkaPublisherErrors(t *testing.T) {
	producer := &MockProducer{err: assert.AnError}
	pub := NewKafkaPublisher(producer, "creations", nil)

	err := pub.Publish(context.Background(), models.CreationEvent{Type: models.EventCreationLiked})
	assert.ErrorIs(t, err, assert.AnError)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, pub.Publish(ctx, models.CreationEvent{}), context.Canceled)
}

func TestNoop(t *testing.T) {
	assert.NoError(t, Noop{}.Publish(context.Background(), models.CreationEvent{}))
}

func TestFunc(t *testing.T) {
	var got models.CreationEvent
	pub := Func(func(_ context.Context, e models.CreationEvent) error {
		got = e
		return nil
	})

	require.NoError(t, pub.Publish(context.Background(), models.CreationEvent{CreationID: 4}))
	assert.Equal(t, 4, got.CreationID)
}
