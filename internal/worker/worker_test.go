package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/illegalcall/quickai/internal/config"
	"github.com/illegalcall/quickai/internal/models"
	"github.com/illegalcall/quickai/internal/store"
)

// MockConsumerGroup mocks sarama.ConsumerGroup
type MockConsumerGroup struct {
	mock.Mock
}

func (m *MockConsumerGroup) Consume(ctx context.Context, topics []string, handler sarama.ConsumerGroupHandler) error {
	args := m.Called(ctx, topics, handler)
	return args.Error(0)
}

func (m *MockConsumerGroup) Errors() <-chan error {
	args := m.Called()
	return args.Get(0).(chan error)
}

func (m *MockConsumerGroup) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockConsumerGroup) Pause(partitions map[string][]int32)  { m.Called(partitions) }
func (m *MockConsumerGroup) Resume(partitions map[string][]int32) { m.Called(partitions) }
func (m *MockConsumerGroup) PauseAll()                            { m.Called() }
func (m *MockConsumerGroup) ResumeAll()                           { m.Called() }

type MockHandler struct {
	mock.Mock
}

func (m *MockHandler) Handle(ctx context.Context, event models.CreationEvent) error {
	return m.Called(ctx, event).Error(0)
}

type fakeSession struct {
	sarama.ConsumerGroupSession
	ctx    context.Context
	marked []*sarama.ConsumerMessage
}

func (s *fakeSession) Context() context.Context { return s.ctx }
func (s *fakeSession) MemberID() string         { return "member-1" }
func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.marked = append(s.marked, msg)
}

type fakeClaim struct {
	sarama.ConsumerGroupClaim
	messages chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

func testConfig() config.KafkaConfig {
	return config.KafkaConfig{
		Topic:        "creations",
		Group:        "feed-workers",
		RetryMax:     3,
		RetryBackoff: time.Millisecond,
	}
}

func message(t *testing.T, offset int64, event models.CreationEvent) *sarama.ConsumerMessage {
	t.Helper()
	raw, err := json.Marshal(event)
	require.NoError(t, err)
	return &sarama.ConsumerMessage{Topic: "creations", Offset: offset, Value: raw}
}

func claimOf(msgs ...*sarama.ConsumerMessage) *fakeClaim {
	ch := make(chan *sarama.ConsumerMessage, len(msgs))
	for _, m := range msgs {
		ch <- m
	}
	close(ch)
	return &fakeClaim{messages: ch}
}

func TestConsumeClaimMarksEveryMessage(t *testing.T) {
	handler := &MockHandler{}
	handler.On("Handle", mock.Anything, mock.MatchedBy(func(e models.CreationEvent) bool { return e.CreationID == 1 })).Return(nil)
	handler.On("Handle", mock.Anything, mock.MatchedBy(func(e models.CreationEvent) bool { return e.CreationID == 2 })).Return(assert.AnError)

	w := NewWorker(testConfig(), &MockConsumerGroup{}, handler, nil)
	session := &fakeSession{ctx: context.Background()}

	msgs := []*sarama.ConsumerMessage{
		message(t, 1, models.CreationEvent{Type: models.EventCreationCreated, CreationID: 1, Publish: true}),
		{Topic: "creations", Offset: 2, Value: []byte("not json")},
		message(t, 3, models.CreationEvent{Type: models.EventCreationLiked, CreationID: 2}),
	}
	require.NoError(t, w.ConsumeClaim(session, claimOf(msgs...)))

	assert.Len(t, session.marked, 3)
	// the failing event is retried up to RetryMax
	handler.AssertNumberOfCalls(t, "Handle", 1+3)
}

func TestProcessRetriesThenSucceeds(t *testing.T) {
	handler := &MockHandler{}
	handler.On("Handle", mock.Anything, mock.Anything).Return(assert.AnError).Once()
	handler.On("Handle", mock.Anything, mock.Anything).Return(nil).Once()

	w := NewWorker(testConfig(), &MockConsumerGroup{}, handler, nil)
	err := w.process(context.Background(), message(t, 1, models.CreationEvent{Type: models.EventCreationLiked}))
	require.NoError(t, err)
	handler.AssertExpectations(t)
}

func TestProcessMalformed(t *testing.T) {
	handler := &MockHandler{}
	w := NewWorker(testConfig(), &MockConsumerGroup{}, handler, nil)

	err := w.process(context.Background(), &sarama.ConsumerMessage{Value: []byte("{")})
	assert.Error(t, err)
	handler.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything)
}

func TestStartStopsOnCancel(t *testing.T) {
	consumer := &MockConsumerGroup{}
	errs := make(chan error)
	close(errs)
	consumer.On("Errors").Return(errs)

	ctx, cancel := context.WithCancel(context.Background())
	w := NewWorker(testConfig(), consumer, &MockHandler{}, nil)

	consumer.On("Consume", mock.Anything, []string{"creations"}, w).Return(assert.AnError).Once()
	consumer.On("Consume", mock.Anything, []string{"creations"}, w).Run(func(mock.Arguments) { cancel() }).Return(nil).Once()

	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
	consumer.AssertExpectations(t)
}

func TestStartReturnsWhenGroupClosed(t *testing.T) {
	consumer := &MockConsumerGroup{}
	errs := make(chan error)
	close(errs)
	consumer.On("Errors").Return(errs)
	consumer.On("Consume", mock.Anything, mock.Anything, mock.Anything).Return(sarama.ErrClosedConsumerGroup)

	w := NewWorker(testConfig(), consumer, &MockHandler{}, nil)
	assert.NoError(t, w.Start(context.Background()))
}

type MockLister struct {
	mock.Mock
}

func (m *MockLister) ListPublished(ctx context.Context) ([]models.Creation, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Creation), args.Error(1)
}

func TestFeedInvalidator(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	lister := &MockLister{}
	lister.On("ListPublished", mock.Anything).Return([]models.Creation{}, nil)
	feed := store.NewFeedCache(lister, client, time.Minute, nil)
	h := NewFeedInvalidator(feed, nil)
	ctx := context.Background()

	tests := []struct {
		name        string
		event       models.CreationEvent
		invalidated bool
	}{
		{"published creation", models.CreationEvent{Type: models.EventCreationCreated, Publish: true}, true},
		{"private creation", models.CreationEvent{Type: models.EventCreationCreated}, false},
		{"like", models.CreationEvent{Type: models.EventCreationLiked}, true},
		{"unknown", models.CreationEvent{Type: "creation.deleted"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := feed.ListPublished(ctx)
			require.NoError(t, err)
			require.True(t, mr.Exists("creations:published"))

			require.NoError(t, h.Handle(ctx, tt.event))
			assert.Equal(t, !tt.invalidated, mr.Exists("creations:published"))
		})
	}
}
