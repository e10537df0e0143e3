package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adityakhanna/vastra-backend/pkg/config"
	"github.com/adityakhanna/vastra-backend/pkg/db/models"
	"github.com/adityakhanna/vastra-backend/pkg/enums"
)

type stubStore struct {
	events    []models.OutboxEvent
	fetchErr  error
	published []uuid.UUID
	failed    []uuid.UUID
	terminal  []uuid.UUID
}

func (s *stubStore) FetchUnpublished(limit int) ([]models.OutboxEvent, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	if limit < len(s.events) {
		return s.events[:limit], nil
	}
	return s.events, nil
}

func (s *stubStore) MarkPublished(id uuid.UUID) error {
	s.published = append(s.published, id)
	return nil
}

func (s *stubStore) MarkFailed(id uuid.UUID, cause error) error {
	s.failed = append(s.failed, id)
	return nil
}

func (s *stubStore) MarkTerminal(id uuid.UUID, cause error) error {
	s.terminal = append(s.terminal, id)
	return nil
}

type stubResult struct {
	err error
}

func (r *stubResult) Get(ctx context.Context) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return "server-id", nil
}

type stubPublisher struct {
	err      error
	messages []*gcppubsub.Message
}

func (p *stubPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	p.messages = append(p.messages, msg)
	return &stubResult{err: p.err}
}

func testConfig() *config.Config {
	return &config.Config{
		Outbox: config.OutboxConfig{
			BatchSize:      10,
			PollIntervalMS: 50,
			MaxAttempts:    3,
		},
	}
}

func testEvent(attempts int) models.OutboxEvent {
	payload, _ := json.Marshal(map[string]string{"hello": "world"})
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.OutboxEventOrderCreated,
		AggregateType: enums.OutboxAggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       payload,
		Attempts:      attempts,
		CreatedAt:     time.Now().UTC(),
	}
}

func newTestPublisher(t *testing.T, store *stubStore, pub *stubPublisher) *Publisher {
	t.Helper()

	p, err := NewPublisher(PublisherParams{
		Config: testConfig(),
		Store:  store,
		Pub:    pub,
	})
	require.NoError(t, err)
	p.publishTimeout = time.Second
	return p
}

func TestNewPublisherRequiresDependencies(t *testing.T) {
	t.Parallel()

	_, err := NewPublisher(PublisherParams{Config: testConfig(), Pub: &stubPublisher{}})
	require.Error(t, err)

	_, err = NewPublisher(PublisherParams{Config: testConfig(), Store: &stubStore{}})
	require.Error(t, err)
}

func TestProcessBatchPublishesEvents(t *testing.T) {
	t.Parallel()

	first := testEvent(0)
	second := testEvent(0)
	store := &stubStore{events: []models.OutboxEvent{first, second}}
	pub := &stubPublisher{}

	processed, err := newTestPublisher(t, store, pub).processBatch(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)

	require.Len(t, pub.messages, 2)
	assert.Equal(t, []uuid.UUID{first.ID, second.ID}, store.published)
	assert.Empty(t, store.failed)
	assert.Empty(t, store.terminal)

	msg := pub.messages[0]
	assert.Equal(t, string(enums.OutboxEventOrderCreated), msg.Attributes["event_type"])
	assert.Equal(t, string(enums.OutboxAggregateOrder), msg.Attributes["aggregate_type"])
	assert.Equal(t, first.AggregateID.String(), msg.Attributes["aggregate_id"])
	assert.Equal(t, first.Payload, json.RawMessage(msg.Data))
}

func TestProcessBatchMarksFailure(t *testing.T) {
	t.Parallel()

	event := testEvent(0)
	store := &stubStore{events: []models.OutboxEvent{event}}
	pub := &stubPublisher{err: errors.New("topic unavailable")}

	processed, err := newTestPublisher(t, store, pub).processBatch(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)

	assert.Equal(t, []uuid.UUID{event.ID}, store.failed)
	assert.Empty(t, store.published)
	assert.Empty(t, store.terminal)
}

func TestProcessBatchParksExhaustedEvents(t *testing.T) {
	t.Parallel()

	event := testEvent(2) // next attempt hits MaxAttempts of 3
	store := &stubStore{events: []models.OutboxEvent{event}}
	pub := &stubPublisher{err: errors.New("topic unavailable")}

	processed, err := newTestPublisher(t, store, pub).processBatch(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)

	assert.Equal(t, []uuid.UUID{event.ID}, store.terminal)
	assert.Empty(t, store.failed)
	assert.Empty(t, store.published)
}

func TestProcessBatchEmptyFetch(t *testing.T) {
	t.Parallel()

	store := &stubStore{}
	pub := &stubPublisher{}

	processed, err := newTestPublisher(t, store, pub).processBatch(context.Background())
	require.NoError(t, err)
	assert.False(t, processed)
	assert.Empty(t, pub.messages)
}
