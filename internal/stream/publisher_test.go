package stream_test

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"
	"time"

	"recohub/internal/data/entity"
	"recohub/internal/data/repository"
	"recohub/internal/stream"
	"recohub/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fastConfig() utils.StreamConfig {
	return utils.StreamConfig{
		QueueSize:         16,
		MaxRetries:        2,
		RetryWait:         5 * time.Millisecond,
		MaxRetryWait:      20 * time.Millisecond,
		SpoolPollInterval: 20 * time.Millisecond,
		SpoolBatchSize:    100,
	}
}

func testEvent(action stream.RatingAction, score int) stream.RatingEvent {
	return stream.RatingEvent{
		UserID:      uuid.New().String(),
		ContentType: "movie",
		ContentID:   uuid.New().String(),
		Score:       score,
		Action:      action,
		Timestamp:   time.Now(),
	}
}

func decodePayload(t *testing.T, payload []byte) map[string]string {
	t.Helper()

	var fields map[string]string
	require.NoError(t, json.Unmarshal(payload, &fields))
	return fields
}

func TestPublisher_DeliversToSink(t *testing.T) {
	sink := stream.NewMemorySink()
	spool := repository.NewMemoryOutboxRepository()
	pub := stream.NewPublisher(sink, spool, fastConfig(), zap.NewNop())
	pub.Start(context.Background())
	defer pub.Close()

	event := testEvent(stream.ActionCreated, 4)
	pub.Publish(event)

	require.Eventually(t, func() bool {
		return len(sink.Messages(stream.TopicRatings)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	msg := sink.Messages(stream.TopicRatings)[0]
	assert.Equal(t, event.UserID, msg.PartitionKey)

	fields := decodePayload(t, msg.Payload)
	assert.Equal(t, event.UserID, fields["userId"])
	assert.Equal(t, "movie", fields["contentType"])
	assert.Equal(t, event.ContentID, fields["contentId"])
	assert.Equal(t, "4", fields["score"])
	assert.Equal(t, "created", fields["action"])

	// Every value is a string and the timestamp is RFC3339, so any consumer
	// can read the payload without a schema.
	_, err := time.Parse(time.RFC3339, fields["timestamp"])
	assert.NoError(t, err)
	_, err = strconv.ParseInt(fields["sequence"], 10, 64)
	assert.NoError(t, err)
}

func TestPublisher_SequenceOrderMatchesPublishOrder(t *testing.T) {
	sink := stream.NewMemorySink()
	spool := repository.NewMemoryOutboxRepository()
	pub := stream.NewPublisher(sink, spool, fastConfig(), zap.NewNop())
	pub.Start(context.Background())
	defer pub.Close()

	const n = 10
	for i := 0; i < n; i++ {
		pub.Publish(testEvent(stream.ActionCreated, i%5+1))
	}

	require.Eventually(t, func() bool {
		return len(sink.Messages(stream.TopicRatings)) == n
	}, 2*time.Second, 10*time.Millisecond)

	var prev int64
	for i, msg := range sink.Messages(stream.TopicRatings) {
		fields := decodePayload(t, msg.Payload)
		seq, err := strconv.ParseInt(fields["sequence"], 10, 64)
		require.NoError(t, err)
		if i > 0 {
			assert.Greater(t, seq, prev)
		}
		prev = seq
	}
}

func TestPublisher_RetriesTransientFailure(t *testing.T) {
	sink := stream.NewMemorySink()
	spool := repository.NewMemoryOutboxRepository()
	pub := stream.NewPublisher(sink, spool, fastConfig(), zap.NewNop())
	pub.Start(context.Background())
	defer pub.Close()

	sink.FailNext(2, errors.New("broker unavailable"))
	pub.Publish(testEvent(stream.ActionUpdated, 3))

	require.Eventually(t, func() bool {
		return len(sink.Messages(stream.TopicRatings)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Delivered within the retry budget, so nothing was spooled
	pending, err := spool.GetPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestPublisher_SpoolsAfterBudgetThenRedelivers(t *testing.T) {
	sink := stream.NewMemorySink()
	spool := repository.NewMemoryOutboxRepository()
	cfg := fastConfig()
	cfg.MaxRetries = 1
	pub := stream.NewPublisher(sink, spool, cfg, zap.NewNop())
	pub.Start(context.Background())
	defer pub.Close()

	// Two failures exhaust the budget (first attempt plus one retry) and the
	// event lands in the spool; the next spool poll delivers it.
	sink.FailNext(2, errors.New("broker unavailable"))
	pub.Publish(testEvent(stream.ActionCreated, 5))

	require.Eventually(t, func() bool {
		return len(sink.Messages(stream.TopicRatings)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	pending, err := spool.GetPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending, "spool should be empty after re-delivery")
}

func TestPublisher_FullQueueSpoolsDirectly(t *testing.T) {
	sink := stream.NewMemorySink()
	spool := repository.NewMemoryOutboxRepository()
	cfg := fastConfig()
	cfg.QueueSize = 1

	gate := make(chan struct{})
	sink.SetGate(gate)

	pub := stream.NewPublisher(sink, spool, cfg, zap.NewNop())
	pub.Start(context.Background())
	defer pub.Close()

	// First event is picked up by the drain and parks on the gate
	pub.Publish(testEvent(stream.ActionCreated, 1))
	time.Sleep(50 * time.Millisecond)

	// Second fills the queue, third overflows straight to the spool
	pub.Publish(testEvent(stream.ActionCreated, 2))
	pub.Publish(testEvent(stream.ActionCreated, 3))

	pending, err := spool.GetPending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Contains(t, *pending[0].LastError, "queue full")

	// Releasing the sink lets every path converge: drain, queue, spool poll
	close(gate)
	sink.SetGate(nil)

	require.Eventually(t, func() bool {
		return len(sink.Messages(stream.TopicRatings)) == 3
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPublisher_CloseSpoolsUndelivered(t *testing.T) {
	sink := stream.NewMemorySink()
	spool := repository.NewMemoryOutboxRepository()

	gate := make(chan struct{})
	sink.SetGate(gate)

	pub := stream.NewPublisher(sink, spool, fastConfig(), zap.NewNop())
	pub.Start(context.Background())

	for i := 0; i < 5; i++ {
		pub.Publish(testEvent(stream.ActionCreated, i%5+1))
	}
	time.Sleep(20 * time.Millisecond)

	// Close cancels the gated delivery and drains the queue to the spool
	pub.Close()

	pending, err := spool.GetPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, pending, 5)
	assert.Empty(t, sink.Messages(stream.TopicRatings))

	// Closed publisher still refuses to drop events
	pub.Publish(testEvent(stream.ActionDeleted, 2))
	pending, err = spool.GetPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, pending, 6)
}

func TestPublisher_SpoolRedeliveryFollowsSequenceOrder(t *testing.T) {
	sink := stream.NewMemorySink()
	spool := repository.NewMemoryOutboxRepository()

	// Seed the spool out of insertion order; re-delivery must go by sequence.
	ctx := context.Background()
	for _, seq := range []int64{30, 10, 20} {
		event := testEvent(stream.ActionCreated, 3)
		payload, err := event.Payload(seq)
		require.NoError(t, err)

		require.NoError(t, spool.Store(ctx, &entity.OutboxEvent{
			ID:           uuid.New(),
			Topic:        event.Topic(),
			PartitionKey: event.PartitionKey(),
			Payload:      payload,
			Sequence:     seq,
			CreatedAt:    time.Now().UTC(),
		}))
	}

	// The first poll hits a failing sink on the lowest sequence and delivers
	// nothing, so later events never overtake an earlier one.
	sink.FailNext(1, errors.New("broker unavailable"))

	pub := stream.NewPublisher(sink, spool, fastConfig(), zap.NewNop())
	pub.Start(ctx)
	defer pub.Close()

	require.Eventually(t, func() bool {
		return len(sink.Messages(stream.TopicRatings)) == 3
	}, 2*time.Second, 10*time.Millisecond)

	var prev int64
	for i, msg := range sink.Messages(stream.TopicRatings) {
		fields := decodePayload(t, msg.Payload)
		seq, err := strconv.ParseInt(fields["sequence"], 10, 64)
		require.NoError(t, err)
		if i > 0 {
			assert.Greater(t, seq, prev)
		}
		prev = seq
	}

	pending, err := spool.GetPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
