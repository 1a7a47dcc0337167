package stream

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"recohub/internal/data/entity"
	"recohub/pkg/apperrors"
	"recohub/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const spoolWriteTimeout = 5 * time.Second

// Spool is the durable buffer for events pending delivery. Satisfied by
// repository.OutboxRepository.
type Spool interface {
	Store(ctx context.Context, event *entity.OutboxEvent) error
	GetPending(ctx context.Context, limit int) ([]*entity.OutboxEvent, error)
	MarkDelivered(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, deliveryErr error) error
}

// Publisher decouples rating-submission latency from stream availability.
// Publish never blocks: events go onto a bounded in-memory queue, or straight
// to the durable spool when the queue is full. A background drain delivers
// queued events to the sink with bounded exponential backoff and spools them
// once the retry budget is spent; a second loop re-delivers spooled events in
// sequence order. Events are never silently dropped, and no failure here ever
// reaches a rating caller.
type Publisher struct {
	sink  Sink
	spool Spool
	cfg   utils.StreamConfig
	log   *zap.Logger

	queue chan *entity.OutboxEvent
	seq   atomic.Int64

	runCtx    context.Context
	runCancel context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
	closed    atomic.Bool
}

func NewPublisher(sink Sink, spool Spool, cfg utils.StreamConfig, log *zap.Logger) *Publisher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = 100 * time.Millisecond
	}
	if cfg.MaxRetryWait <= 0 {
		cfg.MaxRetryWait = 5 * time.Second
	}
	if cfg.SpoolPollInterval <= 0 {
		cfg.SpoolPollInterval = time.Second
	}
	if cfg.SpoolBatchSize <= 0 {
		cfg.SpoolBatchSize = 100
	}

	p := &Publisher{
		sink:  sink,
		spool: spool,
		cfg:   cfg,
		log:   log.With(zap.String("service", "publisher")),
		queue: make(chan *entity.OutboxEvent, cfg.QueueSize),
	}

	// Seed the sequence counter from the wall clock so sequences stay
	// monotonic across restarts and spooled events keep their ordering.
	p.seq.Store(time.Now().UnixNano())

	return p
}

// Start launches the drain and spool loops.
func (p *Publisher) Start(ctx context.Context) {
	p.runCtx, p.runCancel = context.WithCancel(ctx)

	p.wg.Add(2)
	go p.drainLoop()
	go p.spoolLoop()

	p.log.Info("Event publisher started",
		zap.Int("queue_size", p.cfg.QueueSize),
		zap.Int("max_retries", p.cfg.MaxRetries),
		zap.Duration("spool_poll_interval", p.cfg.SpoolPollInterval),
	)
}

// NextSequence reserves the next sequence number. Called by the aggregator
// inside the per-key critical section so sequence order matches commit order.
func (p *Publisher) NextSequence() int64 {
	return p.seq.Add(1)
}

// Publish enqueues an event for asynchronous delivery. It never blocks and
// never returns an error to the caller: a full queue degrades to a direct
// spool write, and a spool failure is logged as the event's loss record.
func (p *Publisher) Publish(event Event) {
	p.PublishSeq(event, p.NextSequence())
}

// PublishSeq enqueues an event under a sequence number already reserved with
// NextSequence.
func (p *Publisher) PublishSeq(event Event, sequence int64) {
	payload, err := event.Payload(sequence)
	if err != nil {
		p.log.Error("Failed to encode event payload",
			zap.Error(err),
			zap.String("topic", event.Topic()),
		)
		return
	}

	env := &entity.OutboxEvent{
		ID:           uuid.New(),
		Topic:        event.Topic(),
		PartitionKey: event.PartitionKey(),
		Payload:      payload,
		Sequence:     sequence,
		CreatedAt:    time.Now().UTC(),
	}

	if p.closed.Load() {
		p.toSpool(env, apperrors.Publish("publisher closed", nil))
		return
	}

	select {
	case p.queue <- env:
	default:
		p.toSpool(env, apperrors.Publish("publish queue full", nil))
	}
}

func (p *Publisher) drainLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.runCtx.Done():
			return
		case env := <-p.queue:
			p.deliver(env)
		}
	}
}

// deliver attempts sink delivery with bounded exponential backoff, spooling
// the event once the retry budget is exhausted or the publisher stops.
func (p *Publisher) deliver(env *entity.OutboxEvent) {
	wait := p.cfg.RetryWait
	var lastErr error

	for attempt := 0; ; attempt++ {
		err := p.sink.Append(p.runCtx, env.Topic, env.PartitionKey, env.Payload)
		if err == nil {
			return
		}

		lastErr = apperrors.Publish("append event", err)
		p.log.Warn("Event delivery failed",
			zap.Error(err),
			zap.String("event_id", env.ID.String()),
			zap.String("topic", env.Topic),
			zap.Int("attempt", attempt+1),
		)
		env.RetryCount++

		if attempt >= p.cfg.MaxRetries {
			break
		}

		select {
		case <-time.After(wait):
		case <-p.runCtx.Done():
			p.toSpool(env, lastErr)
			return
		}

		wait *= 2
		if wait > p.cfg.MaxRetryWait {
			wait = p.cfg.MaxRetryWait
		}
	}

	p.toSpool(env, lastErr)
}

func (p *Publisher) spoolLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.SpoolPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.runCtx.Done():
			return
		case <-ticker.C:
			p.processSpool()
		}
	}
}

// processSpool re-delivers spooled events in sequence order. It stops at the
// first failure so earlier events never arrive after later ones.
func (p *Publisher) processSpool() {
	ctx, cancel := context.WithTimeout(p.runCtx, spoolWriteTimeout)
	defer cancel()

	pending, err := p.spool.GetPending(ctx, p.cfg.SpoolBatchSize)
	if err != nil {
		p.log.Error("Failed to load spooled events", zap.Error(err))
		return
	}

	for _, env := range pending {
		if err := p.sink.Append(p.runCtx, env.Topic, env.PartitionKey, env.Payload); err != nil {
			p.log.Warn("Spooled event delivery failed",
				zap.Error(err),
				zap.String("event_id", env.ID.String()),
				zap.Int("retry_count", env.RetryCount),
			)
			if markErr := p.spool.MarkFailed(ctx, env.ID, err); markErr != nil {
				p.log.Error("Failed to record spool failure", zap.Error(markErr))
			}
			return
		}

		if err := p.spool.MarkDelivered(ctx, env.ID); err != nil {
			p.log.Error("Failed to mark spooled event delivered",
				zap.Error(err),
				zap.String("event_id", env.ID.String()),
			)
			return
		}

		p.log.Debug("Spooled event delivered",
			zap.String("event_id", env.ID.String()),
			zap.String("topic", env.Topic),
		)
	}
}

// toSpool writes an undeliverable event to the durable spool. Uses its own
// context so spooling still works during shutdown.
func (p *Publisher) toSpool(env *entity.OutboxEvent, cause error) {
	if cause != nil {
		msg := cause.Error()
		env.LastError = &msg
	}

	ctx, cancel := context.WithTimeout(context.Background(), spoolWriteTimeout)
	defer cancel()

	if err := p.spool.Store(ctx, env); err != nil {
		// Last resort: the event payload lands in the log so it is never
		// silently lost.
		p.log.Error("Failed to spool event",
			zap.Error(err),
			zap.String("event_id", env.ID.String()),
			zap.String("topic", env.Topic),
			zap.ByteString("payload", env.Payload),
		)
		return
	}

	p.log.Info("Event spooled for later delivery",
		zap.String("event_id", env.ID.String()),
		zap.String("topic", env.Topic),
		zap.Int64("sequence", env.Sequence),
	)
}

// Close stops the loops and spools whatever is still queued. Safe to call
// more than once.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		if p.runCancel != nil {
			p.runCancel()
		}
		p.wg.Wait()

		for {
			select {
			case env := <-p.queue:
				p.toSpool(env, apperrors.Publish("publisher shutdown", nil))
			default:
				p.log.Info("Event publisher stopped")
				return
			}
		}
	})
}
