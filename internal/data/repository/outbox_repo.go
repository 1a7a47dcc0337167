package repository

import (
	"context"
	"fmt"

	"recohub/internal/data/entity"
	"recohub/pkg/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OutboxRepository is the durable spool for events that could not be
// delivered to the stream. Pending rows are drained in sequence order so
// per-key ordering survives a broker outage.
type OutboxRepository interface {
	Store(ctx context.Context, event *entity.OutboxEvent) error
	GetPending(ctx context.Context, limit int) ([]*entity.OutboxEvent, error)
	MarkDelivered(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, deliveryErr error) error
}

type outboxRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewOutboxRepository(db database.PgxIface, log *zap.Logger) OutboxRepository {
	return &outboxRepository{
		db:  db,
		log: log.With(zap.String("repository", "outbox")),
	}
}

func (r *outboxRepository) Store(ctx context.Context, event *entity.OutboxEvent) error {
	query := `
		INSERT INTO rating_outbox (id, topic, partition_key, payload, sequence, retry_count, last_error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Exec(ctx, query,
		event.ID,
		event.Topic,
		event.PartitionKey,
		event.Payload,
		event.Sequence,
		event.RetryCount,
		event.LastError,
		event.CreatedAt,
	)

	if err != nil {
		r.log.Error("Failed to spool event",
			zap.Error(err),
			zap.String("event_id", event.ID.String()),
			zap.String("topic", event.Topic),
		)
		return fmt.Errorf("spool event %s: %w", event.ID.String(), err)
	}

	return nil
}

func (r *outboxRepository) GetPending(ctx context.Context, limit int) ([]*entity.OutboxEvent, error) {
	query := `
		SELECT id, topic, partition_key, payload, sequence, retry_count, last_error, created_at
		FROM rating_outbox
		ORDER BY sequence ASC
		LIMIT $1
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		r.log.Error("Failed to load pending events", zap.Error(err), zap.Int("limit", limit))
		return nil, fmt.Errorf("load pending events: %w", err)
	}
	defer rows.Close()

	var events []*entity.OutboxEvent
	for rows.Next() {
		var event entity.OutboxEvent
		err := rows.Scan(
			&event.ID,
			&event.Topic,
			&event.PartitionKey,
			&event.Payload,
			&event.Sequence,
			&event.RetryCount,
			&event.LastError,
			&event.CreatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan outbox row", zap.Error(err))
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		events = append(events, &event)
	}

	return events, nil
}

func (r *outboxRepository) MarkDelivered(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM rating_outbox WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id)
	if err != nil {
		r.log.Error("Failed to mark event delivered",
			zap.Error(err),
			zap.String("event_id", id.String()),
		)
		return fmt.Errorf("mark event %s delivered: %w", id.String(), err)
	}

	return nil
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, deliveryErr error) error {
	query := `UPDATE rating_outbox SET retry_count = retry_count + 1, last_error = $2 WHERE id = $1`

	msg := deliveryErr.Error()
	_, err := r.db.Exec(ctx, query, id, msg)
	if err != nil {
		r.log.Error("Failed to mark event failed",
			zap.Error(err),
			zap.String("event_id", id.String()),
		)
		return fmt.Errorf("mark event %s failed: %w", id.String(), err)
	}

	return nil
}
