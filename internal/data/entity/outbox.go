package entity

import (
	"time"

	"github.com/google/uuid"
)

// OutboxEvent is an event pending delivery to the stream. Rows land here when
// the in-memory publish queue is full, the retry budget is exhausted, or the
// publisher shuts down with work in flight. The spool drain delivers them in
// sequence order.
type OutboxEvent struct {
	ID           uuid.UUID `db:"id"`
	Topic        string    `db:"topic"`
	PartitionKey string    `db:"partition_key"`
	Payload      []byte    `db:"payload"`
	Sequence     int64     `db:"sequence"`
	RetryCount   int       `db:"retry_count"`
	LastError    *string   `db:"last_error"`
	CreatedAt    time.Time `db:"created_at"`
}
