package repository

import (
	"errors"

	"recohub/pkg/database"

	"go.uber.org/zap"
)

// ErrNotFound indicates the requested row does not exist.
var ErrNotFound = errors.New("repository: not found")

type Repository struct {
	Rating  RatingRepository
	Content ContentRepository
	Outbox  OutboxRepository
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		Rating:  NewRatingRepository(db, log),
		Content: NewContentRepository(db, log),
		Outbox:  NewOutboxRepository(db, log),
	}
}

// NewMemoryRepository wires the in-memory implementations. Used by tests and
// by local runs without Postgres.
func NewMemoryRepository() *Repository {
	return &Repository{
		Rating:  NewMemoryRatingRepository(),
		Content: NewMemoryContentRepository(),
		Outbox:  NewMemoryOutboxRepository(),
	}
}
