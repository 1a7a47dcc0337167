package repository

import (
	"context"
	"fmt"

	"recohub/internal/data/entity"
	"recohub/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// ContentRepository is the content registry contract. It answers existence
// checks and persists the aggregate written by the rating aggregator, which
// is the only component allowed to call UpdateAggregate.
type ContentRepository interface {
	Create(ctx context.Context, content *entity.Content) error
	FindByID(ctx context.Context, contentType entity.ContentType, contentID uuid.UUID) (*entity.Content, error)
	Exists(ctx context.Context, contentType entity.ContentType, contentID uuid.UUID) (bool, error)
	// UpdateAggregate persists the recomputed (average, count) pair for a
	// content key. Returns ErrNotFound when the item does not exist.
	UpdateAggregate(ctx context.Context, contentType entity.ContentType, contentID uuid.UUID, averageScore float64, ratingCount int64) error
}

type contentRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewContentRepository(db database.PgxIface, log *zap.Logger) ContentRepository {
	return &contentRepository{
		db:  db,
		log: log.With(zap.String("repository", "content")),
	}
}

func (r *contentRepository) Create(ctx context.Context, content *entity.Content) error {
	query := `
		INSERT INTO contents (id, content_type, title, description, release_year,
		                      average_score, rating_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Exec(ctx, query,
		content.ID,
		content.ContentType,
		content.Title,
		content.Description,
		content.ReleaseYear,
		content.AverageScore,
		content.RatingCount,
		content.CreatedAt,
		content.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create content",
			zap.Error(err),
			zap.String("content_id", content.ID.String()),
			zap.String("content_type", content.ContentType.String()),
		)
		return fmt.Errorf("create %s content %s: %w",
			content.ContentType.String(), content.ID.String(), err)
	}

	return nil
}

func (r *contentRepository) FindByID(ctx context.Context, contentType entity.ContentType, contentID uuid.UUID) (*entity.Content, error) {
	query := `
		SELECT id, content_type, title, description, release_year,
		       average_score, rating_count, created_at, updated_at
		FROM contents
		WHERE content_type = $1 AND id = $2
	`

	var content entity.Content
	err := r.db.QueryRow(ctx, query, contentType, contentID).Scan(
		&content.ID,
		&content.ContentType,
		&content.Title,
		&content.Description,
		&content.ReleaseYear,
		&content.AverageScore,
		&content.RatingCount,
		&content.CreatedAt,
		&content.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find content by ID",
			zap.Error(err),
			zap.String("content_key", entity.RatingKey(contentType, contentID)),
		)
		return nil, fmt.Errorf("find content %s: %w",
			entity.RatingKey(contentType, contentID), err)
	}

	return &content, nil
}

func (r *contentRepository) Exists(ctx context.Context, contentType entity.ContentType, contentID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM contents WHERE content_type = $1 AND id = $2)`

	var exists bool
	err := r.db.QueryRow(ctx, query, contentType, contentID).Scan(&exists)
	if err != nil {
		r.log.Error("Failed to check content existence",
			zap.Error(err),
			zap.String("content_key", entity.RatingKey(contentType, contentID)),
		)
		return false, fmt.Errorf("check content %s exists: %w",
			entity.RatingKey(contentType, contentID), err)
	}

	return exists, nil
}

func (r *contentRepository) UpdateAggregate(ctx context.Context, contentType entity.ContentType, contentID uuid.UUID, averageScore float64, ratingCount int64) error {
	query := `
		UPDATE contents
		SET average_score = $3, rating_count = $4, updated_at = now()
		WHERE content_type = $1 AND id = $2
	`

	result, err := r.db.Exec(ctx, query, contentType, contentID, averageScore, ratingCount)
	if err != nil {
		r.log.Error("Failed to update content aggregate",
			zap.Error(err),
			zap.String("content_key", entity.RatingKey(contentType, contentID)),
			zap.Float64("average_score", averageScore),
			zap.Int64("rating_count", ratingCount),
		)
		return fmt.Errorf("update aggregate for %s: %w",
			entity.RatingKey(contentType, contentID), err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}
