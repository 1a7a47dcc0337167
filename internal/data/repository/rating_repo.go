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

// RatingAggregate is the derived (average, count) pair for one content key.
// Average is rounded to one decimal; zero when the key has no ratings.
type RatingAggregate struct {
	AverageScore float64
	RatingCount  int64
}

type RatingRepository interface {
	// Upsert inserts or rewrites the caller's rating for a content key and
	// reports whether the row was newly created.
	Upsert(ctx context.Context, rating *entity.Rating) (*entity.Rating, bool, error)
	FindByKey(ctx context.Context, userID uuid.UUID, contentType entity.ContentType, contentID uuid.UUID) (*entity.Rating, error)
	FindByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Rating, error)
	CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error)
	// Delete removes the rating and reports whether a row existed.
	Delete(ctx context.Context, userID uuid.UUID, contentType entity.ContentType, contentID uuid.UUID) (bool, error)

	// AggregateByContent recomputes the aggregate from the live rating set
	// for the key. Never incremental; deletes and corrections must reproduce
	// the exact mean.
	AggregateByContent(ctx context.Context, contentType entity.ContentType, contentID uuid.UUID) (RatingAggregate, error)
}

type ratingRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewRatingRepository(db database.PgxIface, log *zap.Logger) RatingRepository {
	return &ratingRepository{
		db:  db,
		log: log.With(zap.String("repository", "rating")),
	}
}

func (r *ratingRepository) Upsert(ctx context.Context, rating *entity.Rating) (*entity.Rating, bool, error) {
	query := `
		INSERT INTO ratings (id, user_id, content_type, content_id, score, review, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		ON CONFLICT (user_id, content_type, content_id)
		DO UPDATE SET score = EXCLUDED.score,
		              review = COALESCE(EXCLUDED.review, ratings.review),
		              updated_at = now()
		RETURNING id, user_id, content_type, content_id, score, review, created_at, updated_at, (xmax = 0) AS inserted
	`

	var stored entity.Rating
	var inserted bool
	err := r.db.QueryRow(ctx, query,
		rating.ID,
		rating.UserID,
		rating.ContentType,
		rating.ContentID,
		rating.Score,
		rating.Review,
	).Scan(
		&stored.ID,
		&stored.UserID,
		&stored.ContentType,
		&stored.ContentID,
		&stored.Score,
		&stored.Review,
		&stored.CreatedAt,
		&stored.UpdatedAt,
		&inserted,
	)
	if err != nil {
		r.log.Error("Failed to upsert rating",
			zap.Error(err),
			zap.String("user_id", rating.UserID.String()),
			zap.String("content_key", rating.ContentKey()),
		)
		return nil, false, fmt.Errorf("upsert rating for %s by user %s: %w",
			rating.ContentKey(), rating.UserID.String(), err)
	}

	return &stored, inserted, nil
}

func (r *ratingRepository) FindByKey(ctx context.Context, userID uuid.UUID, contentType entity.ContentType, contentID uuid.UUID) (*entity.Rating, error) {
	query := `
		SELECT id, user_id, content_type, content_id, score, review, created_at, updated_at
		FROM ratings
		WHERE user_id = $1 AND content_type = $2 AND content_id = $3
	`

	var rating entity.Rating
	err := r.db.QueryRow(ctx, query, userID, contentType, contentID).Scan(
		&rating.ID,
		&rating.UserID,
		&rating.ContentType,
		&rating.ContentID,
		&rating.Score,
		&rating.Review,
		&rating.CreatedAt,
		&rating.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find rating by key",
			zap.Error(err),
			zap.String("user_id", userID.String()),
			zap.String("content_key", entity.RatingKey(contentType, contentID)),
		)
		return nil, fmt.Errorf("find rating for %s by user %s: %w",
			entity.RatingKey(contentType, contentID), userID.String(), err)
	}

	return &rating, nil
}

func (r *ratingRepository) FindByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Rating, error) {
	query := `
		SELECT id, user_id, content_type, content_id, score, review, created_at, updated_at
		FROM ratings
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		r.log.Error("Failed to find ratings by user ID",
			zap.Error(err),
			zap.String("user_id", userID.String()),
			zap.Int("limit", limit),
			zap.Int("offset", offset),
		)
		return nil, fmt.Errorf("find ratings by user ID %s: %w", userID.String(), err)
	}
	defer rows.Close()

	var ratings []*entity.Rating
	for rows.Next() {
		var rating entity.Rating
		err := rows.Scan(
			&rating.ID,
			&rating.UserID,
			&rating.ContentType,
			&rating.ContentID,
			&rating.Score,
			&rating.Review,
			&rating.CreatedAt,
			&rating.UpdatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan rating row", zap.Error(err))
			return nil, fmt.Errorf("scan rating row: %w", err)
		}
		ratings = append(ratings, &rating)
	}

	return ratings, nil
}

func (r *ratingRepository) CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM ratings WHERE user_id = $1`

	var count int64
	err := r.db.QueryRow(ctx, query, userID).Scan(&count)
	if err != nil {
		r.log.Error("Failed to count ratings by user ID",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return 0, fmt.Errorf("count ratings by user ID %s: %w", userID.String(), err)
	}

	return count, nil
}

func (r *ratingRepository) Delete(ctx context.Context, userID uuid.UUID, contentType entity.ContentType, contentID uuid.UUID) (bool, error) {
	query := `DELETE FROM ratings WHERE user_id = $1 AND content_type = $2 AND content_id = $3`

	result, err := r.db.Exec(ctx, query, userID, contentType, contentID)
	if err != nil {
		r.log.Error("Failed to delete rating",
			zap.Error(err),
			zap.String("user_id", userID.String()),
			zap.String("content_key", entity.RatingKey(contentType, contentID)),
		)
		return false, fmt.Errorf("delete rating for %s by user %s: %w",
			entity.RatingKey(contentType, contentID), userID.String(), err)
	}

	return result.RowsAffected() > 0, nil
}

func (r *ratingRepository) AggregateByContent(ctx context.Context, contentType entity.ContentType, contentID uuid.UUID) (RatingAggregate, error) {
	query := `
		SELECT COALESCE(ROUND(AVG(score)::numeric, 1), 0)::float8 AS average_score,
		       COUNT(*)::int8 AS rating_count
		FROM ratings
		WHERE content_type = $1 AND content_id = $2
	`

	var agg RatingAggregate
	err := r.db.QueryRow(ctx, query, contentType, contentID).Scan(&agg.AverageScore, &agg.RatingCount)
	if err != nil {
		r.log.Error("Failed to aggregate ratings",
			zap.Error(err),
			zap.String("content_key", entity.RatingKey(contentType, contentID)),
		)
		return RatingAggregate{}, fmt.Errorf("aggregate ratings for %s: %w",
			entity.RatingKey(contentType, contentID), err)
	}

	return agg, nil
}
