package usecase

import (
	"context"
	"errors"
	"time"

	"recohub/internal/data/entity"
	"recohub/internal/data/repository"
	"recohub/internal/dto/request"
	"recohub/internal/dto/response"
	"recohub/internal/stream"
	"recohub/pkg/apperrors"
	"recohub/pkg/keylock"
	"recohub/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RatingService is the rating aggregator. Mutations for one content key are
// serialized behind a per-key lock; the aggregate is recomputed from the live
// rating set and persisted to the content registry before the call returns,
// then the matching event is enqueued without blocking the caller.
type RatingService interface {
	SubmitRating(ctx context.Context, userID string, req *request.SubmitRatingRequest) (*response.RatingResponse, error)
	RemoveRating(ctx context.Context, userID, contentType, contentID string) error
	GetRating(ctx context.Context, userID, contentType, contentID string) (*response.RatingResponse, error)
	GetUserRatings(ctx context.Context, userID string, req *request.PaginatedRequest) (*response.PaginatedResponse[response.RatingResponse], error)
}

type ratingService struct {
	repo        *repository.Repository
	events      EventPublisher
	locks       *keylock.KeyLock
	lockTimeout time.Duration
	log         *zap.Logger
}

func NewRatingService(repo *repository.Repository, events EventPublisher, config *utils.Config, log *zap.Logger) RatingService {
	lockTimeout := config.Lock.Timeout
	if lockTimeout <= 0 {
		lockTimeout = 5 * time.Second
	}

	return &ratingService{
		repo:        repo,
		events:      events,
		locks:       keylock.New(config.Lock.Shards),
		lockTimeout: lockTimeout,
		log:         log.With(zap.String("service", "rating")),
	}
}

func (s *ratingService) SubmitRating(ctx context.Context, userID string, req *request.SubmitRatingRequest) (*response.RatingResponse, error) {
	// Validate request
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Submit rating validation failed", zap.Any("errors", errs))
		return nil, apperrors.Validationf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, apperrors.Validationf("invalid user ID format %s", userID)
	}

	// Closed enum: anything outside the four categories is rejected here
	// even if the request DTO ever drifts.
	contentType, ok := entity.ParseContentType(req.ContentType)
	if !ok {
		return nil, apperrors.Validationf("unknown content type %q", req.ContentType)
	}

	contentID, err := uuid.Parse(req.ContentID)
	if err != nil {
		return nil, apperrors.Validationf("invalid content ID format %s", req.ContentID)
	}

	// Content must exist before anything is written.
	exists, err := s.repo.Content.Exists(ctx, contentType, contentID)
	if err != nil {
		return nil, apperrors.Storage("check content exists", err)
	}
	if !exists {
		return nil, apperrors.NotFoundf("%s %s not found", contentType.String(), req.ContentID)
	}

	key := entity.RatingKey(contentType, contentID)
	unlock, err := s.lockKey(ctx, key)
	if err != nil {
		return nil, err
	}
	defer unlock()

	rating := &entity.Rating{
		BaseNoDelete: entity.BaseNoDelete{ID: uuid.New()},
		UserID:       userUUID,
		ContentType:  contentType,
		ContentID:    contentID,
		Score:        req.Score,
		Review:       req.Review,
	}

	stored, inserted, err := s.repo.Rating.Upsert(ctx, rating)
	if err != nil {
		return nil, apperrors.Storage("upsert rating", err)
	}

	if err := s.recomputeAggregate(ctx, contentType, contentID); err != nil {
		return nil, err
	}

	action := stream.ActionUpdated
	if inserted {
		action = stream.ActionCreated
	}

	// Enqueued while the key lock is still held so event sequence order
	// matches commit order; Publish itself never blocks.
	s.events.Publish(stream.RatingEvent{
		UserID:      userUUID.String(),
		ContentType: contentType.String(),
		ContentID:   contentID.String(),
		Score:       stored.Score,
		Action:      action,
		Timestamp:   stored.UpdatedAt,
	})

	s.log.Info("Rating submitted",
		zap.String("user_id", userID),
		zap.String("content_key", key),
		zap.Int("score", stored.Score),
		zap.Bool("created", inserted),
	)

	ratingResp := response.RatingToResponse(stored)
	return &ratingResp, nil
}

func (s *ratingService) RemoveRating(ctx context.Context, userID, rawContentType, rawContentID string) error {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return apperrors.Validationf("invalid user ID format %s", userID)
	}

	contentType, ok := entity.ParseContentType(rawContentType)
	if !ok {
		return apperrors.Validationf("unknown content type %q", rawContentType)
	}

	contentID, err := uuid.Parse(rawContentID)
	if err != nil {
		return apperrors.Validationf("invalid content ID format %s", rawContentID)
	}

	key := entity.RatingKey(contentType, contentID)
	unlock, err := s.lockKey(ctx, key)
	if err != nil {
		return err
	}
	defer unlock()

	existing, err := s.repo.Rating.FindByKey(ctx, userUUID, contentType, contentID)
	if err != nil {
		return apperrors.Storage("find rating", err)
	}
	if existing == nil {
		// Idempotent delete: nothing to remove is a success, not an error,
		// and emits no event.
		s.log.Debug("Remove rating no-op",
			zap.String("user_id", userID),
			zap.String("content_key", key),
		)
		return nil
	}

	deleted, err := s.repo.Rating.Delete(ctx, userUUID, contentType, contentID)
	if err != nil {
		return apperrors.Storage("delete rating", err)
	}
	if !deleted {
		return nil
	}

	if err := s.recomputeAggregate(ctx, contentType, contentID); err != nil {
		return err
	}

	s.events.Publish(stream.RatingEvent{
		UserID:      userUUID.String(),
		ContentType: contentType.String(),
		ContentID:   contentID.String(),
		Score:       existing.Score,
		Action:      stream.ActionDeleted,
		Timestamp:   time.Now().UTC(),
	})

	s.log.Info("Rating removed",
		zap.String("user_id", userID),
		zap.String("content_key", key),
	)

	return nil
}

func (s *ratingService) GetRating(ctx context.Context, userID, rawContentType, rawContentID string) (*response.RatingResponse, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, apperrors.Validationf("invalid user ID format %s", userID)
	}

	contentType, ok := entity.ParseContentType(rawContentType)
	if !ok {
		return nil, apperrors.Validationf("unknown content type %q", rawContentType)
	}

	contentID, err := uuid.Parse(rawContentID)
	if err != nil {
		return nil, apperrors.Validationf("invalid content ID format %s", rawContentID)
	}

	rating, err := s.repo.Rating.FindByKey(ctx, userUUID, contentType, contentID)
	if err != nil {
		return nil, apperrors.Storage("find rating", err)
	}
	if rating == nil {
		return nil, nil
	}

	ratingResp := response.RatingToResponse(rating)
	return &ratingResp, nil
}

func (s *ratingService) GetUserRatings(ctx context.Context, userID string, req *request.PaginatedRequest) (*response.PaginatedResponse[response.RatingResponse], error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, apperrors.Validationf("invalid user ID format %s", userID)
	}

	limit := req.Limit()
	offset := req.Offset()

	ratings, err := s.repo.Rating.FindByUserID(ctx, userUUID, limit, offset)
	if err != nil {
		return nil, apperrors.Storage("find user ratings", err)
	}

	total, err := s.repo.Rating.CountByUserID(ctx, userUUID)
	if err != nil {
		return nil, apperrors.Storage("count user ratings", err)
	}

	ratingResponses := make([]response.RatingResponse, len(ratings))
	for i, rating := range ratings {
		ratingResponses[i] = response.RatingToResponse(rating)
	}

	return response.NewPaginatedResponse(ratingResponses, req.Page, req.PerPage, total), nil
}

// ==================== HELPER METHODS ====================

// lockKey acquires the per-key lock, bounded by the configured timeout.
// Timing out surfaces as a retryable conflict with nothing applied.
func (s *ratingService) lockKey(ctx context.Context, key string) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	unlock, err := s.locks.Lock(lockCtx, key)
	if err != nil {
		s.log.Warn("Key lock contention",
			zap.String("content_key", key),
			zap.Error(err),
		)
		return nil, apperrors.Conflictf("rating update in progress for %s, retry later", key)
	}
	return unlock, nil
}

// recomputeAggregate reads the full live rating set for the key and persists
// the exact (average, count) pair to the registry. Always a full recompute,
// never a moving average, so deletes and corrections cannot drift.
func (s *ratingService) recomputeAggregate(ctx context.Context, contentType entity.ContentType, contentID uuid.UUID) error {
	agg, err := s.repo.Rating.AggregateByContent(ctx, contentType, contentID)
	if err != nil {
		return apperrors.Storage("recompute aggregate", err)
	}

	err = s.repo.Content.UpdateAggregate(ctx, contentType, contentID, agg.AverageScore, agg.RatingCount)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Content disappeared under us; the rating row is already gone
			// or rewritten, so surface the missing registry entry.
			return apperrors.NotFoundf("%s %s not found", contentType.String(), contentID.String())
		}
		return apperrors.Storage("update aggregate", err)
	}

	s.log.Debug("Aggregate updated",
		zap.String("content_key", entity.RatingKey(contentType, contentID)),
		zap.Float64("average_score", agg.AverageScore),
		zap.Int64("rating_count", agg.RatingCount),
	)

	return nil
}
