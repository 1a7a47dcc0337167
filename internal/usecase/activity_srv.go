package usecase

import (
	"context"
	"time"

	"recohub/internal/dto/request"
	"recohub/internal/stream"
	"recohub/pkg/apperrors"
	"recohub/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ActivityService records engagement signals (view, click, search) on the
// activity topic. No storage; the stream is the only consumer.
type ActivityService interface {
	RecordActivity(ctx context.Context, userID string, req *request.RecordActivityRequest) error
}

type activityService struct {
	events EventPublisher
	log    *zap.Logger
}

func NewActivityService(events EventPublisher, log *zap.Logger) ActivityService {
	return &activityService{
		events: events,
		log:    log.With(zap.String("service", "activity")),
	}
}

func (s *activityService) RecordActivity(ctx context.Context, userID string, req *request.RecordActivityRequest) error {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Record activity validation failed", zap.Any("errors", errs))
		return apperrors.Validationf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return apperrors.Validationf("invalid user ID format %s", userID)
	}

	s.events.Publish(stream.ActivityEvent{
		UserID:       userUUID.String(),
		ActivityType: req.ActivityType,
		ContentID:    req.ContentID,
		Timestamp:    time.Now().UTC(),
	})

	s.log.Debug("Activity recorded",
		zap.String("user_id", userID),
		zap.String("activity_type", req.ActivityType),
		zap.String("content_id", req.ContentID),
	)

	return nil
}
