package usecase

import (
	"recohub/internal/data/repository"
	"recohub/internal/stream"
	"recohub/pkg/utils"

	"go.uber.org/zap"
)

// EventPublisher is the aggregator's view of the event publisher: a
// fire-and-forget enqueue that never blocks and never fails the caller.
type EventPublisher interface {
	Publish(event stream.Event)
}

type Service struct {
	Rating   RatingService
	Content  ContentService
	Activity ActivityService
}

func NewService(repo *repository.Repository, events EventPublisher, config *utils.Config, log *zap.Logger) *Service {
	return &Service{
		Rating:   NewRatingService(repo, events, config, log),
		Content:  NewContentService(repo, log),
		Activity: NewActivityService(events, log),
	}
}
