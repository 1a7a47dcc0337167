package usecase

import (
	"context"

	"recohub/internal/data/entity"
	"recohub/internal/data/repository"
	"recohub/internal/dto/response"
	"recohub/pkg/apperrors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ContentService exposes the stored aggregate for a content item. Reads only;
// the aggregate write path belongs to the rating aggregator.
type ContentService interface {
	GetContentStats(ctx context.Context, contentType, contentID string) (*response.ContentStats, error)
}

type contentService struct {
	repo *repository.Repository
	log  *zap.Logger
}

func NewContentService(repo *repository.Repository, log *zap.Logger) ContentService {
	return &contentService{
		repo: repo,
		log:  log.With(zap.String("service", "content")),
	}
}

func (s *contentService) GetContentStats(ctx context.Context, rawContentType, rawContentID string) (*response.ContentStats, error) {
	contentType, ok := entity.ParseContentType(rawContentType)
	if !ok {
		return nil, apperrors.Validationf("unknown content type %q", rawContentType)
	}

	contentID, err := uuid.Parse(rawContentID)
	if err != nil {
		return nil, apperrors.Validationf("invalid content ID format %s", rawContentID)
	}

	content, err := s.repo.Content.FindByID(ctx, contentType, contentID)
	if err != nil {
		return nil, apperrors.Storage("find content", err)
	}
	if content == nil {
		return nil, apperrors.NotFoundf("%s %s not found", contentType.String(), rawContentID)
	}

	return &response.ContentStats{
		AverageScore: content.AverageScore,
		RatingCount:  content.RatingCount,
	}, nil
}
