package adaptor

import (
	"errors"
	"net/http"

	"recohub/internal/usecase"
	"recohub/pkg/apperrors"
	"recohub/pkg/utils"

	"go.uber.org/zap"
)

type Handler struct {
	Rating   *RatingHandler
	Content  *ContentHandler
	Activity *ActivityHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		Rating:   NewRatingHandler(service.Rating, log),
		Content:  NewContentHandler(service.Content, log),
		Activity: NewActivityHandler(service.Activity, log),
	}
}

// handleServiceError maps the aggregator's error taxonomy to HTTP responses.
// Publish errors never show up here; the publisher contains them.
func handleServiceError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	var validationErr *apperrors.ValidationError
	var notFoundErr *apperrors.NotFoundError
	var conflictErr *apperrors.ConflictError

	switch {
	case errors.As(err, &validationErr):
		log.Warn(operation+" rejected",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseBadRequest(w, validationErr.Msg, nil)

	case errors.As(err, &notFoundErr):
		log.Warn(operation+" failed - not found",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseNotFound(w, notFoundErr.Msg)

	case errors.As(err, &conflictErr):
		log.Warn(operation+" contention",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseConflict(w, conflictErr.Msg)

	default:
		log.Error("Failed to "+operation,
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseInternalError(w, "Internal server error")
	}
}
