package adaptor

import (
	"net/http"

	"recohub/internal/usecase"
	"recohub/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ContentHandler struct {
	service usecase.ContentService
	log     *zap.Logger
}

func NewContentHandler(service usecase.ContentService, log *zap.Logger) *ContentHandler {
	return &ContentHandler{
		service: service,
		log:     log.With(zap.String("handler", "content")),
	}
}

// GetContentStats handles GET /api/contents/{contentType}/{contentId}/stats (public)
func (h *ContentHandler) GetContentStats(w http.ResponseWriter, r *http.Request) {
	contentType := chi.URLParam(r, "contentType")
	contentID := chi.URLParam(r, "contentId")

	stats, err := h.service.GetContentStats(r.Context(), contentType, contentID)
	if err != nil {
		handleServiceError(w, h.log, err, "get content stats")
		return
	}

	utils.ResponseSuccess(w, "success", stats)
}
