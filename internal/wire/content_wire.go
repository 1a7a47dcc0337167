package wire

import (
	"recohub/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireContent(
	r chi.Router,
	contentHandler *adaptor.ContentHandler,
) {
	// GET /api/contents/{contentType}/{contentId}/stats - Aggregate rating (public)
	r.Get("/api/contents/{contentType}/{contentId}/stats", contentHandler.GetContentStats)
}
