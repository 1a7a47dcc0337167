package wire

import (
	"recohub/internal/adaptor"
	"recohub/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireRating(
	r chi.Router,
	ratingHandler *adaptor.RatingHandler,
	log *zap.Logger,
) {
	// All rating routes require a caller identity
	r.Group(func(r chi.Router) {
		r.Use(middleware.Identity(log))

		// POST /api/ratings - Submit or overwrite a rating
		r.Post("/api/ratings", ratingHandler.SubmitRating)

		// GET /api/ratings/user - Caller's own ratings, newest first
		r.Get("/api/ratings/user", ratingHandler.GetUserRatings)

		// GET /api/ratings/{contentType}/{contentId} - Caller's rating for one item
		r.Get("/api/ratings/{contentType}/{contentId}", ratingHandler.GetRating)

		// DELETE /api/ratings/{contentType}/{contentId} - Remove rating (idempotent)
		r.Delete("/api/ratings/{contentType}/{contentId}", ratingHandler.RemoveRating)
	})
}
