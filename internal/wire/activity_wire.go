package wire

import (
	"recohub/internal/adaptor"
	"recohub/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireActivity(
	r chi.Router,
	activityHandler *adaptor.ActivityHandler,
	log *zap.Logger,
) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Identity(log))

		// POST /api/activities - Record a view/click/search signal
		r.Post("/api/activities", activityHandler.RecordActivity)
	})
}
