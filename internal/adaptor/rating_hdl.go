package adaptor

import (
	"encoding/json"
	"net/http"

	"recohub/internal/dto/request"
	"recohub/internal/usecase"
	"recohub/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type RatingHandler struct {
	service usecase.RatingService
	log     *zap.Logger
}

func NewRatingHandler(service usecase.RatingService, log *zap.Logger) *RatingHandler {
	return &RatingHandler{
		service: service,
		log:     log.With(zap.String("handler", "rating")),
	}
}

// SubmitRating handles POST /api/ratings (identity required)
func (h *RatingHandler) SubmitRating(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.SubmitRatingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	rating, err := h.service.SubmitRating(r.Context(), userID.String(), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "submit rating")
		return
	}

	utils.ResponseCreated(w, "success", rating)
}

// GetUserRatings handles GET /api/ratings/user (identity required)
func (h *RatingHandler) GetUserRatings(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	req := &request.PaginatedRequest{
		Page:    1,
		PerPage: 10,
	}

	query := r.URL.Query()
	req.Page = utils.ParseInt(query.Get("page"), 1)
	req.PerPage = utils.ParseInt(query.Get("per_page"), 10)

	ratings, err := h.service.GetUserRatings(r.Context(), userID.String(), req)
	if err != nil {
		handleServiceError(w, h.log, err, "get user ratings")
		return
	}

	utils.ResponseSuccess(w, "success", ratings)
}

// GetRating handles GET /api/ratings/{contentType}/{contentId} (identity required)
func (h *RatingHandler) GetRating(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	contentType := chi.URLParam(r, "contentType")
	contentID := chi.URLParam(r, "contentId")

	rating, err := h.service.GetRating(r.Context(), userID.String(), contentType, contentID)
	if err != nil {
		handleServiceError(w, h.log, err, "get rating")
		return
	}

	// Absent rating is a normal answer, not an error.
	utils.ResponseSuccess(w, "success", rating)
}

// RemoveRating handles DELETE /api/ratings/{contentType}/{contentId} (identity required)
func (h *RatingHandler) RemoveRating(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	contentType := chi.URLParam(r, "contentType")
	contentID := chi.URLParam(r, "contentId")

	if err := h.service.RemoveRating(r.Context(), userID.String(), contentType, contentID); err != nil {
		handleServiceError(w, h.log, err, "remove rating")
		return
	}

	utils.ResponseSuccess(w, "success", nil)
}
