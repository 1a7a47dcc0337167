package adaptor

import (
	"encoding/json"
	"net/http"

	"recohub/internal/dto/request"
	"recohub/internal/usecase"
	"recohub/pkg/utils"

	"go.uber.org/zap"
)

type ActivityHandler struct {
	service usecase.ActivityService
	log     *zap.Logger
}

func NewActivityHandler(service usecase.ActivityService, log *zap.Logger) *ActivityHandler {
	return &ActivityHandler{
		service: service,
		log:     log.With(zap.String("handler", "activity")),
	}
}

// RecordActivity handles POST /api/activities (identity required)
func (h *ActivityHandler) RecordActivity(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.RecordActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := h.service.RecordActivity(r.Context(), userID.String(), &req); err != nil {
		handleServiceError(w, h.log, err, "record activity")
		return
	}

	utils.ResponseCreated(w, "success", nil)
}
