package response

import (
	"time"

	"recohub/internal/data/entity"
)

type RatingResponse struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	ContentType string    `json:"content_type"`
	ContentID   string    `json:"content_id"`
	Score       int       `json:"score"`
	Review      *string   `json:"review,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Helper converter
func RatingToResponse(rating *entity.Rating) RatingResponse {
	return RatingResponse{
		ID:          rating.ID.String(),
		UserID:      rating.UserID.String(),
		ContentType: rating.ContentType.String(),
		ContentID:   rating.ContentID.String(),
		Score:       rating.Score,
		Review:      rating.Review,
		CreatedAt:   rating.CreatedAt,
		UpdatedAt:   rating.UpdatedAt,
	}
}
