package request

type SubmitRatingRequest struct {
	ContentType string  `json:"content_type" validate:"required,oneof=movie song book series"`
	ContentID   string  `json:"content_id" validate:"required,uuid4"`
	Score       int     `json:"score" validate:"required,min=1,max=5"`
	Review      *string `json:"review,omitempty" validate:"omitempty,max=2000"`
}
