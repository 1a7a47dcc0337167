package response

type ContentStats struct {
	AverageScore float64 `json:"average_score"`
	RatingCount  int64   `json:"rating_count"`
}
