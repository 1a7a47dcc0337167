package entity

// Content is a catalog item from any of the four categories. One table spans
// all categories; (content_type, id) is the content key.
//
// AverageScore and RatingCount are derived fields owned by the rating
// aggregator. Nothing else writes them.
type Content struct {
	BaseNoDelete
	ContentType  ContentType `db:"content_type"`
	Title        string      `db:"title"`
	Description  *string     `db:"description"`
	ReleaseYear  *int        `db:"release_year"`
	AverageScore float64     `db:"average_score"`
	RatingCount  int64       `db:"rating_count"`
}
