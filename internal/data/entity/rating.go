package entity

import (
	"github.com/google/uuid"
)

// Rating is one user's opinion of one content item. At most one row exists
// per (user_id, content_type, content_id); re-rating rewrites score/review
// in place.
type Rating struct {
	BaseNoDelete
	UserID      uuid.UUID   `db:"user_id"`
	ContentType ContentType `db:"content_type"`
	ContentID   uuid.UUID   `db:"content_id"`
	Score       int         `db:"score"` // 1-5
	Review      *string     `db:"review"`
}

// ContentKey identifies the ratable item this rating belongs to.
func (r *Rating) ContentKey() string {
	return RatingKey(r.ContentType, r.ContentID)
}

// RatingKey builds the canonical lock/partition key for a content item.
func RatingKey(contentType ContentType, contentID uuid.UUID) string {
	return string(contentType) + "/" + contentID.String()
}
