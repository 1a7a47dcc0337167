package request

type RecordActivityRequest struct {
	ActivityType string `json:"activity_type" validate:"required,oneof=view click search"`
	ContentID    string `json:"content_id" validate:"required,uuid4"`
}
