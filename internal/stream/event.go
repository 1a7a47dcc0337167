package stream

import (
	"encoding/json"
	"strconv"
	"time"
)

// Topic names match what the downstream trending/recommendation consumers
// subscribe to.
const (
	TopicRatings    = "user-ratings"
	TopicActivities = "user-activities"
)

type RatingAction string

const (
	ActionCreated RatingAction = "created"
	ActionUpdated RatingAction = "updated"
	ActionDeleted RatingAction = "deleted"
)

// Event is anything the publisher can put on the stream. Payload receives the
// publisher-assigned sequence number; event shapes that do not carry a
// sequence ignore it. Payloads are flat string-valued JSON so consumers in
// any language can read them without a schema.
type Event interface {
	Topic() string
	PartitionKey() string
	Payload(sequence int64) ([]byte, error)
}

// RatingEvent records one committed rating mutation.
type RatingEvent struct {
	UserID      string
	ContentType string
	ContentID   string
	Score       int
	Action      RatingAction
	Timestamp   time.Time
}

func (e RatingEvent) Topic() string { return TopicRatings }

func (e RatingEvent) PartitionKey() string { return e.UserID }

func (e RatingEvent) Payload(sequence int64) ([]byte, error) {
	return json.Marshal(map[string]string{
		"userId":      e.UserID,
		"contentType": e.ContentType,
		"contentId":   e.ContentID,
		"score":       strconv.Itoa(e.Score),
		"action":      string(e.Action),
		"timestamp":   e.Timestamp.UTC().Format(time.RFC3339),
		"sequence":    strconv.FormatInt(sequence, 10),
	})
}

// ActivityEvent records a generic engagement signal (view, click, search).
// Same delivery contract as rating events, different payload shape.
type ActivityEvent struct {
	UserID       string
	ActivityType string
	ContentID    string
	Timestamp    time.Time
}

func (e ActivityEvent) Topic() string { return TopicActivities }

func (e ActivityEvent) PartitionKey() string { return e.UserID }

func (e ActivityEvent) Payload(_ int64) ([]byte, error) {
	return json.Marshal(map[string]string{
		"userId":       e.UserID,
		"activityType": e.ActivityType,
		"contentId":    e.ContentID,
		"timestamp":    e.Timestamp.UTC().Format(time.RFC3339),
	})
}
