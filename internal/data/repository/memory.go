package repository

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"recohub/internal/data/entity"

	"github.com/google/uuid"
)

// In-memory implementations of the repository interfaces. They back the unit
// tests and local runs without Postgres. Operations on a single key are made
// atomic by the repository mutex; cross-key serialization stays the
// aggregator's job, same as with the SQL implementations.

type memoryRatingRepository struct {
	mu      sync.RWMutex
	ratings map[string]*entity.Rating // userID|contentType|contentID
}

func NewMemoryRatingRepository() RatingRepository {
	return &memoryRatingRepository{
		ratings: make(map[string]*entity.Rating),
	}
}

func ratingMapKey(userID uuid.UUID, contentType entity.ContentType, contentID uuid.UUID) string {
	return userID.String() + "|" + entity.RatingKey(contentType, contentID)
}

func (r *memoryRatingRepository) Upsert(ctx context.Context, rating *entity.Rating) (*entity.Rating, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := ratingMapKey(rating.UserID, rating.ContentType, rating.ContentID)
	now := time.Now()

	if existing, ok := r.ratings[key]; ok {
		existing.Score = rating.Score
		if rating.Review != nil {
			existing.Review = rating.Review
		}
		existing.UpdatedAt = now
		stored := *existing
		return &stored, false, nil
	}

	created := *rating
	created.CreatedAt = now
	created.UpdatedAt = now
	r.ratings[key] = &created
	stored := created
	return &stored, true, nil
}

func (r *memoryRatingRepository) FindByKey(ctx context.Context, userID uuid.UUID, contentType entity.ContentType, contentID uuid.UUID) (*entity.Rating, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rating, ok := r.ratings[ratingMapKey(userID, contentType, contentID)]
	if !ok {
		return nil, nil
	}
	stored := *rating
	return &stored, nil
}

func (r *memoryRatingRepository) FindByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Rating, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ratings []*entity.Rating
	for _, rating := range r.ratings {
		if rating.UserID == userID {
			stored := *rating
			ratings = append(ratings, &stored)
		}
	}

	sort.Slice(ratings, func(i, j int) bool {
		return ratings[i].CreatedAt.After(ratings[j].CreatedAt)
	})

	if offset >= len(ratings) {
		return nil, nil
	}
	ratings = ratings[offset:]
	if limit > 0 && limit < len(ratings) {
		ratings = ratings[:limit]
	}

	return ratings, nil
}

func (r *memoryRatingRepository) CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, rating := range r.ratings {
		if rating.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (r *memoryRatingRepository) Delete(ctx context.Context, userID uuid.UUID, contentType entity.ContentType, contentID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := ratingMapKey(userID, contentType, contentID)
	if _, ok := r.ratings[key]; !ok {
		return false, nil
	}
	delete(r.ratings, key)
	return true, nil
}

func (r *memoryRatingRepository) AggregateByContent(ctx context.Context, contentType entity.ContentType, contentID uuid.UUID) (RatingAggregate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sum, count int64
	for _, rating := range r.ratings {
		if rating.ContentType == contentType && rating.ContentID == contentID {
			sum += int64(rating.Score)
			count++
		}
	}

	if count == 0 {
		return RatingAggregate{}, nil
	}

	average := math.Round(float64(sum)/float64(count)*10) / 10
	return RatingAggregate{AverageScore: average, RatingCount: count}, nil
}

type memoryContentRepository struct {
	mu       sync.RWMutex
	contents map[string]*entity.Content // contentType/contentID
}

func NewMemoryContentRepository() ContentRepository {
	return &memoryContentRepository{
		contents: make(map[string]*entity.Content),
	}
}

func (r *memoryContentRepository) Create(ctx context.Context, content *entity.Content) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *content
	r.contents[entity.RatingKey(content.ContentType, content.ID)] = &stored
	return nil
}

func (r *memoryContentRepository) FindByID(ctx context.Context, contentType entity.ContentType, contentID uuid.UUID) (*entity.Content, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	content, ok := r.contents[entity.RatingKey(contentType, contentID)]
	if !ok {
		return nil, nil
	}
	stored := *content
	return &stored, nil
}

func (r *memoryContentRepository) Exists(ctx context.Context, contentType entity.ContentType, contentID uuid.UUID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.contents[entity.RatingKey(contentType, contentID)]
	return ok, nil
}

func (r *memoryContentRepository) UpdateAggregate(ctx context.Context, contentType entity.ContentType, contentID uuid.UUID, averageScore float64, ratingCount int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	content, ok := r.contents[entity.RatingKey(contentType, contentID)]
	if !ok {
		return ErrNotFound
	}
	content.AverageScore = averageScore
	content.RatingCount = ratingCount
	content.UpdatedAt = time.Now()
	return nil
}

type memoryOutboxRepository struct {
	mu     sync.Mutex
	events []*entity.OutboxEvent
}

func NewMemoryOutboxRepository() OutboxRepository {
	return &memoryOutboxRepository{}
}

func (r *memoryOutboxRepository) Store(ctx context.Context, event *entity.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *event
	r.events = append(r.events, &stored)
	return nil
}

func (r *memoryOutboxRepository) GetPending(ctx context.Context, limit int) ([]*entity.OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pending := make([]*entity.OutboxEvent, len(r.events))
	for i, event := range r.events {
		stored := *event
		pending[i] = &stored
	}

	sort.Slice(pending, func(i, j int) bool {
		return pending[i].Sequence < pending[j].Sequence
	})

	if limit > 0 && limit < len(pending) {
		pending = pending[:limit]
	}
	return pending, nil
}

func (r *memoryOutboxRepository) MarkDelivered(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, event := range r.events {
		if event.ID == id {
			r.events = append(r.events[:i], r.events[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *memoryOutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, deliveryErr error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg := deliveryErr.Error()
	for _, event := range r.events {
		if event.ID == id {
			event.RetryCount++
			event.LastError = &msg
			return nil
		}
	}
	return nil
}
