package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"recohub/internal/data/entity"
	"recohub/internal/data/repository"
	"recohub/internal/dto/request"
	"recohub/internal/stream"
	"recohub/internal/usecase"
	"recohub/pkg/apperrors"
	"recohub/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// capturedEvents collects published events synchronously so tests can assert
// on exact ordering.
type capturedEvents struct {
	mu     sync.Mutex
	events []stream.Event
}

func (c *capturedEvents) Publish(event stream.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *capturedEvents) ratingEvents() []stream.RatingEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []stream.RatingEvent
	for _, event := range c.events {
		if re, ok := event.(stream.RatingEvent); ok {
			out = append(out, re)
		}
	}
	return out
}

type ratingTestEnv struct {
	repos  *repository.Repository
	events *capturedEvents
	svc    usecase.RatingService
}

func newRatingTestEnv(t *testing.T) *ratingTestEnv {
	t.Helper()

	repos := repository.NewMemoryRepository()
	events := &capturedEvents{}
	config := &utils.Config{
		Lock: utils.LockConfig{Timeout: time.Second, Shards: 16},
	}

	return &ratingTestEnv{
		repos:  repos,
		events: events,
		svc:    usecase.NewRatingService(repos, events, config, zap.NewNop()),
	}
}

func (env *ratingTestEnv) seedContent(t *testing.T, contentType entity.ContentType) uuid.UUID {
	t.Helper()

	content := &entity.Content{
		BaseNoDelete: entity.BaseNoDelete{
			ID:        uuid.New(),
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		},
		ContentType: contentType,
		Title:       "test content",
	}
	require.NoError(t, env.repos.Content.Create(context.Background(), content))
	return content.ID
}

func (env *ratingTestEnv) stats(t *testing.T, contentType entity.ContentType, contentID uuid.UUID) (float64, int64) {
	t.Helper()

	content, err := env.repos.Content.FindByID(context.Background(), contentType, contentID)
	require.NoError(t, err)
	require.NotNil(t, content)
	return content.AverageScore, content.RatingCount
}

func submitReq(contentID uuid.UUID, score int) *request.SubmitRatingRequest {
	return &request.SubmitRatingRequest{
		ContentType: "movie",
		ContentID:   contentID.String(),
		Score:       score,
	}
}

func TestSubmitRating_Scenario(t *testing.T) {
	env := newRatingTestEnv(t)
	ctx := context.Background()
	contentID := env.seedContent(t, entity.ContentTypeMovie)

	user1 := uuid.New().String()
	user2 := uuid.New().String()

	// First rating on an empty key
	rating, err := env.svc.SubmitRating(ctx, user1, submitReq(contentID, 4))
	require.NoError(t, err)
	assert.Equal(t, 4, rating.Score)

	avg, count := env.stats(t, entity.ContentTypeMovie, contentID)
	assert.Equal(t, 4.0, avg)
	assert.Equal(t, int64(1), count)

	// Second user on the same key
	_, err = env.svc.SubmitRating(ctx, user2, submitReq(contentID, 2))
	require.NoError(t, err)

	avg, count = env.stats(t, entity.ContentTypeMovie, contentID)
	assert.Equal(t, 3.0, avg)
	assert.Equal(t, int64(2), count)

	// Removing user1's rating leaves user2's exact mean
	require.NoError(t, env.svc.RemoveRating(ctx, user1, "movie", contentID.String()))

	avg, count = env.stats(t, entity.ContentTypeMovie, contentID)
	assert.Equal(t, 2.0, avg)
	assert.Equal(t, int64(1), count)
}

func TestSubmitRating_OneRecordPerKey(t *testing.T) {
	env := newRatingTestEnv(t)
	ctx := context.Background()
	contentID := env.seedContent(t, entity.ContentTypeMovie)
	userID := uuid.New().String()

	for _, score := range []int{1, 3, 5, 2, 4} {
		_, err := env.svc.SubmitRating(ctx, userID, submitReq(contentID, score))
		require.NoError(t, err)
	}

	// A re-rate rewrites in place, never duplicates
	rating, err := env.svc.GetRating(ctx, userID, "movie", contentID.String())
	require.NoError(t, err)
	require.NotNil(t, rating)
	assert.Equal(t, 4, rating.Score)

	avg, count := env.stats(t, entity.ContentTypeMovie, contentID)
	assert.Equal(t, 4.0, avg)
	assert.Equal(t, int64(1), count)
}

func TestSubmitRating_InvalidScore(t *testing.T) {
	env := newRatingTestEnv(t)
	ctx := context.Background()
	contentID := env.seedContent(t, entity.ContentTypeMovie)
	userID := uuid.New().String()

	_, err := env.svc.SubmitRating(ctx, userID, submitReq(contentID, 6))
	var validationErr *apperrors.ValidationError
	require.ErrorAs(t, err, &validationErr)

	// Rejection leaves no trace: no rating, untouched aggregate, no event
	rating, err := env.svc.GetRating(ctx, userID, "movie", contentID.String())
	require.NoError(t, err)
	assert.Nil(t, rating)

	avg, count := env.stats(t, entity.ContentTypeMovie, contentID)
	assert.Equal(t, 0.0, avg)
	assert.Equal(t, int64(0), count)
	assert.Empty(t, env.events.ratingEvents())
}

func TestSubmitRating_UnknownContentType(t *testing.T) {
	env := newRatingTestEnv(t)

	req := &request.SubmitRatingRequest{
		ContentType: "podcast",
		ContentID:   uuid.New().String(),
		Score:       3,
	}
	_, err := env.svc.SubmitRating(context.Background(), uuid.New().String(), req)

	var validationErr *apperrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestSubmitRating_ContentNotFound(t *testing.T) {
	env := newRatingTestEnv(t)

	_, err := env.svc.SubmitRating(context.Background(), uuid.New().String(), submitReq(uuid.New(), 3))

	var notFoundErr *apperrors.NotFoundError
	require.ErrorAs(t, err, &notFoundErr)
	assert.Empty(t, env.events.ratingEvents())
}

func TestRemoveRating_Idempotent(t *testing.T) {
	env := newRatingTestEnv(t)
	ctx := context.Background()
	contentID := env.seedContent(t, entity.ContentTypeBook)
	userID := uuid.New().String()

	req := submitReq(contentID, 5)
	req.ContentType = "book"
	_, err := env.svc.SubmitRating(ctx, userID, req)
	require.NoError(t, err)

	require.NoError(t, env.svc.RemoveRating(ctx, userID, "book", contentID.String()))

	avg, count := env.stats(t, entity.ContentTypeBook, contentID)
	assert.Equal(t, 0.0, avg)
	assert.Equal(t, int64(0), count)

	// Second delete: no error, no change, no extra event
	require.NoError(t, env.svc.RemoveRating(ctx, userID, "book", contentID.String()))

	avg, count = env.stats(t, entity.ContentTypeBook, contentID)
	assert.Equal(t, 0.0, avg)
	assert.Equal(t, int64(0), count)

	deleted := 0
	for _, event := range env.events.ratingEvents() {
		if event.Action == stream.ActionDeleted {
			deleted++
		}
	}
	assert.Equal(t, 1, deleted)
}

func TestSubmitRating_ConcurrentSameKey(t *testing.T) {
	env := newRatingTestEnv(t)
	ctx := context.Background()
	contentID := env.seedContent(t, entity.ContentTypeSeries)
	userID := uuid.New().String()

	const writers = 100
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func(score int) {
			defer wg.Done()
			req := submitReq(contentID, score)
			req.ContentType = "series"
			_, err := env.svc.SubmitRating(ctx, userID, req)
			assert.NoError(t, err)
		}(i%5 + 1)
	}
	wg.Wait()

	// Exactly one record survives, and the aggregate matches it
	rating, err := env.svc.GetRating(ctx, userID, "series", contentID.String())
	require.NoError(t, err)
	require.NotNil(t, rating)

	avg, count := env.stats(t, entity.ContentTypeSeries, contentID)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, float64(rating.Score), avg)
}

func TestSubmitRating_IndependentKeysDoNotInterfere(t *testing.T) {
	env := newRatingTestEnv(t)
	ctx := context.Background()

	const keys = 20
	contentIDs := make([]uuid.UUID, keys)
	for i := range contentIDs {
		contentIDs[i] = env.seedContent(t, entity.ContentTypeSong)
	}

	var wg sync.WaitGroup
	wg.Add(keys)
	for i := 0; i < keys; i++ {
		go func(i int) {
			defer wg.Done()
			req := submitReq(contentIDs[i], i%5+1)
			req.ContentType = "song"
			_, err := env.svc.SubmitRating(ctx, uuid.New().String(), req)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	for i := 0; i < keys; i++ {
		avg, count := env.stats(t, entity.ContentTypeSong, contentIDs[i])
		assert.Equal(t, int64(1), count)
		assert.Equal(t, float64(i%5+1), avg)
	}
}

func TestRatingEvents_ActionOrder(t *testing.T) {
	env := newRatingTestEnv(t)
	ctx := context.Background()
	contentID := env.seedContent(t, entity.ContentTypeMovie)
	userID := uuid.New().String()

	_, err := env.svc.SubmitRating(ctx, userID, submitReq(contentID, 3))
	require.NoError(t, err)
	_, err = env.svc.SubmitRating(ctx, userID, submitReq(contentID, 5))
	require.NoError(t, err)
	require.NoError(t, env.svc.RemoveRating(ctx, userID, "movie", contentID.String()))

	events := env.events.ratingEvents()
	require.Len(t, events, 3)
	assert.Equal(t, stream.ActionCreated, events[0].Action)
	assert.Equal(t, 3, events[0].Score)
	assert.Equal(t, stream.ActionUpdated, events[1].Action)
	assert.Equal(t, 5, events[1].Score)
	assert.Equal(t, stream.ActionDeleted, events[2].Action)
	assert.Equal(t, 5, events[2].Score)

	for _, event := range events {
		assert.Equal(t, userID, event.UserID)
		assert.Equal(t, "movie", event.ContentType)
		assert.Equal(t, contentID.String(), event.ContentID)
	}
}

func TestAggregate_NoDriftAfterDelete(t *testing.T) {
	env := newRatingTestEnv(t)
	ctx := context.Background()
	contentID := env.seedContent(t, entity.ContentTypeMovie)

	scores := []int{5, 4, 4, 3, 1, 2, 5, 5}
	users := make([]string, len(scores))
	for i, score := range scores {
		users[i] = uuid.New().String()
		_, err := env.svc.SubmitRating(ctx, users[i], submitReq(contentID, score))
		require.NoError(t, err)
	}

	// 29/8 = 3.625 -> 3.6
	avg, count := env.stats(t, entity.ContentTypeMovie, contentID)
	assert.Equal(t, 3.6, avg)
	assert.Equal(t, int64(len(scores)), count)

	// Removing the first score (5) must reproduce the exact mean of the
	// remainder: 24/7 = 3.428... -> 3.4
	require.NoError(t, env.svc.RemoveRating(ctx, users[0], "movie", contentID.String()))

	avg, count = env.stats(t, entity.ContentTypeMovie, contentID)
	assert.Equal(t, 3.4, avg)
	assert.Equal(t, int64(len(scores)-1), count)
}

func TestGetUserRatings_NewestFirst(t *testing.T) {
	env := newRatingTestEnv(t)
	ctx := context.Background()
	userID := uuid.New().String()

	var contentIDs []uuid.UUID
	for i := 0; i < 3; i++ {
		contentID := env.seedContent(t, entity.ContentTypeMovie)
		contentIDs = append(contentIDs, contentID)
		_, err := env.svc.SubmitRating(ctx, userID, submitReq(contentID, i+1))
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	page, err := env.svc.GetUserRatings(ctx, userID, &request.PaginatedRequest{Page: 1, PerPage: 10})
	require.NoError(t, err)
	require.Len(t, page.Data, 3)
	assert.Equal(t, int64(3), page.Pagination.Total)

	assert.Equal(t, contentIDs[2].String(), page.Data[0].ContentID)
	assert.Equal(t, contentIDs[1].String(), page.Data[1].ContentID)
	assert.Equal(t, contentIDs[0].String(), page.Data[2].ContentID)
}

// gatedRatingRepo blocks Upsert until released, to hold the per-key lock open.
type gatedRatingRepo struct {
	repository.RatingRepository
	entered chan struct{}
	release chan struct{}
}

func (r *gatedRatingRepo) Upsert(ctx context.Context, rating *entity.Rating) (*entity.Rating, bool, error) {
	close(r.entered)
	<-r.release
	return r.RatingRepository.Upsert(ctx, rating)
}

func TestSubmitRating_LockTimeoutIsConflict(t *testing.T) {
	repos := repository.NewMemoryRepository()
	gated := &gatedRatingRepo{
		RatingRepository: repos.Rating,
		entered:          make(chan struct{}),
		release:          make(chan struct{}),
	}
	repos.Rating = gated

	events := &capturedEvents{}
	config := &utils.Config{
		Lock: utils.LockConfig{Timeout: 50 * time.Millisecond, Shards: 16},
	}
	svc := usecase.NewRatingService(repos, events, config, zap.NewNop())

	ctx := context.Background()
	contentID := uuid.New()
	require.NoError(t, repos.Content.Create(ctx, &entity.Content{
		BaseNoDelete: entity.BaseNoDelete{ID: contentID},
		ContentType:  entity.ContentTypeMovie,
		Title:        "locked",
	}))

	firstDone := make(chan error, 1)
	go func() {
		_, err := svc.SubmitRating(ctx, uuid.New().String(), submitReq(contentID, 4))
		firstDone <- err
	}()

	// Wait until the first writer holds the key lock inside Upsert
	<-gated.entered

	_, err := svc.SubmitRating(ctx, uuid.New().String(), submitReq(contentID, 2))
	var conflictErr *apperrors.ConflictError
	require.ErrorAs(t, err, &conflictErr)

	close(gated.release)
	require.NoError(t, <-firstDone)
}
