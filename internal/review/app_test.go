package review

import (
	"context"
	"database/sql"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SmartBoardPlus/EchoDraw/internal/models"
)

type fakeRepo struct {
	orders map[uuid.UUID]*models.ReviewOrder
	saves  int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{orders: make(map[uuid.UUID]*models.ReviewOrder)}
}

func (f *fakeRepo) GetReviewOrder(ctx context.Context, questionID uuid.UUID) (*models.ReviewOrder, error) {
	order, ok := f.orders[questionID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return order, nil
}

func (f *fakeRepo) SaveReviewOrder(ctx context.Context, order models.ReviewOrder) (*models.ReviewOrder, error) {
	f.saves++
	saved := order
	f.orders[order.QuestionID] = &saved
	return &saved, nil
}

type fakeResponses struct {
	responses []models.Response
}

func (f *fakeResponses) ListByQuestion(ctx context.Context, questionID uuid.UUID) ([]models.Response, error) {
	return f.responses, nil
}

type fakeOutbox struct {
	frozen int
}

func (f *fakeOutbox) InsertReviewFrozen(ctx context.Context, questionID uuid.UUID, payload []byte) error {
	f.frozen++
	return nil
}

func makeResponses(n int) []models.Response {
	out := make([]models.Response, n)
	for i := range out {
		out[i] = models.Response{ID: uuid.New()}
	}
	return out
}

func sortedIDs(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	sort.Strings(out)
	return out
}

func newTestApp(responses []models.Response) (*App, *fakeRepo, *fakeOutbox) {
	repo := newFakeRepo()
	outbox := &fakeOutbox{}
	app := NewApp(repo, &fakeResponses{responses: responses}, outbox)
	return app, repo, outbox
}

func TestFreeze_PermutesAllResponses(t *testing.T) {
	responses := makeResponses(20)
	app, _, outbox := newTestApp(responses)

	order, err := app.Freeze(context.Background(), uuid.New(), false)
	require.NoError(t, err)

	require.Len(t, order.ResponseIDs, len(responses))
	var want []uuid.UUID
	for _, r := range responses {
		want = append(want, r.ID)
	}
	// Same set, whatever the order.
	assert.Equal(t, sortedIDs(want), sortedIDs(order.ResponseIDs))
	assert.Equal(t, 1, outbox.frozen)
}

func TestFreeze_RepeatedCallsReturnStoredOrder(t *testing.T) {
	responses := makeResponses(10)
	app, repo, _ := newTestApp(responses)
	questionID := uuid.New()

	first, err := app.Freeze(context.Background(), questionID, false)
	require.NoError(t, err)

	second, err := app.Freeze(context.Background(), questionID, false)
	require.NoError(t, err)

	assert.Equal(t, first.ResponseIDs, second.ResponseIDs)
	assert.Equal(t, first.Seed, second.Seed)
	assert.Equal(t, 1, repo.saves, "second freeze must not rewrite the order")
}

func TestFreeze_SeedReproducesPermutation(t *testing.T) {
	responses := makeResponses(15)
	questionID := uuid.New()

	appA, _, _ := newTestApp(responses)
	appA.seedFunc = func() (int64, error) { return 42, nil }
	appB, _, _ := newTestApp(responses)
	appB.seedFunc = func() (int64, error) { return 42, nil }

	a, err := appA.Freeze(context.Background(), questionID, false)
	require.NoError(t, err)
	b, err := appB.Freeze(context.Background(), questionID, false)
	require.NoError(t, err)

	assert.Equal(t, a.ResponseIDs, b.ResponseIDs, "same seed over same inputs must give the same order")
	assert.Equal(t, int64(42), a.Seed)
}

func TestFreeze_ReshuffleDrawsNewOrder(t *testing.T) {
	responses := makeResponses(10)
	app, repo, _ := newTestApp(responses)
	questionID := uuid.New()

	seeds := []int64{1, 2}
	app.seedFunc = func() (int64, error) {
		s := seeds[0]
		seeds = seeds[1:]
		return s, nil
	}

	first, err := app.Freeze(context.Background(), questionID, false)
	require.NoError(t, err)

	second, err := app.Freeze(context.Background(), questionID, true)
	require.NoError(t, err)

	assert.NotEqual(t, first.Seed, second.Seed)
	assert.Equal(t, 2, repo.saves)
	// Same set of ids either way.
	assert.Equal(t, sortedIDs(first.ResponseIDs), sortedIDs(second.ResponseIDs))
}

func TestFreeze_EmptyQuestion(t *testing.T) {
	app, _, _ := newTestApp(nil)

	order, err := app.Freeze(context.Background(), uuid.New(), false)
	require.NoError(t, err)
	assert.Empty(t, order.ResponseIDs)
}

func TestGet_WithoutFreeze(t *testing.T) {
	app, _, _ := newTestApp(makeResponses(3))

	_, err := app.Get(context.Background(), uuid.New())
	require.Error(t, err)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestNavigate_Clamps(t *testing.T) {
	order := &models.ReviewOrder{ResponseIDs: []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}}

	assert.Equal(t, 1, Navigate(order, 0, 1))
	assert.Equal(t, 0, Navigate(order, 1, -1))
	assert.Equal(t, 0, Navigate(order, 0, -1), "no wrap below zero")
	assert.Equal(t, 2, Navigate(order, 2, 1), "no wrap past the end")
	assert.Equal(t, 2, Navigate(order, 0, 10), "large jumps clamp to the last index")
	assert.Equal(t, 0, Navigate(nil, 5, 1))
	assert.Equal(t, 0, Navigate(&models.ReviewOrder{}, 3, 1))
}
