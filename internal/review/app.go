package review

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/SmartBoardPlus/EchoDraw/internal/events"
	"github.com/SmartBoardPlus/EchoDraw/internal/models"
	"github.com/SmartBoardPlus/EchoDraw/internal/random"
)

// ReviewRepository defines what the review app layer needs from the review
// repository
type ReviewRepository interface {
	GetReviewOrder(ctx context.Context, questionID uuid.UUID) (*models.ReviewOrder, error)
	SaveReviewOrder(ctx context.Context, order models.ReviewOrder) (*models.ReviewOrder, error)
}

// ResponseApp supplies the response ids that exist at freeze time.
type ResponseApp interface {
	ListByQuestion(ctx context.Context, questionID uuid.UUID) ([]models.Response, error)
}

// OutboxApp defines what the review app layer needs from the outbox
type OutboxApp interface {
	InsertReviewFrozen(ctx context.Context, questionID uuid.UUID, payload []byte) error
}

// App freezes and serves randomized review orders. Freezing is a one-time,
// cached operation per review pass; navigation never reshuffles.
type App struct {
	repo      ReviewRepository
	responses ResponseApp
	outbox    OutboxApp
	seedFunc  func() (int64, error)
}

// NewApp creates a new review App
func NewApp(repo ReviewRepository, responses ResponseApp, outbox OutboxApp) *App {
	return &App{
		repo:      repo,
		responses: responses,
		outbox:    outbox,
		seedFunc:  random.NewSeed,
	}
}

// Freeze returns the question's frozen review order, materializing it on
// first call. With reshuffle=false a stored order is returned unchanged —
// repeated calls are byte-identical. With reshuffle=true a new permutation
// is drawn over the responses existing now; the presenter triggers that
// knowingly to pull in late stragglers.
func (a *App) Freeze(ctx context.Context, questionID uuid.UUID, reshuffle bool) (*models.ReviewOrder, error) {
	if !reshuffle {
		order, err := a.repo.GetReviewOrder(ctx, questionID)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to get review order: %w", err)
		}
	}

	responses, err := a.responses.ListByQuestion(ctx, questionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses for freeze: %w", err)
	}

	ids := make([]uuid.UUID, len(responses))
	for i := range responses {
		ids[i] = responses[i].ID
	}

	seed, err := a.seedFunc()
	if err != nil {
		return nil, fmt.Errorf("failed to draw shuffle seed: %w", err)
	}

	// Fisher–Yates over the full set; the seed is persisted so the
	// permutation is reproducible for audit.
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})

	order, err := a.repo.SaveReviewOrder(ctx, models.ReviewOrder{
		QuestionID:  questionID,
		ResponseIDs: ids,
		Seed:        seed,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save review order: %w", err)
	}

	if err := a.emitReviewFrozen(ctx, order, reshuffle); err != nil {
		log.Error().Err(err).Str("question_id", questionID.String()).Msg("failed to emit ReviewFrozen event")
		// Don't fail the operation, just log
	}

	log.Info().
		Str("question_id", questionID.String()).
		Int("responses", len(ids)).
		Bool("reshuffle", reshuffle).
		Msg("froze review order")
	return order, nil
}

// Get returns the stored order without materializing one.
func (a *App) Get(ctx context.Context, questionID uuid.UUID) (*models.ReviewOrder, error) {
	order, err := a.repo.GetReviewOrder(ctx, questionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get review order: %w", err)
	}
	return order, nil
}

// Navigate moves an index by delta within the order, clamped to
// [0, len-1]. No wraparound.
func Navigate(order *models.ReviewOrder, index, delta int) int {
	if order == nil || len(order.ResponseIDs) == 0 {
		return 0
	}
	next := index + delta
	if next < 0 {
		return 0
	}
	if max := len(order.ResponseIDs) - 1; next > max {
		return max
	}
	return next
}

func (a *App) emitReviewFrozen(ctx context.Context, order *models.ReviewOrder, reshuffled bool) error {
	payload := events.ReviewFrozenPayload{
		QuestionID:    order.QuestionID.String(),
		ResponseCount: len(order.ResponseIDs),
		Reshuffled:    reshuffled,
		FrozenAt:      order.FrozenAt,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal ReviewFrozen payload: %w", err)
	}
	return a.outbox.InsertReviewFrozen(ctx, order.QuestionID, data)
}
