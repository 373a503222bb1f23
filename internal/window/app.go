package window

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/SmartBoardPlus/EchoDraw/internal/events"
	"github.com/SmartBoardPlus/EchoDraw/internal/models"
)

// WindowRepository defines what the window app layer needs from the window
// repository
type WindowRepository interface {
	CreateWindow(ctx context.Context, req OpenWindowRequest) (*models.SubmissionWindow, error)
	GetWindow(ctx context.Context, id uuid.UUID) (*models.SubmissionWindow, error)
	GetLatestWindowByQuestion(ctx context.Context, questionID uuid.UUID) (*models.SubmissionWindow, error)
	GetOpenWindowBySession(ctx context.Context, sessionID uuid.UUID) (*models.SubmissionWindow, error)
	CloseWindow(ctx context.Context, id uuid.UUID, closedAt time.Time) (*models.SubmissionWindow, error)
	ExpireWindow(ctx context.Context, id uuid.UUID, expiredAt time.Time) (bool, error)
	FetchNextDeadline(ctx context.Context) (*NextDeadline, error)
	FetchWindowsDue(ctx context.Context, now time.Time, limit int32) ([]uuid.UUID, error)
}

// QuestionDirectory resolves a question to its owning session when a window
// opens.
type QuestionDirectory interface {
	GetQuestion(ctx context.Context, id uuid.UUID) (*models.Question, error)
}

// OutboxApp defines what the window app layer needs from the outbox
type OutboxApp interface {
	InsertWindowOpened(ctx context.Context, windowID uuid.UUID, payload []byte) error
	InsertWindowClosed(ctx context.Context, windowID uuid.UUID, payload []byte) error
}

// App handles the submission window state machine.
type App struct {
	repo      WindowRepository
	questions QuestionDirectory
	outbox    OutboxApp
	clock     clockwork.Clock
}

// NewApp creates a new window App using the real clock.
func NewApp(repo WindowRepository, questions QuestionDirectory, outbox OutboxApp) *App {
	return NewAppWithClock(repo, questions, outbox, clockwork.NewRealClock())
}

// NewAppWithClock creates a window App with an injected clock for tests.
func NewAppWithClock(repo WindowRepository, questions QuestionDirectory, outbox OutboxApp, clock clockwork.Clock) *App {
	return &App{
		repo:      repo,
		questions: questions,
		outbox:    outbox,
		clock:     clock,
	}
}

// Open opens a submission window for a question. A nil duration means the
// window is untimed and only an explicit Close ends collection. Fails with
// ErrWindowAlreadyOpen while the session has another open window; the caller
// must close that one first — the two operations stay decoupled on purpose.
func (a *App) Open(ctx context.Context, questionID uuid.UUID, durationSeconds *int) (*models.SubmissionWindow, error) {
	question, err := a.questions.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, fmt.Errorf("question not found: %w", err)
	}

	open, err := a.repo.GetOpenWindowBySession(ctx, question.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to check for open window: %w", err)
	}
	if open != nil {
		return nil, fmt.Errorf("%w: window %s for question %s", ErrWindowAlreadyOpen, open.ID, open.QuestionID)
	}

	if durationSeconds != nil && *durationSeconds <= 0 {
		return nil, fmt.Errorf("duration_seconds must be positive, got %d", *durationSeconds)
	}

	req := OpenWindowRequest{
		ID:              uuid.New(),
		QuestionID:      questionID,
		SessionID:       question.SessionID,
		DurationSeconds: durationSeconds,
	}
	if durationSeconds != nil {
		deadline := a.clock.Now().Add(time.Duration(*durationSeconds) * time.Second)
		req.Deadline = &deadline
	}

	w, err := a.repo.CreateWindow(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to open window: %w", err)
	}

	if err := a.emitWindowOpened(ctx, w); err != nil {
		log.Error().Err(err).Str("window_id", w.ID.String()).Msg("failed to emit WindowOpened event")
		// Don't fail the operation, just log
	}

	log.Info().
		Str("window_id", w.ID.String()).
		Str("question_id", questionID.String()).
		Str("session_id", question.SessionID.String()).
		Msg("opened submission window")
	return w, nil
}

// GetWindow retrieves a window by ID
func (a *App) GetWindow(ctx context.Context, id uuid.UUID) (*models.SubmissionWindow, error) {
	w, err := a.repo.GetWindow(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get window: %w", err)
	}
	return w, nil
}

// Describe returns the client-facing view of a question's latest window.
// Remaining time is recomputed from the deadline on every call; a suspended
// client tab or clock drift can never make it fire early or twice.
func (a *App) Describe(ctx context.Context, questionID uuid.UUID) (*Description, error) {
	w, err := a.repo.GetLatestWindowByQuestion(ctx, questionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoWindow, err)
	}

	desc := &Description{
		WindowID:        w.ID,
		QuestionID:      w.QuestionID,
		State:           string(w.State),
		OpenedAt:        w.OpenedAt,
		DurationSeconds: w.DurationSeconds,
		Deadline:        w.Deadline,
	}
	if remaining, ok := w.Remaining(a.clock.Now()); ok {
		secs := int(remaining / time.Second)
		desc.RemainingSeconds = &secs
	}
	return desc, nil
}

// WindowForSubmission resolves the window a submission for questionID binds
// to, enforcing the authoritative cutoff: CLOSED (or never opened) rejects
// with ErrWindowClosed; OPEN and EXPIRED both still accept.
func (a *App) WindowForSubmission(ctx context.Context, questionID uuid.UUID) (*models.SubmissionWindow, error) {
	w, err := a.repo.GetLatestWindowByQuestion(ctx, questionID)
	if err != nil {
		return nil, fmt.Errorf("%w: no window ever opened", ErrWindowClosed)
	}
	if !w.Accepting() {
		return nil, ErrWindowClosed
	}
	return w, nil
}

// Close ends collection for a window. Valid from OPEN or EXPIRED and
// irreversible; closing an already closed window is a no-op so presenter
// retries stay safe.
func (a *App) Close(ctx context.Context, id uuid.UUID) (*models.SubmissionWindow, error) {
	w, err := a.repo.GetWindow(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("window not found: %w", err)
	}
	if w.State == models.WindowStateClosed {
		return w, nil
	}

	closed, err := a.repo.CloseWindow(ctx, id, a.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to close window: %w", err)
	}

	if err := a.emitWindowClosed(ctx, closed); err != nil {
		log.Error().Err(err).Str("window_id", id.String()).Msg("failed to emit WindowClosed event")
	}

	log.Info().
		Str("window_id", id.String()).
		Str("question_id", closed.QuestionID.String()).
		Msg("closed submission window")
	return closed, nil
}

// Expire performs the compare-and-set OPEN→EXPIRED transition. It reports
// whether this call actually performed the transition, which is how expiry
// side effects fire exactly once no matter how many ticks observe a zero
// remaining time.
func (a *App) Expire(ctx context.Context, id uuid.UUID) (bool, error) {
	expired, err := a.repo.ExpireWindow(ctx, id, a.clock.Now())
	if err != nil {
		return false, fmt.Errorf("failed to expire window: %w", err)
	}
	return expired, nil
}

// FetchNextDeadline returns the earliest open-window deadline, for the
// orchestrator's sleep loop. Nil with no error means no timed window is open.
func (a *App) FetchNextDeadline(ctx context.Context) (*NextDeadline, error) {
	nd, err := a.repo.FetchNextDeadline(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch next deadline: %w", err)
	}
	return nd, nil
}

// FetchWindowsDue returns open windows whose deadline has passed.
func (a *App) FetchWindowsDue(ctx context.Context, limit int32) ([]uuid.UUID, error) {
	return a.repo.FetchWindowsDue(ctx, a.clock.Now(), limit)
}

func (a *App) emitWindowOpened(ctx context.Context, w *models.SubmissionWindow) error {
	payload := events.WindowOpenedPayload{
		WindowID:        w.ID.String(),
		QuestionID:      w.QuestionID.String(),
		SessionID:       w.SessionID.String(),
		OpenedAt:        w.OpenedAt,
		DurationSeconds: w.DurationSeconds,
		Deadline:        w.Deadline,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal WindowOpened payload: %w", err)
	}
	return a.outbox.InsertWindowOpened(ctx, w.ID, data)
}

func (a *App) emitWindowClosed(ctx context.Context, w *models.SubmissionWindow) error {
	payload := events.WindowClosedPayload{
		WindowID:   w.ID.String(),
		QuestionID: w.QuestionID.String(),
		SessionID:  w.SessionID.String(),
		ClosedAt:   a.clock.Now(),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal WindowClosed payload: %w", err)
	}
	return a.outbox.InsertWindowClosed(ctx, w.ID, data)
}
