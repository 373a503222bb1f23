package response

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/SmartBoardPlus/EchoDraw/internal/events"
	"github.com/SmartBoardPlus/EchoDraw/internal/models"
	"github.com/SmartBoardPlus/EchoDraw/internal/scene"
)

// ResponseRepository defines what the response app layer needs from the
// response repository
type ResponseRepository interface {
	CreateResponse(ctx context.Context, req CreateResponseRequest) (*models.Response, error)
	GetResponse(ctx context.Context, id uuid.UUID) (*models.Response, error)
	ListResponsesByQuestion(ctx context.Context, questionID uuid.UUID) ([]models.Response, error)
	UpsertSceneDraft(ctx context.Context, draft models.SceneDraft) error
	ListSceneDraftsByWindow(ctx context.Context, windowID uuid.UUID) ([]models.SceneDraft, error)
}

// WindowApp defines what the collector needs from the window app: resolving
// the window a submission binds to and loading a window by id for the
// expiry path.
type WindowApp interface {
	WindowForSubmission(ctx context.Context, questionID uuid.UUID) (*models.SubmissionWindow, error)
	GetWindow(ctx context.Context, id uuid.UUID) (*models.SubmissionWindow, error)
}

// OutboxApp defines what the response app layer needs from the outbox
type OutboxApp interface {
	InsertResponseSubmitted(ctx context.Context, responseID uuid.UUID, payload []byte) error
}

// App is the response collector: at most one authoritative response per
// participant per question, always bound to the window's frozen question
// identity.
type App struct {
	repo    ResponseRepository
	windows WindowApp
	outbox  OutboxApp
}

// NewApp creates a new response App
func NewApp(repo ResponseRepository, windows WindowApp, outbox OutboxApp) *App {
	return &App{
		repo:    repo,
		windows: windows,
		outbox:  outbox,
	}
}

// Submit accepts a response for the question's window. Rejections:
// window.ErrWindowClosed, ErrDuplicateSubmission, scene.ErrInvalidScene —
// each a distinguishable outcome, never silently converted to a default.
func (a *App) Submit(ctx context.Context, req SubmitRequest) (*models.Response, error) {
	clean, err := scene.SanitizeToJSON(req.Scene)
	if err != nil {
		return nil, err
	}

	w, err := a.windows.WindowForSubmission(ctx, req.QuestionID)
	if err != nil {
		return nil, err
	}

	participantRef := strings.TrimSpace(req.ParticipantRef)
	if participantRef == "" {
		// Anonymous slot: distinct per submission, like the original's
		// null student_id. First-write-wins cannot apply without a
		// stable ref, so each anonymous submit stands on its own.
		participantRef = "anon-" + uuid.NewString()
	}

	// Bind to the window's frozen question id, not the id the caller sent
	// and certainly not the session's current question.
	resp, err := a.repo.CreateResponse(ctx, CreateResponseRequest{
		ID:             uuid.New(),
		QuestionID:     w.QuestionID,
		WindowID:       w.ID,
		ParticipantRef: participantRef,
		Scene:          clean,
		// Callers never choose the origin; AUTO_EXPIRY is minted only by
		// the expiry sweep.
		Origin: models.OriginManual,
	})
	if err != nil {
		return nil, err
	}

	if err := a.emitResponseSubmitted(ctx, resp); err != nil {
		log.Error().Err(err).Str("response_id", resp.ID.String()).Msg("failed to emit ResponseSubmitted event")
		// Don't fail the operation, just log
	}

	log.Info().
		Str("response_id", resp.ID.String()).
		Str("question_id", resp.QuestionID.String()).
		Str("origin", string(resp.Origin)).
		Msg("recorded response")
	return resp, nil
}

// ReportDraft checkpoints a participant's in-progress scene against the
// question's window, so expiry can auto-submit it. Requires a stable
// participant ref; an anonymous client that never reports simply has nothing
// to auto-submit.
func (a *App) ReportDraft(ctx context.Context, questionID uuid.UUID, participantRef string, raw json.RawMessage) error {
	participantRef = strings.TrimSpace(participantRef)
	if participantRef == "" {
		return fmt.Errorf("participant_ref is required for draft reporting")
	}

	clean, err := scene.SanitizeToJSON(raw)
	if err != nil {
		return err
	}

	w, err := a.windows.WindowForSubmission(ctx, questionID)
	if err != nil {
		return err
	}

	return a.repo.UpsertSceneDraft(ctx, models.SceneDraft{
		WindowID:       w.ID,
		QuestionID:     w.QuestionID,
		ParticipantRef: participantRef,
		Scene:          clean,
	})
}

// AutoSubmitDrafts records an AUTO_EXPIRY response for every participant who
// reported a draft for the window but has no authoritative response yet.
// Returns how many responses were created and how many drafts existed. A
// participant who never reported a scene gets no response at all — absence,
// distinguishable from an empty drawing.
func (a *App) AutoSubmitDrafts(ctx context.Context, windowID uuid.UUID) (int, int, error) {
	w, err := a.windows.GetWindow(ctx, windowID)
	if err != nil {
		return 0, 0, fmt.Errorf("window not found: %w", err)
	}

	drafts, err := a.repo.ListSceneDraftsByWindow(ctx, windowID)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list scene drafts: %w", err)
	}

	submitted := 0
	for _, draft := range drafts {
		resp, err := a.repo.CreateResponse(ctx, CreateResponseRequest{
			ID:             uuid.New(),
			QuestionID:     w.QuestionID,
			WindowID:       w.ID,
			ParticipantRef: draft.ParticipantRef,
			Scene:          draft.Scene,
			Origin:         models.OriginAutoExpiry,
		})
		if err != nil {
			if errors.Is(err, ErrDuplicateSubmission) {
				// Participant submitted manually before the sweep.
				continue
			}
			return submitted, len(drafts), fmt.Errorf("failed to auto-submit draft for %s: %w", draft.ParticipantRef, err)
		}
		submitted++

		if err := a.emitResponseSubmitted(ctx, resp); err != nil {
			log.Error().Err(err).Str("response_id", resp.ID.String()).Msg("failed to emit ResponseSubmitted event")
		}
	}

	log.Info().
		Str("window_id", windowID.String()).
		Int("drafts", len(drafts)).
		Int("auto_submitted", submitted).
		Msg("auto-submitted drafts on expiry")
	return submitted, len(drafts), nil
}

// GetResponse retrieves a response by ID
func (a *App) GetResponse(ctx context.Context, id uuid.UUID) (*models.Response, error) {
	resp, err := a.repo.GetResponse(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get response: %w", err)
	}
	return resp, nil
}

// ListByQuestion lists a question's responses in audit order
// (submitted_at, id) — never the shuffled review order.
func (a *App) ListByQuestion(ctx context.Context, questionID uuid.UUID) ([]models.Response, error) {
	responses, err := a.repo.ListResponsesByQuestion(ctx, questionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses: %w", err)
	}
	return responses, nil
}

func (a *App) emitResponseSubmitted(ctx context.Context, resp *models.Response) error {
	payload := events.ResponseSubmittedPayload{
		ResponseID:  resp.ID.String(),
		QuestionID:  resp.QuestionID.String(),
		WindowID:    resp.WindowID.String(),
		Origin:      string(resp.Origin),
		SubmittedAt: resp.SubmittedAt,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal ResponseSubmitted payload: %w", err)
	}
	return a.outbox.InsertResponseSubmitted(ctx, resp.ID, data)
}
