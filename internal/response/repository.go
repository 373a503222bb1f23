package response

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/SmartBoardPlus/EchoDraw/internal/models"
)

// pgUniqueViolation is the Postgres error code for unique_violation.
const pgUniqueViolation = "23505"

// Repository implements response data access over Postgres. The
// first-write-wins policy rests on the unique index over
// (question_id, participant_ref); a violation surfaces as
// ErrDuplicateSubmission.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new response repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const createResponseQuery = `
INSERT INTO responses (id, question_id, window_id, participant_ref, scene, origin)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, question_id, window_id, participant_ref, scene, origin, submitted_at`

// CreateResponse inserts a response; returns ErrDuplicateSubmission when the
// participant already holds the authoritative response for the question.
func (r *Repository) CreateResponse(ctx context.Context, req CreateResponseRequest) (*models.Response, error) {
	row := r.db.QueryRowContext(ctx, createResponseQuery,
		req.ID, req.QuestionID, req.WindowID, req.ParticipantRef, []byte(req.Scene), req.Origin)
	resp, err := scanResponse(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, ErrDuplicateSubmission
		}
		return nil, fmt.Errorf("failed to create response: %w", err)
	}
	return resp, nil
}

const getResponseQuery = `
SELECT id, question_id, window_id, participant_ref, scene, origin, submitted_at
FROM responses WHERE id = $1`

// GetResponse fetches a response by id.
func (r *Repository) GetResponse(ctx context.Context, id uuid.UUID) (*models.Response, error) {
	row := r.db.QueryRowContext(ctx, getResponseQuery, id)
	resp, err := scanResponse(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get response: %w", err)
	}
	return resp, nil
}

const listResponsesByQuestionQuery = `
SELECT id, question_id, window_id, participant_ref, scene, origin, submitted_at
FROM responses WHERE question_id = $1
ORDER BY submitted_at ASC, id ASC`

// ListResponsesByQuestion lists responses in stable audit order.
func (r *Repository) ListResponsesByQuestion(ctx context.Context, questionID uuid.UUID) ([]models.Response, error) {
	rows, err := r.db.QueryContext(ctx, listResponsesByQuestionQuery, questionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses: %w", err)
	}
	defer rows.Close()

	var responses []models.Response
	for rows.Next() {
		resp, err := scanResponse(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan response: %w", err)
		}
		responses = append(responses, *resp)
	}
	return responses, rows.Err()
}

const upsertSceneDraftQuery = `
INSERT INTO scene_drafts (window_id, question_id, participant_ref, scene, reported_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (window_id, participant_ref)
DO UPDATE SET scene = EXCLUDED.scene, reported_at = now()`

// UpsertSceneDraft stores the participant's latest in-progress scene.
func (r *Repository) UpsertSceneDraft(ctx context.Context, draft models.SceneDraft) error {
	_, err := r.db.ExecContext(ctx, upsertSceneDraftQuery,
		draft.WindowID, draft.QuestionID, draft.ParticipantRef, []byte(draft.Scene))
	if err != nil {
		return fmt.Errorf("failed to upsert scene draft: %w", err)
	}
	return nil
}

const listSceneDraftsByWindowQuery = `
SELECT window_id, question_id, participant_ref, scene, reported_at
FROM scene_drafts WHERE window_id = $1
ORDER BY reported_at ASC`

// ListSceneDraftsByWindow lists every draft reported for a window.
func (r *Repository) ListSceneDraftsByWindow(ctx context.Context, windowID uuid.UUID) ([]models.SceneDraft, error) {
	rows, err := r.db.QueryContext(ctx, listSceneDraftsByWindowQuery, windowID)
	if err != nil {
		return nil, fmt.Errorf("failed to list scene drafts: %w", err)
	}
	defer rows.Close()

	var drafts []models.SceneDraft
	for rows.Next() {
		var (
			d    models.SceneDraft
			blob []byte
		)
		if err := rows.Scan(&d.WindowID, &d.QuestionID, &d.ParticipantRef, &blob, &d.ReportedAt); err != nil {
			return nil, fmt.Errorf("failed to scan scene draft: %w", err)
		}
		d.Scene = json.RawMessage(blob)
		drafts = append(drafts, d)
	}
	return drafts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResponse(row rowScanner) (*models.Response, error) {
	var (
		resp models.Response
		blob []byte
	)
	err := row.Scan(
		&resp.ID,
		&resp.QuestionID,
		&resp.WindowID,
		&resp.ParticipantRef,
		&blob,
		&resp.Origin,
		&resp.SubmittedAt,
	)
	if err != nil {
		return nil, err
	}
	resp.Scene = json.RawMessage(blob)
	return &resp, nil
}
