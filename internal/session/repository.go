package session

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/SmartBoardPlus/EchoDraw/internal/models"
	"github.com/SmartBoardPlus/EchoDraw/internal/sqlutil"
)

// Repository implements session data access over Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new session repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const createSessionQuery = `
INSERT INTO sessions (id, presenter_id, name, join_code)
VALUES ($1, $2, $3, $4)
RETURNING id, presenter_id, name, join_code, current_question_id, created_at, updated_at`

// CreateSession inserts a new session row.
func (r *Repository) CreateSession(ctx context.Context, req CreateSessionRequest) (*models.Session, error) {
	row := r.db.QueryRowContext(ctx, createSessionQuery, req.ID, req.PresenterID, req.Name, req.JoinCode)
	sess, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return sess, nil
}

const getSessionQuery = `
SELECT id, presenter_id, name, join_code, current_question_id, created_at, updated_at
FROM sessions WHERE id = $1`

// GetSession fetches a session by id.
func (r *Repository) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	row := r.db.QueryRowContext(ctx, getSessionQuery, id)
	sess, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return sess, nil
}

const getSessionByJoinCodeQuery = `
SELECT id, presenter_id, name, join_code, current_question_id, created_at, updated_at
FROM sessions WHERE join_code = $1`

// GetSessionByJoinCode fetches a session by its short join code.
func (r *Repository) GetSessionByJoinCode(ctx context.Context, code string) (*models.Session, error) {
	row := r.db.QueryRowContext(ctx, getSessionByJoinCodeQuery, code)
	sess, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get session by join code: %w", err)
	}
	return sess, nil
}

const listSessionsByPresenterQuery = `
SELECT id, presenter_id, name, join_code, current_question_id, created_at, updated_at
FROM sessions WHERE presenter_id = $1
ORDER BY created_at DESC`

// ListSessionsByPresenter lists a presenter's sessions, newest first.
func (r *Repository) ListSessionsByPresenter(ctx context.Context, presenterID string) ([]models.Session, error) {
	rows, err := r.db.QueryContext(ctx, listSessionsByPresenterQuery, presenterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, *sess)
	}
	return sessions, rows.Err()
}

const renameSessionQuery = `
UPDATE sessions SET name = $2, updated_at = now()
WHERE id = $1
RETURNING id, presenter_id, name, join_code, current_question_id, created_at, updated_at`

// RenameSession updates the display name.
func (r *Repository) RenameSession(ctx context.Context, id uuid.UUID, name string) (*models.Session, error) {
	row := r.db.QueryRowContext(ctx, renameSessionQuery, id, name)
	sess, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("failed to rename session: %w", err)
	}
	return sess, nil
}

const setCurrentQuestionQuery = `
UPDATE sessions SET current_question_id = $2, updated_at = now()
WHERE id = $1
RETURNING id, presenter_id, name, join_code, current_question_id, created_at, updated_at`

// SetCurrentQuestion moves the current question pointer.
func (r *Repository) SetCurrentQuestion(ctx context.Context, id uuid.UUID, questionID uuid.UUID) (*models.Session, error) {
	row := r.db.QueryRowContext(ctx, setCurrentQuestionQuery, id, questionID)
	sess, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("failed to set current question: %w", err)
	}
	return sess, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var (
		sess      models.Session
		currentID uuid.NullUUID
	)
	err := row.Scan(
		&sess.ID,
		&sess.PresenterID,
		&sess.Name,
		&sess.JoinCode,
		&currentID,
		&sess.CreatedAt,
		&sess.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	sess.CurrentQuestionID = sqlutil.FromNullUUID(currentID)
	return &sess, nil
}
