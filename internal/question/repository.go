package question

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/SmartBoardPlus/EchoDraw/internal/models"
	"github.com/SmartBoardPlus/EchoDraw/internal/sqlutil"
)

// Repository implements question data access over Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new question repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const lockSessionQuery = `
SELECT 1 FROM sessions WHERE id = $1 FOR UPDATE`

const createQuestionQuery = `
INSERT INTO questions (id, session_id, text, seed_scene, position)
VALUES ($1, $2, $3, $4,
	(SELECT COALESCE(MAX(position), 0) + 1 FROM questions WHERE session_id = $2))
RETURNING id, session_id, text, seed_scene, position, created_at, updated_at`

// CreateQuestion appends a question at the end of the session's sequence.
// Runs in a transaction that locks the session row, so two concurrent
// appends cannot compute the same position.
func (r *Repository) CreateQuestion(ctx context.Context, req CreateQuestionRequest) (*models.Question, error) {
	var seed any
	if len(req.SeedScene) > 0 {
		seed = []byte(req.SeedScene)
	}

	var q *models.Question
	err := sqlutil.Run(ctx, r.db, func(tx *sql.Tx) error {
		var one int
		if err := tx.QueryRowContext(ctx, lockSessionQuery, req.SessionID).Scan(&one); err != nil {
			return fmt.Errorf("session not found: %w", err)
		}
		row := tx.QueryRowContext(ctx, createQuestionQuery, req.ID, req.SessionID, req.Text, seed)
		var err error
		q, err = scanQuestion(row)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}
	return q, nil
}

const getQuestionQuery = `
SELECT id, session_id, text, seed_scene, position, created_at, updated_at
FROM questions WHERE id = $1`

// GetQuestion fetches a question by id.
func (r *Repository) GetQuestion(ctx context.Context, id uuid.UUID) (*models.Question, error) {
	row := r.db.QueryRowContext(ctx, getQuestionQuery, id)
	q, err := scanQuestion(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	return q, nil
}

const listQuestionsBySessionQuery = `
SELECT id, session_id, text, seed_scene, position, created_at, updated_at
FROM questions WHERE session_id = $1
ORDER BY position ASC`

// ListQuestionsBySession lists questions in sequence order.
func (r *Repository) ListQuestionsBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Question, error) {
	rows, err := r.db.QueryContext(ctx, listQuestionsBySessionQuery, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	defer rows.Close()

	var questions []models.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		questions = append(questions, *q)
	}
	return questions, rows.Err()
}

const updateQuestionTextQuery = `
UPDATE questions SET text = $2, updated_at = now()
WHERE id = $1
RETURNING id, session_id, text, seed_scene, position, created_at, updated_at`

// UpdateQuestionText edits the prompt text.
func (r *Repository) UpdateQuestionText(ctx context.Context, id uuid.UUID, text string) (*models.Question, error) {
	row := r.db.QueryRowContext(ctx, updateQuestionTextQuery, id, text)
	q, err := scanQuestion(row)
	if err != nil {
		return nil, fmt.Errorf("failed to update question text: %w", err)
	}
	return q, nil
}

const updateSeedSceneQuery = `
UPDATE questions SET seed_scene = $2, updated_at = now()
WHERE id = $1
RETURNING id, session_id, text, seed_scene, position, created_at, updated_at`

// UpdateSeedScene replaces the presenter's starting canvas.
func (r *Repository) UpdateSeedScene(ctx context.Context, id uuid.UUID, seedScene json.RawMessage) (*models.Question, error) {
	row := r.db.QueryRowContext(ctx, updateSeedSceneQuery, id, []byte(seedScene))
	q, err := scanQuestion(row)
	if err != nil {
		return nil, fmt.Errorf("failed to update seed scene: %w", err)
	}
	return q, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row rowScanner) (*models.Question, error) {
	var (
		q    models.Question
		seed []byte
	)
	err := row.Scan(
		&q.ID,
		&q.SessionID,
		&q.Text,
		&seed,
		&q.Position,
		&q.CreatedAt,
		&q.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(seed) > 0 {
		q.SeedScene = json.RawMessage(seed)
	}
	return &q, nil
}
