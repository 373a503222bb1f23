package review

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/SmartBoardPlus/EchoDraw/internal/models"
)

// Repository implements review order persistence over Postgres. The ordered
// id list is stored as a JSONB array; order of array elements is the frozen
// traversal order.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new review repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const getReviewOrderQuery = `
SELECT question_id, response_ids, seed, frozen_at
FROM review_orders WHERE question_id = $1`

// GetReviewOrder fetches the frozen order for a question, sql.ErrNoRows when
// none was frozen yet.
func (r *Repository) GetReviewOrder(ctx context.Context, questionID uuid.UUID) (*models.ReviewOrder, error) {
	var (
		order models.ReviewOrder
		blob  []byte
	)
	err := r.db.QueryRowContext(ctx, getReviewOrderQuery, questionID).
		Scan(&order.QuestionID, &blob, &order.Seed, &order.FrozenAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(blob, &order.ResponseIDs); err != nil {
		return nil, fmt.Errorf("failed to decode response ids: %w", err)
	}
	return &order, nil
}

const saveReviewOrderQuery = `
INSERT INTO review_orders (question_id, response_ids, seed, frozen_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (question_id)
DO UPDATE SET response_ids = EXCLUDED.response_ids, seed = EXCLUDED.seed, frozen_at = now()
RETURNING question_id, response_ids, seed, frozen_at`

// SaveReviewOrder stores (or replaces, on reshuffle) the frozen order.
func (r *Repository) SaveReviewOrder(ctx context.Context, order models.ReviewOrder) (*models.ReviewOrder, error) {
	ids, err := json.Marshal(order.ResponseIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response ids: %w", err)
	}

	var (
		saved models.ReviewOrder
		blob  []byte
	)
	err = r.db.QueryRowContext(ctx, saveReviewOrderQuery, order.QuestionID, ids, order.Seed).
		Scan(&saved.QuestionID, &blob, &saved.Seed, &saved.FrozenAt)
	if err != nil {
		return nil, fmt.Errorf("failed to save review order: %w", err)
	}
	if err := json.Unmarshal(blob, &saved.ResponseIDs); err != nil {
		return nil, fmt.Errorf("failed to decode response ids: %w", err)
	}
	return &saved, nil
}
