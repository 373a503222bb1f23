package models

import (
	"time"

	"github.com/google/uuid"
)

// ReviewOrder is a frozen randomized traversal over a question's responses.
// Once frozen it never changes until the presenter explicitly reshuffles;
// regenerating per navigation step would leak submission timing and break
// Prev/Next consistency.
type ReviewOrder struct {
	QuestionID  uuid.UUID   `json:"question_id"`
	ResponseIDs []uuid.UUID `json:"response_ids"`
	Seed        int64       `json:"seed"`
	FrozenAt    time.Time   `json:"frozen_at"`
}
