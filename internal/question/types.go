package question

import (
	"encoding/json"

	"github.com/google/uuid"
)

// CreateQuestionRequest represents a request to create a new question
type CreateQuestionRequest struct {
	ID        uuid.UUID       `json:"id"`
	SessionID uuid.UUID       `json:"session_id"`
	Text      string          `json:"text"`
	SeedScene json.RawMessage `json:"seed_scene,omitempty"`
}
