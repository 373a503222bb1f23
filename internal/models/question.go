package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Question is a single prompt inside a session. Position fixes its place in
// the sequence; text and the presenter's seed scene stay editable, everything
// else is immutable after creation.
type Question struct {
	ID        uuid.UUID       `json:"id"`
	SessionID uuid.UUID       `json:"session_id"`
	Text      string          `json:"text"`
	SeedScene json.RawMessage `json:"seed_scene,omitempty"`
	Position  int             `json:"position"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
