package window

import (
	"time"

	"github.com/google/uuid"
)

// OpenWindowRequest represents a request to open a submission window
type OpenWindowRequest struct {
	ID              uuid.UUID  `json:"id"`
	QuestionID      uuid.UUID  `json:"question_id"`
	SessionID       uuid.UUID  `json:"session_id"`
	DurationSeconds *int       `json:"duration_seconds"`
	Deadline        *time.Time `json:"deadline"`
}

// NextDeadline is the earliest open-window deadline across all sessions,
// what the orchestrator sleeps against.
type NextDeadline struct {
	WindowID uuid.UUID  `json:"window_id"`
	Deadline *time.Time `json:"deadline"`
}

// Description is the client-facing view of a window: enough for a
// participant to run its own countdown from the same opened_at/duration pair.
type Description struct {
	WindowID         uuid.UUID  `json:"window_id"`
	QuestionID       uuid.UUID  `json:"question_id"`
	State            string     `json:"state"`
	OpenedAt         time.Time  `json:"opened_at"`
	DurationSeconds  *int       `json:"duration_seconds"`
	Deadline         *time.Time `json:"deadline,omitempty"`
	RemainingSeconds *int       `json:"remaining_seconds,omitempty"`
}
