package events

import (
	"time"
)

// Event payload types shared between the domain apps, the orchestrator and
// the outbox relay

// WindowOpenedPayload is the payload for a WindowOpened event
type WindowOpenedPayload struct {
	WindowID        string     `json:"window_id"`
	QuestionID      string     `json:"question_id"`
	SessionID       string     `json:"session_id"`
	OpenedAt        time.Time  `json:"opened_at"`
	DurationSeconds *int       `json:"duration_seconds,omitempty"`
	Deadline        *time.Time `json:"deadline,omitempty"`
}

// WindowExpiredPayload is the payload for a WindowExpired event
type WindowExpiredPayload struct {
	WindowID       string    `json:"window_id"`
	QuestionID     string    `json:"question_id"`
	SessionID      string    `json:"session_id"`
	ExpiredAt      time.Time `json:"expired_at"`
	AutoSubmitted  int       `json:"auto_submitted"`
	DraftsConsumed int       `json:"drafts_consumed"`
}

// WindowClosedPayload is the payload for a WindowClosed event
type WindowClosedPayload struct {
	WindowID   string    `json:"window_id"`
	QuestionID string    `json:"question_id"`
	SessionID  string    `json:"session_id"`
	ClosedAt   time.Time `json:"closed_at"`
}

// ResponseSubmittedPayload is the payload for a ResponseSubmitted event
type ResponseSubmittedPayload struct {
	ResponseID  string    `json:"response_id"`
	QuestionID  string    `json:"question_id"`
	WindowID    string    `json:"window_id"`
	Origin      string    `json:"origin"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// ReviewFrozenPayload is the payload for a ReviewFrozen event
type ReviewFrozenPayload struct {
	QuestionID    string    `json:"question_id"`
	ResponseCount int       `json:"response_count"`
	Reshuffled    bool      `json:"reshuffled"`
	FrozenAt      time.Time `json:"frozen_at"`
}
