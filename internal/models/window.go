package models

import (
	"time"

	"github.com/google/uuid"
)

// WindowState defines the lifecycle state of a submission window.
type WindowState string

const (
	WindowStateOpen    WindowState = "OPEN"
	WindowStateExpired WindowState = "EXPIRED"
	WindowStateClosed  WindowState = "CLOSED"
)

// SubmissionWindow is the interval during which responses to one question are
// accepted. Deadline is opened_at + duration for timed windows and nil for
// untimed ones; remaining time is always recomputed from the deadline, never
// counted down.
type SubmissionWindow struct {
	ID              uuid.UUID   `json:"id"`
	QuestionID      uuid.UUID   `json:"question_id"`
	SessionID       uuid.UUID   `json:"session_id"`
	State           WindowState `json:"state"`
	OpenedAt        time.Time   `json:"opened_at"`
	DurationSeconds *int        `json:"duration_seconds,omitempty"`
	Deadline        *time.Time  `json:"deadline,omitempty"`
	ExpiredAt       *time.Time  `json:"expired_at,omitempty"`
	ClosedAt        *time.Time  `json:"closed_at,omitempty"`
}

// Timed reports whether the window self-expires at its deadline.
func (w *SubmissionWindow) Timed() bool {
	return w.Deadline != nil
}

// Accepting reports whether the window still accepts writes. EXPIRED windows
// keep accepting so that a manual submit racing the expiry sweep lands; only
// CLOSED is the authoritative cutoff.
func (w *SubmissionWindow) Accepting() bool {
	return w.State == WindowStateOpen || w.State == WindowStateExpired
}

// Remaining returns the time left until the deadline as observed at now,
// clamped at zero. Untimed windows report zero remaining and ok=false.
func (w *SubmissionWindow) Remaining(now time.Time) (time.Duration, bool) {
	if w.Deadline == nil {
		return 0, false
	}
	left := w.Deadline.Sub(now)
	if left < 0 {
		left = 0
	}
	return left, true
}
