package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ResponseOrigin defines how a response came to exist.
type ResponseOrigin string

const (
	OriginManual     ResponseOrigin = "MANUAL"
	OriginAutoExpiry ResponseOrigin = "AUTO_EXPIRY"
)

// Response is a participant's persisted answer for one question. QuestionID
// is copied from the window that was open when the participant started, never
// re-read from the session's current question at submit time.
type Response struct {
	ID             uuid.UUID       `json:"id"`
	QuestionID     uuid.UUID       `json:"question_id"`
	WindowID       uuid.UUID       `json:"window_id"`
	ParticipantRef string          `json:"participant_ref"`
	Scene          json.RawMessage `json:"scene"`
	Origin         ResponseOrigin  `json:"origin"`
	SubmittedAt    time.Time       `json:"submitted_at"`
}

// SceneDraft is the latest in-progress scene a participant reported for a
// window. It exists so expiry can auto-submit on the participant's behalf;
// no draft row means no auto-response (absence, not an empty drawing).
type SceneDraft struct {
	WindowID       uuid.UUID       `json:"window_id"`
	QuestionID     uuid.UUID       `json:"question_id"`
	ParticipantRef string          `json:"participant_ref"`
	Scene          json.RawMessage `json:"scene"`
	ReportedAt     time.Time       `json:"reported_at"`
}
