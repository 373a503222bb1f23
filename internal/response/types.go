package response

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/SmartBoardPlus/EchoDraw/internal/models"
)

// SubmitRequest represents a submission attempt. QuestionID is the question
// identity the client captured when its window opened — never the session's
// current question at submit time.
type SubmitRequest struct {
	QuestionID     uuid.UUID       `json:"question_id"`
	ParticipantRef string          `json:"participant_ref,omitempty"`
	Scene          json.RawMessage `json:"scene"`
}

// CreateResponseRequest is the repository-level insert shape, post-codec.
type CreateResponseRequest struct {
	ID             uuid.UUID             `json:"id"`
	QuestionID     uuid.UUID             `json:"question_id"`
	WindowID       uuid.UUID             `json:"window_id"`
	ParticipantRef string                `json:"participant_ref"`
	Scene          json.RawMessage       `json:"scene"`
	Origin         models.ResponseOrigin `json:"origin"`
}
