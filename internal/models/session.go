package models

import (
	"time"

	"github.com/google/uuid"
)

// Session represents one presenter-run lesson: an ordered set of questions
// with a single live question pointer.
type Session struct {
	ID                uuid.UUID  `json:"id"`
	PresenterID       string     `json:"presenter_id"`
	Name              string     `json:"name"`
	JoinCode          string     `json:"join_code"`
	CurrentQuestionID *uuid.UUID `json:"current_question_id,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}
