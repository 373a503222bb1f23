package session

import (
	"github.com/google/uuid"
)

// CreateSessionRequest represents a request to create a new session
type CreateSessionRequest struct {
	ID          uuid.UUID `json:"id"`
	PresenterID string    `json:"presenter_id"`
	Name        string    `json:"name"`
	JoinCode    string    `json:"join_code"`
}

// RenameSessionRequest represents a request to rename a session
type RenameSessionRequest struct {
	Name string `json:"name"`
}
