package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types relayed through the outbox.
const (
	EventWindowOpened      = "WindowOpened"
	EventWindowExpired     = "WindowExpired"
	EventWindowClosed      = "WindowClosed"
	EventResponseSubmitted = "ResponseSubmitted"
	EventReviewFrozen      = "ReviewFrozen"
)

// OutboxEvent represents an outbox event for the application layer. EntityID
// is the id of the window, response or question the event is about.
type OutboxEvent struct {
	ID        uuid.UUID       `json:"id"`
	EntityID  uuid.UUID       `json:"entity_id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	SentAt    *time.Time      `json:"sent_at,omitempty"`
}

// EventPublisher delivers relayed events to the message bus.
type EventPublisher interface {
	Publish(ctx context.Context, event OutboxEvent) error
}
