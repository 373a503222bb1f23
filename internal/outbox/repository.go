package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Repository implements outbox persistence over Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new outbox repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const insertOutboxEventQuery = `
INSERT INTO outbox_events (id, entity_id, event_type, payload)
VALUES ($1, $2, $3, $4)`

func (r *Repository) insertEvent(ctx context.Context, eventType string, entityID uuid.UUID, payload []byte) error {
	_, err := r.db.ExecContext(ctx, insertOutboxEventQuery, uuid.New(), entityID, eventType, payload)
	if err != nil {
		return fmt.Errorf("failed to insert %s outbox event: %w", eventType, err)
	}
	return nil
}

// InsertWindowOpened records a WindowOpened event for relay.
func (r *Repository) InsertWindowOpened(ctx context.Context, windowID uuid.UUID, payload []byte) error {
	return r.insertEvent(ctx, EventWindowOpened, windowID, payload)
}

// InsertWindowExpired records a WindowExpired event for relay.
func (r *Repository) InsertWindowExpired(ctx context.Context, windowID uuid.UUID, payload []byte) error {
	return r.insertEvent(ctx, EventWindowExpired, windowID, payload)
}

// InsertWindowClosed records a WindowClosed event for relay.
func (r *Repository) InsertWindowClosed(ctx context.Context, windowID uuid.UUID, payload []byte) error {
	return r.insertEvent(ctx, EventWindowClosed, windowID, payload)
}

// InsertResponseSubmitted records a ResponseSubmitted event for relay.
func (r *Repository) InsertResponseSubmitted(ctx context.Context, responseID uuid.UUID, payload []byte) error {
	return r.insertEvent(ctx, EventResponseSubmitted, responseID, payload)
}

// InsertReviewFrozen records a ReviewFrozen event for relay.
func (r *Repository) InsertReviewFrozen(ctx context.Context, questionID uuid.UUID, payload []byte) error {
	return r.insertEvent(ctx, EventReviewFrozen, questionID, payload)
}

const fetchUnsentOutboxQuery = `
SELECT id, entity_id, event_type, payload, created_at
FROM outbox_events
WHERE sent_at IS NULL
ORDER BY created_at ASC
LIMIT $1`

// FetchUnsentOutbox returns the oldest unrelayed events.
func (r *Repository) FetchUnsentOutbox(ctx context.Context, limit int32) ([]OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx, fetchUnsentOutboxQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unsent outbox events: %w", err)
	}
	defer rows.Close()

	var eventList []OutboxEvent
	for rows.Next() {
		var (
			event OutboxEvent
			blob  []byte
		)
		if err := rows.Scan(&event.ID, &event.EntityID, &event.EventType, &blob, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		event.Payload = json.RawMessage(blob)
		eventList = append(eventList, event)
	}
	return eventList, rows.Err()
}

const markOutboxSentQuery = `
UPDATE outbox_events SET sent_at = now() WHERE id = $1`

// MarkOutboxSent marks an event as relayed.
func (r *Repository) MarkOutboxSent(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, markOutboxSentQuery, id); err != nil {
		return fmt.Errorf("failed to mark outbox event as sent: %w", err)
	}
	return nil
}
