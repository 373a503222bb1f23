package window

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/SmartBoardPlus/EchoDraw/internal/models"
	"github.com/SmartBoardPlus/EchoDraw/internal/sqlutil"
)

// Repository implements window data access over Postgres. The ≤1 open window
// per session invariant is backed by a partial unique index on
// (session_id) WHERE state = 'OPEN' (see schema.sql); the app-layer check is
// what produces the friendly error, the index is what holds under races.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new window repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const createWindowQuery = `
INSERT INTO submission_windows (id, question_id, session_id, state, duration_seconds, deadline)
VALUES ($1, $2, $3, 'OPEN', $4, $5)
RETURNING id, question_id, session_id, state, opened_at, duration_seconds, deadline, expired_at, closed_at`

// CreateWindow inserts a new OPEN window.
func (r *Repository) CreateWindow(ctx context.Context, req OpenWindowRequest) (*models.SubmissionWindow, error) {
	row := r.db.QueryRowContext(ctx, createWindowQuery,
		req.ID, req.QuestionID, req.SessionID,
		sqlutil.ToSqlInt32(req.DurationSeconds), sqlutil.ToSqlTime(req.Deadline))
	w, err := scanWindow(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}
	return w, nil
}

const getWindowQuery = `
SELECT id, question_id, session_id, state, opened_at, duration_seconds, deadline, expired_at, closed_at
FROM submission_windows WHERE id = $1`

// GetWindow fetches a window by id.
func (r *Repository) GetWindow(ctx context.Context, id uuid.UUID) (*models.SubmissionWindow, error) {
	row := r.db.QueryRowContext(ctx, getWindowQuery, id)
	w, err := scanWindow(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get window: %w", err)
	}
	return w, nil
}

const getLatestWindowByQuestionQuery = `
SELECT id, question_id, session_id, state, opened_at, duration_seconds, deadline, expired_at, closed_at
FROM submission_windows WHERE question_id = $1
ORDER BY opened_at DESC
LIMIT 1`

// GetLatestWindowByQuestion fetches the most recent window for a question.
func (r *Repository) GetLatestWindowByQuestion(ctx context.Context, questionID uuid.UUID) (*models.SubmissionWindow, error) {
	row := r.db.QueryRowContext(ctx, getLatestWindowByQuestionQuery, questionID)
	w, err := scanWindow(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest window: %w", err)
	}
	return w, nil
}

const getOpenWindowBySessionQuery = `
SELECT id, question_id, session_id, state, opened_at, duration_seconds, deadline, expired_at, closed_at
FROM submission_windows WHERE session_id = $1 AND state = 'OPEN'`

// GetOpenWindowBySession fetches the session's open window, nil when none.
func (r *Repository) GetOpenWindowBySession(ctx context.Context, sessionID uuid.UUID) (*models.SubmissionWindow, error) {
	row := r.db.QueryRowContext(ctx, getOpenWindowBySessionQuery, sessionID)
	w, err := scanWindow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get open window: %w", err)
	}
	return w, nil
}

const closeWindowQuery = `
UPDATE submission_windows SET state = 'CLOSED', closed_at = $2
WHERE id = $1 AND state IN ('OPEN', 'EXPIRED')
RETURNING id, question_id, session_id, state, opened_at, duration_seconds, deadline, expired_at, closed_at`

// CloseWindow transitions OPEN|EXPIRED → CLOSED.
func (r *Repository) CloseWindow(ctx context.Context, id uuid.UUID, closedAt time.Time) (*models.SubmissionWindow, error) {
	row := r.db.QueryRowContext(ctx, closeWindowQuery, id, closedAt)
	w, err := scanWindow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Lost the race with another close; read back the final state.
			return r.GetWindow(ctx, id)
		}
		return nil, fmt.Errorf("failed to close window: %w", err)
	}
	return w, nil
}

const expireWindowQuery = `
UPDATE submission_windows SET state = 'EXPIRED', expired_at = $2
WHERE id = $1 AND state = 'OPEN' AND deadline IS NOT NULL AND deadline <= $2`

// ExpireWindow performs the compare-and-set OPEN→EXPIRED transition and
// reports whether this call won it. Zero rows affected means another tick
// already expired the window (or it was closed first) — the caller must not
// run expiry side effects.
func (r *Repository) ExpireWindow(ctx context.Context, id uuid.UUID, expiredAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, expireWindowQuery, id, expiredAt)
	if err != nil {
		return false, fmt.Errorf("failed to expire window: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n == 1, nil
}

const fetchNextDeadlineQuery = `
SELECT id, deadline
FROM submission_windows
WHERE state = 'OPEN' AND deadline IS NOT NULL
ORDER BY deadline ASC
LIMIT 1`

// FetchNextDeadline returns the earliest open-window deadline across all
// sessions, or sql.ErrNoRows when no timed window is open.
func (r *Repository) FetchNextDeadline(ctx context.Context) (*NextDeadline, error) {
	var nd NextDeadline
	var deadline sql.NullTime
	err := r.db.QueryRowContext(ctx, fetchNextDeadlineQuery).Scan(&nd.WindowID, &deadline)
	if err != nil {
		return nil, err
	}
	nd.Deadline = sqlutil.FromSqlTime(deadline)
	return &nd, nil
}

const fetchWindowsDueQuery = `
SELECT id
FROM submission_windows
WHERE state = 'OPEN' AND deadline IS NOT NULL AND deadline <= $1
ORDER BY deadline ASC
LIMIT $2`

// FetchWindowsDue returns open windows whose deadline has passed.
func (r *Repository) FetchWindowsDue(ctx context.Context, now time.Time, limit int32) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, fetchWindowsDueQuery, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch due windows: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan window id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWindow(row rowScanner) (*models.SubmissionWindow, error) {
	var (
		w         models.SubmissionWindow
		duration  sql.NullInt32
		deadline  sql.NullTime
		expiredAt sql.NullTime
		closedAt  sql.NullTime
	)
	err := row.Scan(
		&w.ID,
		&w.QuestionID,
		&w.SessionID,
		&w.State,
		&w.OpenedAt,
		&duration,
		&deadline,
		&expiredAt,
		&closedAt,
	)
	if err != nil {
		return nil, err
	}
	w.DurationSeconds = sqlutil.FromSqlInt32(duration)
	w.Deadline = sqlutil.FromSqlTime(deadline)
	w.ExpiredAt = sqlutil.FromSqlTime(expiredAt)
	w.ClosedAt = sqlutil.FromSqlTime(closedAt)
	return &w, nil
}
