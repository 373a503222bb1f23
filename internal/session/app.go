package session

import (
	"context"
	crand "crypto/rand"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/SmartBoardPlus/EchoDraw/internal/models"
)

// SessionRepository defines what the session app layer needs from the
// session repository
type SessionRepository interface {
	CreateSession(ctx context.Context, req CreateSessionRequest) (*models.Session, error)
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	GetSessionByJoinCode(ctx context.Context, code string) (*models.Session, error)
	ListSessionsByPresenter(ctx context.Context, presenterID string) ([]models.Session, error)
	RenameSession(ctx context.Context, id uuid.UUID, name string) (*models.Session, error)
	SetCurrentQuestion(ctx context.Context, id uuid.UUID, questionID uuid.UUID) (*models.Session, error)
}

// QuestionDirectory defines what the sequencer needs from the question app:
// the ordered question list of a session and single-question lookup.
type QuestionDirectory interface {
	GetQuestion(ctx context.Context, id uuid.UUID) (*models.Question, error)
	ListQuestionsBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Question, error)
}

// App handles session business logic, including the question sequencer.
type App struct {
	repo      SessionRepository
	questions QuestionDirectory
}

// NewApp creates a new session App
func NewApp(repo SessionRepository, questions QuestionDirectory) *App {
	return &App{
		repo:      repo,
		questions: questions,
	}
}

// CreateSession creates a new session with a generated join code.
func (a *App) CreateSession(ctx context.Context, presenterID, name string) (*models.Session, error) {
	if strings.TrimSpace(presenterID) == "" {
		return nil, fmt.Errorf("presenter_id is required")
	}
	if strings.TrimSpace(name) == "" {
		name = "New Lesson"
	}

	code, err := newJoinCode()
	if err != nil {
		return nil, fmt.Errorf("generate join code: %w", err)
	}

	sess, err := a.repo.CreateSession(ctx, CreateSessionRequest{
		ID:          uuid.New(),
		PresenterID: presenterID,
		Name:        name,
		JoinCode:    code,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	log.Info().
		Str("session_id", sess.ID.String()).
		Str("join_code", sess.JoinCode).
		Msg("created session")
	return sess, nil
}

// GetSession retrieves a session by ID
func (a *App) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	sess, err := a.repo.GetSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return sess, nil
}

// ResolveJoinCode resolves a short join code (or a raw session id) to a
// session, the way participants enter a running lesson.
func (a *App) ResolveJoinCode(ctx context.Context, code string) (*models.Session, error) {
	code = strings.TrimSpace(code)
	if id, err := uuid.Parse(code); err == nil {
		return a.repo.GetSession(ctx, id)
	}
	sess, err := a.repo.GetSessionByJoinCode(ctx, strings.ToUpper(code))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve join code: %w", err)
	}
	return sess, nil
}

// ListSessionsByPresenter lists a presenter's sessions, newest first.
func (a *App) ListSessionsByPresenter(ctx context.Context, presenterID string) ([]models.Session, error) {
	sessions, err := a.repo.ListSessionsByPresenter(ctx, presenterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// RenameSession updates a session's display name.
func (a *App) RenameSession(ctx context.Context, id uuid.UUID, name string) (*models.Session, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("session name must not be empty")
	}
	sess, err := a.repo.RenameSession(ctx, id, strings.TrimSpace(name))
	if err != nil {
		return nil, fmt.Errorf("failed to rename session: %w", err)
	}
	return sess, nil
}

// Advance moves the current question pointer to the next question in
// position order, or to the first question when none is live yet. Returns
// ErrSequenceExhausted at the end of the sequence.
//
// Advancing never touches an open submission window: the presenter may keep
// collecting stragglers for the prior question while composing the next one.
func (a *App) Advance(ctx context.Context, sessionID uuid.UUID) (*models.Question, error) {
	sess, err := a.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	questions, err := a.questions.ListQuestionsBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, ErrSequenceExhausted
	}

	next := -1
	if sess.CurrentQuestionID == nil {
		next = 0
	} else {
		for i := range questions {
			if questions[i].ID == *sess.CurrentQuestionID {
				next = i + 1
				break
			}
		}
		if next == -1 {
			// Pointer references a question that is no longer listed;
			// restart from the top rather than guessing.
			next = 0
		}
	}
	if next >= len(questions) {
		return nil, ErrSequenceExhausted
	}

	target := questions[next]
	if _, err := a.repo.SetCurrentQuestion(ctx, sessionID, target.ID); err != nil {
		return nil, fmt.Errorf("failed to advance session: %w", err)
	}

	log.Info().
		Str("session_id", sessionID.String()).
		Str("question_id", target.ID.String()).
		Int("position", target.Position).
		Msg("advanced to next question")
	return &target, nil
}

// SetCurrent jumps the current question pointer to an arbitrary question of
// the session (direct navigation). It deliberately leaves any open window on
// the prior question untouched; closing it is a separate, caller-visible
// operation.
func (a *App) SetCurrent(ctx context.Context, sessionID, questionID uuid.UUID) (*models.Question, error) {
	question, err := a.questions.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, fmt.Errorf("question not found: %w", err)
	}
	if question.SessionID != sessionID {
		return nil, ErrQuestionNotInSession
	}

	if _, err := a.repo.SetCurrentQuestion(ctx, sessionID, questionID); err != nil {
		return nil, fmt.Errorf("failed to set current question: %w", err)
	}

	log.Info().
		Str("session_id", sessionID.String()).
		Str("question_id", questionID.String()).
		Msg("set current question")
	return question, nil
}

// CurrentQuestion returns the session's live question, or
// ErrNoCurrentQuestion when the session has not started a question yet.
func (a *App) CurrentQuestion(ctx context.Context, sessionID uuid.UUID) (*models.Question, error) {
	sess, err := a.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	if sess.CurrentQuestionID == nil {
		return nil, ErrNoCurrentQuestion
	}
	question, err := a.questions.GetQuestion(ctx, *sess.CurrentQuestionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get current question: %w", err)
	}
	return question, nil
}

// joinCodeAlphabet avoids characters that read ambiguously on a projector.
const joinCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const joinCodeLength = 6

func newJoinCode() (string, error) {
	buf := make([]byte, joinCodeLength)
	if _, err := crand.Read(buf); err != nil {
		return "", err
	}
	var b strings.Builder
	for _, c := range buf {
		b.WriteByte(joinCodeAlphabet[int(c)%len(joinCodeAlphabet)])
	}
	return b.String(), nil
}
