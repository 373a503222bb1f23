package question

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/SmartBoardPlus/EchoDraw/internal/models"
	"github.com/SmartBoardPlus/EchoDraw/internal/scene"
)

// QuestionRepository defines what the question app layer needs from the
// question repository
type QuestionRepository interface {
	CreateQuestion(ctx context.Context, req CreateQuestionRequest) (*models.Question, error)
	GetQuestion(ctx context.Context, id uuid.UUID) (*models.Question, error)
	ListQuestionsBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Question, error)
	UpdateQuestionText(ctx context.Context, id uuid.UUID, text string) (*models.Question, error)
	UpdateSeedScene(ctx context.Context, id uuid.UUID, seedScene json.RawMessage) (*models.Question, error)
}

// App handles question business logic
type App struct {
	repo QuestionRepository
}

// NewApp creates a new question App
func NewApp(repo QuestionRepository) *App {
	return &App{repo: repo}
}

// CreateQuestion appends a question to a session's sequence. The seed scene,
// when present, goes through the codec before it is persisted.
func (a *App) CreateQuestion(ctx context.Context, sessionID uuid.UUID, text string, seedScene json.RawMessage) (*models.Question, error) {
	req := CreateQuestionRequest{
		ID:        uuid.New(),
		SessionID: sessionID,
		Text:      text,
	}
	if len(seedScene) > 0 {
		clean, err := scene.SanitizeToJSON(seedScene)
		if err != nil {
			return nil, fmt.Errorf("invalid seed scene: %w", err)
		}
		req.SeedScene = clean
	}

	q, err := a.repo.CreateQuestion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}

	log.Info().
		Str("question_id", q.ID.String()).
		Str("session_id", sessionID.String()).
		Int("position", q.Position).
		Msg("created question")
	return q, nil
}

// GetQuestion retrieves a question by ID
func (a *App) GetQuestion(ctx context.Context, id uuid.UUID) (*models.Question, error) {
	q, err := a.repo.GetQuestion(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	return q, nil
}

// ListQuestionsBySession lists a session's questions in sequence order.
func (a *App) ListQuestionsBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Question, error) {
	questions, err := a.repo.ListQuestionsBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	return questions, nil
}

// UpdateQuestionText edits the prompt text.
func (a *App) UpdateQuestionText(ctx context.Context, id uuid.UUID, text string) (*models.Question, error) {
	q, err := a.repo.UpdateQuestionText(ctx, id, text)
	if err != nil {
		return nil, fmt.Errorf("failed to update question text: %w", err)
	}
	return q, nil
}

// UpdateSeedScene replaces the presenter's starting canvas for the question.
func (a *App) UpdateSeedScene(ctx context.Context, id uuid.UUID, seedScene json.RawMessage) (*models.Question, error) {
	clean, err := scene.SanitizeToJSON(seedScene)
	if err != nil {
		return nil, fmt.Errorf("invalid seed scene: %w", err)
	}
	q, err := a.repo.UpdateSeedScene(ctx, id, clean)
	if err != nil {
		return nil, fmt.Errorf("failed to update seed scene: %w", err)
	}
	return q, nil
}
