package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SmartBoardPlus/EchoDraw/internal/models"
	"github.com/SmartBoardPlus/EchoDraw/internal/question"
	"github.com/SmartBoardPlus/EchoDraw/internal/response"
	"github.com/SmartBoardPlus/EchoDraw/internal/review"
	"github.com/SmartBoardPlus/EchoDraw/internal/session"
	"github.com/SmartBoardPlus/EchoDraw/internal/window"
)

// In-memory repositories backing a full server for handler tests.

type memStore struct {
	sessions  map[uuid.UUID]*models.Session
	questions map[uuid.UUID]*models.Question
	windows   map[uuid.UUID]*models.SubmissionWindow
	responses map[uuid.UUID]*models.Response
	drafts    map[string]models.SceneDraft
	orders    map[uuid.UUID]*models.ReviewOrder
}

func newMemStore() *memStore {
	return &memStore{
		sessions:  make(map[uuid.UUID]*models.Session),
		questions: make(map[uuid.UUID]*models.Question),
		windows:   make(map[uuid.UUID]*models.SubmissionWindow),
		responses: make(map[uuid.UUID]*models.Response),
		drafts:    make(map[string]models.SceneDraft),
		orders:    make(map[uuid.UUID]*models.ReviewOrder),
	}
}

func (m *memStore) CreateSession(ctx context.Context, req session.CreateSessionRequest) (*models.Session, error) {
	sess := &models.Session{ID: req.ID, PresenterID: req.PresenterID, Name: req.Name, JoinCode: req.JoinCode}
	m.sessions[sess.ID] = sess
	return sess, nil
}

func (m *memStore) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	sess, ok := m.sessions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return sess, nil
}

func (m *memStore) GetSessionByJoinCode(ctx context.Context, code string) (*models.Session, error) {
	for _, sess := range m.sessions {
		if sess.JoinCode == code {
			return sess, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memStore) ListSessionsByPresenter(ctx context.Context, presenterID string) ([]models.Session, error) {
	var out []models.Session
	for _, sess := range m.sessions {
		if sess.PresenterID == presenterID {
			out = append(out, *sess)
		}
	}
	return out, nil
}

func (m *memStore) RenameSession(ctx context.Context, id uuid.UUID, name string) (*models.Session, error) {
	sess, ok := m.sessions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	sess.Name = name
	return sess, nil
}

func (m *memStore) SetCurrentQuestion(ctx context.Context, id uuid.UUID, questionID uuid.UUID) (*models.Session, error) {
	sess, ok := m.sessions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	qid := questionID
	sess.CurrentQuestionID = &qid
	return sess, nil
}

func (m *memStore) CreateQuestion(ctx context.Context, req question.CreateQuestionRequest) (*models.Question, error) {
	position := 0
	for _, q := range m.questions {
		if q.SessionID == req.SessionID && q.Position > position {
			position = q.Position
		}
	}
	q := &models.Question{
		ID:        req.ID,
		SessionID: req.SessionID,
		Text:      req.Text,
		SeedScene: req.SeedScene,
		Position:  position + 1,
	}
	m.questions[q.ID] = q
	return q, nil
}

func (m *memStore) GetQuestion(ctx context.Context, id uuid.UUID) (*models.Question, error) {
	q, ok := m.questions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return q, nil
}

func (m *memStore) ListQuestionsBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Question, error) {
	var out []models.Question
	for _, q := range m.questions {
		if q.SessionID == sessionID {
			out = append(out, *q)
		}
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].Position < out[i].Position {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (m *memStore) UpdateQuestionText(ctx context.Context, id uuid.UUID, text string) (*models.Question, error) {
	q, ok := m.questions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	q.Text = text
	return q, nil
}

func (m *memStore) UpdateSeedScene(ctx context.Context, id uuid.UUID, seedScene json.RawMessage) (*models.Question, error) {
	q, ok := m.questions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	q.SeedScene = seedScene
	return q, nil
}

func (m *memStore) CreateWindow(ctx context.Context, req window.OpenWindowRequest) (*models.SubmissionWindow, error) {
	w := &models.SubmissionWindow{
		ID:              req.ID,
		QuestionID:      req.QuestionID,
		SessionID:       req.SessionID,
		State:           models.WindowStateOpen,
		OpenedAt:        time.Now().Add(time.Duration(len(m.windows)) * time.Millisecond),
		DurationSeconds: req.DurationSeconds,
		Deadline:        req.Deadline,
	}
	m.windows[w.ID] = w
	return w, nil
}

func (m *memStore) GetWindow(ctx context.Context, id uuid.UUID) (*models.SubmissionWindow, error) {
	w, ok := m.windows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return w, nil
}

func (m *memStore) GetLatestWindowByQuestion(ctx context.Context, questionID uuid.UUID) (*models.SubmissionWindow, error) {
	var latest *models.SubmissionWindow
	for _, w := range m.windows {
		if w.QuestionID == questionID && (latest == nil || w.OpenedAt.After(latest.OpenedAt)) {
			latest = w
		}
	}
	if latest == nil {
		return nil, sql.ErrNoRows
	}
	return latest, nil
}

func (m *memStore) GetOpenWindowBySession(ctx context.Context, sessionID uuid.UUID) (*models.SubmissionWindow, error) {
	for _, w := range m.windows {
		if w.SessionID == sessionID && w.State == models.WindowStateOpen {
			return w, nil
		}
	}
	return nil, nil
}

func (m *memStore) CloseWindow(ctx context.Context, id uuid.UUID, closedAt time.Time) (*models.SubmissionWindow, error) {
	w, ok := m.windows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	w.State = models.WindowStateClosed
	w.ClosedAt = &closedAt
	return w, nil
}

func (m *memStore) ExpireWindow(ctx context.Context, id uuid.UUID, expiredAt time.Time) (bool, error) {
	w, ok := m.windows[id]
	if !ok || w.State != models.WindowStateOpen || w.Deadline == nil || w.Deadline.After(expiredAt) {
		return false, nil
	}
	w.State = models.WindowStateExpired
	w.ExpiredAt = &expiredAt
	return true, nil
}

func (m *memStore) FetchNextDeadline(ctx context.Context) (*window.NextDeadline, error) {
	return nil, sql.ErrNoRows
}

func (m *memStore) FetchWindowsDue(ctx context.Context, now time.Time, limit int32) ([]uuid.UUID, error) {
	return nil, nil
}

func (m *memStore) CreateResponse(ctx context.Context, req response.CreateResponseRequest) (*models.Response, error) {
	for _, r := range m.responses {
		if r.QuestionID == req.QuestionID && r.ParticipantRef == req.ParticipantRef {
			return nil, response.ErrDuplicateSubmission
		}
	}
	r := &models.Response{
		ID:             req.ID,
		QuestionID:     req.QuestionID,
		WindowID:       req.WindowID,
		ParticipantRef: req.ParticipantRef,
		Scene:          req.Scene,
		Origin:         req.Origin,
		SubmittedAt:    time.Now(),
	}
	m.responses[r.ID] = r
	return r, nil
}

func (m *memStore) GetResponse(ctx context.Context, id uuid.UUID) (*models.Response, error) {
	r, ok := m.responses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return r, nil
}

func (m *memStore) ListResponsesByQuestion(ctx context.Context, questionID uuid.UUID) ([]models.Response, error) {
	var out []models.Response
	for _, r := range m.responses {
		if r.QuestionID == questionID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memStore) UpsertSceneDraft(ctx context.Context, draft models.SceneDraft) error {
	m.drafts[draft.WindowID.String()+"/"+draft.ParticipantRef] = draft
	return nil
}

func (m *memStore) ListSceneDraftsByWindow(ctx context.Context, windowID uuid.UUID) ([]models.SceneDraft, error) {
	var out []models.SceneDraft
	for _, d := range m.drafts {
		if d.WindowID == windowID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memStore) GetReviewOrder(ctx context.Context, questionID uuid.UUID) (*models.ReviewOrder, error) {
	order, ok := m.orders[questionID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return order, nil
}

func (m *memStore) SaveReviewOrder(ctx context.Context, order models.ReviewOrder) (*models.ReviewOrder, error) {
	saved := order
	saved.FrozenAt = time.Now()
	m.orders[order.QuestionID] = &saved
	return &saved, nil
}

type memOutbox struct{}

func (memOutbox) InsertWindowOpened(ctx context.Context, id uuid.UUID, payload []byte) error {
	return nil
}
func (memOutbox) InsertWindowClosed(ctx context.Context, id uuid.UUID, payload []byte) error {
	return nil
}
func (memOutbox) InsertResponseSubmitted(ctx context.Context, id uuid.UUID, payload []byte) error {
	return nil
}
func (memOutbox) InsertReviewFrozen(ctx context.Context, id uuid.UUID, payload []byte) error {
	return nil
}

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	store := newMemStore()
	outbox := memOutbox{}

	questionApp := question.NewApp(store)
	sessionApp := session.NewApp(store, questionApp)
	windowApp := window.NewApp(store, questionApp, outbox)
	responseApp := response.NewApp(store, windowApp, outbox)
	reviewApp := review.NewApp(store, responseApp, outbox)

	server := NewServer(sessionApp, questionApp, windowApp, responseApp, reviewApp, nil)
	return server.Handler()
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	handler := newTestHandler(t)
	rec := doJSON(t, handler, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionLifecycle(t *testing.T) {
	handler := newTestHandler(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/sessions", map[string]string{
		"presenter_id": "teacher-1",
		"name":         "Fractions",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	sess := decode[models.Session](t, rec)
	assert.NotEmpty(t, sess.JoinCode)

	rec = doJSON(t, handler, http.MethodGet, "/api/sessions/"+sess.ID.String(), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/api/sessions/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/api/sessions/resolve/"+sess.JoinCode, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodPut, "/api/sessions/"+sess.ID.String()+"/name", map[string]string{
		"name": "Fractions II",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	renamed := decode[models.Session](t, rec)
	assert.Equal(t, "Fractions II", renamed.Name)
}

func TestQuestionSequenceOverHTTP(t *testing.T) {
	handler := newTestHandler(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/sessions", map[string]string{
		"presenter_id": "teacher-1", "name": "Lesson",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	sess := decode[models.Session](t, rec)

	var questionIDs []uuid.UUID
	for i := 0; i < 2; i++ {
		rec = doJSON(t, handler, http.MethodPost, "/api/questions", map[string]any{
			"session_id": sess.ID,
			"text":       fmt.Sprintf("question %d", i+1),
		})
		require.Equal(t, http.StatusCreated, rec.Code)
		q := decode[models.Question](t, rec)
		questionIDs = append(questionIDs, q.ID)
	}

	// No current question yet.
	rec = doJSON(t, handler, http.MethodGet, "/api/sessions/"+sess.ID.String()+"/current", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/api/sessions/"+sess.ID.String()+"/advance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	first := decode[models.Question](t, rec)
	assert.Equal(t, questionIDs[0], first.ID)

	rec = doJSON(t, handler, http.MethodGet, "/api/sessions/"+sess.ID.String()+"/current", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	current := decode[currentQuestionResponse](t, rec)
	require.NotNil(t, current.Question)
	assert.Equal(t, questionIDs[0], current.Question.ID)
	assert.Nil(t, current.Window)

	rec = doJSON(t, handler, http.MethodPut, "/api/sessions/"+sess.ID.String()+"/current", map[string]any{
		"question_id": questionIDs[1],
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// A question from another session is rejected.
	rec = doJSON(t, handler, http.MethodPost, "/api/sessions", map[string]string{
		"presenter_id": "teacher-2", "name": "Other",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	other := decode[models.Session](t, rec)
	rec = doJSON(t, handler, http.MethodPost, "/api/questions", map[string]any{
		"session_id": other.ID, "text": "foreign",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	foreign := decode[models.Question](t, rec)

	rec = doJSON(t, handler, http.MethodPut, "/api/sessions/"+sess.ID.String()+"/current", map[string]any{
		"question_id": foreign.ID,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// Past the end.
	rec = doJSON(t, handler, http.MethodPost, "/api/sessions/"+sess.ID.String()+"/advance", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestWindowAndResponsesOverHTTP(t *testing.T) {
	handler := newTestHandler(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/sessions", map[string]string{
		"presenter_id": "teacher-1", "name": "Lesson",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	sess := decode[models.Session](t, rec)

	rec = doJSON(t, handler, http.MethodPost, "/api/questions", map[string]any{
		"session_id": sess.ID, "text": "draw a circle",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	q := decode[models.Question](t, rec)

	// Submitting before any window exists is a late (closed) submission.
	scene := map[string]any{"elements": []any{}, "appState": map[string]any{}}
	rec = doJSON(t, handler, http.MethodPost, "/api/responses", map[string]any{
		"question_id": q.ID, "participant_ref": "student-1", "scene": scene,
	})
	assert.Equal(t, http.StatusGone, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/api/questions/"+q.ID.String()+"/window", map[string]any{
		"duration_seconds": 60,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	win := decode[models.SubmissionWindow](t, rec)

	// Second open in the same session conflicts.
	rec = doJSON(t, handler, http.MethodPost, "/api/questions/"+q.ID.String()+"/window", map[string]any{})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/api/questions/"+q.ID.String()+"/window", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	desc := decode[window.Description](t, rec)
	assert.Equal(t, "OPEN", desc.State)
	require.NotNil(t, desc.RemainingSeconds)

	// A client cannot mint its own origin.
	rec = doJSON(t, handler, http.MethodPost, "/api/responses", map[string]any{
		"question_id": q.ID, "participant_ref": "student-1", "scene": scene,
		"origin": "AUTO_EXPIRY",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decode[models.Response](t, rec)
	assert.Equal(t, q.ID, resp.QuestionID)
	assert.Equal(t, models.OriginManual, resp.Origin)

	rec = doJSON(t, handler, http.MethodGet, "/api/responses/"+resp.ID.String(), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodPut, "/api/questions/"+q.ID.String()+"/draft", map[string]any{
		"participant_ref": "student-2", "scene": scene,
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// First write wins.
	rec = doJSON(t, handler, http.MethodPost, "/api/responses", map[string]any{
		"question_id": q.ID, "participant_ref": "student-1", "scene": scene,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Malformed scene.
	rec = doJSON(t, handler, http.MethodPost, "/api/responses", map[string]any{
		"question_id": q.ID, "participant_ref": "student-2",
		"scene": map[string]any{"elements": "nope"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/api/windows/"+win.ID.String()+"/close", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// After close, submissions are late.
	rec = doJSON(t, handler, http.MethodPost, "/api/responses", map[string]any{
		"question_id": q.ID, "participant_ref": "student-3", "scene": scene,
	})
	assert.Equal(t, http.StatusGone, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/api/questions/"+q.ID.String()+"/responses", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	responses := decode[[]models.Response](t, rec)
	assert.Len(t, responses, 1)
}

func TestSubmissionStaysBoundToWindowQuestion(t *testing.T) {
	handler := newTestHandler(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/sessions", map[string]string{
		"presenter_id": "teacher-1", "name": "Lesson",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	sess := decode[models.Session](t, rec)

	var qs []models.Question
	for _, text := range []string{"first", "second"} {
		rec = doJSON(t, handler, http.MethodPost, "/api/questions", map[string]any{
			"session_id": sess.ID, "text": text,
		})
		require.Equal(t, http.StatusCreated, rec.Code)
		qs = append(qs, decode[models.Question](t, rec))
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/sessions/"+sess.ID.String()+"/advance", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/api/questions/"+qs[0].ID.String()+"/window", map[string]any{})
	require.Equal(t, http.StatusCreated, rec.Code)
	win := decode[models.SubmissionWindow](t, rec)

	// Presenter moves on while the first question's window is still open.
	rec = doJSON(t, handler, http.MethodPut, "/api/sessions/"+sess.ID.String()+"/current", map[string]any{
		"question_id": qs[1].ID,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// A late submission for the first question files under it, not the
	// session's new current question.
	scene := map[string]any{"elements": []any{}}
	rec = doJSON(t, handler, http.MethodPost, "/api/responses", map[string]any{
		"question_id": qs[0].ID, "participant_ref": "student-1", "scene": scene,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decode[models.Response](t, rec)
	assert.Equal(t, qs[0].ID, resp.QuestionID)
	assert.Equal(t, win.ID, resp.WindowID)

	rec = doJSON(t, handler, http.MethodGet, "/api/sessions/"+sess.ID.String()+"/current", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	current := decode[currentQuestionResponse](t, rec)
	assert.Equal(t, qs[1].ID, current.Question.ID)
	assert.Nil(t, current.Window, "the second question has no window yet")

	rec = doJSON(t, handler, http.MethodGet, "/api/questions/"+qs[0].ID.String()+"/responses", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Response](t, rec), 1)

	rec = doJSON(t, handler, http.MethodGet, "/api/questions/"+qs[1].ID.String()+"/responses", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]models.Response](t, rec))
}

func TestReviewOverHTTP(t *testing.T) {
	handler := newTestHandler(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/sessions", map[string]string{
		"presenter_id": "teacher-1", "name": "Lesson",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	sess := decode[models.Session](t, rec)

	rec = doJSON(t, handler, http.MethodPost, "/api/questions", map[string]any{
		"session_id": sess.ID, "text": "draw a square",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	q := decode[models.Question](t, rec)

	rec = doJSON(t, handler, http.MethodPost, "/api/questions/"+q.ID.String()+"/window", map[string]any{})
	require.Equal(t, http.StatusCreated, rec.Code)

	scene := map[string]any{"elements": []any{}}
	for _, ref := range []string{"s1", "s2", "s3"} {
		rec = doJSON(t, handler, http.MethodPost, "/api/responses", map[string]any{
			"question_id": q.ID, "participant_ref": ref, "scene": scene,
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	// No frozen order yet.
	rec = doJSON(t, handler, http.MethodGet, "/api/questions/"+q.ID.String()+"/review", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/api/questions/"+q.ID.String()+"/review", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	order := decode[models.ReviewOrder](t, rec)
	assert.Len(t, order.ResponseIDs, 3)

	// Freeze again without reshuffle: identical order.
	rec = doJSON(t, handler, http.MethodPost, "/api/questions/"+q.ID.String()+"/review", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	again := decode[models.ReviewOrder](t, rec)
	assert.Equal(t, order.ResponseIDs, again.ResponseIDs)

	rec = doJSON(t, handler, http.MethodGet, "/api/questions/"+q.ID.String()+"/review", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
