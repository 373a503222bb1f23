package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/SmartBoardPlus/EchoDraw/internal/models"
	"github.com/SmartBoardPlus/EchoDraw/internal/window"
)

type createSessionRequest struct {
	PresenterID string `json:"presenter_id"`
	Name        string `json:"name"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeBody(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	if req.PresenterID == "" || req.Name == "" {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "presenter_id and name are required"})
		return
	}

	sess, err := s.sessions.CreateSession(r.Context(), req.PresenterID, req.Name)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid session id"})
		return
	}

	sess, err := s.sessions.GetSession(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

type renameSessionRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleRenameSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid session id"})
		return
	}
	var req renameSessionRequest
	if err := decodeBody(r, &req); err != nil || req.Name == "" {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "name is required"})
		return
	}

	sess, err := s.sessions.RenameSession(r.Context(), id, req.Name)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

// handleResolveSession accepts either a session UUID or a short join code,
// so participants can type whichever the presenter shared.
func (s *Server) handleResolveSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.ResolveJoinCode(r.Context(), r.PathValue("code"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) handleListPresenterSessions(w http.ResponseWriter, r *http.Request) {
	presenterID := r.PathValue("id")
	if presenterID == "" {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "presenter id is required"})
		return
	}

	sessions, err := s.sessions.ListSessionsByPresenter(r.Context(), presenterID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sessions)
}

type currentQuestionResponse struct {
	Question *models.Question    `json:"question"`
	Window   *window.Description `json:"window,omitempty"`
}

// handleCurrentQuestion returns the live question together with its latest
// window, when one exists, so a joining participant needs a single round trip.
func (s *Server) handleCurrentQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid session id"})
		return
	}

	q, err := s.sessions.CurrentQuestion(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}

	out := currentQuestionResponse{Question: q}
	if desc, err := s.windows.Describe(r.Context(), q.ID); err == nil {
		out.Window = desc
	}
	respondJSON(w, http.StatusOK, out)
}

type setCurrentRequest struct {
	QuestionID uuid.UUID `json:"question_id"`
}

func (s *Server) handleSetCurrent(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid session id"})
		return
	}
	var req setCurrentRequest
	if err := decodeBody(r, &req); err != nil || req.QuestionID == uuid.Nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "question_id is required"})
		return
	}

	q, err := s.sessions.SetCurrent(r.Context(), id, req.QuestionID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, q)
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid session id"})
		return
	}

	q, err := s.sessions.Advance(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, q)
}
