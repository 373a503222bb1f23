package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

type createQuestionRequest struct {
	SessionID uuid.UUID       `json:"session_id"`
	Text      string          `json:"text"`
	SeedScene json.RawMessage `json:"seed_scene,omitempty"`
}

func (s *Server) handleCreateQuestion(w http.ResponseWriter, r *http.Request) {
	var req createQuestionRequest
	if err := decodeBody(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	if req.SessionID == uuid.Nil || req.Text == "" {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "session_id and text are required"})
		return
	}

	q, err := s.questions.CreateQuestion(r.Context(), req.SessionID, req.Text, req.SeedScene)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, q)
}

func (s *Server) handleGetQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid question id"})
		return
	}

	q, err := s.questions.GetQuestion(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, q)
}

type updateQuestionTextRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleUpdateQuestionText(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid question id"})
		return
	}
	var req updateQuestionTextRequest
	if err := decodeBody(r, &req); err != nil || req.Text == "" {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "text is required"})
		return
	}

	q, err := s.questions.UpdateQuestionText(r.Context(), id, req.Text)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, q)
}

type updateSeedSceneRequest struct {
	Scene json.RawMessage `json:"scene"`
}

func (s *Server) handleUpdateSeedScene(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid question id"})
		return
	}
	var req updateSeedSceneRequest
	if err := decodeBody(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	q, err := s.questions.UpdateSeedScene(r.Context(), id, req.Scene)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, q)
}

func (s *Server) handleListSessionQuestions(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid session id"})
		return
	}

	questions, err := s.questions.ListQuestionsBySession(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, questions)
}
