package api

import (
	"net/http"

	"github.com/google/uuid"
)

type openWindowRequest struct {
	DurationSeconds *int `json:"duration_seconds,omitempty"`
}

func (s *Server) handleOpenWindow(w http.ResponseWriter, r *http.Request) {
	questionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid question id"})
		return
	}
	var req openWindowRequest
	if err := decodeBody(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	win, err := s.windows.Open(r.Context(), questionID, req.DurationSeconds)
	if err != nil {
		respondError(w, err)
		return
	}

	// A timed window introduces a deadline the scheduler may not be
	// sleeping toward yet.
	if win.Timed() && s.waker != nil {
		s.waker.Wake()
	}

	respondJSON(w, http.StatusCreated, win)
}

func (s *Server) handleDescribeWindow(w http.ResponseWriter, r *http.Request) {
	questionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid question id"})
		return
	}

	desc, err := s.windows.Describe(r.Context(), questionID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, desc)
}

func (s *Server) handleCloseWindow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid window id"})
		return
	}

	win, err := s.windows.Close(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, win)
}
