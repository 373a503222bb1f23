package api

import (
	"net/http"

	"github.com/google/uuid"
)

func (s *Server) handleFreezeReview(w http.ResponseWriter, r *http.Request) {
	questionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid question id"})
		return
	}
	reshuffle := r.URL.Query().Get("reshuffle") == "true"

	order, err := s.reviews.Freeze(r.Context(), questionID, reshuffle)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (s *Server) handleGetReview(w http.ResponseWriter, r *http.Request) {
	questionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid question id"})
		return
	}

	order, err := s.reviews.Get(r.Context(), questionID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}
