package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/SmartBoardPlus/EchoDraw/internal/response"
)

func (s *Server) handleSubmitResponse(w http.ResponseWriter, r *http.Request) {
	var req response.SubmitRequest
	if err := decodeBody(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	if req.QuestionID == uuid.Nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "question_id is required"})
		return
	}

	resp, err := s.responses.Submit(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, resp)
}

type reportDraftRequest struct {
	ParticipantRef string          `json:"participant_ref"`
	Scene          json.RawMessage `json:"scene"`
}

func (s *Server) handleReportDraft(w http.ResponseWriter, r *http.Request) {
	questionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid question id"})
		return
	}
	var req reportDraftRequest
	if err := decodeBody(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	if req.ParticipantRef == "" {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "participant_ref is required"})
		return
	}

	if err := s.responses.ReportDraft(r.Context(), questionID, req.ParticipantRef, req.Scene); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleListResponses(w http.ResponseWriter, r *http.Request) {
	questionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid question id"})
		return
	}

	responses, err := s.responses.ListByQuestion(r.Context(), questionID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, responses)
}

func (s *Server) handleGetResponse(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid response id"})
		return
	}

	resp, err := s.responses.GetResponse(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}
