package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/SmartBoardPlus/EchoDraw/internal/response"
	"github.com/SmartBoardPlus/EchoDraw/internal/scene"
	"github.com/SmartBoardPlus/EchoDraw/internal/session"
	"github.com/SmartBoardPlus/EchoDraw/internal/window"
)

type errorBody struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response body")
	}
}

// respondError maps domain sentinel errors onto HTTP statuses. Anything
// unrecognized is a 500 and gets logged; sentinel cases are expected flow
// and stay at debug.
func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, response.ErrDuplicateSubmission),
		errors.Is(err, window.ErrWindowAlreadyOpen),
		errors.Is(err, session.ErrSequenceExhausted):
		status = http.StatusConflict
	case errors.Is(err, window.ErrWindowClosed):
		status = http.StatusGone
	case errors.Is(err, scene.ErrInvalidScene),
		errors.Is(err, session.ErrQuestionNotInSession):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, window.ErrNoWindow),
		errors.Is(err, session.ErrNoCurrentQuestion),
		errors.Is(err, sql.ErrNoRows):
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
	} else {
		log.Debug().Err(err).Int("status", status).Msg("request rejected")
	}
	respondJSON(w, status, errorBody{Error: err.Error()})
}

func decodeBody(r *http.Request, dst any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}
