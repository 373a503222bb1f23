package api

import (
	"fmt"
	"net/http"

	"github.com/rs/cors"

	"github.com/SmartBoardPlus/EchoDraw/internal/question"
	"github.com/SmartBoardPlus/EchoDraw/internal/response"
	"github.com/SmartBoardPlus/EchoDraw/internal/review"
	"github.com/SmartBoardPlus/EchoDraw/internal/session"
	"github.com/SmartBoardPlus/EchoDraw/internal/window"
)

// Waker nudges the orchestrator when a new deadline appears.
type Waker interface {
	Wake()
}

// Server bundles the domain apps behind the JSON HTTP boundary.
type Server struct {
	sessions  *session.App
	questions *question.App
	windows   *window.App
	responses *response.App
	reviews   *review.App
	waker     Waker
}

// NewServer creates the HTTP server facade.
func NewServer(sessions *session.App, questions *question.App, windows *window.App, responses *response.App, reviews *review.App, waker Waker) *Server {
	return &Server{
		sessions:  sessions,
		questions: questions,
		windows:   windows,
		responses: responses,
		reviews:   reviews,
		waker:     waker,
	}
}

// Handler builds the route table and wraps it with CORS.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	s.registerRoutes(mux)
	setupHealthCheck(mux)

	return c.Handler(mux)
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("PUT /api/sessions/{id}/name", s.handleRenameSession)
	mux.HandleFunc("GET /api/sessions/resolve/{code}", s.handleResolveSession)
	mux.HandleFunc("GET /api/presenters/{id}/sessions", s.handleListPresenterSessions)

	mux.HandleFunc("POST /api/questions", s.handleCreateQuestion)
	mux.HandleFunc("GET /api/questions/{id}", s.handleGetQuestion)
	mux.HandleFunc("PUT /api/questions/{id}/text", s.handleUpdateQuestionText)
	mux.HandleFunc("PUT /api/questions/{id}/scene", s.handleUpdateSeedScene)
	mux.HandleFunc("GET /api/sessions/{id}/questions", s.handleListSessionQuestions)

	mux.HandleFunc("GET /api/sessions/{id}/current", s.handleCurrentQuestion)
	mux.HandleFunc("PUT /api/sessions/{id}/current", s.handleSetCurrent)
	mux.HandleFunc("POST /api/sessions/{id}/advance", s.handleAdvance)

	mux.HandleFunc("POST /api/questions/{id}/window", s.handleOpenWindow)
	mux.HandleFunc("GET /api/questions/{id}/window", s.handleDescribeWindow)
	mux.HandleFunc("POST /api/windows/{id}/close", s.handleCloseWindow)

	mux.HandleFunc("POST /api/responses", s.handleSubmitResponse)
	mux.HandleFunc("PUT /api/questions/{id}/draft", s.handleReportDraft)
	mux.HandleFunc("GET /api/questions/{id}/responses", s.handleListResponses)
	mux.HandleFunc("GET /api/responses/{id}", s.handleGetResponse)

	mux.HandleFunc("POST /api/questions/{id}/review", s.handleFreezeReview)
	mux.HandleFunc("GET /api/questions/{id}/review", s.handleGetReview)
}

func setupHealthCheck(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

// NewHTTPServer wires the handler into an http.Server on the given port.
func NewHTTPServer(s *Server, port string) *http.Server {
	return &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: s.Handler(),
	}
}
