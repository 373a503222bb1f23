package main

import (
	"database/sql"

	"github.com/SmartBoardPlus/EchoDraw/internal/outbox"
	"github.com/SmartBoardPlus/EchoDraw/internal/question"
	"github.com/SmartBoardPlus/EchoDraw/internal/response"
	"github.com/SmartBoardPlus/EchoDraw/internal/review"
	"github.com/SmartBoardPlus/EchoDraw/internal/session"
	"github.com/SmartBoardPlus/EchoDraw/internal/window"
)

type Services struct {
	Sessions  *session.App
	Questions *question.App
	Windows   *window.App
	Responses *response.App
	Reviews   *review.App
	Outbox    *outbox.Repository
}

func setupServices(database *sql.DB) *Services {
	// Wire up dependency injection chain
	// Database layer → Repository layer → App layer

	outboxRepo := outbox.NewRepository(database)

	questionRepo := question.NewRepository(database)
	questionApp := question.NewApp(questionRepo)

	sessionRepo := session.NewRepository(database)
	sessionApp := session.NewApp(sessionRepo, questionApp)

	windowRepo := window.NewRepository(database)
	windowApp := window.NewApp(windowRepo, questionApp, outboxRepo)

	responseRepo := response.NewRepository(database)
	responseApp := response.NewApp(responseRepo, windowApp, outboxRepo)

	reviewRepo := review.NewRepository(database)
	reviewApp := review.NewApp(reviewRepo, responseApp, outboxRepo)

	return &Services{
		Sessions:  sessionApp,
		Questions: questionApp,
		Windows:   windowApp,
		Responses: responseApp,
		Reviews:   reviewApp,
		Outbox:    outboxRepo,
	}
}
