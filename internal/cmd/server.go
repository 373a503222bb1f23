package main

import (
	"net/http"

	"github.com/SmartBoardPlus/EchoDraw/internal/api"
	"github.com/SmartBoardPlus/EchoDraw/internal/orchestrator"
)

func setupServer(services *Services, orch *orchestrator.Orchestrator, cfg *Config) *http.Server {
	srv := api.NewServer(
		services.Sessions,
		services.Questions,
		services.Windows,
		services.Responses,
		services.Reviews,
		orch,
	)
	return api.NewHTTPServer(srv, getEnv("PORT", cfg.Server.Port))
}
