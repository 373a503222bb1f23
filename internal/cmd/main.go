package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/SmartBoardPlus/EchoDraw/internal/orchestrator"
	"github.com/SmartBoardPlus/EchoDraw/internal/outbox"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	if os.Getenv("DEBUG") != "" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg, err := loadConfig(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	database, err := setupDatabase()
	if err != nil {
		log.Fatal().Err(err).Msg("setup database")
	}
	defer database.Close()

	services := setupServices(database)

	// Outbox relay: events written by the apps get published to JetStream,
	// or just logged when NATS is disabled (local development).
	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	var publisher outbox.EventPublisher
	if cfg.NATS.Enabled {
		jsCfg := outbox.DefaultJetStreamConfig()
		jsCfg.URL = getEnv("NATS_URL", cfg.NATS.URL)
		jsPublisher, err := outbox.NewJetStreamPublisher(jsCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("create JetStream publisher")
		}
		defer func() {
			if err := jsPublisher.Close(); err != nil {
				log.Error().Err(err).Msg("close publisher")
			}
		}()
		publisher = jsPublisher
	} else {
		publisher = outbox.NewMockPublisher(slogger)
	}

	workerCfg := outbox.DefaultConfig()
	workerCfg.PollInterval = cfg.Outbox.PollInterval
	workerCfg.BatchSize = cfg.Outbox.BatchSize
	relay := outbox.NewWorker(services.Outbox, publisher, workerCfg, slogger)

	orch := orchestrator.NewOrchestrator(
		services.Windows,
		services.Responses,
		services.Outbox,
		cfg.Orchestrator.BatchSize,
	)

	server := setupServer(services, orch, cfg)

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := relay.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("start outbox worker")
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info().Msg("starting scheduler")
		errCh <- orch.RunScheduler(ctx)
	}()
	go func() {
		log.Info().Str("addr", server.Addr).Msg("starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("component exited unexpectedly")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown")
	}
	if err := relay.Stop(); err != nil {
		log.Error().Err(err).Msg("stop outbox worker")
	}
	log.Info().Msg("graceful shutdown complete")
}
