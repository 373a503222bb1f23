package outbox

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Config holds relay worker settings.
type Config struct {
	PollInterval time.Duration
	BatchSize    int32
	MaxRetries   int
	RetryDelay   time.Duration
}

// DefaultConfig returns the default relay configuration.
func DefaultConfig() Config {
	return Config{
		PollInterval: 5 * time.Second,
		BatchSize:    100,
		MaxRetries:   3,
		RetryDelay:   time.Second,
	}
}

// OutboxStore is what the relay worker needs from the outbox repository.
type OutboxStore interface {
	FetchUnsentOutbox(ctx context.Context, limit int32) ([]OutboxEvent, error)
	MarkOutboxSent(ctx context.Context, id uuid.UUID) error
}

// Worker polls the outbox table and relays unsent events to the publisher.
type Worker struct {
	store     OutboxStore
	publisher EventPublisher
	config    Config
	logger    *slog.Logger

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewWorker creates a relay worker.
func NewWorker(store OutboxStore, publisher EventPublisher, cfg Config, logger *slog.Logger) *Worker {
	return &Worker{
		store:     store,
		publisher: publisher,
		config:    cfg,
		logger:    logger,
		stopChan:  make(chan struct{}),
	}
}

// Start launches the relay loop.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("outbox worker already running")
	}
	w.running = true
	w.mu.Unlock()

	w.wg.Add(1)
	go w.run(ctx)

	w.logger.Info("outbox worker started",
		slog.Duration("poll_interval", w.config.PollInterval),
		slog.Int("batch_size", int(w.config.BatchSize)))

	return nil
}

// Stop stops the relay loop and waits for it to drain.
func (w *Worker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return fmt.Errorf("outbox worker not running")
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopChan)
	w.wg.Wait()

	w.logger.Info("outbox worker stopped")
	return nil
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case <-ticker.C:
			if err := w.relayBatch(ctx); err != nil {
				w.logger.Error("outbox relay batch failed", slog.String("error", err.Error()))
			}
		}
	}
}

// relayBatch publishes one batch of unsent events. Events that fail to
// publish stay unsent and are retried next poll; MarkOutboxSent only runs
// after a successful publish, so delivery is at-least-once and the publisher
// deduplicates by event id.
func (w *Worker) relayBatch(ctx context.Context) error {
	batch, err := w.store.FetchUnsentOutbox(ctx, w.config.BatchSize)
	if err != nil {
		return fmt.Errorf("fetch unsent events: %w", err)
	}
	if len(batch) == 0 {
		return nil
	}

	sent := 0
	for _, event := range batch {
		if err := w.publishWithRetry(ctx, event); err != nil {
			w.logger.Error("failed to publish outbox event",
				slog.String("event_id", event.ID.String()),
				slog.String("event_type", event.EventType),
				slog.String("error", err.Error()))
			continue
		}
		if err := w.store.MarkOutboxSent(ctx, event.ID); err != nil {
			w.logger.Error("failed to mark outbox event sent",
				slog.String("event_id", event.ID.String()),
				slog.String("error", err.Error()))
			continue
		}
		sent++
	}

	w.logger.Debug("relayed outbox batch",
		slog.Int("fetched", len(batch)),
		slog.Int("sent", sent))
	return nil
}

func (w *Worker) publishWithRetry(ctx context.Context, event OutboxEvent) error {
	var lastErr error
	for attempt := 0; attempt <= w.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.config.RetryDelay * time.Duration(attempt)):
			}
		}
		if lastErr = w.publisher.Publish(ctx, event); lastErr == nil {
			return nil
		}
	}
	return lastErr
}
