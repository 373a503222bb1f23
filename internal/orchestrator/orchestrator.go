package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/SmartBoardPlus/EchoDraw/internal/events"
	"github.com/SmartBoardPlus/EchoDraw/internal/models"
	"github.com/SmartBoardPlus/EchoDraw/internal/window"
)

// WindowService defines what the orchestrator needs from the window app.
type WindowService interface {
	GetWindow(ctx context.Context, id uuid.UUID) (*models.SubmissionWindow, error)
	Expire(ctx context.Context, id uuid.UUID) (bool, error)
	FetchNextDeadline(ctx context.Context) (*window.NextDeadline, error)
	FetchWindowsDue(ctx context.Context, limit int32) ([]uuid.UUID, error)
}

// ResponseService defines what the orchestrator needs from the response app.
type ResponseService interface {
	AutoSubmitDrafts(ctx context.Context, windowID uuid.UUID) (int, int, error)
}

// OutboxApp defines what the orchestrator needs from the outbox.
type OutboxApp interface {
	InsertWindowExpired(ctx context.Context, windowID uuid.UUID, payload []byte) error
}

// Orchestrator drives timed submission windows to expiry. It sleeps until
// the earliest stored deadline, claims due windows with a compare-and-set
// transition, and fans the expiry work out to a small worker pool.
type Orchestrator struct {
	windows    WindowService
	responses  ResponseService
	outbox     OutboxApp
	batchSize  int32 // how many due windows to claim at once
	clock      clockwork.Clock
	wakeCh     chan struct{}
	instanceID string // unique ID for this scheduler instance

	// Worker pool configuration
	numWorkers int
	workCh     chan uuid.UUID

	// Track in-flight work to prevent duplicate processing
	inFlight   map[uuid.UUID]bool
	inFlightMu sync.Mutex
}

// NewOrchestrator creates a window orchestrator with the real clock.
func NewOrchestrator(windows WindowService, responses ResponseService, outbox OutboxApp, batchSize int32) *Orchestrator {
	return NewOrchestratorWithClock(windows, responses, outbox, batchSize, clockwork.NewRealClock())
}

// NewOrchestratorWithClock creates a window orchestrator with an injected
// clock for tests.
func NewOrchestratorWithClock(windows WindowService, responses ResponseService, outbox OutboxApp, batchSize int32, clock clockwork.Clock) *Orchestrator {
	numWorkers := 10
	return &Orchestrator{
		windows:    windows,
		responses:  responses,
		outbox:     outbox,
		batchSize:  batchSize,
		clock:      clock,
		wakeCh:     make(chan struct{}, 1),
		instanceID: uuid.New().String()[:8], // short ID for logging

		numWorkers: numWorkers,
		workCh:     make(chan uuid.UUID, numWorkers*2), // Buffer to prevent blocking
		inFlight:   make(map[uuid.UUID]bool),
	}
}

// Wake nudges the scheduler to re-read the next deadline. Called after a
// window opens so a sooner deadline does not wait out the current sleep.
func (o *Orchestrator) Wake() {
	select {
	case o.wakeCh <- struct{}{}:
	default:
	}
}

// RunScheduler loops forever, sleeping until the next deadline and firing
// expirations.
func (o *Orchestrator) RunScheduler(ctx context.Context) error {
	log.Info().Str("instance", o.instanceID).Int("workers", o.numWorkers).Msg("scheduler started")

	// Start worker pool
	var wg sync.WaitGroup
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	for i := 0; i < o.numWorkers; i++ {
		wg.Add(1)
		go o.worker(workerCtx, &wg, i)
	}

	defer func() {
		log.Info().Str("instance", o.instanceID).Msg("shutting down workers")
		cancelWorkers()
		close(o.workCh)
		wg.Wait()
		log.Info().Str("instance", o.instanceID).Msg("all workers shut down")
	}()

	timer := o.clock.NewTimer(0)
	defer timer.Stop()

	const idlePollDuration = 5 * time.Second
	retryCount := 0
	const maxRetries = 3

	for {
		select {
		case <-o.wakeCh:
			log.Debug().Str("instance", o.instanceID).Msg("drained wake channel")
		default:
		}

		nd, err := o.windows.FetchNextDeadline(ctx)
		if err != nil {
			retryCount++
			if retryCount <= maxRetries {
				log.Error().
					Err(err).
					Int("retry", retryCount).
					Str("instance", o.instanceID).
					Msg("error fetching next deadline, retrying")
				timer.Reset(time.Second * time.Duration(retryCount))
				select {
				case <-timer.Chan():
					continue
				case <-ctx.Done():
					return nil
				}
			}
			log.Error().Err(err).Str("instance", o.instanceID).Msg("error fetching next deadline after retries")
			return err
		}
		retryCount = 0 // Reset on success

		if nd == nil || nd.Deadline == nil {
			// No timed window open - idle with timer reuse
			log.Debug().Str("instance", o.instanceID).Msg("no timed windows open; polling again in 5s")
			timer.Reset(idlePollDuration)
			select {
			case <-timer.Chan():
				continue
			case <-ctx.Done():
				log.Info().Str("instance", o.instanceID).Msg("shutdown during idle")
				return nil
			case <-o.wakeCh:
				log.Debug().Str("instance", o.instanceID).Msg("woken up from idle")
				continue
			}
		}

		wait := nd.Deadline.Sub(o.clock.Now())
		if wait > 0 {
			timer.Reset(wait)
			select {
			case <-timer.Chan():
				log.Info().Str("instance", o.instanceID).Msg("timer fired — fetching due windows")
			case <-ctx.Done():
				log.Info().Str("instance", o.instanceID).Msg("shutdown during wait")
				return nil
			case <-o.wakeCh:
				log.Debug().Str("instance", o.instanceID).Msg("woken up early — new sooner deadline")
				continue
			}
		}

		due, err := o.windows.FetchWindowsDue(ctx, o.batchSize)
		if err != nil {
			log.Error().Err(err).Str("instance", o.instanceID).Msg("error fetching due windows")
			// Don't exit on error - retry next iteration
			timer.Reset(time.Second)
			select {
			case <-timer.Chan():
				continue
			case <-ctx.Done():
				return nil
			}
		}

		if len(due) > 0 {
			log.Info().
				Int("count_due", len(due)).
				Int32("batch_size", o.batchSize).
				Str("instance", o.instanceID).
				Msg("processing due windows")

			for _, windowID := range due {
				o.inFlightMu.Lock()
				if o.inFlight[windowID] {
					log.Debug().Str("window_id", windowID.String()).Str("instance", o.instanceID).Msg("skipping window already in flight")
					o.inFlightMu.Unlock()
					continue
				}
				o.inFlight[windowID] = true
				o.inFlightMu.Unlock()

				select {
				case <-ctx.Done():
					o.inFlightMu.Lock()
					delete(o.inFlight, windowID)
					o.inFlightMu.Unlock()
					log.Info().Str("instance", o.instanceID).Msg("shutdown while queueing expirations")
					return nil
				case o.workCh <- windowID:
					log.Debug().Str("window_id", windowID.String()).Str("instance", o.instanceID).Msg("queued expiry for worker")
				}
			}
		}
	}
}

// handleExpiry claims the OPEN→EXPIRED transition for one window. The
// compare-and-set in the window app means only one caller wins; the loser
// returns without side effects, so drafts are auto-submitted and the
// WindowExpired event is emitted exactly once per window.
func (o *Orchestrator) handleExpiry(ctx context.Context, windowID uuid.UUID) error {
	won, err := o.windows.Expire(ctx, windowID)
	if err != nil {
		return fmt.Errorf("expire window: %w", err)
	}
	if !won {
		log.Debug().Str("window_id", windowID.String()).Msg("window already expired or closed; skipping")
		return nil
	}

	// The window is EXPIRED now and will never be fetched as due again, so
	// a failed sweep cannot be picked up by a later tick. AutoSubmitDrafts
	// skips participants who already have a response, so retrying is safe.
	submitted, drafts, err := o.autoSubmitWithRetry(ctx, windowID)
	if err != nil {
		return fmt.Errorf("auto-submit drafts for window %s: %w", windowID, err)
	}

	if err := o.emitWindowExpired(ctx, windowID, submitted, drafts); err != nil {
		log.Error().Err(err).Str("window_id", windowID.String()).Msg("failed to emit WindowExpired event")
	}

	log.Info().
		Str("window_id", windowID.String()).
		Int("auto_submitted", submitted).
		Int("drafts_consumed", drafts).
		Msg("expired submission window")
	return nil
}

// autoSubmitWithRetry runs the draft sweep with bounded linear backoff so a
// transient store error at expiry does not drop the drafted scenes.
func (o *Orchestrator) autoSubmitWithRetry(ctx context.Context, windowID uuid.UUID) (int, int, error) {
	const maxAttempts = 3

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		submitted, drafts, err := o.responses.AutoSubmitDrafts(ctx, windowID)
		if err == nil {
			return submitted, drafts, nil
		}
		lastErr = err
		log.Error().
			Err(err).
			Str("window_id", windowID.String()).
			Int("attempt", attempt).
			Msg("auto-submit of scene drafts failed")

		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return 0, 0, ctx.Err()
			case <-o.clock.After(time.Second * time.Duration(attempt)):
			}
		}
	}
	return 0, 0, lastErr
}

func (o *Orchestrator) emitWindowExpired(ctx context.Context, windowID uuid.UUID, submitted, drafts int) error {
	w, err := o.windows.GetWindow(ctx, windowID)
	if err != nil {
		return fmt.Errorf("get window for WindowExpired event: %w", err)
	}

	expiredAt := o.clock.Now()
	if w.ExpiredAt != nil {
		expiredAt = *w.ExpiredAt
	}
	payload := events.WindowExpiredPayload{
		WindowID:       w.ID.String(),
		QuestionID:     w.QuestionID.String(),
		SessionID:      w.SessionID.String(),
		ExpiredAt:      expiredAt,
		AutoSubmitted:  submitted,
		DraftsConsumed: drafts,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal WindowExpired payload: %w", err)
	}
	return o.outbox.InsertWindowExpired(ctx, windowID, data)
}

// worker processes window expirations from the work channel
func (o *Orchestrator) worker(ctx context.Context, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()

	log.Info().
		Str("instance", o.instanceID).
		Int("worker_id", workerID).
		Msg("worker started")

	for {
		select {
		case <-ctx.Done():
			log.Info().
				Str("instance", o.instanceID).
				Int("worker_id", workerID).
				Msg("worker shutting down")
			return
		case windowID, ok := <-o.workCh:
			if !ok {
				log.Info().
					Str("instance", o.instanceID).
					Int("worker_id", workerID).
					Msg("work channel closed, worker shutting down")
				return
			}

			if err := o.handleExpiry(ctx, windowID); err != nil {
				log.Error().
					Err(err).
					Str("window_id", windowID.String()).
					Str("instance", o.instanceID).
					Int("worker_id", workerID).
					Msg("worker expiry handling failed")
			}

			// Clean up in-flight tracking regardless of success/failure
			o.inFlightMu.Lock()
			delete(o.inFlight, windowID)
			o.inFlightMu.Unlock()
		}
	}
}
