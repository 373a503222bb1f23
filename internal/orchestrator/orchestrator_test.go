package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SmartBoardPlus/EchoDraw/internal/models"
	"github.com/SmartBoardPlus/EchoDraw/internal/window"
)

type fakeWindows struct {
	mu      sync.Mutex
	windows map[uuid.UUID]*models.SubmissionWindow
	expires int
}

func newFakeWindows() *fakeWindows {
	return &fakeWindows{windows: make(map[uuid.UUID]*models.SubmissionWindow)}
}

func (f *fakeWindows) addTimed(deadline time.Time) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	w := &models.SubmissionWindow{
		ID:         uuid.New(),
		QuestionID: uuid.New(),
		SessionID:  uuid.New(),
		State:      models.WindowStateOpen,
		Deadline:   &deadline,
	}
	f.windows[w.ID] = w
	return w.ID
}

func (f *fakeWindows) GetWindow(ctx context.Context, id uuid.UUID) (*models.SubmissionWindow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.windows[id], nil
}

func (f *fakeWindows) Expire(ctx context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expires++
	w := f.windows[id]
	if w == nil || w.State != models.WindowStateOpen {
		return false, nil
	}
	w.State = models.WindowStateExpired
	now := time.Now()
	w.ExpiredAt = &now
	return true, nil
}

func (f *fakeWindows) FetchNextDeadline(ctx context.Context) (*window.NextDeadline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var next *window.NextDeadline
	for _, w := range f.windows {
		if w.State != models.WindowStateOpen || w.Deadline == nil {
			continue
		}
		if next == nil || w.Deadline.Before(*next.Deadline) {
			next = &window.NextDeadline{WindowID: w.ID, Deadline: w.Deadline}
		}
	}
	return next, nil
}

func (f *fakeWindows) FetchWindowsDue(ctx context.Context, limit int32) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []uuid.UUID
	now := time.Now()
	for _, w := range f.windows {
		if w.State == models.WindowStateOpen && w.Deadline != nil && !w.Deadline.After(now) {
			ids = append(ids, w.ID)
		}
	}
	return ids, nil
}

type fakeResponses struct {
	mu       sync.Mutex
	calls    []uuid.UUID
	failures int
}

func (f *fakeResponses) AutoSubmitDrafts(ctx context.Context, windowID uuid.UUID) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, windowID)
	if f.failures > 0 {
		f.failures--
		return 0, 0, errors.New("store unavailable")
	}
	return 2, 3, nil
}

func (f *fakeResponses) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeOutbox struct {
	mu      sync.Mutex
	expired []uuid.UUID
}

func (f *fakeOutbox) InsertWindowExpired(ctx context.Context, windowID uuid.UUID, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expired = append(f.expired, windowID)
	return nil
}

func TestHandleExpiry_WinningTransitionRunsSideEffects(t *testing.T) {
	windows := newFakeWindows()
	responses := &fakeResponses{}
	outbox := &fakeOutbox{}
	o := NewOrchestratorWithClock(windows, responses, outbox, 10, clockwork.NewFakeClock())

	id := windows.addTimed(time.Now().Add(-time.Second))

	require.NoError(t, o.handleExpiry(context.Background(), id))

	assert.Equal(t, []uuid.UUID{id}, responses.calls)
	assert.Equal(t, []uuid.UUID{id}, outbox.expired)
}

func TestHandleExpiry_SideEffectsFireExactlyOnce(t *testing.T) {
	windows := newFakeWindows()
	responses := &fakeResponses{}
	outbox := &fakeOutbox{}
	o := NewOrchestratorWithClock(windows, responses, outbox, 10, clockwork.NewFakeClock())

	id := windows.addTimed(time.Now().Add(-time.Second))

	// Several observers of the same due deadline race the transition.
	for i := 0; i < 5; i++ {
		require.NoError(t, o.handleExpiry(context.Background(), id))
	}

	assert.Equal(t, 5, windows.expires, "every observer attempts the transition")
	assert.Len(t, responses.calls, 1, "auto-submit runs only for the winner")
	assert.Len(t, outbox.expired, 1, "WindowExpired is emitted once")
}

func TestHandleExpiry_RetriesFailedDraftSweep(t *testing.T) {
	windows := newFakeWindows()
	responses := &fakeResponses{failures: 2}
	outbox := &fakeOutbox{}
	clock := clockwork.NewFakeClock()
	o := NewOrchestratorWithClock(windows, responses, outbox, 10, clock)

	id := windows.addTimed(time.Now().Add(-time.Second))

	done := make(chan error, 1)
	go func() { done <- o.handleExpiry(context.Background(), id) }()

	// Two failing attempts, each followed by a backoff sleep.
	clock.BlockUntil(1)
	clock.Advance(time.Second)
	clock.BlockUntil(1)
	clock.Advance(2 * time.Second)

	require.NoError(t, <-done)
	assert.Equal(t, 3, responses.callCount(), "sweep retried until it succeeded")
	assert.Equal(t, []uuid.UUID{id}, outbox.expired, "WindowExpired emitted after the recovered sweep")
}

func TestHandleExpiry_ExhaustedSweepRetriesSkipEmit(t *testing.T) {
	windows := newFakeWindows()
	responses := &fakeResponses{failures: 10}
	outbox := &fakeOutbox{}
	clock := clockwork.NewFakeClock()
	o := NewOrchestratorWithClock(windows, responses, outbox, 10, clock)

	id := windows.addTimed(time.Now().Add(-time.Second))

	done := make(chan error, 1)
	go func() { done <- o.handleExpiry(context.Background(), id) }()

	clock.BlockUntil(1)
	clock.Advance(time.Second)
	clock.BlockUntil(1)
	clock.Advance(2 * time.Second)

	err := <-done
	require.Error(t, err)
	assert.Equal(t, 3, responses.callCount())
	assert.Empty(t, outbox.expired, "no WindowExpired for a window whose drafts were not converted")
}

func TestRunScheduler_ExpiresDueWindow(t *testing.T) {
	windows := newFakeWindows()
	responses := &fakeResponses{}
	outbox := &fakeOutbox{}
	o := NewOrchestrator(windows, responses, outbox, 10)

	windows.addTimed(time.Now().Add(50 * time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- o.RunScheduler(ctx) }()

	require.Eventually(t, func() bool {
		outbox.mu.Lock()
		defer outbox.mu.Unlock()
		return len(outbox.expired) == 1
	}, time.Second, 10*time.Millisecond, "scheduler should expire the due window")

	cancel()
	require.NoError(t, <-done)
}

func TestRunScheduler_WakeShortensSleep(t *testing.T) {
	windows := newFakeWindows()
	responses := &fakeResponses{}
	outbox := &fakeOutbox{}
	o := NewOrchestrator(windows, responses, outbox, 10)

	// Scheduler starts idle: no timed windows.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- o.RunScheduler(ctx) }()

	// A window opens with a deadline well under the idle poll interval;
	// Wake must get it picked up without waiting out the idle sleep.
	time.Sleep(20 * time.Millisecond)
	windows.addTimed(time.Now().Add(30 * time.Millisecond))
	o.Wake()

	require.Eventually(t, func() bool {
		outbox.mu.Lock()
		defer outbox.mu.Unlock()
		return len(outbox.expired) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
