package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"stl311/internal/config"
	"stl311/internal/models"
	"stl311/internal/service"
)

type blockingRunner struct {
	mu       sync.Mutex
	runs     int
	cleanups int
	release  chan struct{}
	windows  []service.Window
	ids      []string
}

func (r *blockingRunner) Run(_ context.Context, runID string, window service.Window) (*models.SyncRun, error) {
	r.mu.Lock()
	r.runs++
	r.windows = append(r.windows, window)
	r.ids = append(r.ids, runID)
	r.mu.Unlock()
	if r.release != nil {
		<-r.release
	}
	return &models.SyncRun{ID: runID, State: models.RunStateCompleted}, nil
}

func (r *blockingRunner) Cleanup(context.Context) (int64, error) {
	r.mu.Lock()
	r.cleanups++
	r.mu.Unlock()
	return 2, nil
}

type fakeStates struct {
	state *models.SyncState
	err   error
}

func (f *fakeStates) GetSyncState(context.Context, string) (*models.SyncState, error) {
	return f.state, f.err
}

func testConfig() config.CronConfig {
	return config.CronConfig{
		Enabled:   true,
		DailySync: "0 0 2 * * *",
		Cleanup:   "0 0 3 * * *",
	}
}

func TestTriggerNowRejectsConcurrentRun(t *testing.T) {
	runner := &blockingRunner{release: make(chan struct{})}
	s := New(runner, &fakeStates{}, testConfig(), zap.NewNop(), context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := s.TriggerNow(context.Background(), service.Yesterday(time.Now())); err != nil {
			t.Errorf("first trigger failed: %v", err)
		}
	}()

	// Wait for the first run to take the slot.
	for {
		s.mu.Lock()
		running := s.running
		s.mu.Unlock()
		if running {
			break
		}
		time.Sleep(time.Millisecond)
	}

	if _, err := s.TriggerNow(context.Background(), service.Yesterday(time.Now())); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	close(runner.release)
	<-done

	if _, err := s.TriggerNow(context.Background(), service.Yesterday(time.Now())); err != nil {
		t.Fatalf("trigger after completion failed: %v", err)
	}
	if runner.runs != 2 {
		t.Fatalf("expected 2 runs, got %d", runner.runs)
	}
}

func TestStatusReportsActiveRun(t *testing.T) {
	runner := &blockingRunner{release: make(chan struct{})}
	s := New(runner, &fakeStates{}, testConfig(), zap.NewNop(), context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := s.TriggerNow(context.Background(), service.Yesterday(time.Now())); err != nil {
			t.Errorf("trigger failed: %v", err)
		}
	}()

	for {
		s.mu.Lock()
		running := s.running
		s.mu.Unlock()
		if running {
			break
		}
		time.Sleep(time.Millisecond)
	}

	status := s.Status()
	if !status.Running || status.ActiveRunID == "" {
		t.Fatalf("expected an identifiable in-flight run, got %+v", status)
	}
	runner.mu.Lock()
	passed := runner.ids[0]
	runner.mu.Unlock()
	if status.ActiveRunID != passed {
		t.Fatalf("status id %q does not match the id handed to the runner %q", status.ActiveRunID, passed)
	}

	close(runner.release)
	<-done
	status = s.Status()
	if status.ActiveRunID != "" {
		t.Fatalf("expected active run id cleared after completion")
	}
	if status.LastRun == nil || status.LastRun.ID != passed {
		t.Fatalf("expected last run recorded, got %+v", status.LastRun)
	}
}

func TestStartStopLifecycle(t *testing.T) {
	s := New(&blockingRunner{}, &fakeStates{}, testConfig(), zap.NewNop(), context.Background())

	if s.Status().Started {
		t.Fatalf("expected stopped scheduler")
	}
	if err := s.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("double start must be a no-op: %v", err)
	}
	status := s.Status()
	if !status.Started {
		t.Fatalf("expected started scheduler")
	}
	if status.NextSync == nil || status.NextCleanup == nil {
		t.Fatalf("expected next fire times, got %+v", status)
	}
	s.Stop()
	s.Stop()
	if s.Status().Started {
		t.Fatalf("expected stopped scheduler after Stop")
	}
}

func TestStartRejectsBadSpec(t *testing.T) {
	cfg := testConfig()
	cfg.DailySync = "not a cron spec"
	s := New(&blockingRunner{}, &fakeStates{}, cfg, zap.NewNop(), context.Background())
	if err := s.Start(); err == nil {
		t.Fatalf("expected error for invalid spec")
	}
	if s.Status().Started {
		t.Fatalf("failed start must leave the scheduler stopped")
	}
}

func TestScheduledSyncUsesWatermark(t *testing.T) {
	watermark := time.Date(2026, 8, 20, 2, 0, 0, 0, time.UTC)
	states := &fakeStates{state: &models.SyncState{
		Scope:       models.ScopeRequests,
		WatermarkTS: &watermark,
	}}
	runner := &blockingRunner{}
	s := New(runner, states, testConfig(), zap.NewNop(), context.Background())

	s.scheduledSync()
	if len(runner.windows) != 1 {
		t.Fatalf("expected one run, got %d", len(runner.windows))
	}
	w := runner.windows[0]
	if w.Kind != service.WindowRange {
		t.Fatalf("expected range window, got %s", w.Kind)
	}
	if !w.Start.Equal(watermark) {
		t.Fatalf("expected window to start at watermark, got %s", w.Start)
	}
}

func TestScheduledSyncFallsBackToYesterday(t *testing.T) {
	runner := &blockingRunner{}
	s := New(runner, &fakeStates{}, testConfig(), zap.NewNop(), context.Background())

	s.scheduledSync()
	if len(runner.windows) != 1 {
		t.Fatalf("expected one run, got %d", len(runner.windows))
	}
	if runner.windows[0].Kind != service.WindowYesterday {
		t.Fatalf("expected yesterday window, got %s", runner.windows[0].Kind)
	}
}

func TestScheduledCleanup(t *testing.T) {
	runner := &blockingRunner{}
	s := New(runner, &fakeStates{}, testConfig(), zap.NewNop(), context.Background())
	s.scheduledCleanup()
	if runner.cleanups != 1 {
		t.Fatalf("expected one cleanup, got %d", runner.cleanups)
	}
}
