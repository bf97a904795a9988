package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"stl311/internal/config"
	"stl311/internal/models"
	"stl311/internal/service"
)

// ErrAlreadyRunning is returned when a trigger arrives while a run is in
// flight. At most one run executes at a time.
var ErrAlreadyRunning = errors.New("a sync run is already in progress")

// SyncRunner is the slice of the sync service the scheduler drives. The
// scheduler assigns the run id before the run starts so an in-flight run
// is identifiable through Status.
type SyncRunner interface {
	Run(ctx context.Context, runID string, window service.Window) (*models.SyncRun, error)
	Cleanup(ctx context.Context) (int64, error)
}

// StateReader resolves the watermark for scheduled windows.
type StateReader interface {
	GetSyncState(ctx context.Context, scope string) (*models.SyncState, error)
}

// Scheduler owns the cron entries and the single-run guard. Stopping it
// stops scheduling only; an in-flight run keeps going until it finishes.
type Scheduler struct {
	runner  SyncRunner
	states  StateReader
	cfg     config.CronConfig
	logger  *zap.Logger
	baseCtx context.Context

	mu           sync.Mutex
	cron         *cron.Cron
	started      bool
	running      bool
	syncEntry    cron.EntryID
	cleanupEntry cron.EntryID
	activeRunID  string
	lastRun      *models.SyncRun
}

// Status is a point-in-time snapshot for the control surface.
type Status struct {
	Started     bool            `json:"started"`
	Running     bool            `json:"running"`
	ActiveRunID string          `json:"active_run_id,omitempty"`
	NextSync    *time.Time      `json:"next_sync,omitempty"`
	NextCleanup *time.Time      `json:"next_cleanup,omitempty"`
	LastRun     *models.SyncRun `json:"last_run,omitempty"`
}

func New(runner SyncRunner, states StateReader, cfg config.CronConfig, logger *zap.Logger, baseCtx context.Context) *Scheduler {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Scheduler{
		runner:  runner,
		states:  states,
		cfg:     cfg,
		logger:  logger,
		baseCtx: baseCtx,
	}
}

// Start registers the daily sync and cleanup entries and begins scheduling.
// Calling Start on a started scheduler is a no-op.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	c := cron.New(cron.WithSeconds())
	syncEntry, err := c.AddFunc(s.cfg.DailySync, func() { s.scheduledSync() })
	if err != nil {
		return err
	}
	cleanupEntry, err := c.AddFunc(s.cfg.Cleanup, func() { s.scheduledCleanup() })
	if err != nil {
		return err
	}
	c.Start()
	s.cron = c
	s.syncEntry = syncEntry
	s.cleanupEntry = cleanupEntry
	s.started = true
	s.logger.Info("scheduler started",
		zap.String("daily_sync", s.cfg.DailySync),
		zap.String("cleanup", s.cfg.Cleanup))
	return nil
}

// Stop halts scheduling. An in-flight run is left to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	s.cron.Stop()
	s.cron = nil
	s.started = false
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	status := Status{
		Started:     s.started,
		Running:     s.running,
		ActiveRunID: s.activeRunID,
		LastRun:     s.lastRun,
	}
	if s.started && s.cron != nil {
		if next := s.cron.Entry(s.syncEntry).Next; !next.IsZero() {
			status.NextSync = &next
		}
		if next := s.cron.Entry(s.cleanupEntry).Next; !next.IsZero() {
			status.NextCleanup = &next
		}
	}
	return status
}

// TriggerNow runs a sync for the window immediately, regardless of whether
// scheduling is started. It returns ErrAlreadyRunning when a run is in
// flight.
func (s *Scheduler) TriggerNow(ctx context.Context, window service.Window) (*models.SyncRun, error) {
	return s.runGuarded(ctx, window)
}

func (s *Scheduler) runGuarded(ctx context.Context, window service.Window) (*models.SyncRun, error) {
	runID := uuid.NewString()
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	s.running = true
	s.activeRunID = runID
	s.mu.Unlock()

	run, err := s.runner.Run(ctx, runID, window)

	s.mu.Lock()
	s.running = false
	s.activeRunID = ""
	if run != nil {
		s.lastRun = run
	}
	s.mu.Unlock()
	return run, err
}

// scheduledSync covers everything since the last successful watermark, or
// yesterday when no watermark exists yet.
func (s *Scheduler) scheduledSync() {
	ctx := s.baseCtx
	now := time.Now().UTC()
	window := service.Yesterday(now)
	state, err := s.states.GetSyncState(ctx, models.ScopeRequests)
	if err != nil {
		s.logger.Error("failed to load watermark, falling back to yesterday", zap.Error(err))
	} else if state != nil && state.WatermarkTS != nil {
		if w, err := service.Range(*state.WatermarkTS, now); err == nil {
			window = w
		}
	}

	if _, err := s.runGuarded(ctx, window); err != nil {
		if errors.Is(err, ErrAlreadyRunning) {
			s.logger.Warn("scheduled sync skipped, run already in progress")
			return
		}
		s.logger.Error("scheduled sync failed", zap.Error(err))
	}
}

func (s *Scheduler) scheduledCleanup() {
	pruned, err := s.runner.Cleanup(s.baseCtx)
	if err != nil {
		s.logger.Error("run cleanup failed", zap.Error(err))
		return
	}
	if pruned > 0 {
		s.logger.Info("pruned old sync runs", zap.Int64("pruned", pruned))
	}
}
