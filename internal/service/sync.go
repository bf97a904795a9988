package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"stl311/internal/client/stl311"
	"stl311/internal/config"
	"stl311/internal/metrics"
	"stl311/internal/models"
	"stl311/internal/repository"
	"stl311/internal/validate"
)

// PageFetcher is the slice of the upstream client the orchestrator needs.
type PageFetcher interface {
	FetchPage(ctx context.Context, q stl311.PageQuery) ([]stl311.RawRequest, bool, error)
}

// LayerPublisher refreshes the map layer after a completed upsert.
type LayerPublisher interface {
	Publish(ctx context.Context, layer string) error
}

// SyncService drives one window through fetch, validate, upsert and
// publish. Pages are the unit of progress: a committed page is never
// re-fetched, and a transient failure retries only the failing page.
type SyncService struct {
	Store      repository.SyncRepository
	API        PageFetcher
	Geo        LayerPublisher
	Normalizer *validate.Normalizer
	Logger     *zap.Logger

	APIConfig  config.APIConfig
	SyncConfig config.SyncConfig

	// Overridable in tests so retry waits run instantly.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewSyncService(
	store repository.SyncRepository,
	api PageFetcher,
	geo LayerPublisher,
	normalizer *validate.Normalizer,
	apiCfg config.APIConfig,
	syncCfg config.SyncConfig,
	logger *zap.Logger,
) *SyncService {
	return &SyncService{
		Store:      store,
		API:        api,
		Geo:        geo,
		Normalizer: normalizer,
		Logger:     logger,
		APIConfig:  apiCfg,
		SyncConfig: syncCfg,
		sleep:      sleepCtx,
	}
}

// Run executes one sync for the window and returns the terminal run row.
// The caller may supply the run id so the run is identifiable while still
// in flight; an empty id gets a fresh one. The returned error is non-nil
// only when the run ended FAILED; a failed publish alone still completes
// the run.
func (s *SyncService) Run(ctx context.Context, runID string, window Window) (*models.SyncRun, error) {
	if runID == "" {
		runID = uuid.NewString()
	}
	now := time.Now().UTC()
	run := &models.SyncRun{
		ID:          runID,
		WindowKind:  window.Kind,
		WindowStart: window.Start,
		WindowEnd:   window.End,
		State:       models.RunStatePending,
		StartedAt:   now,
	}
	if err := s.Store.CreateSyncRun(ctx, run); err != nil {
		return nil, err
	}
	s.Logger.Info("sync run started",
		zap.String("run_id", run.ID),
		zap.String("window", window.Kind),
		zap.String("start", window.StartDate()),
		zap.String("end", window.EndDate()))

	runErr := s.execute(ctx, run, window)
	finished := time.Now().UTC()
	run.FinishedAt = &finished
	if runErr != nil {
		run.State = models.RunStateFailed
		setRunError(run, runErr)
	} else {
		run.State = models.RunStateCompleted
	}
	run.StatsJSON = runStats(run)
	if err := s.Store.SaveSyncRun(ctx, run); err != nil {
		s.Logger.Error("failed to persist run", zap.String("run_id", run.ID), zap.Error(err))
	}
	s.saveState(ctx, run, runErr)

	metrics.RunsTotal.WithLabelValues(run.State).Inc()
	metrics.RunDuration.Observe(finished.Sub(run.StartedAt).Seconds())
	if runErr != nil {
		s.Logger.Error("sync run failed",
			zap.String("run_id", run.ID),
			zap.Int("attempt", run.Attempt),
			zap.Error(runErr))
		return run, runErr
	}
	s.Logger.Info("sync run completed",
		zap.String("run_id", run.ID),
		zap.Int("fetched", run.Fetched),
		zap.Int("inserted", run.Inserted),
		zap.Int("updated", run.Updated),
		zap.Int("unchanged", run.Unchanged),
		zap.Int("skipped", run.Skipped),
		zap.Int("rejected", run.Rejected))
	return run, nil
}

func (s *SyncService) execute(ctx context.Context, run *models.SyncRun, window Window) error {
	pageSize := s.APIConfig.PageSize
	if pageSize <= 0 {
		pageSize = 1000
	}
	maxPages := s.APIConfig.MaxPages
	if maxPages <= 0 {
		maxPages = 10
	}

	bo := s.newBackOff()

	page := 1
	for page <= maxPages {
		if err := ctx.Err(); err != nil {
			return err
		}
		// Tallies roll back with the page so a retried page is not
		// counted twice.
		baseFetched := run.Fetched
		baseAccepted := run.Accepted
		baseCorrected := run.Corrected
		baseRejected := run.Rejected
		if err := s.transition(ctx, run, models.RunStateFetching); err != nil {
			return err
		}
		batch, more, err := s.API.FetchPage(ctx, stl311.PageQuery{
			StartDate: window.StartDate(),
			EndDate:   window.EndDate(),
			Status:    s.APIConfig.Status,
			Page:      page,
			PageSize:  pageSize,
		})
		if err != nil {
			retry, waitErr := s.awaitRetry(ctx, run, bo, err, stl311.IsTransient(err))
			if waitErr != nil {
				return waitErr
			}
			if retry {
				continue
			}
			return err
		}
		run.Fetched += len(batch)
		if len(batch) == 0 {
			break
		}

		if err := s.transition(ctx, run, models.RunStateValidating); err != nil {
			return err
		}
		records := s.validatePage(ctx, run, batch)

		if err := s.transition(ctx, run, models.RunStateUpserting); err != nil {
			return err
		}
		counts, err := s.Store.UpsertServiceRequestPage(ctx, records)
		if err != nil {
			// Store failures are retried: the page rolled back, so
			// re-fetching it is safe.
			retry, waitErr := s.awaitRetry(ctx, run, bo, err, ctx.Err() == nil)
			if waitErr != nil {
				return waitErr
			}
			if retry {
				run.Fetched = baseFetched
				run.Accepted = baseAccepted
				run.Corrected = baseCorrected
				run.Rejected = baseRejected
				continue
			}
			return err
		}
		run.Inserted += counts.Inserted
		run.Updated += counts.Updated
		run.Unchanged += counts.Unchanged
		run.Skipped += counts.Skipped
		metrics.UpsertsTotal.WithLabelValues("inserted").Add(float64(counts.Inserted))
		metrics.UpsertsTotal.WithLabelValues("updated").Add(float64(counts.Updated))
		metrics.UpsertsTotal.WithLabelValues("unchanged").Add(float64(counts.Unchanged))
		metrics.UpsertsTotal.WithLabelValues("skipped").Add(float64(counts.Skipped))
		// Page metrics follow the committed tallies; a rolled-back page
		// leaves none.
		metrics.PagesFetched.Inc()
		metrics.RecordsTotal.WithLabelValues(validate.OutcomeAccepted.String()).Add(float64(run.Accepted - baseAccepted))
		metrics.RecordsTotal.WithLabelValues(validate.OutcomeCorrected.String()).Add(float64(run.Corrected - baseCorrected))
		metrics.RecordsTotal.WithLabelValues(validate.OutcomeRejected.String()).Add(float64(run.Rejected - baseRejected))

		// A committed page resets the wait schedule for later pages.
		bo = s.newBackOff()
		s.Logger.Debug("page committed",
			zap.String("run_id", run.ID),
			zap.Int("page", page),
			zap.Int("records", len(batch)))
		if !more {
			break
		}
		page++
	}

	s.publish(ctx, run)
	return nil
}

// validatePage normalizes a page with bounded concurrency and tallies
// outcomes onto the run. Rejected records are logged and dropped.
func (s *SyncService) validatePage(ctx context.Context, run *models.SyncRun, batch []stl311.RawRequest) []models.ServiceRequest {
	workers := s.SyncConfig.ValidateWorkers
	if workers <= 0 {
		workers = 4
	}
	results := make([]validate.Result, len(batch))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range batch {
		g.Go(func() error {
			results[i] = s.Normalizer.Normalize(batch[i])
			return nil
		})
	}
	_ = g.Wait()

	records := make([]models.ServiceRequest, 0, len(batch))
	for _, res := range results {
		switch res.Outcome {
		case validate.OutcomeAccepted:
			run.Accepted++
			records = append(records, res.Record)
		case validate.OutcomeCorrected:
			run.Corrected++
			records = append(records, res.Record)
			s.Logger.Debug("record corrected",
				zap.Int64("request_id", res.Record.RequestID),
				zap.Strings("notes", res.Notes))
		case validate.OutcomeRejected:
			run.Rejected++
			s.Logger.Warn("record rejected", zap.String("reason", res.Reason))
		}
	}
	return records
}

// awaitRetry decides what a page failure means. Transient errors below the
// retry ceiling move the run through RETRY_WAIT and report retry=true;
// anything else is final and the caller fails the run.
func (s *SyncService) awaitRetry(ctx context.Context, run *models.SyncRun, bo *backoff.ExponentialBackOff, cause error, transient bool) (bool, error) {
	if !transient {
		return false, nil
	}
	if run.Attempt >= s.maxRetryAttempts() {
		return false, nil
	}
	run.Attempt++
	setRunError(run, cause)
	if err := s.transition(ctx, run, models.RunStateRetryWait); err != nil {
		return false, err
	}
	metrics.RetriesTotal.Inc()
	wait := bo.NextBackOff()
	s.Logger.Warn("transient failure, retrying page",
		zap.String("run_id", run.ID),
		zap.Int("attempt", run.Attempt),
		zap.Duration("wait", wait),
		zap.Error(cause))
	if err := s.sleep(ctx, wait); err != nil {
		return false, err
	}
	return true, nil
}

// publish refreshes the layer. Failure is recorded but never fails the
// run: the store is already consistent.
func (s *SyncService) publish(ctx context.Context, run *models.SyncRun) {
	if err := s.transition(ctx, run, models.RunStatePublishing); err != nil {
		return
	}
	published := true
	if err := s.Geo.Publish(ctx, s.layerName()); err != nil {
		published = false
		msg := err.Error()
		run.PublishError = &msg
		metrics.PublishFailures.Inc()
		s.Logger.Error("layer refresh failed",
			zap.String("run_id", run.ID),
			zap.String("layer", s.layerName()),
			zap.Error(err))
	}
	run.Published = &published
}

func (s *SyncService) transition(ctx context.Context, run *models.SyncRun, state string) error {
	run.State = state
	return s.Store.SaveSyncRun(ctx, run)
}

func (s *SyncService) saveState(ctx context.Context, run *models.SyncRun, runErr error) {
	now := time.Now().UTC()
	state, err := s.Store.GetSyncState(ctx, models.ScopeRequests)
	if err != nil {
		s.Logger.Error("failed to load sync state", zap.Error(err))
		return
	}
	if state == nil {
		state = &models.SyncState{Scope: models.ScopeRequests}
	}
	state.LastAttemptAt = &now
	if runErr != nil {
		msg := runErr.Error()
		state.LastError = &msg
	} else {
		state.LastError = nil
		state.LastSuccessAt = &now
		watermark := run.WindowEnd
		if watermark.After(now) {
			watermark = now
		}
		state.WatermarkTS = &watermark
		state.StatsJSON = runStats(run)
	}
	if err := s.Store.SaveSyncState(ctx, state); err != nil {
		s.Logger.Error("failed to save sync state", zap.Error(err))
	}
}

// Cleanup prunes terminal runs older than the retention window.
func (s *SyncService) Cleanup(ctx context.Context) (int64, error) {
	days := s.SyncConfig.RunRetentionDays
	if days <= 0 {
		days = 30
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	return s.Store.DeleteSyncRunsBefore(ctx, cutoff)
}

func (s *SyncService) newBackOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	if s.SyncConfig.InitialBackoff > 0 {
		bo.InitialInterval = s.SyncConfig.InitialBackoff
	}
	if s.SyncConfig.MaxBackoff > 0 {
		bo.MaxInterval = s.SyncConfig.MaxBackoff
	}
	return bo
}

func (s *SyncService) maxRetryAttempts() int {
	if s.SyncConfig.MaxRetryAttempts <= 0 {
		return 3
	}
	return s.SyncConfig.MaxRetryAttempts
}

func (s *SyncService) layerName() string {
	if s.SyncConfig.LayerName == "" {
		return "service_requests"
	}
	return s.SyncConfig.LayerName
}

func setRunError(run *models.SyncRun, err error) {
	msg := err.Error()
	run.LastError = &msg
}

func runStats(run *models.SyncRun) []byte {
	stats, err := json.Marshal(map[string]int{
		"fetched":   run.Fetched,
		"accepted":  run.Accepted,
		"corrected": run.Corrected,
		"rejected":  run.Rejected,
		"inserted":  run.Inserted,
		"updated":   run.Updated,
		"unchanged": run.Unchanged,
		"skipped":   run.Skipped,
	})
	if err != nil {
		return nil
	}
	return stats
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("retry wait interrupted: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
