package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stl311/internal/models"
	"stl311/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// syncOwnedColumns are the columns the pipeline is allowed to overwrite on
// an existing row. Staff workflow fields and created_at stay untouched.
var syncOwnedColumns = []string{
	"description",
	"status",
	"priority",
	"problem_code",
	"submit_to",
	"prob_address",
	"prob_city",
	"prob_zip",
	"prob_add_type",
	"neighborhood",
	"ward",
	"caller_type",
	"explanation",
	"group_name",
	"datetime_init",
	"datetime_closed",
	"date_cancelled",
	"date_inv_done",
	"prj_complete_date",
	"srx",
	"sry",
	"updated_at",
}

// UpsertServiceRequestPage commits one validated page in a single
// transaction. New ids are inserted, rows owned by another source are
// skipped, content-identical rows count as unchanged, everything else gets
// its sync-owned columns rewritten. A status change also leaves an audit
// row, and the geometry column is rebuilt from srx/sry for touched rows.
func (s *Store) UpsertServiceRequestPage(ctx context.Context, items []models.ServiceRequest) (repository.UpsertCounts, error) {
	var counts repository.UpsertCounts
	if s == nil || s.db == nil || len(items) == 0 {
		return counts, nil
	}
	items = dedupeByRequestID(items)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := make([]int64, 0, len(items))
		for _, item := range items {
			ids = append(ids, item.RequestID)
		}
		var existing []models.ServiceRequest
		if err := tx.Where("request_id IN ?", ids).Find(&existing).Error; err != nil {
			return err
		}
		byID := make(map[int64]*models.ServiceRequest, len(existing))
		for i := range existing {
			byID[existing[i].RequestID] = &existing[i]
		}

		now := time.Now().UTC()
		for i := range items {
			item := &items[i]
			current, found := byID[item.RequestID]
			if !found {
				item.CreatedAt = now
				item.UpdatedAt = now
				if err := tx.Create(item).Error; err != nil {
					return err
				}
				counts.Inserted++
				if err := refreshGeometry(tx, item.RequestID); err != nil {
					return err
				}
				continue
			}
			if current.Source != models.SourceAPI {
				counts.Skipped++
				continue
			}
			if item.SyncEqual(current) {
				counts.Unchanged++
				continue
			}
			if item.Status != current.Status {
				oldStatus := current.Status
				newStatus := item.Status
				audit := models.ServiceRequestUpdate{
					ServiceRequestID: current.ID,
					OldStatus:        &oldStatus,
					NewStatus:        &newStatus,
					CreatedBy:        "sync",
				}
				if err := tx.Create(&audit).Error; err != nil {
					return err
				}
			}
			item.UpdatedAt = now
			if err := tx.Model(&models.ServiceRequest{}).
				Where("request_id = ?", item.RequestID).
				Select(syncOwnedColumns).
				Updates(item).Error; err != nil {
				return err
			}
			counts.Updated++
			if err := refreshGeometry(tx, item.RequestID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return repository.UpsertCounts{}, err
	}
	return counts, nil
}

// dedupeByRequestID collapses repeated ids within a page, keeping the
// later entry's values in the earlier entry's position. The upstream
// occasionally repeats a record inside one page and the unique index on
// request_id would reject the second insert.
func dedupeByRequestID(items []models.ServiceRequest) []models.ServiceRequest {
	out := make([]models.ServiceRequest, 0, len(items))
	index := make(map[int64]int, len(items))
	for _, item := range items {
		if at, seen := index[item.RequestID]; seen {
			out[at] = item
			continue
		}
		index[item.RequestID] = len(out)
		out = append(out, item)
	}
	return out
}

func refreshGeometry(tx *gorm.DB, requestID int64) error {
	return tx.Exec(`UPDATE service_requests
		SET geometry = CASE
			WHEN srx IS NOT NULL AND sry IS NOT NULL
			THEN ST_SetSRID(ST_MakePoint(srx::double precision, sry::double precision), 3857)
			ELSE NULL
		END
		WHERE request_id = ?`, requestID).Error
}

func (s *Store) GetServiceRequestByRequestID(ctx context.Context, requestID int64) (*models.ServiceRequest, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.ServiceRequest
	err := s.db.WithContext(ctx).Where("request_id = ?", requestID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListServiceRequests(ctx context.Context, params repository.ListServiceRequestsParams) ([]models.ServiceRequest, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyServiceRequestFilters(s.db.WithContext(ctx).Model(&models.ServiceRequest{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "datetime_init")
	var items []models.ServiceRequest
	if err := query.
		Limit(normalizeLimit(params.Limit, 100)).
		Offset(normalizeOffset(params.Offset)).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountServiceRequests(ctx context.Context, params repository.ListServiceRequestsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	err := applyServiceRequestFilters(s.db.WithContext(ctx).Model(&models.ServiceRequest{}), params).
		Count(&total).Error
	return total, err
}

func applyServiceRequestFilters(query *gorm.DB, params repository.ListServiceRequestsParams) *gorm.DB {
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	if params.Ward != nil {
		query = query.Where("ward = ?", *params.Ward)
	}
	if params.Neighborhood != nil && strings.TrimSpace(*params.Neighborhood) != "" {
		query = query.Where("neighborhood = ?", strings.TrimSpace(*params.Neighborhood))
	}
	if params.Source != nil && strings.TrimSpace(*params.Source) != "" {
		query = query.Where("source = ?", strings.TrimSpace(*params.Source))
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("datetime_init >= ?", *params.Since)
	}
	return query
}

func (s *Store) ListStatusUpdates(ctx context.Context, requestID int64) ([]models.ServiceRequestUpdate, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	row, err := s.GetServiceRequestByRequestID(ctx, requestID)
	if err != nil || row == nil {
		return nil, err
	}
	var items []models.ServiceRequestUpdate
	if err := s.db.WithContext(ctx).
		Where("service_request_id = ?", row.ID).
		Order("created_at desc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- sync runs --------------------------------------------------------------

func (s *Store) CreateSyncRun(ctx context.Context, run *models.SyncRun) error {
	if s == nil || s.db == nil || run == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(run).Error
}

func (s *Store) SaveSyncRun(ctx context.Context, run *models.SyncRun) error {
	if s == nil || s.db == nil || run == nil {
		return nil
	}
	return s.db.WithContext(ctx).Save(run).Error
}

func (s *Store) GetSyncRun(ctx context.Context, id string) (*models.SyncRun, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var run models.SyncRun
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *Store) ListSyncRuns(ctx context.Context, params repository.ListSyncRunsParams) ([]models.SyncRun, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applySyncRunFilters(s.db.WithContext(ctx).Model(&models.SyncRun{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "started_at")
	var runs []models.SyncRun
	if err := query.
		Limit(normalizeLimit(params.Limit, 50)).
		Offset(normalizeOffset(params.Offset)).
		Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

func (s *Store) CountSyncRuns(ctx context.Context, params repository.ListSyncRunsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	err := applySyncRunFilters(s.db.WithContext(ctx).Model(&models.SyncRun{}), params).
		Count(&total).Error
	return total, err
}

func applySyncRunFilters(query *gorm.DB, params repository.ListSyncRunsParams) *gorm.DB {
	if params.State != nil && strings.TrimSpace(*params.State) != "" {
		query = query.Where("state = ?", strings.TrimSpace(*params.State))
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("started_at >= ?", *params.Since)
	}
	return query
}

// DeleteSyncRunsBefore prunes terminal runs older than the cutoff.
func (s *Store) DeleteSyncRunsBefore(ctx context.Context, before time.Time) (int64, error) {
	if s == nil || s.db == nil || before.IsZero() {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Where("started_at < ?", before).
		Where("state IN ?", []string{models.RunStateCompleted, models.RunStateFailed}).
		Delete(&models.SyncRun{})
	return res.RowsAffected, res.Error
}

// --- sync state -------------------------------------------------------------

func (s *Store) GetSyncState(ctx context.Context, scope string) (*models.SyncState, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var state models.SyncState
	err := s.db.WithContext(ctx).Where("scope = ?", scope).First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *Store) SaveSyncState(ctx context.Context, state *models.SyncState) error {
	if s == nil || s.db == nil || state == nil {
		return nil
	}
	if strings.TrimSpace(state.Scope) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "scope"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"watermark_ts",
			"last_success_at",
			"last_attempt_at",
			"last_error",
			"stats_json",
		}),
	}).Create(state).Error
}

func (s *Store) ListSyncStates(ctx context.Context) ([]models.SyncState, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var states []models.SyncState
	if err := s.db.WithContext(ctx).
		Model(&models.SyncState{}).
		Order("scope asc").
		Find(&states).Error; err != nil {
		return nil, err
	}
	return states, nil
}

// --- helpers ----------------------------------------------------------------

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
