package repository

import (
	"context"
	"time"

	"stl311/internal/models"
)

// UpsertCounts is the per-page outcome of a store write.
type UpsertCounts struct {
	Inserted  int
	Updated   int
	Unchanged int
	Skipped   int
}

func (c *UpsertCounts) Add(other UpsertCounts) {
	c.Inserted += other.Inserted
	c.Updated += other.Updated
	c.Unchanged += other.Unchanged
	c.Skipped += other.Skipped
}

type SyncRepository interface {
	// UpsertServiceRequestPage writes one validated page atomically. Either
	// the whole page commits or none of it does; counts classify every item.
	UpsertServiceRequestPage(ctx context.Context, items []models.ServiceRequest) (UpsertCounts, error)

	GetServiceRequestByRequestID(ctx context.Context, requestID int64) (*models.ServiceRequest, error)
	ListServiceRequests(ctx context.Context, params ListServiceRequestsParams) ([]models.ServiceRequest, error)
	CountServiceRequests(ctx context.Context, params ListServiceRequestsParams) (int64, error)
	ListStatusUpdates(ctx context.Context, requestID int64) ([]models.ServiceRequestUpdate, error)

	CreateSyncRun(ctx context.Context, run *models.SyncRun) error
	SaveSyncRun(ctx context.Context, run *models.SyncRun) error
	GetSyncRun(ctx context.Context, id string) (*models.SyncRun, error)
	ListSyncRuns(ctx context.Context, params ListSyncRunsParams) ([]models.SyncRun, error)
	CountSyncRuns(ctx context.Context, params ListSyncRunsParams) (int64, error)
	DeleteSyncRunsBefore(ctx context.Context, before time.Time) (int64, error)

	GetSyncState(ctx context.Context, scope string) (*models.SyncState, error)
	SaveSyncState(ctx context.Context, state *models.SyncState) error
	ListSyncStates(ctx context.Context) ([]models.SyncState, error)
}

type ListServiceRequestsParams struct {
	Limit        int
	Offset       int
	Status       *string
	Ward         *int
	Neighborhood *string
	Source       *string
	Since        *time.Time
	OrderBy      string
	Asc          *bool
}

type ListSyncRunsParams struct {
	Limit   int
	Offset  int
	State   *string
	Since   *time.Time
	OrderBy string
	Asc     *bool
}
