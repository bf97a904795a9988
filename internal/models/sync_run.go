package models

import (
	"time"

	"gorm.io/datatypes"
)

// Run states. RETRY_WAIT always re-enters FETCHING at the failing page;
// COMPLETED and FAILED are terminal.
const (
	RunStatePending    = "PENDING"
	RunStateFetching   = "FETCHING"
	RunStateValidating = "VALIDATING"
	RunStateUpserting  = "UPSERTING"
	RunStatePublishing = "PUBLISHING"
	RunStateRetryWait  = "RETRY_WAIT"
	RunStateCompleted  = "COMPLETED"
	RunStateFailed     = "FAILED"
)

// SyncRun is one end-to-end execution of fetch→validate→upsert→publish for
// a window. Mutated only by the orchestrator that owns it.
type SyncRun struct {
	ID string `gorm:"primaryKey;type:uuid"`

	WindowKind  string    `gorm:"type:varchar(20);not null"`
	WindowStart time.Time `gorm:"type:timestamptz;not null"`
	WindowEnd   time.Time `gorm:"type:timestamptz;not null"`

	State   string `gorm:"type:varchar(20);not null;index"`
	Attempt int    `gorm:"not null;default:0"`

	Fetched   int `gorm:"not null;default:0"`
	Accepted  int `gorm:"not null;default:0"`
	Corrected int `gorm:"not null;default:0"`
	Rejected  int `gorm:"not null;default:0"`
	Inserted  int `gorm:"not null;default:0"`
	Updated   int `gorm:"not null;default:0"`
	Unchanged int `gorm:"not null;default:0"`
	Skipped   int `gorm:"not null;default:0"`

	Published    *bool   `gorm:"default:null"`
	PublishError *string `gorm:"type:text"`
	LastError    *string `gorm:"type:text"`

	StatsJSON datatypes.JSON `gorm:"type:jsonb"`

	StartedAt  time.Time  `gorm:"type:timestamptz;not null;index"`
	FinishedAt *time.Time `gorm:"type:timestamptz"`
}

func (SyncRun) TableName() string {
	return "sync_runs"
}

// Terminal reports whether the run has reached COMPLETED or FAILED.
func (r *SyncRun) Terminal() bool {
	return r.State == RunStateCompleted || r.State == RunStateFailed
}
