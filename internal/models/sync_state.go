package models

import (
	"time"

	"gorm.io/datatypes"
)

// ScopeRequests is the sync-state scope for the service-request pipeline.
const ScopeRequests = "requests"

// SyncState persists the per-scope watermark so scheduled runs can sync
// since the last success.
type SyncState struct {
	Scope         string         `gorm:"primaryKey;type:text"`
	WatermarkTS   *time.Time     `gorm:"type:timestamptz"`
	LastSuccessAt *time.Time     `gorm:"type:timestamptz"`
	LastAttemptAt *time.Time     `gorm:"type:timestamptz"`
	LastError     *string        `gorm:"type:text"`
	StatsJSON     datatypes.JSON `gorm:"type:jsonb"`
}

func (SyncState) TableName() string {
	return "sync_state"
}
