package models

import "time"

// ServiceRequestUpdate is a status-change audit row. The sync path appends
// one whenever an upstream update flips a request's status.
type ServiceRequestUpdate struct {
	ID               uint64 `gorm:"primaryKey;autoIncrement"`
	ServiceRequestID uint64 `gorm:"not null;index"`

	OldStatus     *string `gorm:"type:varchar(50)"`
	NewStatus     *string `gorm:"type:varchar(50)"`
	UpdateMessage *string `gorm:"type:text"`

	CreatedBy string    `gorm:"type:varchar(100);not null;default:system"`
	CreatedAt time.Time `gorm:"type:timestamptz;not null;autoCreateTime"`
}

func (ServiceRequestUpdate) TableName() string {
	return "service_request_updates"
}
