package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	SourceAPI     = "api"
	SourceCitizen = "citizen"
)

// ServiceRequest is one reported 311 issue. Rows with Source == "api" are
// owned by the sync pipeline; rows from other sources are never overwritten
// by it. The spatial geometry column (geometry(Point,3857)) is maintained by
// the store from SRX/SRY and is not mapped here.
type ServiceRequest struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	RequestID int64  `gorm:"uniqueIndex;not null"`
	Source    string `gorm:"type:varchar(20);not null;default:api;index"`

	Description string  `gorm:"type:text"`
	Status      string  `gorm:"type:varchar(50);index"`
	Priority    string  `gorm:"type:varchar(20)"`
	ProblemCode *string `gorm:"type:varchar(50);index"`
	SubmitTo    *string `gorm:"type:varchar(100)"`

	ProbAddress *string `gorm:"type:varchar(255)"`
	ProbCity    *string `gorm:"type:varchar(100)"`
	ProbZip     *int
	ProbAddType *string `gorm:"type:varchar(50)"`

	Neighborhood *string `gorm:"type:varchar(100)"`
	Ward         *int

	CallerType  *string `gorm:"type:varchar(50)"`
	Explanation *string `gorm:"type:text"`
	GroupName   *string `gorm:"type:varchar(100)"`

	DatetimeInit    *time.Time `gorm:"type:timestamptz;index"`
	DatetimeClosed  *time.Time `gorm:"type:timestamptz"`
	DateCancelled   *time.Time `gorm:"type:timestamptz"`
	DateInvDone     *time.Time `gorm:"type:timestamptz"`
	PrjCompleteDate *time.Time `gorm:"type:timestamptz"`

	// Planar coordinates in EPSG:3857 meters. Absent means non-spatial.
	SRX *decimal.Decimal `gorm:"type:numeric(12,2)"`
	SRY *decimal.Decimal `gorm:"type:numeric(12,2)"`

	// Staff workflow fields, maintained by the web layer. The sync path
	// must never write these.
	AssignedTo          *string    `gorm:"type:varchar(100)"`
	InternalNotes       *string    `gorm:"type:text"`
	EstimatedCompletion *time.Time `gorm:"type:timestamptz"`
	CitizenUpdates      *string    `gorm:"type:text"`

	CreatedAt time.Time `gorm:"type:timestamptz;not null"`
	UpdatedAt time.Time `gorm:"type:timestamptz;not null"`
}

func (ServiceRequest) TableName() string {
	return "service_requests"
}

// SyncEqual reports whether the sync-owned content of two records matches.
// Staff fields and metadata timestamps are excluded: a record whose
// sync-owned fields are unchanged counts as "unchanged" on upsert.
func (r *ServiceRequest) SyncEqual(other *ServiceRequest) bool {
	if other == nil {
		return false
	}
	return r.RequestID == other.RequestID &&
		r.Description == other.Description &&
		r.Status == other.Status &&
		r.Priority == other.Priority &&
		strEq(r.ProblemCode, other.ProblemCode) &&
		strEq(r.SubmitTo, other.SubmitTo) &&
		strEq(r.ProbAddress, other.ProbAddress) &&
		strEq(r.ProbCity, other.ProbCity) &&
		intEq(r.ProbZip, other.ProbZip) &&
		strEq(r.ProbAddType, other.ProbAddType) &&
		strEq(r.Neighborhood, other.Neighborhood) &&
		intEq(r.Ward, other.Ward) &&
		strEq(r.CallerType, other.CallerType) &&
		strEq(r.Explanation, other.Explanation) &&
		strEq(r.GroupName, other.GroupName) &&
		timeEq(r.DatetimeInit, other.DatetimeInit) &&
		timeEq(r.DatetimeClosed, other.DatetimeClosed) &&
		timeEq(r.DateCancelled, other.DateCancelled) &&
		timeEq(r.DateInvDone, other.DateInvDone) &&
		timeEq(r.PrjCompleteDate, other.PrjCompleteDate) &&
		decimalEq(r.SRX, other.SRX) &&
		decimalEq(r.SRY, other.SRY)
}

// HasGeometry reports whether the record carries a usable coordinate pair.
func (r *ServiceRequest) HasGeometry() bool {
	return r.SRX != nil && r.SRY != nil
}

func strEq(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func intEq(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func timeEq(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func decimalEq(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
