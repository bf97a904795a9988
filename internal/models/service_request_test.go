package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func sampleRequest() ServiceRequest {
	hood := "Downtown"
	srx := decimal.NewFromFloat(-10040000.5)
	sry := decimal.NewFromFloat(4650000.25)
	opened := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	return ServiceRequest{
		RequestID:    1234567,
		Source:       SourceAPI,
		Description:  "Pothole",
		Status:       "open",
		Priority:     "high",
		Neighborhood: &hood,
		DatetimeInit: &opened,
		SRX:          &srx,
		SRY:          &sry,
	}
}

func TestSyncEqualIgnoresStaffFields(t *testing.T) {
	a := sampleRequest()
	b := sampleRequest()
	assignee := "inspector"
	notes := "called resident"
	b.AssignedTo = &assignee
	b.InternalNotes = &notes
	b.UpdatedAt = time.Now()

	if !a.SyncEqual(&b) {
		t.Fatalf("staff fields must not affect sync equality")
	}
}

func TestSyncEqualDetectsContentChange(t *testing.T) {
	a := sampleRequest()

	b := sampleRequest()
	b.Status = "closed"
	if a.SyncEqual(&b) {
		t.Fatalf("status change must be detected")
	}

	c := sampleRequest()
	c.SRX = nil
	c.SRY = nil
	if a.SyncEqual(&c) {
		t.Fatalf("geometry removal must be detected")
	}

	d := sampleRequest()
	later := time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC)
	d.DatetimeClosed = &later
	if a.SyncEqual(&d) {
		t.Fatalf("timestamp change must be detected")
	}
}

func TestSyncEqualNil(t *testing.T) {
	a := sampleRequest()
	if a.SyncEqual(nil) {
		t.Fatalf("nil never equals a record")
	}
}

func TestHasGeometry(t *testing.T) {
	a := sampleRequest()
	if !a.HasGeometry() {
		t.Fatalf("expected geometry")
	}
	a.SRY = nil
	if a.HasGeometry() {
		t.Fatalf("half a coordinate pair is not geometry")
	}
}
