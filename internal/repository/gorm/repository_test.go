package gormrepository

import (
	"testing"

	"stl311/internal/models"
)

func TestDedupeByRequestIDLaterEntryWins(t *testing.T) {
	first := models.ServiceRequest{RequestID: 7, Status: "open"}
	later := models.ServiceRequest{RequestID: 7, Status: "closed"}
	other := models.ServiceRequest{RequestID: 8, Status: "new"}

	out := dedupeByRequestID([]models.ServiceRequest{first, other, later})
	if len(out) != 2 {
		t.Fatalf("expected 2 records after dedupe, got %d", len(out))
	}
	if out[0].RequestID != 7 || out[0].Status != "closed" {
		t.Fatalf("expected later values in the first slot, got %+v", out[0])
	}
	if out[1].RequestID != 8 {
		t.Fatalf("expected order preserved, got %+v", out[1])
	}
}

func TestDedupeByRequestIDNoDuplicates(t *testing.T) {
	in := []models.ServiceRequest{
		{RequestID: 1}, {RequestID: 2}, {RequestID: 3},
	}
	out := dedupeByRequestID(in)
	if len(out) != 3 {
		t.Fatalf("expected all records kept, got %d", len(out))
	}
	for i := range in {
		if out[i].RequestID != in[i].RequestID {
			t.Fatalf("expected order preserved at %d, got %d", i, out[i].RequestID)
		}
	}
}

func TestNormalizeLimit(t *testing.T) {
	if got := normalizeLimit(0, 50); got != 50 {
		t.Fatalf("expected fallback, got %d", got)
	}
	if got := normalizeLimit(2000, 50); got != 500 {
		t.Fatalf("expected cap, got %d", got)
	}
	if got := normalizeLimit(25, 50); got != 25 {
		t.Fatalf("expected passthrough, got %d", got)
	}
}
