package service

import (
	"testing"
	"time"
)

func TestYesterdayWindow(t *testing.T) {
	now := time.Date(2026, 8, 30, 14, 30, 0, 0, time.UTC)
	w := Yesterday(now)
	if w.StartDate() != "2026-08-29" || w.EndDate() != "2026-08-30" {
		t.Fatalf("unexpected window %s..%s", w.StartDate(), w.EndDate())
	}
	if w.Kind != WindowYesterday {
		t.Fatalf("unexpected kind %s", w.Kind)
	}
}

func TestLastDaysWindow(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	w := LastDays(now, 7)
	if w.StartDate() != "2026-08-23" {
		t.Fatalf("unexpected start %s", w.StartDate())
	}
	if !w.End.Equal(now) {
		t.Fatalf("unexpected end %s", w.End)
	}
}

func TestRangeRejectsInvertedWindow(t *testing.T) {
	_, err := Range(
		time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	if err == nil {
		t.Fatalf("expected error for inverted window")
	}
}
