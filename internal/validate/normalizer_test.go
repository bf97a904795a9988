package validate

import (
	"strings"
	"testing"
	"unicode/utf8"

	"stl311/internal/client/stl311"
	"stl311/internal/config"
)

func testBounds() config.BoundsConfig {
	return config.BoundsConfig{
		MinX: -10060000, MaxX: -10020000,
		MinY: 4600000, MaxY: 4700000,
	}
}

func rawFixture() stl311.RawRequest {
	return stl311.RawRequest{
		ServiceRequestID:  "1234567",
		Status:            "open",
		Priority:          "high",
		ServiceName:       "Pothole",
		ServiceCode:       "42",
		Address:           "1200 Market Street, Downtown",
		Zipcode:           "63103",
		Ward:              "7",
		RequestedDatetime: "2026-08-01 09:30:00",
		SRX:               "-10040000.50",
		SRY:               "4630000.25",
	}
}

func TestNormalizeAccepted(t *testing.T) {
	n := New(testBounds())
	res := n.Normalize(rawFixture())
	if res.Outcome != OutcomeAccepted {
		t.Fatalf("expected accepted, got %s (notes %v)", res.Outcome, res.Notes)
	}
	rec := res.Record
	if rec.RequestID != 1234567 {
		t.Fatalf("unexpected request id %d", rec.RequestID)
	}
	if rec.Status != "open" || rec.Priority != "high" {
		t.Fatalf("unexpected status/priority %s/%s", rec.Status, rec.Priority)
	}
	if !rec.HasGeometry() {
		t.Fatalf("expected geometry")
	}
	if rec.Ward == nil || *rec.Ward != 7 {
		t.Fatalf("unexpected ward %v", rec.Ward)
	}
	if rec.ProbZip == nil || *rec.ProbZip != 63103 {
		t.Fatalf("unexpected zip %v", rec.ProbZip)
	}
	if rec.DatetimeInit == nil {
		t.Fatalf("expected requested datetime to parse")
	}
}

func TestNormalizeRejectsMissingRequiredFields(t *testing.T) {
	n := New(testBounds())

	raw := rawFixture()
	raw.ServiceRequestID = ""
	res := n.Normalize(raw)
	if res.Outcome != OutcomeRejected || res.Reason != ReasonMissingRequiredField {
		t.Fatalf("expected rejection for missing id, got %s/%s", res.Outcome, res.Reason)
	}

	raw = rawFixture()
	raw.Status = "  "
	res = n.Normalize(raw)
	if res.Outcome != OutcomeRejected || res.Reason != ReasonMissingRequiredField {
		t.Fatalf("expected rejection for missing status, got %s/%s", res.Outcome, res.Reason)
	}
}

func TestNormalizeUnknownVocabulary(t *testing.T) {
	n := New(testBounds())
	raw := rawFixture()
	raw.Status = "Escalated"
	res := n.Normalize(raw)
	if res.Outcome != OutcomeCorrected {
		t.Fatalf("expected corrected, got %s", res.Outcome)
	}
	if res.Record.Status != UnknownValue {
		t.Fatalf("expected sentinel status, got %q", res.Record.Status)
	}
	if len(res.Notes) == 0 {
		t.Fatalf("expected a correction note")
	}
}

func TestNormalizeDefaultPriority(t *testing.T) {
	n := New(testBounds())
	raw := rawFixture()
	raw.Priority = ""
	res := n.Normalize(raw)
	if res.Outcome != OutcomeAccepted {
		t.Fatalf("empty priority should not be a correction, got %s", res.Outcome)
	}
	if res.Record.Priority != "normal" {
		t.Fatalf("expected default priority, got %q", res.Record.Priority)
	}
}

func TestNormalizeCoordinateFallback(t *testing.T) {
	n := New(testBounds())
	raw := rawFixture()
	raw.SRX, raw.SRY = "0", "0"
	raw.Lat, raw.Long = "4650000", "-10050000"
	res := n.Normalize(raw)
	if !res.Record.HasGeometry() {
		t.Fatalf("expected fallback coordinates to be used")
	}
	if got := res.Record.SRX.InexactFloat64(); got != -10050000 {
		t.Fatalf("expected fallback x, got %v", got)
	}
}

func TestNormalizeOutOfBoundsDropsGeometry(t *testing.T) {
	n := New(testBounds())
	raw := rawFixture()
	raw.SRX, raw.SRY = "-9000000", "4630000"
	res := n.Normalize(raw)
	if res.Outcome != OutcomeCorrected {
		t.Fatalf("expected corrected, got %s", res.Outcome)
	}
	if res.Record.HasGeometry() {
		t.Fatalf("out-of-bounds geometry should be dropped")
	}
}

func TestNormalizeMissingCoordinates(t *testing.T) {
	n := New(testBounds())
	raw := rawFixture()
	raw.SRX, raw.SRY = "", ""
	res := n.Normalize(raw)
	if res.Outcome != OutcomeAccepted {
		t.Fatalf("missing coordinates are not a correction, got %s", res.Outcome)
	}
	if res.Record.HasGeometry() {
		t.Fatalf("expected no geometry")
	}
}

func TestNormalizeDateLayouts(t *testing.T) {
	n := New(testBounds())
	for _, value := range []string{
		"2026-08-01T09:30:00Z",
		"2026-08-01T09:30:00",
		"2026-08-01 09:30:00",
		"2026-08-01",
		"08/01/2026",
	} {
		raw := rawFixture()
		raw.RequestedDatetime = value
		res := n.Normalize(raw)
		if res.Record.DatetimeInit == nil {
			t.Fatalf("layout %q did not parse", value)
		}
	}
}

func TestNormalizeUnparsableDate(t *testing.T) {
	n := New(testBounds())
	raw := rawFixture()
	raw.RequestedDatetime = "next tuesday"
	res := n.Normalize(raw)
	if res.Outcome != OutcomeCorrected {
		t.Fatalf("expected corrected, got %s", res.Outcome)
	}
	if res.Record.DatetimeInit != nil {
		t.Fatalf("unparsable date should be dropped")
	}
}

func TestNormalizeTruncatesLongText(t *testing.T) {
	n := New(testBounds())
	raw := rawFixture()
	raw.Address = strings.Repeat("x", 400)
	res := n.Normalize(raw)
	if got := len(*res.Record.ProbAddress); got != 255 {
		t.Fatalf("expected 255-char address, got %d", got)
	}
}

func TestNormalizeTruncationKeepsValidUTF8(t *testing.T) {
	n := New(testBounds())
	raw := rawFixture()
	raw.Address = strings.Repeat("x", 254) + "é suite"
	res := n.Normalize(raw)
	addr := *res.Record.ProbAddress
	if len(addr) > 255 {
		t.Fatalf("expected at most 255 bytes, got %d", len(addr))
	}
	if !utf8.ValidString(addr) {
		t.Fatalf("truncation produced invalid utf-8: %q", addr)
	}
	if len(addr) != 254 {
		t.Fatalf("expected cut before the straddling rune, got %d bytes", len(addr))
	}
}

func TestNormalizeCarriesMediaURL(t *testing.T) {
	n := New(testBounds())
	raw := rawFixture()
	raw.MediaURL = "https://example.org/photo.jpg"
	res := n.Normalize(raw)
	if res.Record.GroupName == nil || *res.Record.GroupName != "https://example.org/photo.jpg" {
		t.Fatalf("expected media url carried into group_name, got %v", res.Record.GroupName)
	}
}

func TestNormalizeWardFromAddress(t *testing.T) {
	n := New(testBounds())
	raw := rawFixture()
	raw.Ward = ""
	raw.Address = "3400 Arsenal St Ward 15"
	res := n.Normalize(raw)
	if res.Record.Ward == nil || *res.Record.Ward != 15 {
		t.Fatalf("expected ward extracted from address, got %v", res.Record.Ward)
	}
}

func TestNormalizePageIsolation(t *testing.T) {
	n := New(testBounds())
	bad := rawFixture()
	bad.ServiceRequestID = "not-a-number"
	results := n.NormalizePage([]stl311.RawRequest{rawFixture(), bad, rawFixture()})
	if len(results) != 3 {
		t.Fatalf("expected one result per input, got %d", len(results))
	}
	if results[0].Outcome != OutcomeAccepted || results[2].Outcome != OutcomeAccepted {
		t.Fatalf("good records should be unaffected by a bad neighbor")
	}
	if results[1].Outcome != OutcomeRejected {
		t.Fatalf("expected middle record rejected, got %s", results[1].Outcome)
	}
}
