package validate

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"stl311/internal/client/stl311"
	"stl311/internal/config"
	"stl311/internal/models"
)

type Outcome int

const (
	OutcomeAccepted Outcome = iota
	OutcomeCorrected
	OutcomeRejected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeCorrected:
		return "corrected"
	case OutcomeRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

const ReasonMissingRequiredField = "missing-required-field"

// UnknownValue is the sentinel for enumerated fields whose raw value is not
// in the vocabulary. Such records are corrected, never rejected.
const UnknownValue = "unknown"

// Result is the per-record outcome. Record is populated for accepted and
// corrected outcomes; Reason only for rejected ones.
type Result struct {
	Outcome Outcome
	Record  models.ServiceRequest
	Notes   []string
	Reason  string
}

// Ordered list of accepted date layouts; first match wins. ISO-8601 forms
// are tried before the legacy ones the upstream still emits.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
}

var statusVocabulary = map[string]string{
	"new":         "new",
	"open":        "open",
	"in progress": "in-progress",
	"in-progress": "in-progress",
	"in_progress": "in-progress",
	"closed":      "closed",
	"resolved":    "closed",
	"completed":   "closed",
	"cancelled":   "cancelled",
	"canceled":    "cancelled",
}

var priorityVocabulary = map[string]string{
	"low":    "low",
	"normal": "normal",
	"medium": "normal",
	"high":   "high",
	"urgent": "urgent",
}

var wardPattern = regexp.MustCompile(`WARD\s*(\d+)`)

type Normalizer struct {
	Bounds config.BoundsConfig
}

func New(bounds config.BoundsConfig) *Normalizer {
	return &Normalizer{Bounds: bounds}
}

// NormalizePage normalizes every record of a page independently. One
// malformed record never affects the others; callers get exactly one
// result per input.
func (n *Normalizer) NormalizePage(raws []stl311.RawRequest) []Result {
	results := make([]Result, len(raws))
	for i, raw := range raws {
		results[i] = n.Normalize(raw)
	}
	return results
}

func (n *Normalizer) Normalize(raw stl311.RawRequest) Result {
	requestID, ok := parseInt64(raw.ServiceRequestID)
	if !ok {
		return Result{Outcome: OutcomeRejected, Reason: ReasonMissingRequiredField}
	}
	if strings.TrimSpace(raw.Status) == "" {
		return Result{Outcome: OutcomeRejected, Reason: ReasonMissingRequiredField}
	}

	var notes []string
	rec := models.ServiceRequest{
		RequestID: requestID,
		Source:    models.SourceAPI,
	}

	rec.Status = normalizeEnum(raw.Status, statusVocabulary, &notes, "status")
	rec.Priority = normalizePriority(raw.Priority, &notes)

	rec.Description = clean(raw.ServiceName)
	rec.ProblemCode = cleanPtr(raw.ServiceCode.String())
	rec.SubmitTo = cleanPtr(raw.AgencyResponsible)
	rec.Explanation = cleanPtr(raw.StatusNotes)
	rec.CallerType = cleanPtr(raw.ServiceNotice)
	rec.GroupName = cleanPtr(raw.MediaURL)

	n.normalizeAddress(raw, &rec)
	n.normalizeDates(raw, &rec, &notes)
	n.normalizeCoordinates(raw, &rec, &notes)

	outcome := OutcomeAccepted
	if len(notes) > 0 {
		outcome = OutcomeCorrected
	}
	return Result{Outcome: outcome, Record: rec, Notes: notes}
}

func (n *Normalizer) normalizeAddress(raw stl311.RawRequest, rec *models.ServiceRequest) {
	address := clean(raw.Address)
	rec.ProbAddress = cleanPtr(address)

	if zip, ok := parseInt(raw.Zipcode); ok {
		rec.ProbZip = &zip
	}

	if hood := clean(raw.Neighborhood); hood != "" {
		rec.Neighborhood = &hood
	} else if idx := strings.Index(address, ","); idx >= 0 {
		if hood := strings.TrimSpace(address[idx+1:]); hood != "" {
			rec.Neighborhood = &hood
		}
	}

	if ward, ok := parseInt(raw.Ward); ok {
		rec.Ward = &ward
	} else if m := wardPattern.FindStringSubmatch(strings.ToUpper(address)); m != nil {
		if ward, err := strconv.Atoi(m[1]); err == nil {
			rec.Ward = &ward
		}
	}

	city := "St. Louis"
	rec.ProbCity = &city

	if address != "" {
		addType := addressType(address)
		rec.ProbAddType = &addType
	}
}

func (n *Normalizer) normalizeDates(raw stl311.RawRequest, rec *models.ServiceRequest, notes *[]string) {
	rec.DatetimeInit = parseDateField(raw.RequestedDatetime, "requested_datetime", notes)
	rec.DatetimeClosed = parseDateField(raw.UpdatedDatetime, "updated_datetime", notes)
	rec.PrjCompleteDate = parseDateField(raw.ExpectedDatetime, "expected_datetime", notes)
	rec.DateCancelled = parseDateField(raw.DateCancelled, "date_cancelled", notes)
	rec.DateInvDone = parseDateField(raw.DateInvDone, "date_inv_done", notes)
}

// normalizeCoordinates prefers SRX/SRY, falls back to LAT/LONG (also 3857
// meters upstream), and drops geometry outside the service-area box so the
// record still lands in the store as a non-spatial entry.
func (n *Normalizer) normalizeCoordinates(raw stl311.RawRequest, rec *models.ServiceRequest, notes *[]string) {
	x, y, ok := parsePoint(raw.SRX, raw.SRY)
	if !ok {
		x, y, ok = parsePoint(raw.Lat, raw.Long)
	}
	if !ok {
		return
	}
	if x < n.Bounds.MinX || x > n.Bounds.MaxX || y < n.Bounds.MinY || y > n.Bounds.MaxY {
		*notes = append(*notes, "geometry dropped: coordinates outside service area")
		return
	}
	dx := decimal.NewFromFloat(x)
	dy := decimal.NewFromFloat(y)
	rec.SRX = &dx
	rec.SRY = &dy
}

func parsePoint(rawX, rawY json.Number) (float64, float64, bool) {
	x, errX := rawX.Float64()
	y, errY := rawY.Float64()
	if errX != nil || errY != nil {
		return 0, 0, false
	}
	if x == 0 || y == 0 {
		return 0, 0, false
	}
	return x, y, true
}

func parseDateField(value, field string, notes *[]string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	*notes = append(*notes, fmt.Sprintf("date dropped: unparsable %s %q", field, value))
	return nil
}

func normalizeEnum(value string, vocab map[string]string, notes *[]string, field string) string {
	key := strings.ToLower(strings.TrimSpace(value))
	if canonical, ok := vocab[key]; ok {
		return canonical
	}
	*notes = append(*notes, fmt.Sprintf("%s %q mapped to %s", field, value, UnknownValue))
	return UnknownValue
}

func normalizePriority(value string, notes *[]string) string {
	if strings.TrimSpace(value) == "" {
		return "normal"
	}
	return normalizeEnum(value, priorityVocabulary, notes, "priority")
}

func addressType(address string) string {
	upper := strings.ToUpper(address)
	for _, word := range []string{"STREET", "AVE", "BLVD", "DR"} {
		if strings.Contains(upper, word) {
			return "Street"
		}
	}
	for _, word := range []string{"ALLEY", "LANE"} {
		if strings.Contains(upper, word) {
			return "Alley"
		}
	}
	return "Address"
}

// clean trims and truncates free-text fields to the column width. The cut
// lands on a rune boundary; a split rune would be invalid UTF-8 and the
// store rejects such strings.
func clean(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= 255 {
		return s
	}
	cut := 255
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func cleanPtr(s string) *string {
	s = clean(s)
	if s == "" {
		return nil
	}
	return &s
}

func parseInt64(n json.Number) (int64, bool) {
	v, err := strconv.ParseInt(strings.TrimSpace(n.String()), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseInt(n json.Number) (int, bool) {
	v, ok := parseInt64(n)
	if !ok {
		return 0, false
	}
	return int(v), true
}
