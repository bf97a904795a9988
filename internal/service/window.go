package service

import (
	"fmt"
	"time"
)

// Window kinds, recorded on the run for observability.
const (
	WindowYesterday = "yesterday"
	WindowLastDays  = "last_days"
	WindowRange     = "range"
)

// Window is the closed date interval a run fetches. Start and End are UTC;
// the upstream API takes whole dates, so StartDate/EndDate format them.
type Window struct {
	Kind  string
	Start time.Time
	End   time.Time
}

// Yesterday covers the full previous UTC day.
func Yesterday(now time.Time) Window {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return Window{
		Kind:  WindowYesterday,
		Start: today.AddDate(0, 0, -1),
		End:   today,
	}
}

// LastDays covers the n days ending now.
func LastDays(now time.Time, n int) Window {
	if n <= 0 {
		n = 1
	}
	now = now.UTC()
	return Window{
		Kind:  WindowLastDays,
		Start: now.AddDate(0, 0, -n),
		End:   now,
	}
}

// Range builds an explicit window. End must not precede Start.
func Range(start, end time.Time) (Window, error) {
	start = start.UTC()
	end = end.UTC()
	if end.Before(start) {
		return Window{}, fmt.Errorf("window end %s precedes start %s",
			end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	return Window{Kind: WindowRange, Start: start, End: end}, nil
}

func (w Window) StartDate() string {
	return w.Start.Format("2006-01-02")
}

func (w Window) EndDate() string {
	return w.End.Format("2006-01-02")
}
