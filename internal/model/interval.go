package model

import (
	"time"
)

const (
	// DateLayout is the calendar-date format used on every surface.
	DateLayout = "2006-01-02"
	// WindowLayout is the upstream date-time format.
	WindowLayout = "2006-01-02T15:04:05Z"
	// DisplayLayout is the human date-time shown on both surfaces,
	// e.g. "Thu, Oct 15, 2026, 10:04:05 AM".
	DisplayLayout = "Mon, Jan 02, 2006, 03:04:05 PM"
)

// FormatDateTime renders t for display.
func FormatDateTime(t time.Time) string {
	return t.Format(DisplayLayout)
}

// DateInterval is an inclusive range of calendar dates.
type DateInterval struct {
	From time.Time
	To   time.Time
}

// ParseInterval parses two YYYY-MM-DD dates. It does not check ordering;
// call Validate for that.
func ParseInterval(from, to string) (DateInterval, error) {
	if from == "" {
		return DateInterval{}, &ValidationError{Field: "from", Message: "start date is required"}
	}
	if to == "" {
		return DateInterval{}, &ValidationError{Field: "to", Message: "end date is required"}
	}
	f, err := time.Parse(DateLayout, from)
	if err != nil {
		return DateInterval{}, &ValidationError{Field: "from", Message: "start date must be YYYY-MM-DD"}
	}
	t, err := time.Parse(DateLayout, to)
	if err != nil {
		return DateInterval{}, &ValidationError{Field: "to", Message: "end date must be YYYY-MM-DD"}
	}
	return DateInterval{From: f, To: t}, nil
}

// Validate rejects a missing or inverted interval.
func (iv DateInterval) Validate() error {
	if iv.From.IsZero() {
		return &ValidationError{Field: "from", Message: "start date is required"}
	}
	if iv.To.IsZero() {
		return &ValidationError{Field: "to", Message: "end date is required"}
	}
	if dayStart(iv.From).After(dayStart(iv.To)) {
		return &ValidationError{Field: "range", Message: "Please select a valid date range (From Date should be before To Date)."}
	}
	return nil
}

// Window converts the interval into the day-start/day-end upstream window.
func (iv DateInterval) Window() Window {
	return Window{From: dayStart(iv.From), To: dayEnd(iv.To)}
}

// String renders the interval as "from to to".
func (iv DateInterval) String() string {
	return iv.From.Format(DateLayout) + " to " + iv.To.Format(DateLayout)
}

// Window is the date-time filter sent to the upstream source.
type Window struct {
	From time.Time
	To   time.Time
}

// TodayWindow covers the UTC calendar day containing now.
func TodayWindow(now time.Time) Window {
	return Window{From: dayStart(now), To: dayEnd(now)}
}

func (w Window) FromString() string { return w.From.UTC().Format(WindowLayout) }
func (w Window) ToString() string   { return w.To.UTC().Format(WindowLayout) }

func dayStart(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dayEnd(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 23, 59, 59, 0, time.UTC)
}
