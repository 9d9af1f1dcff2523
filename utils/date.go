package utils

import (
	"fmt"
	"time"

	"github.com/jinzhu/now"
)

const DateLayout = "2006-01-02"

// Clock supplies "now" to anything that stamps punches or resolves "today".
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in Location (UTC when nil).
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now().UTC()
	}
	return time.Now().In(c.Location)
}

// FixedClock always returns T. Used by tests and by back-dated CLI runs.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time {
	return c.T
}

// Today returns the calendar date of clock's now as YYYY-MM-DD.
func Today(clock Clock) string {
	return clock.Now().Format(DateLayout)
}

func MustParseDate(dateStr string) time.Time {
	t, _ := time.ParseInLocation(DateLayout, dateStr, time.UTC)
	return t
}

func ParseDate(dateStr string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, dateStr, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", dateStr, err)
	}
	return t, nil
}

// MonthRange returns the first and last calendar day of the month containing t.
func MonthRange(t time.Time) (string, string) {
	month := now.With(t)
	return month.BeginningOfMonth().Format(DateLayout), month.EndOfMonth().Format(DateLayout)
}

// ParseISOTime accepts RFC3339 and a few zone-less layouts; the latter are read in loc.
func ParseISOTime(s string, loc *time.Location) (*time.Time, error) {
	if s == "" {
		return nil, fmt.Errorf("empty time string")
	}
	if loc == nil {
		loc = time.UTC
	}

	t, err := time.Parse(time.RFC3339Nano, s)
	if err == nil {
		return &t, nil
	}

	layouts := []string{
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if tt, e := time.ParseInLocation(layout, s, loc); e == nil {
			return &tt, nil
		}
	}

	return nil, fmt.Errorf("failed to parse time: %v", s)
}
