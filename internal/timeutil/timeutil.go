package timeutil

import (
	"fmt"
	"strings"
	"time"
)

const MonthLayout = "2006-01"

func StartOfDay(value time.Time) time.Time {
	return time.Date(value.Year(), value.Month(), value.Day(), 0, 0, 0, 0, value.Location())
}

func StartOfMonth(value time.Time) time.Time {
	return time.Date(value.Year(), value.Month(), 1, 0, 0, 0, 0, value.Location())
}

// EndOfMonth returns midnight of the last calendar day of value's month.
func EndOfMonth(value time.Time) time.Time {
	return StartOfMonth(value).AddDate(0, 1, -1)
}

// ParseMonth parses a YYYY-MM value into the first day of that month in loc.
func ParseMonth(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	parsed, err := time.ParseInLocation(MonthLayout, raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q (expected YYYY-MM)", raw)
	}
	return StartOfMonth(parsed), nil
}
