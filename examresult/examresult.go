package examresult

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the ISO calendar date layout used for form inputs, flags and SQL bind values.
const DateLayout = "2006-01-02"

var ErrInvalidDate = errors.New("invalid date")

// Row is one exam result joined with its roster entry.
type Row struct {
	Name         string
	IATCID       string
	NationalID   string
	Class        string
	Curriculum   string
	Exam         string
	ExamType     string
	Score        float64
	Result       string
	Session      string
	Date         time.Time
	AttemptIndex int
	ScoreIndex   int
}

// DateRange is an inclusive calendar date range.
type DateRange struct {
	Start time.Time
	End   time.Time
}

func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: dateOnly(start), End: dateOnly(end)}
}

// ParseDateRange parses two YYYY-MM-DD values. Both must be present.
func ParseDateRange(startRaw, endRaw string) (DateRange, error) {
	start, err := ParseDate(startRaw)
	if err != nil {
		return DateRange{}, fmt.Errorf("start date: %w", err)
	}
	end, err := ParseDate(endRaw)
	if err != nil {
		return DateRange{}, fmt.Errorf("end date: %w", err)
	}
	return DateRange{Start: start, End: end}, nil
}

func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrInvalidDate)
	}
	parsed, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q (expected YYYY-MM-DD)", ErrInvalidDate, raw)
	}
	return parsed, nil
}

// Inverted reports whether the start lies after the end, in which case the range matches nothing.
func (r DateRange) Inverted() bool {
	return dateOnly(r.Start).After(dateOnly(r.End))
}

func (r DateRange) Contains(day time.Time) bool {
	day = dateOnly(day)
	return !day.Before(dateOnly(r.Start)) && !day.After(dateOnly(r.End))
}

func (r DateRange) String() string {
	return r.Start.Format(DateLayout) + " to " + r.End.Format(DateLayout)
}

// Less orders rows by date, session, class and IATC ID, all ascending.
func Less(a, b Row) bool {
	ad, bd := dateOnly(a.Date), dateOnly(b.Date)
	if !ad.Equal(bd) {
		return ad.Before(bd)
	}
	if a.Session != b.Session {
		return a.Session < b.Session
	}
	if a.Class != b.Class {
		return a.Class < b.Class
	}
	return a.IATCID < b.IATCID
}

// Ordered reports whether rows are in non-decreasing Less order.
func Ordered(rows []Row) bool {
	for i := 1; i < len(rows); i++ {
		if Less(rows[i], rows[i-1]) {
			return false
		}
	}
	return true
}

func dateOnly(value time.Time) time.Time {
	return time.Date(value.Year(), value.Month(), value.Day(), 0, 0, 0, 0, time.UTC)
}
