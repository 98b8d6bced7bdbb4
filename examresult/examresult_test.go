package examresult

import (
	"errors"
	"testing"
	"time"
)

func TestParseDateRange_RejectsMissingValues(t *testing.T) {
	t.Parallel()

	if _, err := ParseDateRange("", "2026-03-01"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate for missing start, got %v", err)
	}
	if _, err := ParseDateRange("2026-03-01", "  "); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate for missing end, got %v", err)
	}
	if _, err := ParseDateRange("01/03/2026", "2026-03-01"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate for bad layout, got %v", err)
	}
}

func TestDateRange_ContainsIsInclusive(t *testing.T) {
	t.Parallel()

	rng, err := ParseDateRange("2026-03-01", "2026-03-05")
	if err != nil {
		t.Fatalf("parse range: %v", err)
	}

	cases := map[string]bool{
		"2026-02-28": false,
		"2026-03-01": true,
		"2026-03-03": true,
		"2026-03-05": true,
		"2026-03-06": false,
	}
	for raw, want := range cases {
		day := mustDate(t, raw)
		if got := rng.Contains(day.Add(15 * time.Hour)); got != want {
			t.Fatalf("Contains(%s) = %t, want %t", raw, got, want)
		}
	}
}

func TestDateRange_InvertedContainsNothing(t *testing.T) {
	t.Parallel()

	rng := NewDateRange(mustDate(t, "2026-03-05"), mustDate(t, "2026-03-01"))
	if !rng.Inverted() {
		t.Fatalf("expected inverted range")
	}
	for day := mustDate(t, "2026-02-25"); day.Before(mustDate(t, "2026-03-10")); day = day.AddDate(0, 0, 1) {
		if rng.Contains(day) {
			t.Fatalf("inverted range must not contain %s", day.Format(DateLayout))
		}
	}
}

func TestLess_OrdersByDateSessionClassID(t *testing.T) {
	t.Parallel()

	rows := []Row{
		{Date: mustDate(t, "2026-03-01"), Session: "AM", Class: "10", IATCID: "A1"},
		{Date: mustDate(t, "2026-03-01"), Session: "AM", Class: "10", IATCID: "A2"},
		{Date: mustDate(t, "2026-03-01"), Session: "AM", Class: "11", IATCID: "A0"},
		{Date: mustDate(t, "2026-03-01"), Session: "PM", Class: "09", IATCID: "A0"},
		{Date: mustDate(t, "2026-03-02"), Session: "AM", Class: "01", IATCID: "A0"},
	}
	if !Ordered(rows) {
		t.Fatalf("expected rows to be ordered")
	}

	swapped := append([]Row(nil), rows...)
	swapped[0], swapped[4] = swapped[4], swapped[0]
	if Ordered(swapped) {
		t.Fatalf("expected swapped rows to be unordered")
	}
}

func mustDate(t *testing.T, raw string) time.Time {
	t.Helper()
	value, err := ParseDate(raw)
	if err != nil {
		t.Fatalf("parse date %q: %v", raw, err)
	}
	return value
}
