package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"examexport/examresult"
	"examexport/storage"
)

func TestConfirmPrompt(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "uppercase Y confirms", input: "Y\n", want: true},
		{name: "lowercase y does not confirm", input: "y\n", want: false},
		{name: "N does not confirm", input: "N\n", want: false},
		{name: "empty does not confirm", input: "\n", want: false},
		{name: "Y without newline confirms", input: "Y", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := confirmPrompt(bytes.NewBufferString(tt.input), &out, "Delete database file \"./examexport.db\"?")
			if err != nil {
				t.Fatalf("confirm prompt returned error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			if out.Len() == 0 {
				t.Fatalf("expected prompt output")
			}
		})
	}
}

func TestRemoveDatabaseFile(t *testing.T) {
	t.Run("deletes existing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "examexport.db")
		if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
			t.Fatalf("write temp db file: %v", err)
		}

		if err := removeDatabaseFile(path); err != nil {
			t.Fatalf("remove db file: %v", err)
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Fatalf("expected file to be deleted")
		}
	})

	t.Run("fails for directory path", func(t *testing.T) {
		dir := t.TempDir()
		if err := removeDatabaseFile(dir); err == nil {
			t.Fatalf("expected error for directory path")
		}
	})

	t.Run("fails for missing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing.db")
		if err := removeDatabaseFile(path); err == nil {
			t.Fatalf("expected error for missing file")
		}
	})
}

func TestDemoDataCoversRangeWithBothOutcomes(t *testing.T) {
	t.Parallel()

	end := time.Date(2026, 3, 14, 15, 30, 0, 0, time.UTC)
	students, results := demoData(end, 14)

	if len(students) != len(demoStudents) {
		t.Fatalf("expected %d students, got %d", len(demoStudents), len(students))
	}
	if len(results) == 0 {
		t.Fatalf("expected demo results")
	}

	known := make(map[string]bool, len(students))
	for _, student := range students {
		known[student.NationalID] = true
	}

	first := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	outcomes := map[string]int{}
	for _, result := range results {
		if !known[result.NationalID] {
			t.Fatalf("result references unknown student %s", result.NationalID)
		}
		if result.Date.Before(first) || result.Date.After(last) {
			t.Fatalf("result date %s outside seeded range", result.Date.Format(examresult.DateLayout))
		}
		outcomes[result.Result]++
	}
	if outcomes["PASS"] == 0 || outcomes["FAIL"] == 0 {
		t.Fatalf("expected both PASS and FAIL results, got %v", outcomes)
	}
}

func TestSeedDemoDataIsQueryable(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "seed.db")
	end := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	students, results, err := seedDemoData(context.Background(), path, end, 7)
	if err != nil {
		t.Fatalf("seed demo data: %v", err)
	}
	if students != len(demoStudents) {
		t.Fatalf("expected %d inserted students, got %d", len(demoStudents), students)
	}

	againStudents, _, err := seedDemoData(context.Background(), path, end, 7)
	if err != nil {
		t.Fatalf("seed demo data twice: %v", err)
	}
	if againStudents != 0 {
		t.Fatalf("expected existing students to be skipped, got %d inserted", againStudents)
	}

	store, err := storage.OpenSQLite(path)
	if err != nil {
		t.Fatalf("open seeded db: %v", err)
	}
	defer store.Close()

	rng, err := examresult.ParseDateRange("2026-03-08", "2026-03-14")
	if err != nil {
		t.Fatalf("parse range: %v", err)
	}
	rows, err := store.FetchResults(context.Background(), rng, storage.FetchOptions{IncludeExamType: true})
	if err != nil {
		t.Fatalf("fetch seeded results: %v", err)
	}
	if len(rows) != 2*results {
		t.Fatalf("expected %d rows after seeding twice, got %d", 2*results, len(rows))
	}
	if !examresult.Ordered(rows) {
		t.Fatalf("expected rows in export order")
	}
	for _, row := range rows {
		if row.ExamType == "" {
			t.Fatalf("expected exam type on seeded row %+v", row)
		}
	}
}
