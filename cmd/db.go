package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"examexport/internal/timeutil"
	"examexport/storage"

	"github.com/spf13/cobra"
)

var (
	dbPath     string
	dbSeedDays int
)

var (
	dbPromptInput  io.Reader = os.Stdin
	dbPromptOutput io.Writer = os.Stdout
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage a local SQLite database for trying the export",
	Long: `Create, fill, and clean a local SQLite database with the student_list and
exam_results tables. Point serve or export at it with:

  EXAMEXPORT_DB_DRIVER=sqlite EXAMEXPORT_DB_PATH=./examexport.db

The production Postgres database is never modified by these commands.`,
	Example: `
  # Create empty tables
  examexport db init --db ./examexport.db

  # Create tables and insert two weeks of demo results ending today
  examexport db seed --db ./examexport.db

  # Remove all rows but keep the tables (requires confirmation)
  examexport db reset --db ./examexport.db

  # Delete the complete SQLite file (requires confirmation)
  examexport db delete --db ./examexport.db
`,
}

var dbInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the schema in the local SQLite database",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := storage.OpenSQLite(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.EnsureSchema(context.Background()); err != nil {
			return err
		}
		fmt.Printf("Schema ready: %s\n", dbPath)
		return nil
	},
}

var dbSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert demo students and exam results",
	Long: `Create the schema if needed and insert a small roster plus exam results for the
last --days days (today included). Existing students are kept; results are appended.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if dbSeedDays < 1 {
			return fmt.Errorf("--days must be at least 1")
		}

		students, results, err := seedDemoData(context.Background(), dbPath, time.Now(), dbSeedDays)
		if err != nil {
			return err
		}
		fmt.Printf("Seed completed. Students: %d, Results: %d, File: %s\n", students, results, dbPath)
		return nil
	},
}

var dbResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all students and exam results from the local SQLite database",
	Long: `Destructive cleanup command.

All rows of exam_results and student_list are deleted; the schema is kept.
Before deletion, an interactive security prompt requires typing exactly "Y".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		confirmed, err := confirmPrompt(dbPromptInput, dbPromptOutput, fmt.Sprintf("Delete all exam results in %q?", dbPath))
		if err != nil {
			return err
		}
		if !confirmed {
			return fmt.Errorf("reset aborted: confirmation was not 'Y'")
		}

		if _, err := os.Stat(dbPath); err != nil {
			return fmt.Errorf("database file not found: %s", dbPath)
		}
		store, err := storage.OpenSQLite(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()

		deleted, err := store.DeleteAllResults(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("Deleted exam results: %d\n", deleted)
		return nil
	},
}

var dbDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete the complete SQLite database file",
	Long: `Destructive database cleanup command.

This command deletes the complete SQLite database file.
Before deletion, an interactive security prompt requires typing exactly "Y".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		confirmed, err := confirmPrompt(dbPromptInput, dbPromptOutput, fmt.Sprintf("Delete database file %q?", dbPath))
		if err != nil {
			return err
		}
		if !confirmed {
			return fmt.Errorf("delete aborted: confirmation was not 'Y'")
		}

		if err := removeDatabaseFile(dbPath); err != nil {
			return err
		}
		fmt.Printf("Deleted database file: %s\n", dbPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbInitCmd, dbSeedCmd, dbResetCmd, dbDeleteCmd)

	dbCmd.PersistentFlags().StringVar(&dbPath, "db", "./examexport.db", "Path to local SQLite database")
	dbSeedCmd.Flags().IntVar(&dbSeedDays, "days", 14, "Number of days of demo results, ending today")
}

// seedDemoData creates the schema at path and inserts the demo roster and results.
func seedDemoData(ctx context.Context, path string, end time.Time, days int) (int, int, error) {
	store, err := storage.OpenSQLite(path)
	if err != nil {
		return 0, 0, err
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return 0, 0, err
	}

	students, results := demoData(end, days)
	insertedStudents, err := store.InsertStudents(ctx, students)
	if err != nil {
		return 0, 0, err
	}
	insertedResults, err := store.InsertResults(ctx, results)
	if err != nil {
		return insertedStudents, 0, err
	}
	return insertedStudents, insertedResults, nil
}

var demoStudents = []storage.Student{
	{NationalID: "29801011234567", Name: "Ahmed Hassan", IATCID: "IATC-1001", Class: "1", Curriculum: "Aircraft Maintenance"},
	{NationalID: "29805051234568", Name: "Mona Adel", IATCID: "IATC-1002", Class: "1", Curriculum: "Aircraft Maintenance"},
	{NationalID: "29903031234569", Name: "Omar Khaled", IATCID: "IATC-1003", Class: "2", Curriculum: "Avionics"},
	{NationalID: "29907071234570", Name: "Sara Mahmoud", IATCID: "IATC-1004", Class: "2", Curriculum: "Avionics"},
	{NationalID: "30001011234571", Name: "Youssef Ali", IATCID: "IATC-1005", Class: "3", Curriculum: "Air Traffic Services"},
	{NationalID: "30002021234572", Name: "Nour Samir", IATCID: "IATC-1006", Class: "3", Curriculum: "Air Traffic Services"},
}

var demoExams = []struct {
	name     string
	examType string
}{
	{name: "Mathematics", examType: "Theory"},
	{name: "Electrical Fundamentals", examType: "Theory"},
	{name: "Maintenance Practices", examType: "Practical"},
	{name: "Human Factors", examType: "Theory"},
}

var demoSessions = []string{"Morning", "Afternoon"}

// demoData returns a deterministic roster and result set covering the days
// up to and including end.
func demoData(end time.Time, days int) ([]storage.Student, []storage.ExamResult) {
	students := append([]storage.Student(nil), demoStudents...)
	last := timeutil.StartOfDay(end)

	var results []storage.ExamResult
	for d := 0; d < days; d++ {
		day := last.AddDate(0, 0, -d)
		for i, student := range students {
			if (i+d)%3 != 0 {
				continue
			}
			exam := demoExams[(i+d)%len(demoExams)]
			score := float64(40 + (i*17+d*11)%60)
			result := "FAIL"
			if score >= 75 {
				result = "PASS"
			}
			results = append(results, storage.ExamResult{
				NationalID:   student.NationalID,
				Exam:         exam.name,
				ExamType:     exam.examType,
				Score:        score,
				Result:       result,
				Session:      demoSessions[(i+d)%len(demoSessions)],
				Date:         day,
				AttemptIndex: 1 + (d/7)%2,
				ScoreIndex:   1,
			})
		}
	}
	return students, results
}

func confirmPrompt(input io.Reader, output io.Writer, question string) (bool, error) {
	if input == nil {
		return false, fmt.Errorf("confirmation input is not available")
	}

	if output == nil {
		output = io.Discard
	}

	if _, err := fmt.Fprintf(output, "%s Type Y to confirm: ", question); err != nil {
		return false, fmt.Errorf("write confirmation prompt: %w", err)
	}

	line, err := bufio.NewReader(input).ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			line = strings.TrimSpace(line)
			return line == "Y", nil
		}
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	return strings.TrimSpace(line) == "Y", nil
}

func removeDatabaseFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("database file not found: %s", path)
		}
		return fmt.Errorf("stat database file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("database path is a directory: %s", path)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("delete database file: %w", err)
	}
	return nil
}
