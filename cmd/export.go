package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"examexport/config"
	"examexport/examresult"
	"examexport/export"
	"examexport/internal/timeutil"
	"examexport/storage"

	"github.com/spf13/cobra"
)

var (
	exportFormat  string
	exportOutput  string
	exportProfile string
	exportFrom    string
	exportTo      string
	exportMonth   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export exam results for a date range to Excel or CSV",
	Long: `Query exam results joined with the student roster for an inclusive date range
and write them to a file.

The range is given either with --from and --to (YYYY-MM-DD) or with --month (YYYY-MM).
Rows are ordered by date, session, class and IATC ID.

Output format can be selected explicitly via --format or inferred from --output extension.
Without --output the file name follows the profile, for example
exam_results_2025-03-01_to_2025-03-07.xlsx.`,
	Example: `
  # Export one week with the detailed profile
  examexport export --from 2025-03-01 --to 2025-03-07

  # Export a whole month to CSV
  examexport export --month 2025-03 --output ./march.csv

  # Unstyled workbook without the exam type column
  examexport export --from 2025-03-01 --to 2025-03-31 --profile basic
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadAndValidate()
		if err != nil {
			return err
		}

		rng, err := resolveExportRange(exportFrom, exportTo, exportMonth, time.Local)
		if err != nil {
			return err
		}

		profileName := cfg.Export.Profile
		if strings.TrimSpace(exportProfile) != "" {
			profileName = exportProfile
		}
		profile, err := export.ProfileByName(profileName)
		if err != nil {
			return err
		}

		format := exportFormat
		if strings.TrimSpace(format) == "" {
			format = detectExportFormat(exportOutput)
		}
		writer, err := export.WriterForFormat(format, profile)
		if err != nil {
			return err
		}

		outputPath := exportOutput
		if strings.TrimSpace(outputPath) == "" {
			outputPath = profile.FileNameFor(rng, writer.Extension())
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		store, err := openResultStore(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer store.Close()

		rows, err := store.FetchResults(ctx, rng, storage.FetchOptions{
			IncludeExamType: profile.HasColumn(export.ColExamType),
		})
		if err != nil {
			return fmt.Errorf("error querying database: %w", err)
		}
		if len(rows) == 0 {
			fmt.Printf("No data found for the specified date range (%s).\n", rng)
			return nil
		}

		if err := writeExportFile(outputPath, writer, rows); err != nil {
			return err
		}

		fmt.Printf("Export completed. Rows: %d, Profile: %s, Format: %s, File: %s\n", len(rows), profile.Name, writer.Extension(), outputPath)
		return nil
	},
}

// resolveExportRange builds the query range from either --month or the --from/--to pair.
func resolveExportRange(from, to, month string, loc *time.Location) (examresult.DateRange, error) {
	from, to, month = strings.TrimSpace(from), strings.TrimSpace(to), strings.TrimSpace(month)

	if month != "" {
		if from != "" || to != "" {
			return examresult.DateRange{}, fmt.Errorf("--month cannot be combined with --from/--to")
		}
		start, err := timeutil.ParseMonth(month, loc)
		if err != nil {
			return examresult.DateRange{}, fmt.Errorf("invalid --month value: %w", err)
		}
		return examresult.NewDateRange(start, timeutil.EndOfMonth(start)), nil
	}

	if from == "" || to == "" {
		return examresult.DateRange{}, fmt.Errorf("please select both start and end dates (--from and --to, or --month)")
	}
	rng, err := examresult.ParseDateRange(from, to)
	if err != nil {
		return examresult.DateRange{}, err
	}
	if rng.Inverted() {
		fmt.Fprintf(os.Stderr, "Warning: --from %s is after --to %s, the range is empty\n", from, to)
	}
	return rng, nil
}

func detectExportFormat(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	switch ext {
	case "csv":
		return "csv"
	default:
		return "excel"
	}
}

func writeExportFile(path string, writer export.Writer, rows []examresult.Row) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}

	if err := writer.Write(file, rows); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close output file: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportFrom, "from", "", "Start date (inclusive), format YYYY-MM-DD")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "End date (inclusive), format YYYY-MM-DD")
	exportCmd.Flags().StringVar(&exportMonth, "month", "", "Export a whole month, format YYYY-MM")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "", "Output format: excel|csv (optional, inferred from output extension)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file path (default: file name of the profile)")
	exportCmd.Flags().StringVar(&exportProfile, "profile", "", fmt.Sprintf("Export profile: %s (default from config)", strings.Join(export.ProfileNames(), "|")))
}
