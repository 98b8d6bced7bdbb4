package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"examexport/examresult"
)

// CSVWriter writes the profile's columns as plain CSV. Style rules do not apply.
type CSVWriter struct {
	profile Profile
}

func (w *CSVWriter) Write(out io.Writer, rows []examresult.Row) error {
	writer := csv.NewWriter(out)

	if err := writer.Write(w.profile.Headers()); err != nil {
		return fmt.Errorf("write csv headers: %w", err)
	}

	plain := StyleRules{}
	for _, row := range rows {
		record := make([]string, len(w.profile.Columns))
		for i, column := range w.profile.Columns {
			record[i] = renderValue(row, column.Key, plain)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv output: %w", err)
	}
	return nil
}

func (w *CSVWriter) ContentType() string { return ContentTypeCSV }

func (w *CSVWriter) Extension() string { return "csv" }
