package export

import (
	"fmt"
	"io"
	"strings"

	"examexport/examresult"
)

const ContentTypeCSV = "text/csv; charset=utf-8"

type Writer interface {
	Write(w io.Writer, rows []examresult.Row) error
	ContentType() string
	Extension() string
}

func WriterForFormat(format string, profile Profile) (Writer, error) {
	switch normalizeFormat(format) {
	case "", "excel", "xlsx":
		return &ExcelWriter{builder: NewBuilder(profile)}, nil
	case "csv":
		return &CSVWriter{profile: profile}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s (supported: excel, csv)", format)
	}
}

type ExcelWriter struct {
	builder *Builder
}

func (w *ExcelWriter) Write(out io.Writer, rows []examresult.Row) error {
	buf, err := w.builder.Build(rows)
	if err != nil {
		return err
	}
	if _, err := buf.WriteTo(out); err != nil {
		return fmt.Errorf("write excel output: %w", err)
	}
	return nil
}

func (w *ExcelWriter) ContentType() string { return ContentTypeXLSX }

func (w *ExcelWriter) Extension() string { return "xlsx" }

func normalizeFormat(value string) string {
	return strings.TrimSpace(strings.ToLower(value))
}
