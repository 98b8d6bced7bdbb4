package export

import (
	"bytes"
	"fmt"
	"strconv"
	"unicode/utf8"

	"examexport/examresult"

	"github.com/xuri/excelize/v2"
)

const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// maxColumnWidth is the largest width Excel accepts for a column.
const maxColumnWidth = 255

// Builder renders exam result rows into a single-sheet workbook for one profile.
type Builder struct {
	profile Profile
}

func NewBuilder(profile Profile) *Builder {
	return &Builder{profile: profile}
}

func (b *Builder) Profile() Profile {
	return b.profile
}

// Build writes the header and one row per input row, in input order, then applies
// the profile's style rules. The returned buffer is positioned at its start.
func (b *Builder) Build(rows []examresult.Row) (*bytes.Buffer, error) {
	file := excelize.NewFile()
	defer file.Close()

	sheet := b.profile.SheetName
	if sheet == "" {
		sheet = file.GetSheetName(0)
	} else if err := file.SetSheetName(file.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("rename excel sheet %s: %w", sheet, err)
	}

	columns := b.profile.Columns
	if len(columns) == 0 {
		return nil, fmt.Errorf("export profile %s has no columns", b.profile.Name)
	}
	widths := make([]int, len(columns))

	for col, column := range columns {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := file.SetCellValue(sheet, cell, column.Header); err != nil {
			return nil, fmt.Errorf("set excel header %s: %w", cell, err)
		}
		widths[col] = utf8.RuneCountInString(column.Header)
	}

	for i, row := range rows {
		excelRow := i + 2
		for col, column := range columns {
			cell, _ := excelize.CoordinatesToCellName(col+1, excelRow)
			if err := file.SetCellValue(sheet, cell, cellValue(row, column.Key)); err != nil {
				return nil, fmt.Errorf("set excel value %s: %w", cell, err)
			}
			if width := utf8.RuneCountInString(renderValue(row, column.Key, b.profile.Style)); width > widths[col] {
				widths[col] = width
			}
		}
	}

	if err := b.applyStyles(file, sheet, rows, widths); err != nil {
		return nil, err
	}

	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write excel buffer: %w", err)
	}
	return buf, nil
}

func (b *Builder) applyStyles(file *excelize.File, sheet string, rows []examresult.Row, widths []int) error {
	rules := b.profile.Style
	lastCol, err := excelize.ColumnNumberToName(len(b.profile.Columns))
	if err != nil {
		return fmt.Errorf("resolve last column: %w", err)
	}
	lastRow := len(rows) + 1

	headerStyle := rules.headerStyle()
	if !isEmptyStyle(headerStyle) {
		id, err := file.NewStyle(&headerStyle)
		if err != nil {
			return fmt.Errorf("create header style: %w", err)
		}
		if err := file.SetCellStyle(sheet, "A1", lastCol+"1", id); err != nil {
			return fmt.Errorf("apply header style: %w", err)
		}
	}

	if len(rows) > 0 {
		if err := b.applyDataStyles(file, sheet, rows); err != nil {
			return err
		}
	}

	if rules.AutoFilter {
		ref := fmt.Sprintf("A1:%s%d", lastCol, lastRow)
		if err := file.AutoFilter(sheet, ref, []excelize.AutoFilterOptions{}); err != nil {
			return fmt.Errorf("set autofilter %s: %w", ref, err)
		}
	}

	if rules.AutoWidth {
		for col, width := range widths {
			name, _ := excelize.ColumnNumberToName(col + 1)
			value := width + rules.WidthPadding
			if value > maxColumnWidth {
				value = maxColumnWidth
			}
			if err := file.SetColWidth(sheet, name, name, float64(value)); err != nil {
				return fmt.Errorf("set column width %s: %w", name, err)
			}
		}
	}

	return nil
}

func (b *Builder) applyDataStyles(file *excelize.File, sheet string, rows []examresult.Row) error {
	rules := b.profile.Style
	lastRow := len(rows) + 1

	for col, column := range b.profile.Columns {
		style := rules.dataStyle()
		switch column.Key {
		case ColClass:
			style.NumFmt = rules.ClassNumFmt
		case ColDate:
			if rules.DateNumFmt != "" {
				format := rules.DateNumFmt
				style.CustomNumFmt = &format
			}
		}
		if isEmptyStyle(style) {
			continue
		}

		id, err := file.NewStyle(&style)
		if err != nil {
			return fmt.Errorf("create %s style: %w", column.Key, err)
		}
		name, _ := excelize.ColumnNumberToName(col + 1)
		if err := file.SetCellStyle(sheet, name+"2", fmt.Sprintf("%s%d", name, lastRow), id); err != nil {
			return fmt.Errorf("apply %s style: %w", column.Key, err)
		}
	}

	resultCol := b.profile.columnIndex(ColResult)
	if resultCol < 0 || (rules.PassFill == "" && rules.FailFill == "") {
		return nil
	}

	fills := map[string]string{"PASS": rules.PassFill, "FAIL": rules.FailFill}
	fillStyles := make(map[string]int, len(fills))
	for value, color := range fills {
		if color == "" {
			continue
		}
		style := rules.dataStyle()
		style.Fill = excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1}
		id, err := file.NewStyle(&style)
		if err != nil {
			return fmt.Errorf("create %s fill style: %w", value, err)
		}
		fillStyles[value] = id
	}

	for i, row := range rows {
		id, ok := fillStyles[row.Result]
		if !ok {
			continue
		}
		cell, _ := excelize.CoordinatesToCellName(resultCol+1, i+2)
		if err := file.SetCellStyle(sheet, cell, cell, id); err != nil {
			return fmt.Errorf("apply result fill %s: %w", cell, err)
		}
	}
	return nil
}

func (r StyleRules) headerStyle() excelize.Style {
	style := r.dataStyle()
	if r.HeaderBold || r.HeaderFontColor != "" {
		style.Font = &excelize.Font{Bold: r.HeaderBold, Color: r.HeaderFontColor}
	}
	if r.HeaderFill != "" {
		style.Fill = excelize.Fill{Type: "pattern", Color: []string{r.HeaderFill}, Pattern: 1}
	}
	return style
}

func (r StyleRules) dataStyle() excelize.Style {
	var style excelize.Style
	if r.CenterCells {
		style.Alignment = &excelize.Alignment{Horizontal: "center", Vertical: "center"}
	}
	if r.ThinBorders {
		style.Border = []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		}
	}
	return style
}

func isEmptyStyle(style excelize.Style) bool {
	return style.Font == nil &&
		style.Alignment == nil &&
		len(style.Border) == 0 &&
		len(style.Fill.Color) == 0 &&
		style.NumFmt == 0 &&
		style.CustomNumFmt == nil
}

func cellValue(row examresult.Row, key ColumnKey) any {
	switch key {
	case ColName:
		return row.Name
	case ColIATCID:
		return row.IATCID
	case ColNationalID:
		return row.NationalID
	case ColClass:
		return row.Class
	case ColCurriculum:
		return row.Curriculum
	case ColExam:
		return row.Exam
	case ColExamType:
		return row.ExamType
	case ColScore:
		return row.Score
	case ColResult:
		return row.Result
	case ColSession:
		return row.Session
	case ColDate:
		return row.Date
	case ColAttemptIndex:
		return row.AttemptIndex
	case ColScoreIndex:
		return row.ScoreIndex
	default:
		return ""
	}
}

// renderValue returns the text a reader sees in the cell, used for sizing and CSV output.
func renderValue(row examresult.Row, key ColumnKey, rules StyleRules) string {
	switch key {
	case ColScore:
		return strconv.FormatFloat(row.Score, 'f', -1, 64)
	case ColDate:
		if rules.DateNumFmt != "" {
			return row.Date.Format("02-Jan-2006")
		}
		return row.Date.Format(examresult.DateLayout)
	case ColAttemptIndex:
		return strconv.Itoa(row.AttemptIndex)
	case ColScoreIndex:
		return strconv.Itoa(row.ScoreIndex)
	default:
		value, _ := cellValue(row, key).(string)
		return value
	}
}
