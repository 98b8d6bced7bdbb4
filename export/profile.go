package export

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"examexport/examresult"
)

var ErrUnknownProfile = errors.New("unknown export profile")

const (
	ProfileDetailed = "detailed"
	ProfileBasic    = "basic"
)

type ColumnKey string

const (
	ColName         ColumnKey = "name"
	ColIATCID       ColumnKey = "iatc_id"
	ColNationalID   ColumnKey = "national_id"
	ColClass        ColumnKey = "class"
	ColCurriculum   ColumnKey = "curriculum"
	ColExam         ColumnKey = "exam"
	ColExamType     ColumnKey = "exam_type"
	ColScore        ColumnKey = "score"
	ColResult       ColumnKey = "result"
	ColSession      ColumnKey = "session"
	ColDate         ColumnKey = "date"
	ColAttemptIndex ColumnKey = "attempt_index"
	ColScoreIndex   ColumnKey = "score_index"
)

type Column struct {
	Key    ColumnKey
	Header string
}

// StyleRules describes how a profile decorates the sheet. Zero values disable a rule.
type StyleRules struct {
	HeaderBold      bool
	HeaderFill      string
	HeaderFontColor string
	CenterCells     bool
	AutoFilter      bool
	AutoWidth       bool
	WidthPadding    int
	ThinBorders     bool
	// ClassNumFmt is an excelize built-in number format id for the class column.
	ClassNumFmt int
	DateNumFmt  string
	PassFill    string
	FailFill    string
}

// Profile is one export layout: an ordered column schema plus a style ruleset.
type Profile struct {
	Name      string
	SheetName string
	// FileName may contain {start} and {end}, replaced with YYYY-MM-DD values.
	FileName string
	Columns  []Column
	Style    StyleRules
}

func (p Profile) Headers() []string {
	headers := make([]string, len(p.Columns))
	for i, col := range p.Columns {
		headers[i] = col.Header
	}
	return headers
}

func (p Profile) HasColumn(key ColumnKey) bool {
	return p.columnIndex(key) >= 0
}

func (p Profile) columnIndex(key ColumnKey) int {
	for i, col := range p.Columns {
		if col.Key == key {
			return i
		}
	}
	return -1
}

// FileNameFor returns the download name for rng, swapping the extension when ext is set.
func (p Profile) FileNameFor(rng examresult.DateRange, ext string) string {
	name := strings.NewReplacer(
		"{start}", rng.Start.Format(examresult.DateLayout),
		"{end}", rng.End.Format(examresult.DateLayout),
	).Replace(p.FileName)
	if ext == "" {
		return name
	}
	if dot := strings.LastIndex(name, "."); dot >= 0 {
		name = name[:dot]
	}
	return name + "." + strings.TrimPrefix(ext, ".")
}

var baseColumns = []Column{
	{Key: ColName, Header: "Name"},
	{Key: ColIATCID, Header: "IATC ID"},
	{Key: ColNationalID, Header: "National ID"},
	{Key: ColClass, Header: "Class"},
	{Key: ColCurriculum, Header: "Faculty"},
	{Key: ColExam, Header: "Exam"},
	{Key: ColScore, Header: "Score"},
	{Key: ColResult, Header: "Result"},
	{Key: ColSession, Header: "Session"},
	{Key: ColDate, Header: "Date"},
	{Key: ColAttemptIndex, Header: "Attempt Index"},
	{Key: ColScoreIndex, Header: "Score Index"},
}

func detailedColumns() []Column {
	cols := make([]Column, 0, len(baseColumns)+1)
	for _, col := range baseColumns {
		cols = append(cols, col)
		if col.Key == ColExam {
			cols = append(cols, Column{Key: ColExamType, Header: "Exam Type"})
		}
	}
	return cols
}

var profiles = map[string]Profile{
	ProfileDetailed: {
		Name:      ProfileDetailed,
		SheetName: "Results",
		FileName:  "exam_results_{start}_to_{end}.xlsx",
		Columns:   detailedColumns(),
		Style: StyleRules{
			HeaderBold:      true,
			HeaderFill:      "008080",
			HeaderFontColor: "FFFFFF",
			CenterCells:     true,
			AutoFilter:      true,
			AutoWidth:       true,
			WidthPadding:    2,
			ThinBorders:     true,
			ClassNumFmt:     2,
			DateNumFmt:      "dd-mmm-yyyy",
			PassFill:        "C6EFCE",
			FailFill:        "FFC7CE",
		},
	},
	ProfileBasic: {
		Name:      ProfileBasic,
		SheetName: "Results",
		FileName:  "query_results.xlsx",
		Columns:   append([]Column(nil), baseColumns...),
	},
}

// ProfileByName returns a copy of a built-in profile. Lookup is case-insensitive.
func ProfileByName(name string) (Profile, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = ProfileDetailed
	}
	profile, ok := profiles[key]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %s (supported: %s)", ErrUnknownProfile, name, strings.Join(ProfileNames(), ", "))
	}
	profile.Columns = append([]Column(nil), profile.Columns...)
	return profile, nil
}

func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
