package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"examexport/examresult"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

var ErrUnsupportedDriver = errors.New("unsupported database driver")

// ResultStore reads exam results joined with the student roster.
type ResultStore struct {
	db      *sql.DB
	dialect Dialect
}

// New prepares a store for dsn without connecting. The pool dials lazily on
// the first query.
func New(dialect Dialect, dsn string) (*ResultStore, error) {
	driverName, err := driverFor(dialect)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", dialect, err)
	}

	return &ResultStore{db: db, dialect: dialect}, nil
}

// Open connects to dsn using the named dialect and verifies the connection.
func Open(ctx context.Context, dialect Dialect, dsn string) (*ResultStore, error) {
	store, err := New(dialect, dsn)
	if err != nil {
		return nil, err
	}

	if err := store.Ping(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}

	return store, nil
}

func (s *ResultStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping %s db: %w", s.dialect, err)
	}
	return nil
}

func OpenSQLite(path string) (*ResultStore, error) {
	return Open(context.Background(), DialectSQLite, path)
}

func OpenPostgres(ctx context.Context, dsn string) (*ResultStore, error) {
	return Open(ctx, DialectPostgres, dsn)
}

func ParseDialect(value string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "postgres", "postgresql", "pgx":
		return DialectPostgres, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("%w: %s (supported: postgres, sqlite)", ErrUnsupportedDriver, value)
	}
}

func driverFor(dialect Dialect) (string, error) {
	switch dialect {
	case DialectPostgres:
		return "pgx", nil
	case DialectSQLite:
		return "sqlite", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedDriver, dialect)
	}
}

func (s *ResultStore) Close() error {
	return s.db.Close()
}

func (s *ResultStore) Dialect() Dialect {
	return s.dialect
}

// FetchResults runs one read-only query for rng on a dedicated connection and
// releases it before returning. Rows come back ordered by date, session, class
// and IATC ID. An inverted range yields no rows.
func (s *ResultStore) FetchResults(ctx context.Context, rng examresult.DateRange, opts FetchOptions) ([]examresult.Row, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	query := s.resultsQuery(opts)
	rows, err := conn.QueryContext(ctx, query,
		rng.Start.Format(examresult.DateLayout),
		rng.End.Format(examresult.DateLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("query exam results: %w", err)
	}
	defer rows.Close()

	results := make([]examresult.Row, 0, 64)
	for rows.Next() {
		row, err := scanResultRow(rows, opts)
		if err != nil {
			return nil, err
		}
		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exam results: %w", err)
	}

	return results, nil
}

func (s *ResultStore) resultsQuery(opts FetchOptions) string {
	examType := ""
	if opts.IncludeExamType {
		examType = "\n\texam_results.exam_type,"
	}

	return fmt.Sprintf(`
SELECT
	student_list.name,
	student_list.iatc_id,
	exam_results.nat_id,
	student_list.class,
	student_list.curriculum,
	exam_results.exam,%s
	exam_results.score,
	exam_results.result,
	exam_results.session,
	exam_results.date,
	exam_results.attempt_index,
	exam_results.score_index
FROM exam_results
JOIN student_list ON exam_results.nat_id = student_list.nat_id
WHERE exam_results.date >= %s AND exam_results.date <= %s
ORDER BY exam_results.date ASC, exam_results.session ASC, student_list.class, student_list.iatc_id ASC;
`, examType, s.placeholder(1), s.placeholder(2))
}

func (s *ResultStore) placeholder(n int) string {
	if s.dialect == DialectPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResultRow(rows rowScanner, opts FetchOptions) (examresult.Row, error) {
	var (
		name, iatcID, natID, class, curriculum sql.NullString
		exam, examType, result, session        sql.NullString
		score                                  sql.NullFloat64
		dateRaw                                any
		attemptIndex, scoreIndex               sql.NullInt64
	)

	dest := []any{&name, &iatcID, &natID, &class, &curriculum, &exam}
	if opts.IncludeExamType {
		dest = append(dest, &examType)
	}
	dest = append(dest, &score, &result, &session, &dateRaw, &attemptIndex, &scoreIndex)

	if err := rows.Scan(dest...); err != nil {
		return examresult.Row{}, fmt.Errorf("scan exam result: %w", err)
	}

	date, err := parseDateValue(dateRaw)
	if err != nil {
		return examresult.Row{}, err
	}

	return examresult.Row{
		Name:         name.String,
		IATCID:       iatcID.String,
		NationalID:   natID.String,
		Class:        class.String,
		Curriculum:   curriculum.String,
		Exam:         exam.String,
		ExamType:     examType.String,
		Score:        score.Float64,
		Result:       result.String,
		Session:      session.String,
		Date:         date,
		AttemptIndex: int(attemptIndex.Int64),
		ScoreIndex:   int(scoreIndex.Int64),
	}, nil
}

// parseDateValue accepts the date shapes drivers return: time.Time from pgx,
// text from SQLite columns.
func parseDateValue(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return time.Date(v.Year(), v.Month(), v.Day(), 0, 0, 0, 0, time.UTC), nil
	case string:
		return parseDateText(v)
	case []byte:
		return parseDateText(string(v))
	case nil:
		return time.Time{}, fmt.Errorf("parse exam date: null value")
	default:
		return time.Time{}, fmt.Errorf("parse exam date: unsupported type %T", value)
	}
}

func parseDateText(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) >= len(examresult.DateLayout) {
		if parsed, err := time.Parse(examresult.DateLayout, raw[:len(examresult.DateLayout)]); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse exam date %q: expected YYYY-MM-DD", raw)
}
