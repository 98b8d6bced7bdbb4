package storage

import (
	"context"
	"fmt"

	"examexport/examresult"
)

// EnsureSchema creates student_list and exam_results when missing. Intended for
// local databases; production databases are read through FetchResults only.
func (s *ResultStore) EnsureSchema(ctx context.Context) error {
	idColumn := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	dateType := "TEXT"
	scoreType := "REAL"
	if s.dialect == DialectPostgres {
		idColumn = "id BIGSERIAL PRIMARY KEY"
		dateType = "DATE"
		scoreType = "NUMERIC"
	}

	statements := []string{
		`
CREATE TABLE IF NOT EXISTS student_list (
	nat_id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	iatc_id TEXT NOT NULL,
	class TEXT NOT NULL,
	curriculum TEXT NOT NULL
);`,
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS exam_results (
	%s,
	nat_id TEXT NOT NULL REFERENCES student_list(nat_id),
	exam TEXT NOT NULL,
	exam_type TEXT,
	score %s,
	result TEXT NOT NULL,
	session TEXT NOT NULL,
	date %s NOT NULL,
	attempt_index INTEGER NOT NULL DEFAULT 1,
	score_index INTEGER NOT NULL DEFAULT 1
);`, idColumn, scoreType, dateType),
		`CREATE INDEX IF NOT EXISTS idx_exam_results_date ON exam_results(date);`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// InsertStudents adds roster entries, skipping national IDs that already exist.
func (s *ResultStore) InsertStudents(ctx context.Context, students []Student) (int, error) {
	if len(students) == 0 {
		return 0, nil
	}

	insertStmt := `
INSERT OR IGNORE INTO student_list (nat_id, name, iatc_id, class, curriculum)
VALUES (?, ?, ?, ?, ?);`
	if s.dialect == DialectPostgres {
		insertStmt = `
INSERT INTO student_list (nat_id, name, iatc_id, class, curriculum)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (nat_id) DO NOTHING;`
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertStmt)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("prepare student insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, student := range students {
		res, err := stmt.ExecContext(ctx,
			student.NationalID,
			student.Name,
			student.IATCID,
			student.Class,
			student.Curriculum,
		)
		if err != nil {
			_ = tx.Rollback()
			return inserted, fmt.Errorf("insert student %s: %w", student.NationalID, err)
		}
		if rows, err := res.RowsAffected(); err == nil && rows > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return inserted, fmt.Errorf("commit transaction: %w", err)
	}
	return inserted, nil
}

func (s *ResultStore) InsertResults(ctx context.Context, results []ExamResult) (int, error) {
	if len(results) == 0 {
		return 0, nil
	}

	insertStmt := `
INSERT INTO exam_results (nat_id, exam, exam_type, score, result, session, date, attempt_index, score_index)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);`
	if s.dialect == DialectPostgres {
		insertStmt = `
INSERT INTO exam_results (nat_id, exam, exam_type, score, result, session, date, attempt_index, score_index)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);`
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertStmt)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("prepare result insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, result := range results {
		_, err := stmt.ExecContext(ctx,
			result.NationalID,
			result.Exam,
			result.ExamType,
			result.Score,
			result.Result,
			result.Session,
			result.Date.Format(examresult.DateLayout),
			result.AttemptIndex,
			result.ScoreIndex,
		)
		if err != nil {
			_ = tx.Rollback()
			return inserted, fmt.Errorf("insert exam result for %s: %w", result.NationalID, err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return inserted, fmt.Errorf("commit transaction: %w", err)
	}
	return inserted, nil
}

// DeleteAllResults clears exam_results and student_list, returning the number of result rows removed.
func (s *ResultStore) DeleteAllResults(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM exam_results;`)
	if err != nil {
		return 0, fmt.Errorf("delete exam results: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("read deleted row count: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM student_list;`); err != nil {
		return rows, fmt.Errorf("delete students: %w", err)
	}
	return rows, nil
}
