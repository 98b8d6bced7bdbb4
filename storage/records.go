package storage

import "time"

// Student is one roster entry in student_list.
type Student struct {
	NationalID string
	Name       string
	IATCID     string
	Class      string
	Curriculum string
}

// ExamResult is one attempt stored in exam_results.
type ExamResult struct {
	NationalID   string
	Exam         string
	ExamType     string
	Score        float64
	Result       string
	Session      string
	Date         time.Time
	AttemptIndex int
	ScoreIndex   int
}

// FetchOptions selects optional columns for FetchResults.
type FetchOptions struct {
	IncludeExamType bool
}
