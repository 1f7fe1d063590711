package model

// AttachmentKind discriminates the two PDF columns carried by results and suggestions.
type AttachmentKind string

const (
	KindExam     AttachmentKind = "exam"
	KindSolution AttachmentKind = "solution"
)

// ExamResult is one exam occasion for one course. The (Code, Taken) pair is the
// natural key; grade counts are set once at ingestion and never recomputed.
type ExamResult struct {
	Code     string `json:"code" db:"code"`
	Name     string `json:"name" db:"name"`
	Taken    string `json:"taken" db:"taken"` // ISO date, YYYY-MM-DD
	Failures int    `json:"failures" db:"failures"`
	Threes   int    `json:"threes" db:"threes"`
	Fours    int    `json:"fours" db:"fours"`
	Fives    int    `json:"fives" db:"fives"`
	Exam     []byte `json:"-" db:"exam"`
	Solution []byte `json:"-" db:"solution"`
}

// Key returns the grouping key used during normalization and reconciliation.
func (r *ExamResult) Key() string {
	return r.Code + r.Taken
}

// HasAttachment reports whether the given attachment column is already populated.
func (r *ExamResult) HasAttachment(kind AttachmentKind) bool {
	switch kind {
	case KindExam:
		return len(r.Exam) > 0
	case KindSolution:
		return len(r.Solution) > 0
	}
	return false
}

// CourseSummary is the distinct (code, name) projection served by the course list.
type CourseSummary struct {
	Code string `json:"code" db:"code"`
	Name string `json:"name" db:"name"`
}
