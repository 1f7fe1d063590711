package model

// Suggestion is a staged, unreviewed attachment. Exactly one of Exam or Solution is
// populated; its mere presence in the exam_suggestions table means "pending".
type Suggestion struct {
	ID       int64  `json:"id" db:"id"`
	Code     string `json:"code" db:"code"`
	Taken    string `json:"taken" db:"taken"`
	Exam     []byte `json:"-" db:"exam"`
	Solution []byte `json:"-" db:"solution"`
}

// Kind derives the suggestion type from whichever column is populated.
func (s *Suggestion) Kind() AttachmentKind {
	if len(s.Exam) > 0 {
		return KindExam
	}
	return KindSolution
}

// Data returns the populated PDF payload.
func (s *Suggestion) Data() []byte {
	if len(s.Exam) > 0 {
		return s.Exam
	}
	return s.Solution
}
