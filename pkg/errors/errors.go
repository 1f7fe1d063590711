package errors

import "errors"

var (
	ErrResultNotFound     = errors.New("exam result not found")
	ErrSuggestionNotFound = errors.New("suggestion not found")
	ErrInvalidDocument    = errors.New("invalid spreadsheet document")
	ErrAmbiguousCourse    = errors.New("ambiguous course match")
	ErrCourseNotFound     = errors.New("course not found")
)
