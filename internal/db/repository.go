package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/DanielBergThomsen/tentahjalpen/internal/model"
	"github.com/DanielBergThomsen/tentahjalpen/pkg/errors"
)

const isoDate = "2006-01-02"

type Repository interface {
	ListCourses(ctx context.Context) ([]model.CourseSummary, error)
	ListResults(ctx context.Context, code string) ([]model.ExamResult, error)
	GetResult(ctx context.Context, code, taken string) (*model.ExamResult, error)
	InsertResult(ctx context.Context, result *model.ExamResult) error
	CourseExists(ctx context.Context, code string) (bool, error)
	FindCodesByName(ctx context.Context, name string) ([]string, error)
	SetAttachment(ctx context.Context, code, taken string, kind model.AttachmentKind, data []byte) error

	InsertSuggestion(ctx context.Context, suggestion *model.Suggestion) error
	ListSuggestions(ctx context.Context) ([]model.Suggestion, error)
	GetSuggestion(ctx context.Context, id int64) (*model.Suggestion, error)
	DeleteSuggestion(ctx context.Context, id int64) error
	DeleteAllSuggestions(ctx context.Context) (int64, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListCourses(ctx context.Context) ([]model.CourseSummary, error) {
	query := `SELECT DISTINCT ON (code) code, name FROM results`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []model.CourseSummary
	for rows.Next() {
		var course model.CourseSummary
		if err := rows.Scan(&course.Code, &course.Name); err != nil {
			return nil, err
		}
		courses = append(courses, course)
	}

	return courses, rows.Err()
}

func (r *repository) ListResults(ctx context.Context, code string) ([]model.ExamResult, error) {
	query := `SELECT code, name, taken, failures, threes, fours, fives, exam, solution
			  FROM results WHERE code = $1 ORDER BY taken`

	rows, err := r.db.QueryContext(ctx, query, code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.ExamResult
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *result)
	}

	return results, rows.Err()
}

func (r *repository) GetResult(ctx context.Context, code, taken string) (*model.ExamResult, error) {
	query := `SELECT code, name, taken, failures, threes, fours, fives, exam, solution
			  FROM results WHERE code = $1 AND taken = $2`

	result, err := scanResult(r.db.QueryRowContext(ctx, query, code, taken))
	if err == sql.ErrNoRows {
		return nil, errors.ErrResultNotFound
	}
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *repository) InsertResult(ctx context.Context, result *model.ExamResult) error {
	query := `INSERT INTO results (taken, code, name, failures, threes, fours, fives)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query, result.Taken, result.Code, result.Name,
		result.Failures, result.Threes, result.Fours, result.Fives)
	return err
}

func (r *repository) CourseExists(ctx context.Context, code string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM results WHERE code = $1)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, code).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *repository) FindCodesByName(ctx context.Context, name string) ([]string, error) {
	query := `SELECT DISTINCT ON (code) code FROM results WHERE name = $1`

	rows, err := r.db.QueryContext(ctx, query, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}

	return codes, rows.Err()
}

// SetAttachment writes an approved PDF onto the matching occasion. Zero affected rows
// is not an error: approving a suggestion whose occasion vanished is a no-op.
func (r *repository) SetAttachment(ctx context.Context, code, taken string, kind model.AttachmentKind, data []byte) error {
	var query string
	switch kind {
	case model.KindExam:
		query = `UPDATE results SET exam = $1 WHERE code = $2 AND taken = $3`
	case model.KindSolution:
		query = `UPDATE results SET solution = $1 WHERE code = $2 AND taken = $3`
	default:
		return fmt.Errorf("unknown attachment kind %q", kind)
	}

	_, err := r.db.ExecContext(ctx, query, data, code, taken)
	return err
}

func (r *repository) InsertSuggestion(ctx context.Context, suggestion *model.Suggestion) error {
	var query string
	switch suggestion.Kind() {
	case model.KindExam:
		query = `INSERT INTO exam_suggestions (taken, code, exam) VALUES ($1, $2, $3)`
		_, err := r.db.ExecContext(ctx, query, suggestion.Taken, suggestion.Code, suggestion.Exam)
		return err
	default:
		query = `INSERT INTO exam_suggestions (taken, code, solution) VALUES ($1, $2, $3)`
		_, err := r.db.ExecContext(ctx, query, suggestion.Taken, suggestion.Code, suggestion.Solution)
		return err
	}
}

func (r *repository) ListSuggestions(ctx context.Context) ([]model.Suggestion, error) {
	query := `SELECT id, code, taken, exam, solution FROM exam_suggestions ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var suggestions []model.Suggestion
	for rows.Next() {
		suggestion, err := scanSuggestion(rows)
		if err != nil {
			return nil, err
		}
		suggestions = append(suggestions, *suggestion)
	}

	return suggestions, rows.Err()
}

func (r *repository) GetSuggestion(ctx context.Context, id int64) (*model.Suggestion, error) {
	query := `SELECT id, code, taken, exam, solution FROM exam_suggestions WHERE id = $1`

	suggestion, err := scanSuggestion(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.ErrSuggestionNotFound
	}
	if err != nil {
		return nil, err
	}

	return suggestion, nil
}

func (r *repository) DeleteSuggestion(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM exam_suggestions WHERE id = $1`, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.ErrSuggestionNotFound
	}

	return nil
}

func (r *repository) DeleteAllSuggestions(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM exam_suggestions`)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanResult(row scanner) (*model.ExamResult, error) {
	var result model.ExamResult
	var taken time.Time

	err := row.Scan(&result.Code, &result.Name, &taken, &result.Failures,
		&result.Threes, &result.Fours, &result.Fives, &result.Exam, &result.Solution)
	if err != nil {
		return nil, err
	}

	result.Taken = taken.Format(isoDate)
	return &result, nil
}

func scanSuggestion(row scanner) (*model.Suggestion, error) {
	var suggestion model.Suggestion
	var taken time.Time

	err := row.Scan(&suggestion.ID, &suggestion.Code, &taken, &suggestion.Exam, &suggestion.Solution)
	if err != nil {
		return nil, err
	}

	suggestion.Taken = taken.Format(isoDate)
	return &suggestion, nil
}
