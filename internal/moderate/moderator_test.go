package moderate

import (
	"bytes"
	"context"
	"testing"

	"github.com/DanielBergThomsen/tentahjalpen/internal/db"
	"github.com/DanielBergThomsen/tentahjalpen/internal/model"
	"github.com/DanielBergThomsen/tentahjalpen/pkg/errors"
)

type fakeRepo struct {
	db.Repository
	results     map[string]*model.ExamResult
	suggestions map[int64]*model.Suggestion
	nextID      int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		results:     make(map[string]*model.ExamResult),
		suggestions: make(map[int64]*model.Suggestion),
		nextID:      1,
	}
}

func (f *fakeRepo) addResult(r model.ExamResult) {
	f.results[r.Key()] = &r
}

func (f *fakeRepo) addSuggestion(s model.Suggestion) int64 {
	s.ID = f.nextID
	f.nextID++
	f.suggestions[s.ID] = &s
	return s.ID
}

func (f *fakeRepo) ListSuggestions(ctx context.Context) ([]model.Suggestion, error) {
	var out []model.Suggestion
	for id := int64(1); id < f.nextID; id++ {
		if s, ok := f.suggestions[id]; ok {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetSuggestion(ctx context.Context, id int64) (*model.Suggestion, error) {
	if s, ok := f.suggestions[id]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, errors.ErrSuggestionNotFound
}

func (f *fakeRepo) DeleteSuggestion(ctx context.Context, id int64) error {
	if _, ok := f.suggestions[id]; !ok {
		return errors.ErrSuggestionNotFound
	}
	delete(f.suggestions, id)
	return nil
}

func (f *fakeRepo) DeleteAllSuggestions(ctx context.Context) (int64, error) {
	count := int64(len(f.suggestions))
	f.suggestions = make(map[int64]*model.Suggestion)
	return count, nil
}

func (f *fakeRepo) SetAttachment(ctx context.Context, code, taken string, kind model.AttachmentKind, data []byte) error {
	result, ok := f.results[code+taken]
	if !ok {
		// zero rows affected, not an error
		return nil
	}
	switch kind {
	case model.KindExam:
		result.Exam = data
	case model.KindSolution:
		result.Solution = data
	}
	return nil
}

func TestApproveRemovesAndMerges(t *testing.T) {
	repo := newFakeRepo()
	repo.addResult(model.ExamResult{Code: "EDA321", Taken: "2012-12-26"})
	pdf := []byte("%PDF-1.4 solution")
	id := repo.addSuggestion(model.Suggestion{Code: "EDA321", Taken: "2012-12-26", Solution: pdf})

	moderator := NewModerator(repo)

	entry, err := moderator.Approve(context.Background(), id)
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if entry.Code != "EDA321" {
		t.Errorf("unexpected entry: %+v", entry)
	}

	if len(repo.suggestions) != 0 {
		t.Error("suggestion not consumed")
	}

	result := repo.results["EDA3212012-12-26"]
	if !bytes.Equal(result.Solution, pdf) {
		t.Errorf("solution not merged, got %q", result.Solution)
	}
}

func TestApproveMissingOccasionConsumesSuggestion(t *testing.T) {
	repo := newFakeRepo()
	id := repo.addSuggestion(model.Suggestion{Code: "ZZZ999", Taken: "2000-01-01", Exam: []byte("pdf")})

	if _, err := NewModerator(repo).Approve(context.Background(), id); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	if len(repo.suggestions) != 0 {
		t.Error("suggestion should be consumed even without a matching occasion")
	}
	if len(repo.results) != 0 {
		t.Error("store should be otherwise unchanged")
	}
}

func TestApproveUnknownID(t *testing.T) {
	repo := newFakeRepo()
	repo.addResult(model.ExamResult{Code: "EDA321", Taken: "2012-12-26"})

	_, err := NewModerator(repo).Approve(context.Background(), 42)
	if err != errors.ErrSuggestionNotFound {
		t.Fatalf("expected ErrSuggestionNotFound, got %v", err)
	}

	if repo.results["EDA3212012-12-26"].Exam != nil {
		t.Error("no mutation expected for unknown id")
	}
}

func TestRemoveUnknownID(t *testing.T) {
	repo := newFakeRepo()

	_, err := NewModerator(repo).Remove(context.Background(), 7)
	if err != errors.ErrSuggestionNotFound {
		t.Fatalf("expected ErrSuggestionNotFound, got %v", err)
	}
}

func TestRemoveAllReportsCount(t *testing.T) {
	repo := newFakeRepo()
	repo.addSuggestion(model.Suggestion{Code: "EDA321", Taken: "2012-12-26", Exam: []byte("a")})
	repo.addSuggestion(model.Suggestion{Code: "EDA322", Taken: "1998-12-26", Solution: []byte("b")})

	moderator := NewModerator(repo)

	removed, err := moderator.RemoveAll(context.Background())
	if err != nil {
		t.Fatalf("RemoveAll failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("expected 2 removed, got %d", removed)
	}

	// empty staging table is not an error
	removed, err = moderator.RemoveAll(context.Background())
	if err != nil {
		t.Fatalf("RemoveAll on empty failed: %v", err)
	}
	if removed != 0 {
		t.Errorf("expected 0 removed, got %d", removed)
	}
}

func TestApproveAllAppliesEverySuggestion(t *testing.T) {
	repo := newFakeRepo()
	repo.addResult(model.ExamResult{Code: "EDA321", Taken: "2012-12-26"})
	repo.addResult(model.ExamResult{Code: "EDA322", Taken: "1998-12-26"})
	repo.addSuggestion(model.Suggestion{Code: "EDA321", Taken: "2012-12-26", Exam: []byte("exam pdf")})
	repo.addSuggestion(model.Suggestion{Code: "EDA322", Taken: "1998-12-26", Solution: []byte("solution pdf")})
	// orphan suggestion: consumed but merges nowhere
	repo.addSuggestion(model.Suggestion{Code: "ZZZ999", Taken: "2000-01-01", Exam: []byte("orphan")})

	approved, err := NewModerator(repo).ApproveAll(context.Background())
	if err != nil {
		t.Fatalf("ApproveAll failed: %v", err)
	}
	if approved != 3 {
		t.Errorf("expected 3 processed, got %d", approved)
	}

	if len(repo.suggestions) != 0 {
		t.Error("staging table should be empty")
	}
	if repo.results["EDA3212012-12-26"].Exam == nil {
		t.Error("exam not merged")
	}
	if repo.results["EDA3221998-12-26"].Solution == nil {
		t.Error("solution not merged")
	}
}

func TestListDerivesType(t *testing.T) {
	repo := newFakeRepo()
	repo.addSuggestion(model.Suggestion{Code: "EDA321", Taken: "2012-12-26", Exam: []byte("a")})
	repo.addSuggestion(model.Suggestion{Code: "EDA322", Taken: "1998-12-26", Solution: []byte("b")})

	suggestions, err := NewModerator(repo).List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	if len(suggestions) != 2 {
		t.Fatalf("expected 2 suggestions, got %d", len(suggestions))
	}
	if suggestions[0].Kind() != model.KindExam {
		t.Errorf("expected exam, got %s", suggestions[0].Kind())
	}
	if suggestions[1].Kind() != model.KindSolution {
		t.Errorf("expected solution, got %s", suggestions[1].Kind())
	}
}
