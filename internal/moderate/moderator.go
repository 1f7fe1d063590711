package moderate

import (
	"context"
	"os"
	"path/filepath"

	"github.com/DanielBergThomsen/tentahjalpen/internal/db"
	"github.com/DanielBergThomsen/tentahjalpen/internal/logger"
	"github.com/DanielBergThomsen/tentahjalpen/internal/model"

	"github.com/rs/zerolog"
)

// Moderator is the operator-facing workflow over the staging table. Every operation
// takes effect immediately; there is no undo and no retained "approved" state, a
// suggestion simply stops existing once handled.
type Moderator struct {
	repo db.Repository
	log  zerolog.Logger
}

func NewModerator(repo db.Repository) *Moderator {
	return &Moderator{
		repo: repo,
		log:  logger.With("moderator"),
	}
}

// List enumerates all pending suggestions; the display type is derived from whichever
// attachment column is populated.
func (m *Moderator) List(ctx context.Context) ([]model.Suggestion, error) {
	return m.repo.ListSuggestions(ctx)
}

// Remove deletes one suggestion and returns it for reporting. A bad id yields
// errors.ErrSuggestionNotFound and no mutation.
func (m *Moderator) Remove(ctx context.Context, id int64) (*model.Suggestion, error) {
	suggestion, err := m.repo.GetSuggestion(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := m.repo.DeleteSuggestion(ctx, id); err != nil {
		return nil, err
	}

	m.log.Info().Int64("id", id).Str("code", suggestion.Code).Str("taken", suggestion.Taken).
		Msg("Removed suggestion")
	return suggestion, nil
}

// RemoveAll deletes every suggestion and reports how many were removed.
func (m *Moderator) RemoveAll(ctx context.Context) (int64, error) {
	removed, err := m.repo.DeleteAllSuggestions(ctx)
	if err != nil {
		return 0, err
	}

	m.log.Info().Int64("removed", removed).Msg("Removed all suggestions")
	return removed, nil
}

// Approve consumes a suggestion and merges its PDF onto the matching occasion. When
// no occasion matches, the update affects zero rows but the suggestion is still
// consumed. A bad id yields errors.ErrSuggestionNotFound and no mutation.
func (m *Moderator) Approve(ctx context.Context, id int64) (*model.Suggestion, error) {
	suggestion, err := m.repo.GetSuggestion(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := m.repo.DeleteSuggestion(ctx, id); err != nil {
		return nil, err
	}

	if err := m.apply(ctx, suggestion); err != nil {
		return nil, err
	}

	m.log.Info().Int64("id", id).Str("code", suggestion.Code).Str("taken", suggestion.Taken).
		Str("kind", string(suggestion.Kind())).Msg("Approved suggestion")
	return suggestion, nil
}

// ApproveAll snapshots the pending suggestions, deletes them all, then applies each
// update in turn. The two phases are not atomic: a crash in between loses the updates
// for entries that were already deleted.
func (m *Moderator) ApproveAll(ctx context.Context) (int, error) {
	suggestions, err := m.repo.ListSuggestions(ctx)
	if err != nil {
		return 0, err
	}

	if _, err := m.repo.DeleteAllSuggestions(ctx); err != nil {
		return 0, err
	}

	for i := range suggestions {
		if err := m.apply(ctx, &suggestions[i]); err != nil {
			return i, err
		}
	}

	m.log.Info().Int("approved", len(suggestions)).Msg("Approved all suggestions")
	return len(suggestions), nil
}

// Show dumps the suggestion's PDF to a temp file for inspection and returns its path.
func (m *Moderator) Show(ctx context.Context, id int64) (string, error) {
	suggestion, err := m.repo.GetSuggestion(ctx, id)
	if err != nil {
		return "", err
	}

	path := filepath.Join(os.TempDir(), "suggestion.pdf")
	if err := os.WriteFile(path, suggestion.Data(), 0o644); err != nil {
		return "", err
	}

	return path, nil
}

func (m *Moderator) apply(ctx context.Context, suggestion *model.Suggestion) error {
	return m.repo.SetAttachment(ctx, suggestion.Code, suggestion.Taken,
		suggestion.Kind(), suggestion.Data())
}
