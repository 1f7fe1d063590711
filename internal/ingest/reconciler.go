package ingest

import (
	"context"
	"fmt"

	"github.com/DanielBergThomsen/tentahjalpen/internal/db"
	"github.com/DanielBergThomsen/tentahjalpen/internal/logger"
	"github.com/DanielBergThomsen/tentahjalpen/internal/model"
	"github.com/DanielBergThomsen/tentahjalpen/pkg/errors"

	"github.com/rs/zerolog"
)

// Reconciler merges normalized results into the store without duplicating occasions.
// The policy is append-only: once a (code, taken) pair exists its grade counts are
// never recomputed from later re-imports, which protects approved attachments from
// being clobbered. Each insert commits independently, so an aborted run resumes
// cleanly on the next cycle.
type Reconciler struct {
	repo db.Repository
	log  zerolog.Logger
}

func NewReconciler(repo db.Repository) *Reconciler {
	return &Reconciler{
		repo: repo,
		log:  logger.With("reconciler"),
	}
}

// Reconcile inserts every result not already present, keyed by (code, taken), and
// returns the number of insertions. Store errors abort the run; already-inserted
// records are simply skipped on the next pass.
func (r *Reconciler) Reconcile(ctx context.Context, results []model.ExamResult) (int, error) {
	insertions := 0

	for i := range results {
		result := &results[i]

		_, err := r.repo.GetResult(ctx, result.Code, result.Taken)
		if err == nil {
			// occasion already present, never update
			continue
		}
		if err != errors.ErrResultNotFound {
			return insertions, fmt.Errorf("failed to look up %s %s: %w", result.Code, result.Taken, err)
		}

		if err := r.repo.InsertResult(ctx, result); err != nil {
			return insertions, fmt.Errorf("failed to insert %s %s: %w", result.Code, result.Taken, err)
		}
		insertions++
	}

	r.log.Info().Int("insertions", insertions).Int("total", len(results)).Msg("Reconciliation completed")
	return insertions, nil
}
