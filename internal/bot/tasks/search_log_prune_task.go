package tasks

import (
	"context"
	"fmt"
	"time"
)

// newSearchLogPruneTask deletes search log records older than the
// configured retention.
func newSearchLogPruneTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "search_log_prune")
	now := time.Now

	return func(ctx context.Context) error {
		retention := deps.Config.Database.Retention
		if retention <= 0 {
			log.WarnContext(ctx, "Search log retention not set, skipping prune")
			return nil
		}

		cutoff := now().Add(-retention)
		removed, err := deps.Store.PruneSearches(ctx, cutoff)
		if err != nil {
			log.ErrorContext(ctx, "Search log prune failed", "error", err, "cutoff", cutoff)
			return fmt.Errorf("search log prune failed: %w", err)
		}

		log.InfoContext(ctx, "Pruned search log", "removed", removed, "cutoff", cutoff)
		return nil
	}
}
