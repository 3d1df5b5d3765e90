package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/edgard/botconsole/internal/config"
)

// newActivityPruneTask deletes activity rows older than the configured
// retention.
func newActivityPruneTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", config.TaskActivityPrune)

	return func(ctx context.Context) error {
		if deps.Store == nil {
			return fmt.Errorf("activity prune: no store configured")
		}

		retention := config.DefaultActivityRetention
		if deps.Config != nil && deps.Config.Database.ActivityRetention > 0 {
			retention = deps.Config.Database.ActivityRetention
		}
		cutoff := deps.Now().Add(-retention)

		startTime := time.Now()
		removed, err := deps.Store.PruneActivity(ctx, cutoff)
		if err != nil {
			log.ErrorContext(ctx, "Activity prune failed", "cutoff", cutoff, "error", err)
			return fmt.Errorf("activity prune failed: %w", err)
		}

		log.InfoContext(ctx, "Activity prune completed", "cutoff", cutoff, "removed", removed, "duration", time.Since(startTime))
		return nil
	}
}
