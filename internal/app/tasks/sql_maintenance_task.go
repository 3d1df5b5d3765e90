package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/edgard/botconsole/internal/config"
)

// newSQLMaintenanceTask runs the store's VACUUM.
func newSQLMaintenanceTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", config.TaskSQLMaintenance)

	return func(ctx context.Context) error {
		if deps.Store == nil {
			return fmt.Errorf("sql maintenance: no store configured")
		}

		log.InfoContext(ctx, "Starting scheduled SQL maintenance task...")
		startTime := time.Now()

		if err := deps.Store.RunSQLMaintenance(ctx); err != nil {
			log.ErrorContext(ctx, "SQL maintenance task failed", "error", err, "duration", time.Since(startTime))
			return fmt.Errorf("sql maintenance failed: %w", err)
		}

		log.InfoContext(ctx, "Scheduled SQL maintenance task completed", "duration", time.Since(startTime))
		return nil
	}
}
