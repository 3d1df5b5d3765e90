// Package tasks implements the console's scheduled housekeeping tasks.
package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/edgard/botconsole/internal/config"
	"github.com/edgard/botconsole/internal/database"
)

// ScheduledTaskFunc is the signature of every scheduled task. The context
// provided by the scheduler must be respected for cancellation.
type ScheduledTaskFunc func(ctx context.Context) error

// SessionSweeper drops expired sessions and reports how many it removed.
type SessionSweeper interface {
	Sweep() int
}

// TaskDeps contains the dependencies shared by scheduled tasks.
type TaskDeps struct {
	Logger   *slog.Logger
	Store    database.Store
	Sessions SessionSweeper
	Config   *config.Config
	// Now is the clock used for retention cutoffs; nil means time.Now.
	Now func() time.Time
}

// RegisterAllTasks returns the task registry. Keys match the names used in
// the scheduler.tasks configuration section.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	tasks := map[string]ScheduledTaskFunc{
		config.TaskSessionSweep:   newSessionSweepTask(deps),
		config.TaskActivityPrune:  newActivityPruneTask(deps),
		config.TaskSQLMaintenance: newSQLMaintenanceTask(deps),
	}

	deps.Logger.Info("Initialized scheduled tasks", "count", len(tasks))
	return tasks
}
