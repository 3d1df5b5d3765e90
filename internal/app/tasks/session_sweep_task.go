package tasks

import (
	"context"
	"fmt"

	"github.com/edgard/botconsole/internal/config"
)

// newSessionSweepTask drops sessions whose lifetime ran out.
func newSessionSweepTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", config.TaskSessionSweep)

	return func(ctx context.Context) error {
		if deps.Sessions == nil {
			return fmt.Errorf("session sweep: no session registry configured")
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		removed := deps.Sessions.Sweep()
		log.DebugContext(ctx, "Session sweep finished", "removed", removed)
		return nil
	}
}
