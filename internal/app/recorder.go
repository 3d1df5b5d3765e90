package app

import (
	"context"
	"time"

	"github.com/edgard/botconsole/internal/console"
	"github.com/edgard/botconsole/internal/database"
)

// ActivityRecorder stores completed console operations in the activity log.
// Superseded attempts are skipped since their outcome was never shown.
type ActivityRecorder struct {
	store database.Store
	now   func() time.Time
}

func NewActivityRecorder(store database.Store) *ActivityRecorder {
	return &ActivityRecorder{store: store, now: time.Now}
}

func (r *ActivityRecorder) Record(ctx context.Context, ev console.Event) error {
	if ev.Superseded {
		return nil
	}

	outcome := database.OutcomeSucceeded
	if !ev.Succeeded {
		outcome = database.OutcomeFailed
	}

	return r.store.RecordActivity(ctx, &database.Activity{
		SessionID:   ev.SessionID,
		Operation:   string(ev.Operation),
		Outcome:     outcome,
		ErrorCode:   ev.ErrorCode,
		HTTPStatus:  ev.HTTPStatus,
		Method:      ev.Method,
		DurationMS:  ev.Duration.Milliseconds(),
		CreatedAtMS: r.now().UTC().UnixMilli(),
	})
}
