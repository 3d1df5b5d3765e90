package database

import "time"

// Activity outcomes.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

// Activity is one completed console operation. It deliberately has no
// column for the token, chat id, text or params.
type Activity struct {
	ID          int64  `db:"id"`
	SessionID   string `db:"session_id"`
	Operation   string `db:"operation"`
	Outcome     string `db:"outcome"`
	ErrorCode   string `db:"error_code"`
	HTTPStatus  int    `db:"http_status"`
	Method      string `db:"method"`
	DurationMS  int64  `db:"duration_ms"`
	CreatedAtMS int64  `db:"created_at"` // unix milliseconds, UTC
}

// CreatedAt returns the record time.
func (a Activity) CreatedAt() time.Time {
	return time.UnixMilli(a.CreatedAtMS).UTC()
}
