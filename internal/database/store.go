package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// MaxActivityLimit caps how many rows RecentActivity returns.
const MaxActivityLimit = 100

// Store defines the activity log operations.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// RecordActivity inserts one activity row and sets its ID.
	RecordActivity(ctx context.Context, activity *Activity) error

	// RecentActivity returns the newest rows of a session, newest first.
	RecentActivity(ctx context.Context, sessionID string, limit int) ([]Activity, error)

	// PruneActivity deletes rows created before the given time.
	PruneActivity(ctx context.Context, before time.Time) (int64, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore implements Store using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a Store backed by an open sqlx.DB.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlxStore) RecordActivity(ctx context.Context, activity *Activity) error {
	if activity == nil {
		return fmt.Errorf("cannot record nil activity")
	}
	if activity.SessionID == "" {
		return fmt.Errorf("activity must have a session_id")
	}
	if activity.Operation == "" {
		return fmt.Errorf("activity must have an operation")
	}
	if activity.Outcome != OutcomeSucceeded && activity.Outcome != OutcomeFailed {
		return fmt.Errorf("invalid activity outcome %q", activity.Outcome)
	}
	if activity.CreatedAtMS == 0 {
		activity.CreatedAtMS = time.Now().UTC().UnixMilli()
	}

	query := `
        INSERT INTO activity (session_id, operation, outcome, error_code, http_status, method, duration_ms, created_at)
        VALUES (:session_id, :operation, :outcome, :error_code, :http_status, :method, :duration_ms, :created_at);
    `

	result, err := s.db.NamedExecContext(ctx, query, activity)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error recording activity",
			"session_id", activity.SessionID, "operation", activity.Operation, "error", err)
		return fmt.Errorf("failed to record activity: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read activity id: %w", err)
	}
	activity.ID = id

	s.logger.DebugContext(ctx, "Activity recorded",
		"activity_id", id, "session_id", activity.SessionID, "operation", activity.Operation, "outcome", activity.Outcome)
	return nil
}

func (s *sqlxStore) RecentActivity(ctx context.Context, sessionID string, limit int) ([]Activity, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session_id cannot be empty")
	}
	if limit <= 0 {
		return []Activity{}, nil
	}
	if limit > MaxActivityLimit {
		limit = MaxActivityLimit
		s.logger.DebugContext(ctx, "Limit exceeded maximum value, capping", "session_id", sessionID, "capped_limit", limit)
	}

	query := `
        SELECT id, session_id, operation, outcome, error_code, http_status, method, duration_ms, created_at
        FROM activity
        WHERE session_id = ?
        ORDER BY created_at DESC, id DESC
        LIMIT ?;
    `

	activities := []Activity{}
	err := s.db.SelectContext(ctx, &activities, query, sessionID, limit)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.logger.WarnContext(ctx, "Context timeout or cancellation while fetching activity", "session_id", sessionID, "error", err)
		return nil, err
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Error fetching recent activity", "session_id", sessionID, "error", err)
		return nil, fmt.Errorf("failed to fetch recent activity: %w", err)
	}

	return activities, nil
}

func (s *sqlxStore) PruneActivity(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM activity WHERE created_at < ?;`, before.UTC().UnixMilli())
	if err != nil {
		s.logger.ErrorContext(ctx, "Error pruning activity", "before", before, "error", err)
		return 0, fmt.Errorf("failed to prune activity: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read pruned row count: %w", err)
	}

	s.logger.InfoContext(ctx, "Activity pruned", "before", before, "removed", removed)
	return removed, nil
}

// RunSQLMaintenance executes VACUUM, which SQLite requires outside a transaction.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")
	_, err := s.db.ExecContext(ctx, "VACUUM;")

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)

	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)

	default:
		s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	}

	return nil
}
