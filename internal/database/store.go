package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	apperrors "github.com/edgard/searchbyimage/internal/errors"
)

// Store defines the interface for database operations.
// Methods should accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// SaveSearch inserts a search log record and sets its ID.
	SaveSearch(ctx context.Context, record *SearchRecord) error

	// SearchStats aggregates outcomes of searches created at or after since.
	SearchStats(ctx context.Context, since time.Time) (SearchStats, error)

	// PruneSearches deletes records created before cutoff and returns how many were removed.
	PruneSearches(ctx context.Context, cutoff time.Time) (int64, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
		now:    time.Now,
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveSearch inserts a new search record.
func (s *sqlxStore) SaveSearch(ctx context.Context, record *SearchRecord) error {
	if record == nil {
		return apperrors.NewDatabaseError("cannot save nil search record", nil)
	}
	if record.Transport == "" || record.ChatID == "" {
		return apperrors.NewDatabaseError("search record must have a transport and chat id", nil)
	}
	switch record.Outcome {
	case OutcomeMatched, OutcomeNoMatch, OutcomeFailed:
	default:
		return apperrors.NewDatabaseError(fmt.Sprintf("unknown search outcome %q", record.Outcome), nil)
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.now().UTC()
	}

	query := `
        INSERT INTO search_log (transport, chat_id, message_id, user_id, threshold, outcome, accepted_count, error_code, created_at)
        VALUES (:transport, :chat_id, :message_id, :user_id, :threshold, :outcome, :accepted_count, :error_code, :created_at);
    `
	result, err := s.db.NamedExecContext(ctx, query, record)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving search record",
			"transport", record.Transport, "chat_id", record.ChatID, "error", err)
		return apperrors.NewDatabaseError("failed to save search record", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to get last insert ID for search record", "error", err)
		return nil
	}
	record.ID = uint(id)
	return nil
}

// SearchStats aggregates outcomes since the given time.
func (s *sqlxStore) SearchStats(ctx context.Context, since time.Time) (SearchStats, error) {
	query := `
        SELECT
            COUNT(*) AS total,
            COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0) AS matched,
            COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0) AS no_match,
            COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0) AS failed
        FROM search_log
        WHERE created_at >= ?;
    `
	var stats SearchStats
	if err := s.db.GetContext(ctx, &stats, query, OutcomeMatched, OutcomeNoMatch, OutcomeFailed, since.UTC()); err != nil {
		s.logger.ErrorContext(ctx, "Error querying search stats", "error", err)
		return SearchStats{}, apperrors.NewDatabaseError("failed to query search stats", err)
	}
	return stats, nil
}

// PruneSearches deletes records older than cutoff.
func (s *sqlxStore) PruneSearches(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM search_log WHERE created_at < ?;`, cutoff.UTC())
	if err != nil {
		s.logger.ErrorContext(ctx, "Error pruning search log", "cutoff", cutoff, "error", err)
		return 0, apperrors.NewDatabaseError("failed to prune search log", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.NewDatabaseError("failed to count pruned rows", err)
	}
	s.logger.InfoContext(ctx, "Pruned search log", "cutoff", cutoff, "removed", removed)
	return removed, nil
}

// RunSQLMaintenance executes VACUUM and lets SQLite refresh its statistics.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	// VACUUM must run outside a transaction in SQLite.
	_, err := s.db.ExecContext(ctx, "VACUUM;")
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)
	case err != nil:
		s.logger.ErrorContext(ctx, "Failed to execute VACUUM", "error", err)
		return apperrors.NewDatabaseError("database maintenance (VACUUM) failed", err)
	}

	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize;"); err != nil {
		s.logger.WarnContext(ctx, "PRAGMA optimize failed", "error", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	return nil
}
