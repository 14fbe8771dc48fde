package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"
	"github.com/zapline/zapline/pkg/models"
)

// OutboxRepository reads and deletes pending outbox entries for the relay.
type OutboxRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewOutboxRepository(db *sql.DB, logger *slog.Logger) *OutboxRepository {
	return &OutboxRepository{db: db, logger: logger}
}

// Pending returns up to limit entries whose runs belong to active workflows.
func (r *OutboxRepository) Pending(ctx context.Context, limit int) ([]*models.OutboxEntry, error) {
	query := `
		SELECT
			o.id
		  , o.run_id
		  , o.created_at
		FROM outbox_entries o
		JOIN runs r ON r.id = o.run_id
		JOIN workflows w ON w.id = r.workflow_id
		WHERE w.status = 'active' AND w.deleted_at IS NULL
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox entries: %w", err)
	}

	defer func(ctx context.Context, r *OutboxRepository) {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}(ctx, r)

	entries := make([]*models.OutboxEntry, 0)

	for rows.Next() {
		entry := &models.OutboxEntry{}

		err := rows.Scan(&entry.ID, &entry.RunID, &entry.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outbox entry: %w", err)
		}

		entries = append(entries, entry)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating outbox entries: %w", err)
	}

	return entries, nil
}

// DeleteByIDs removes published entries. Deleting an already-deleted id is
// a no-op, which keeps the relay idempotent across crashes.
func (r *OutboxRepository) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := r.db.ExecContext(ctx,
		`DELETE FROM outbox_entries WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to delete outbox entries: %w", err)
	}

	return nil
}
