package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/zapline/zapline/pkg/models"
	"github.com/zapline/zapline/pkg/persistence"
)

// RunRepository handles run and outbox-entry creation.
type RunRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewRunRepository(db *sql.DB, logger *slog.Logger) *RunRepository {
	return &RunRepository{db: db, logger: logger}
}

func (r *RunRepository) GetByID(ctx context.Context, id string) (*models.Run, error) {
	query := `SELECT id, workflow_id, metadata, created_at FROM runs WHERE id = $1`

	run := &models.Run{}

	var metadataJSON []byte

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID,
		&run.WorkflowID,
		&metadataJSON,
		&run.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("RunByID", id, persistence.ErrRunNotFound)
		}

		return nil, persistence.NewStoreError("RunByID", id, err)
	}

	if len(metadataJSON) > 0 {
		err = json.Unmarshal(metadataJSON, &run.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal run metadata: %w", err)
		}
	}

	return run, nil
}

// CreateWithOutbox inserts the run and its outbox entry in one transaction.
// A crash anywhere leaves either both rows or neither; the relay picks the
// entry up on its next cycle.
func (r *RunRepository) CreateWithOutbox(ctx context.Context, run *models.Run) (*models.OutboxEntry, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	metadataJSON, err := json.Marshal(run.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal run metadata: %w", err)
	}

	transaction, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, persistence.NewStoreError("CreateRunWithOutbox", run.ID, err)
	}

	_, err = transaction.ExecContext(ctx,
		`INSERT INTO runs (id, workflow_id, metadata, created_at) VALUES ($1, $2, $3, $4)`,
		run.ID, run.WorkflowID, metadataJSON, run.CreatedAt,
	)
	if err != nil {
		_ = transaction.Rollback()

		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return nil, persistence.NewStoreError("CreateRunWithOutbox", run.ID, persistence.ErrRunAlreadyExists)
		}

		return nil, persistence.NewStoreError("CreateRunWithOutbox", run.ID, err)
	}

	entry := &models.OutboxEntry{
		ID:        uuid.New().String(),
		RunID:     run.ID,
		CreatedAt: run.CreatedAt,
	}

	_, err = transaction.ExecContext(ctx,
		`INSERT INTO outbox_entries (id, run_id, created_at) VALUES ($1, $2, $3)`,
		entry.ID, entry.RunID, entry.CreatedAt,
	)
	if err != nil {
		_ = transaction.Rollback()

		return nil, persistence.NewStoreError("CreateRunWithOutbox", run.ID, err)
	}

	err = transaction.Commit()
	if err != nil {
		return nil, persistence.NewStoreError("CreateRunWithOutbox", run.ID, err)
	}

	return entry, nil
}
