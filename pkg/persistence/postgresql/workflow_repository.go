package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/zapline/zapline/pkg/filter"
	"github.com/zapline/zapline/pkg/models"
	"github.com/zapline/zapline/pkg/persistence"
)

// WorkflowRepository handles workflow and action-step database operations.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	query := `
		SELECT
			id
		  , name
		  , status
		  , owner
		  , created_at
		  , updated_at
		  , deleted_at
		FROM workflows
		WHERE id = $1 AND deleted_at IS NULL
	`

	workflow := &models.Workflow{}

	var (
		owner     sql.NullString
		deletedAt sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&workflow.ID,
		&workflow.Name,
		&workflow.Status,
		&owner,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
		&deletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("WorkflowByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewStoreError("WorkflowByID", id, err)
	}

	if owner.Valid {
		workflow.Owner = owner.String
	}

	if deletedAt.Valid {
		t := deletedAt.Time
		workflow.DeletedAt = &t
	}

	return workflow, nil
}

// ActionSteps returns the workflow's steps ordered by stage index.
func (r *WorkflowRepository) ActionSteps(ctx context.Context, workflowID string) ([]*models.ActionStep, error) {
	query := `
		SELECT
			id
		  , workflow_id
		  , stage_index
		  , action_type
		  , metadata_template
		  , conditions
		FROM action_steps
		WHERE workflow_id = $1
		ORDER BY stage_index
	`

	rows, err := r.db.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query action steps: %w", err)
	}

	defer func(ctx context.Context, r *WorkflowRepository) {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}(ctx, r)

	steps := make([]*models.ActionStep, 0)

	for rows.Next() {
		step := &models.ActionStep{}

		var templateJSON, conditionsJSON []byte

		err := rows.Scan(
			&step.ID,
			&step.WorkflowID,
			&step.StageIndex,
			&step.ActionType,
			&templateJSON,
			&conditionsJSON,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan action step: %w", err)
		}

		if len(templateJSON) > 0 {
			err = json.Unmarshal(templateJSON, &step.MetadataTemplate)
			if err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata template: %w", err)
			}
		}

		if len(conditionsJSON) > 0 {
			var conditions []filter.Condition

			err = json.Unmarshal(conditionsJSON, &conditions)
			if err != nil {
				return nil, fmt.Errorf("failed to unmarshal step conditions: %w", err)
			}

			step.Conditions = conditions
		}

		steps = append(steps, step)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating action steps: %w", err)
	}

	return steps, nil
}
