package pollers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zapline/zapline/pkg/models"
	"github.com/zapline/zapline/pkg/persistence"
)

// RunEmitter turns a matched trigger event into a run plus its outbox
// entry, in one transaction. This is the only path that creates runs.
type RunEmitter struct {
	store  persistence.RunRepository
	logger *slog.Logger
}

func NewRunEmitter(store persistence.RunRepository, logger *slog.Logger) *RunEmitter {
	return &RunEmitter{store: store, logger: logger}
}

// Emit creates the run for trigger with the captured metadata.
func (e *RunEmitter) Emit(ctx context.Context, trigger *models.Trigger, metadata map[string]any) error {
	run := &models.Run{
		WorkflowID: trigger.WorkflowID,
		Metadata:   metadata,
	}

	entry, err := e.store.CreateRunWithOutbox(ctx, run)
	if err != nil {
		return fmt.Errorf("failed to create run for trigger %s: %w", trigger.ID, err)
	}

	e.logger.InfoContext(ctx, "Emitted run",
		"trigger_id", trigger.ID,
		"workflow_id", trigger.WorkflowID,
		"run_id", run.ID,
		"outbox_entry_id", entry.ID,
	)

	return nil
}
