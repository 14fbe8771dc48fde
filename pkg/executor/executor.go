// Package executor consumes stage events and drives each run through its
// workflow's ordered action chain.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/zapline/zapline/pkg/eventbus"
	"github.com/zapline/zapline/pkg/events"
	"github.com/zapline/zapline/pkg/filter"
	"github.com/zapline/zapline/pkg/models"
	"github.com/zapline/zapline/pkg/persistence"
	"github.com/zapline/zapline/pkg/registry"
	"github.com/zapline/zapline/pkg/retry"
	"github.com/zapline/zapline/pkg/template"
)

// Executor processes RunStageAvailable events. The offset for a message is
// committed only after its stage completed, so a crash mid-stage causes
// redelivery and at-least-once execution.
type Executor struct {
	logger      *slog.Logger
	store       persistence.Persistence
	bus         eventbus.EventBus
	registry    *registry.Registry
	retryConfig retry.Config
}

func NewExecutor(
	logger *slog.Logger,
	store persistence.Persistence,
	bus eventbus.EventBus,
	reg *registry.Registry,
) *Executor {
	return &Executor{
		logger:      logger.With("module", "executor"),
		store:       store,
		bus:         bus,
		registry:    reg,
		retryConfig: retry.DefaultConfig(),
	}
}

// Start registers the stage handler and blocks consuming events until the
// context is cancelled.
func (e *Executor) Start(ctx context.Context) error {
	err := e.bus.Handle(events.RunStageAvailableEvent, e.HandleRunStageAvailable)
	if err != nil {
		return fmt.Errorf("failed to register stage handler: %w", err)
	}

	e.logger.InfoContext(ctx, "Starting stage executor", "actions", e.registry.ActionTypes())

	err = e.bus.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	<-ctx.Done()

	e.logger.InfoContext(ctx, "Stopping stage executor")

	return ctx.Err()
}

// HandleRunStageAvailable executes one stage of one run. A nil return
// acknowledges the event; an error triggers broker redelivery. Terminal
// conditions (stale stage, dead-lettered action) return nil so the event is
// never redelivered.
func (e *Executor) HandleRunStageAvailable(ctx context.Context, raw any) error {
	decoded, ok := raw.(*events.RunStageAvailable)
	if !ok {
		return fmt.Errorf("unexpected event payload %T", raw)
	}

	event := *decoded

	err := event.Validate()
	if err != nil {
		e.logger.ErrorContext(ctx, "Dropping malformed stage event", "error", err)

		return nil
	}

	logger := e.logger.With("run_id", event.RunID, "stage", event.Stage)

	run, err := e.store.RunByID(ctx, event.RunID)
	if err != nil {
		if persistence.IsNotFound(err) {
			logger.WarnContext(ctx, "Dropping stage event for unknown run")

			return nil
		}

		return fmt.Errorf("failed to load run: %w", err)
	}

	steps, err := e.store.ActionStepsByWorkflowID(ctx, run.WorkflowID)
	if err != nil {
		return fmt.Errorf("failed to load action steps: %w", err)
	}

	lastStage := len(steps)
	if lastStage < 1 {
		lastStage = 1
	}

	step := stepAt(steps, event.Stage)
	if step == nil {
		// The workflow was edited after the run started, or this is a
		// stale duplicate. Not an error.
		logger.WarnContext(ctx, "No action step at stage, dropping event")

		return nil
	}

	if filter.Evaluate(logger, step.Conditions, run.Metadata) {
		halted, err := e.executeStep(ctx, logger, run, step, event)
		if err != nil {
			return err
		}

		if halted {
			// Dead-lettered: the run stops here, no next stage.
			return nil
		}
	} else {
		// Stage advancement is independent of the filter outcome; only
		// the side effect is skipped.
		logger.InfoContext(ctx, "Step conditions not met, skipping action", "action_type", step.ActionType)
	}

	return e.advance(ctx, logger, run, event, lastStage)
}

func stepAt(steps []*models.ActionStep, stage int) *models.ActionStep {
	for _, step := range steps {
		if step.StageIndex == stage {
			return step
		}
	}

	return nil
}

// executeStep resolves the step's template against the run metadata and
// runs the action with in-place retries. An action that still fails is
// dead-lettered and the event acknowledged: endless broker redelivery of a
// deterministic failure would stall the whole partition. halted reports
// that the stage was dead-lettered and the run must not advance.
func (e *Executor) executeStep(
	ctx context.Context,
	logger *slog.Logger,
	run *models.Run,
	step *models.ActionStep,
	event events.RunStageAvailable,
) (halted bool, err error) {
	resolved := template.ResolveMap(step.MetadataTemplate, run.Metadata)

	executionCtx := models.ExecutionContext{
		RunID:      run.ID,
		WorkflowID: run.WorkflowID,
		Stage:      event.Stage,
		Metadata:   run.Metadata,
	}

	action, err := e.registry.CreateAction(step.ActionType, resolved)
	if err != nil {
		// Unknown type or schema-invalid metadata never heals on
		// redelivery.
		return true, e.deadLetter(ctx, logger, event, 1, err)
	}

	result := retry.Do(ctx, e.retryConfig, func(ctx context.Context) (any, error) {
		return action.Execute(ctx, executionCtx, logger)
	})
	if !result.Success {
		return true, e.deadLetter(ctx, logger, event, result.Attempts, result.Err)
	}

	logger.InfoContext(ctx, "Stage action completed",
		"action_type", step.ActionType, "attempts", result.Attempts)

	return false, nil
}

// advance publishes the next stage event, or RunFinished after the last
// stage. A publish failure nacks the whole event; re-running the completed
// action on redelivery is the at-least-once contract.
func (e *Executor) advance(
	ctx context.Context,
	logger *slog.Logger,
	run *models.Run,
	event events.RunStageAvailable,
	lastStage int,
) error {
	if event.Stage < lastStage {
		next := events.RunStageAvailable{
			ID:        e.bus.GenerateID(),
			RunID:     run.ID,
			Stage:     event.Stage + 1,
			Timestamp: time.Now().UTC(),
		}

		err := e.bus.Publish(ctx, events.Topic, run.ID, next)
		if err != nil {
			return fmt.Errorf("failed to publish next stage event: %w", err)
		}

		return nil
	}

	finished := events.RunFinished{
		ID:         e.bus.GenerateID(),
		RunID:      run.ID,
		WorkflowID: run.WorkflowID,
		Stages:     lastStage,
		Timestamp:  time.Now().UTC(),
	}

	err := e.bus.Publish(ctx, events.Topic, run.ID, finished)
	if err != nil {
		return fmt.Errorf("failed to publish run finished event: %w", err)
	}

	logger.InfoContext(ctx, "Run finished", "stages", lastStage)

	return nil
}

func (e *Executor) deadLetter(
	ctx context.Context,
	logger *slog.Logger,
	event events.RunStageAvailable,
	attempts int,
	cause error,
) error {
	deadLettered := events.RunStageDeadLettered{
		ID:        e.bus.GenerateID(),
		RunID:     event.RunID,
		Stage:     event.Stage,
		Error:     cause.Error(),
		Attempts:  attempts,
		Timestamp: time.Now().UTC(),
	}

	err := e.bus.Publish(ctx, events.DeadLetterTopic, event.RunID, deadLettered)
	if err != nil {
		return fmt.Errorf("failed to publish dead-letter event: %w", err)
	}

	logger.ErrorContext(ctx, "Stage action dead-lettered, run halted",
		"attempts", attempts, "error", cause)

	return nil
}
