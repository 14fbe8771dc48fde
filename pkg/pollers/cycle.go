package pollers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/zapline/zapline/pkg/models"
	"github.com/zapline/zapline/pkg/persistence"
)

// TriggerFunc processes one trigger and returns how many runs it emitted.
type TriggerFunc func(ctx context.Context, trigger *models.Trigger) (int, error)

// Cycle drives one poll pass over every active trigger of triggerType.
// Each trigger is processed under the guard (a pass still running from the
// previous cycle skips the trigger), with panic recovery, and its failure
// is logged and counted without touching the other triggers. The trigger's
// last-polled timestamp is updated after a successful pass, after all
// fingerprint writes, even when zero entities matched.
func Cycle(
	ctx context.Context,
	logger *slog.Logger,
	store persistence.Persistence,
	guard *Guard,
	triggerType string,
	fn TriggerFunc,
) Result {
	started := time.Now()

	result := Result{}

	triggers, err := store.ActiveTriggersByType(ctx, triggerType)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to load triggers", "type", triggerType, "error", err)

		result.Errors++
		result.Duration = time.Since(started)

		return result
	}

	for _, trigger := range triggers {
		if !guard.TryAcquire(trigger.ID) {
			logger.WarnContext(ctx, "Previous poll pass still running, skipping trigger",
				"trigger_id", trigger.ID)

			continue
		}

		emitted, err := runGuarded(ctx, trigger, fn)

		guard.Release(trigger.ID)

		if err != nil {
			logger.ErrorContext(ctx, "Trigger poll pass failed",
				"trigger_id", trigger.ID, "type", triggerType, "error", err)

			result.Errors++

			continue
		}

		result.Processed += emitted

		err = store.UpdateTriggerLastPolled(ctx, trigger.ID, time.Now().UTC())
		if err != nil {
			logger.ErrorContext(ctx, "Failed to update trigger last-polled timestamp",
				"trigger_id", trigger.ID, "error", err)

			result.Errors++
		}
	}

	result.Duration = time.Since(started)

	return result
}

// runGuarded converts a panicking trigger pass into a per-trigger error.
func runGuarded(ctx context.Context, trigger *models.Trigger, fn TriggerFunc) (emitted int, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("trigger pass panicked: %v", recovered)
		}
	}()

	return fn(ctx, trigger)
}
