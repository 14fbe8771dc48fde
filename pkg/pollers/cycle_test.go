package pollers

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapline/zapline/pkg/models"
	"github.com/zapline/zapline/pkg/persistence/memory"
)

func seedTriggers(store *memory.Persistence, triggerType string, ids ...string) {
	store.AddWorkflow(&models.Workflow{ID: "wf-1", Name: "Test", Status: models.WorkflowStatusActive})

	for _, id := range ids {
		store.AddTrigger(&models.Trigger{
			ID:         id,
			WorkflowID: "wf-1",
			Name:       id,
			Type:       triggerType,
			Active:     true,
		})
	}
}

func TestCycleProcessesEveryTrigger(t *testing.T) {
	store := memory.NewPersistence()
	seedTriggers(store, "test", "trig-1", "trig-2", "trig-3")

	seen := make(map[string]int)
	result := Cycle(context.Background(), slog.Default(), store, NewGuard(), "test",
		func(_ context.Context, trigger *models.Trigger) (int, error) {
			seen[trigger.ID]++

			return 1, nil
		})

	assert.Equal(t, 0, result.Errors)
	assert.Equal(t, 3, result.Processed)
	assert.Len(t, seen, 3)
}

func TestCycleIsolatesTriggerFailures(t *testing.T) {
	store := memory.NewPersistence()
	seedTriggers(store, "test", "trig-1", "trig-2", "trig-3")

	calls := 0
	result := Cycle(context.Background(), slog.Default(), store, NewGuard(), "test",
		func(_ context.Context, trigger *models.Trigger) (int, error) {
			calls++

			if trigger.ID == "trig-2" {
				return 0, errors.New("source unavailable")
			}

			return 1, nil
		})

	assert.Equal(t, 3, calls)
	assert.Equal(t, 1, result.Errors)
	assert.Equal(t, 2, result.Processed)
}

func TestCycleRecoversFromPanic(t *testing.T) {
	store := memory.NewPersistence()
	seedTriggers(store, "test", "trig-1", "trig-2")

	calls := 0
	result := Cycle(context.Background(), slog.Default(), store, NewGuard(), "test",
		func(_ context.Context, trigger *models.Trigger) (int, error) {
			calls++

			if trigger.ID == "trig-1" {
				panic("malformed response")
			}

			return 1, nil
		})

	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, result.Errors)
	assert.Equal(t, 1, result.Processed)
}

func TestCycleSkipsGuardedTrigger(t *testing.T) {
	store := memory.NewPersistence()
	seedTriggers(store, "test", "trig-1")

	guard := NewGuard()
	require.True(t, guard.TryAcquire("trig-1"))

	calls := 0
	result := Cycle(context.Background(), slog.Default(), store, guard, "test",
		func(_ context.Context, _ *models.Trigger) (int, error) {
			calls++

			return 1, nil
		})

	assert.Equal(t, 0, calls)
	assert.Equal(t, 0, result.Processed)
	assert.Equal(t, 0, result.Errors)

	guard.Release("trig-1")
}

func TestCycleStampsLastPolledOnlyOnSuccess(t *testing.T) {
	store := memory.NewPersistence()
	seedTriggers(store, "test", "ok", "broken")

	Cycle(context.Background(), slog.Default(), store, NewGuard(), "test",
		func(_ context.Context, trigger *models.Trigger) (int, error) {
			if trigger.ID == "broken" {
				return 0, errors.New("boom")
			}

			return 0, nil
		})

	triggers, err := store.ActiveTriggersByType(context.Background(), "test")
	require.NoError(t, err)

	for _, trigger := range triggers {
		if trigger.ID == "ok" {
			require.NotNil(t, trigger.LastPolledAt)
			assert.WithinDuration(t, time.Now(), *trigger.LastPolledAt, time.Minute)
		} else {
			assert.Nil(t, trigger.LastPolledAt)
		}
	}
}
