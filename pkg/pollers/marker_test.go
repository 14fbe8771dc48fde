package pollers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapline/zapline/pkg/fingerprint"
	"github.com/zapline/zapline/pkg/models"
)

func TestEmitOnceMarksAfterEmit(t *testing.T) {
	store := fingerprint.NewMemoryStore()
	trigger := &models.Trigger{ID: "trig-1"}
	calls := 0

	emitted, err := EmitOnce(context.Background(), store, trigger, "ev-1", func() error {
		calls++

		return nil
	})

	require.NoError(t, err)
	assert.True(t, emitted)
	assert.Equal(t, 1, calls)

	emitted, err = EmitOnce(context.Background(), store, trigger, "ev-1", func() error {
		calls++

		return nil
	})

	require.NoError(t, err)
	assert.False(t, emitted)
	assert.Equal(t, 1, calls)
}

func TestEmitOnceSkipsMarkerOnFailedEmit(t *testing.T) {
	store := fingerprint.NewMemoryStore()
	trigger := &models.Trigger{ID: "trig-1"}

	emitted, err := EmitOnce(context.Background(), store, trigger, "ev-1", func() error {
		return assert.AnError
	})

	require.Error(t, err)
	assert.False(t, emitted)

	// The entity is retried once emission succeeds.
	emitted, err = EmitOnce(context.Background(), store, trigger, "ev-1", func() error {
		return nil
	})

	require.NoError(t, err)
	assert.True(t, emitted)
}

func TestEmitOnceIsolatedPerTrigger(t *testing.T) {
	store := fingerprint.NewMemoryStore()

	emitted, err := EmitOnce(context.Background(), store, &models.Trigger{ID: "trig-1"}, "ev-1", func() error { return nil })
	require.NoError(t, err)
	assert.True(t, emitted)

	emitted, err = EmitOnce(context.Background(), store, &models.Trigger{ID: "trig-2"}, "ev-1", func() error { return nil })
	require.NoError(t, err)
	assert.True(t, emitted)
}
