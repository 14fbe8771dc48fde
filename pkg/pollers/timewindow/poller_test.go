package timewindow

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapline/zapline/pkg/fingerprint"
	"github.com/zapline/zapline/pkg/models"
	"github.com/zapline/zapline/pkg/persistence/memory"
)

type recordingWindowSource struct {
	entities []Entity
	from     time.Time
	to       time.Time
}

func (s *recordingWindowSource) FetchWindow(_ context.Context, _ *models.Trigger, _ string, from, to time.Time) ([]Entity, error) {
	s.from = from
	s.to = to

	return s.entities, nil
}

func newTestPoller(t *testing.T, source Source, config map[string]any) (*Poller, *memory.Persistence) {
	t.Helper()

	store := memory.NewPersistence()
	store.AddWorkflow(&models.Workflow{ID: "wf-1", Name: "Upcoming events", Status: models.WorkflowStatusActive})
	store.AddTrigger(&models.Trigger{
		ID:            "trig-1",
		WorkflowID:    "wf-1",
		Name:          "Event starting",
		Type:          Name,
		Active:        true,
		Configuration: config,
	})

	poller := NewPoller(slog.Default(), store, fingerprint.NewMemoryStore(), nil, source)

	return poller, store
}

func TestPollerEmitsEachEntityOnce(t *testing.T) {
	source := &recordingWindowSource{entities: []Entity{
		{ID: "ev-1", Metadata: map[string]any{"title": "Standup"}},
		{ID: "ev-2", Metadata: map[string]any{"title": "Review"}},
	}}
	poller, store := newTestPoller(t, source, nil)

	result := poller.Poll(context.Background())

	require.Empty(t, result.Errors)
	assert.Equal(t, 2, result.Processed)
	assert.Len(t, store.Runs(), 2)

	// Same entities still in the window next cycle stay marked.
	result = poller.Poll(context.Background())

	require.Empty(t, result.Errors)
	assert.Equal(t, 0, result.Processed)
	assert.Len(t, store.Runs(), 2)
}

func TestPollerStartingWindowBounds(t *testing.T) {
	source := &recordingWindowSource{}
	poller, _ := newTestPoller(t, source, map[string]any{"window": "10m"})

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	poller.now = func() time.Time { return now }

	poller.Poll(context.Background())

	assert.Equal(t, now, source.from)
	assert.Equal(t, now.Add(10*time.Minute), source.to)
}

func TestPollerEndedVariantLooksBackward(t *testing.T) {
	source := &recordingWindowSource{}
	poller, _ := newTestPoller(t, source, map[string]any{"window": "5m", "variant": "ended"})

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	poller.now = func() time.Time { return now }

	poller.Poll(context.Background())

	assert.Equal(t, now.Add(-5*time.Minute), source.from)
	assert.Equal(t, now, source.to)
}
