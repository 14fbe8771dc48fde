package search

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

type recordingSearchSource struct {
	entities []Entity
	since    time.Time
}

func (s *recordingSearchSource) Search(_ context.Context, _ *models.Trigger, _ string, since time.Time) ([]Entity, error) {
	s.since = since

	return s.entities, nil
}

func newTestPoller(t *testing.T, source Source, lastPolledAt *time.Time) (*Poller, *memory.Persistence) {
	t.Helper()

	store := memory.NewPersistence()
	store.AddWorkflow(&models.Workflow{ID: "wf-1", Name: "Matching mail", Status: models.WorkflowStatusActive})
	store.AddTrigger(&models.Trigger{
		ID:           "trig-1",
		WorkflowID:   "wf-1",
		Name:         "Mail matching query",
		Type:         Name,
		Active:       true,
		LastPolledAt: lastPolledAt,
	})

	poller := NewPoller(slog.Default(), store, fingerprint.NewMemoryStore(), nil, source)

	return poller, store
}

func TestPollerEmitsEachHitOnce(t *testing.T) {
	source := &recordingSearchSource{entities: []Entity{
		{ID: "msg-1", Metadata: map[string]any{"subject": "Invoice overdue"}},
	}}
	poller, store := newTestPoller(t, source, nil)

	result := poller.Poll(context.Background())

	require.Empty(t, result.Errors)
	assert.Equal(t, 1, result.Processed)
	require.Len(t, store.Runs(), 1)
	assert.Equal(t, "Invoice overdue", store.Runs()[0].Metadata["subject"])

	// The hit reappears in the overlapping window but is already marked.
	result = poller.Poll(context.Background())

	require.Empty(t, result.Errors)
	assert.Equal(t, 0, result.Processed)
	assert.Len(t, store.Runs(), 1)
}

func TestPollerQueriesSinceLastPolled(t *testing.T) {
	lastPolled := time.Date(2025, 3, 1, 11, 45, 0, 0, time.UTC)
	source := &recordingSearchSource{}
	poller, _ := newTestPoller(t, source, &lastPolled)

	poller.Poll(context.Background())

	assert.Equal(t, lastPolled, source.since)
}

func TestPollerBoundsFirstQueryByLookback(t *testing.T) {
	source := &recordingSearchSource{}
	poller, _ := newTestPoller(t, source, nil)

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	poller.now = func() time.Time { return now }

	poller.Poll(context.Background())

	assert.Equal(t, now.Add(-DefaultLookback), source.since)
}

func TestPollerStampsLastPolled(t *testing.T) {
	source := &recordingSearchSource{}
	poller, store := newTestPoller(t, source, nil)

	poller.Poll(context.Background())

	triggers, err := store.ActiveTriggersByType(context.Background(), Name)
	require.NoError(t, err)
	require.Len(t, triggers, 1)
	require.NotNil(t, triggers[0].LastPolledAt)
	assert.WithinDuration(t, time.Now(), *triggers[0].LastPolledAt, time.Minute)
}
