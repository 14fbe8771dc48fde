package cursor

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapline/zapline/pkg/fingerprint"
	"github.com/zapline/zapline/pkg/models"
	"github.com/zapline/zapline/pkg/persistence/memory"
)

type scriptedSource struct {
	bootstrapCursor string
	bootstrapCalls  int

	delta      *Delta
	deltaErr   error
	seenCursor string
}

func (s *scriptedSource) Bootstrap(_ context.Context, _ *models.Trigger, _ string) (string, error) {
	s.bootstrapCalls++

	return s.bootstrapCursor, nil
}

func (s *scriptedSource) FetchDelta(_ context.Context, _ *models.Trigger, _ string, cursor string) (*Delta, error) {
	s.seenCursor = cursor

	if s.deltaErr != nil {
		return nil, s.deltaErr
	}

	return s.delta, nil
}

func newTestPoller(t *testing.T, source Source, config map[string]any) (*Poller, *memory.Persistence, fingerprint.Store) {
	t.Helper()

	store := memory.NewPersistence()
	store.AddWorkflow(&models.Workflow{ID: "wf-1", Name: "Task sync", Status: models.WorkflowStatusActive})
	store.AddTrigger(&models.Trigger{
		ID:            "trig-1",
		WorkflowID:    "wf-1",
		Name:          "Task completed",
		Type:          Name,
		Active:        true,
		Configuration: config,
	})

	fingerprints := fingerprint.NewMemoryStore()
	poller := NewPoller(slog.Default(), store, fingerprints, nil, source)

	return poller, store, fingerprints
}

func TestPollerBootstrapEmitsNothing(t *testing.T) {
	source := &scriptedSource{bootstrapCursor: "cur-1"}
	poller, store, fingerprints := newTestPoller(t, source, nil)

	result := poller.Poll(context.Background())

	require.Empty(t, result.Errors)
	assert.Equal(t, 0, result.Processed)
	assert.Empty(t, store.Runs())
	assert.Equal(t, 1, source.bootstrapCalls)

	cursor, err := fingerprints.Get(context.Background(), fingerprint.Key("cursor", "trig-1"))
	require.NoError(t, err)
	assert.Equal(t, "cur-1", cursor)
}

func TestPollerEmitsMatchingDeltaItems(t *testing.T) {
	source := &scriptedSource{bootstrapCursor: "cur-1"}
	poller, store, _ := newTestPoller(t, source, map[string]any{"match_status": "cancelled"})

	poller.Poll(context.Background())

	source.delta = &Delta{
		Cursor: "cur-2",
		Items: []Item{
			{ID: "item-1", Status: "cancelled", Metadata: map[string]any{"title": "Dentist"}},
			{ID: "item-2", Status: "confirmed", Metadata: map[string]any{"title": "Lunch"}},
		},
	}

	result := poller.Poll(context.Background())

	require.Empty(t, result.Errors)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, "cur-1", source.seenCursor)

	runs := store.Runs()
	require.Len(t, runs, 1)
	assert.Equal(t, "Dentist", runs[0].Metadata["title"])
}

func TestPollerAdvancesCursorAfterDelta(t *testing.T) {
	source := &scriptedSource{bootstrapCursor: "cur-1"}
	poller, _, fingerprints := newTestPoller(t, source, nil)

	poller.Poll(context.Background())

	source.delta = &Delta{Cursor: "cur-2"}
	result := poller.Poll(context.Background())

	require.Empty(t, result.Errors)

	cursor, err := fingerprints.Get(context.Background(), fingerprint.Key("cursor", "trig-1"))
	require.NoError(t, err)
	assert.Equal(t, "cur-2", cursor)
}

func TestPollerClearsRejectedCursor(t *testing.T) {
	source := &scriptedSource{bootstrapCursor: "cur-1"}
	poller, store, fingerprints := newTestPoller(t, source, nil)

	poller.Poll(context.Background())

	source.deltaErr = ErrCursorInvalid
	result := poller.Poll(context.Background())

	require.Empty(t, result.Errors)
	assert.Empty(t, store.Runs())

	_, err := fingerprints.Get(context.Background(), fingerprint.Key("cursor", "trig-1"))
	assert.Equal(t, fingerprint.ErrNotFound, err)

	// Next cycle bootstraps again.
	source.deltaErr = nil
	poller.Poll(context.Background())

	assert.Equal(t, 2, source.bootstrapCalls)
}
