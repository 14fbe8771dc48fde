package membership

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

type staticMemberSource struct {
	entities []Entity
}

func (s *staticMemberSource) FetchMembers(_ context.Context, _ *models.Trigger, _ string) ([]Entity, error) {
	return s.entities, nil
}

func newTestPoller(t *testing.T, source Source) (*Poller, *memory.Persistence) {
	t.Helper()

	store := memory.NewPersistence()
	store.AddWorkflow(&models.Workflow{ID: "wf-1", Name: "New files", Status: models.WorkflowStatusActive})
	store.AddTrigger(&models.Trigger{
		ID:         "trig-1",
		WorkflowID: "wf-1",
		Name:       "File added",
		Type:       Name,
		Active:     true,
	})

	poller := NewPoller(slog.Default(), store, fingerprint.NewMemoryStore(), nil, source)

	return poller, store
}

func TestPollerBootstrapRecordsWithoutEmitting(t *testing.T) {
	source := &staticMemberSource{entities: []Entity{
		{ID: "file-1", Metadata: map[string]any{"name": "report.pdf"}},
		{ID: "file-2", Metadata: map[string]any{"name": "notes.txt"}},
	}}
	poller, store := newTestPoller(t, source)

	result := poller.Poll(context.Background())

	require.Empty(t, result.Errors)
	assert.Equal(t, 0, result.Processed)
	assert.Empty(t, store.Runs())
}

func TestPollerEmitsNewMembersAfterBootstrap(t *testing.T) {
	source := &staticMemberSource{entities: []Entity{
		{ID: "file-1", Metadata: map[string]any{"name": "report.pdf"}},
	}}
	poller, store := newTestPoller(t, source)

	poller.Poll(context.Background())

	source.entities = append(source.entities, Entity{ID: "file-2", Metadata: map[string]any{"name": "notes.txt"}})
	result := poller.Poll(context.Background())

	require.Empty(t, result.Errors)
	assert.Equal(t, 1, result.Processed)

	runs := store.Runs()
	require.Len(t, runs, 1)
	assert.Equal(t, "notes.txt", runs[0].Metadata["name"])

	// The new member is now known.
	result = poller.Poll(context.Background())

	require.Empty(t, result.Errors)
	assert.Equal(t, 0, result.Processed)
	assert.Len(t, store.Runs(), 1)
}

func TestPollerIgnoresDisappearedMembers(t *testing.T) {
	source := &staticMemberSource{entities: []Entity{
		{ID: "file-1", Metadata: map[string]any{"name": "report.pdf"}},
		{ID: "file-2", Metadata: map[string]any{"name": "notes.txt"}},
	}}
	poller, store := newTestPoller(t, source)

	poller.Poll(context.Background())

	// Removal is not an appearance; re-adding later is also not one,
	// because ids stay in the known set.
	source.entities = source.entities[:1]
	result := poller.Poll(context.Background())

	require.Empty(t, result.Errors)
	assert.Equal(t, 0, result.Processed)

	source.entities = append(source.entities, Entity{ID: "file-2", Metadata: map[string]any{"name": "notes.txt"}})
	result = poller.Poll(context.Background())

	require.Empty(t, result.Errors)
	assert.Equal(t, 0, result.Processed)
	assert.Empty(t, store.Runs())
}
