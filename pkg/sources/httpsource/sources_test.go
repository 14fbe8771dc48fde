package httpsource

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapline/zapline/pkg/models"
	"github.com/zapline/zapline/pkg/pollers/cursor"
)

func triggerFor(serverURL string) *models.Trigger {
	return &models.Trigger{
		ID:            "trig-1",
		WorkflowID:    "wf-1",
		Configuration: map[string]any{"url": serverURL},
	}
}

func TestSheetSourceDecodesRows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"headers":["name","age"],"rows":[{"number":2,"values":["Alice","30"]}]}`))
	}))
	defer server.Close()

	sheet, err := NewSheetSource(NewClient()).FetchSheet(context.Background(), triggerFor(server.URL), "tok-1")

	require.NoError(t, err)
	assert.Equal(t, []string{"name", "age"}, sheet.Headers)
	require.Len(t, sheet.Rows, 1)
	assert.Equal(t, 2, sheet.Rows[0].Number)
	assert.Equal(t, []string{"Alice", "30"}, sheet.Rows[0].Values)
}

func TestWindowSourcePassesBounds(t *testing.T) {
	var gotFrom, gotTo string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotFrom = r.URL.Query().Get("from")
		gotTo = r.URL.Query().Get("to")
		_, _ = w.Write([]byte(`[{"id":"ev-1","metadata":{"title":"Standup"}}]`))
	}))
	defer server.Close()

	from := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	to := from.Add(15 * time.Minute)

	entities, err := NewWindowSource(NewClient()).FetchWindow(context.Background(), triggerFor(server.URL), "", from, to)

	require.NoError(t, err)
	assert.Equal(t, from.Format(time.RFC3339), gotFrom)
	assert.Equal(t, to.Format(time.RFC3339), gotTo)
	require.Len(t, entities, 1)
	assert.Equal(t, "ev-1", entities[0].ID)
}

func TestDeltaSourceExpiredCursor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer server.Close()

	_, err := NewDeltaSource(NewClient()).FetchDelta(context.Background(), triggerFor(server.URL), "", "cur-1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, cursor.ErrCursorInvalid))
}

func TestDeltaSourceDecodesItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "cur-1", r.URL.Query().Get("cursor"))
		_, _ = w.Write([]byte(`{"cursor":"cur-2","items":[{"id":"item-1","status":"cancelled","metadata":{"title":"Dentist"}}]}`))
	}))
	defer server.Close()

	delta, err := NewDeltaSource(NewClient()).FetchDelta(context.Background(), triggerFor(server.URL), "", "cur-1")

	require.NoError(t, err)
	assert.Equal(t, "cur-2", delta.Cursor)
	require.Len(t, delta.Items, 1)
	assert.Equal(t, "cancelled", delta.Items[0].Status)
}

func TestSearchSourcePassesQuery(t *testing.T) {
	var gotQuery, gotSince string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		gotSince = r.URL.Query().Get("since")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	trigger := triggerFor(server.URL)
	trigger.Configuration["query"] = "from:billing@example.com"

	since := time.Date(2025, 3, 1, 11, 0, 0, 0, time.UTC)

	_, err := NewSearchSource(NewClient()).Search(context.Background(), trigger, "", since)

	require.NoError(t, err)
	assert.Equal(t, "from:billing@example.com", gotQuery)
	assert.Equal(t, since.Format(time.RFC3339), gotSince)
}

func TestClientRequiresURL(t *testing.T) {
	_, err := NewMemberSource(NewClient()).FetchMembers(context.Background(), &models.Trigger{ID: "trig-1"}, "")

	require.ErrorIs(t, err, ErrMissingURL)
}

func TestClientReportsRetryableStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewMemberSource(NewClient()).FetchMembers(context.Background(), triggerFor(server.URL), "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
