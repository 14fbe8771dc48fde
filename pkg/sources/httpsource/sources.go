package httpsource

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/zapline/zapline/pkg/models"
	"github.com/zapline/zapline/pkg/pollers/cursor"
	"github.com/zapline/zapline/pkg/pollers/membership"
	"github.com/zapline/zapline/pkg/pollers/rowdiff"
	"github.com/zapline/zapline/pkg/pollers/search"
	"github.com/zapline/zapline/pkg/pollers/timewindow"
)

type entityPayload struct {
	ID       string         `json:"id"`
	Metadata map[string]any `json:"metadata"`
}

// SheetSource fetches tabular data for the rowdiff poller.
type SheetSource struct {
	client *Client
}

func NewSheetSource(client *Client) *SheetSource {
	return &SheetSource{client: client}
}

func (s *SheetSource) FetchSheet(ctx context.Context, trigger *models.Trigger, accessToken string) (*rowdiff.Sheet, error) {
	var payload struct {
		Headers []string `json:"headers"`
		Rows    []struct {
			Number int      `json:"number"`
			Values []string `json:"values"`
		} `json:"rows"`
	}

	err := s.client.getJSON(ctx, trigger, accessToken, nil, &payload)
	if err != nil {
		return nil, err
	}

	sheet := &rowdiff.Sheet{Headers: payload.Headers}
	for _, row := range payload.Rows {
		sheet.Rows = append(sheet.Rows, rowdiff.Row{Number: row.Number, Values: row.Values})
	}

	return sheet, nil
}

// WindowSource fetches entities in a time window for the timewindow poller.
type WindowSource struct {
	client *Client
}

func NewWindowSource(client *Client) *WindowSource {
	return &WindowSource{client: client}
}

func (s *WindowSource) FetchWindow(
	ctx context.Context,
	trigger *models.Trigger,
	accessToken string,
	from, to time.Time,
) ([]timewindow.Entity, error) {
	query := url.Values{}
	query.Set("from", from.Format(time.RFC3339))
	query.Set("to", to.Format(time.RFC3339))

	var payload []entityPayload

	err := s.client.getJSON(ctx, trigger, accessToken, query, &payload)
	if err != nil {
		return nil, err
	}

	entities := make([]timewindow.Entity, 0, len(payload))
	for _, entity := range payload {
		entities = append(entities, timewindow.Entity{ID: entity.ID, Metadata: entity.Metadata})
	}

	return entities, nil
}

// DeltaSource implements cursor-based sync for the cursor poller. A 410
// from the endpoint means the cursor expired.
type DeltaSource struct {
	client *Client
}

func NewDeltaSource(client *Client) *DeltaSource {
	return &DeltaSource{client: client}
}

func (s *DeltaSource) Bootstrap(ctx context.Context, trigger *models.Trigger, accessToken string) (string, error) {
	var payload struct {
		Cursor string `json:"cursor"`
	}

	err := s.client.getJSON(ctx, trigger, accessToken, nil, &payload)
	if err != nil {
		return "", err
	}

	return payload.Cursor, nil
}

func (s *DeltaSource) FetchDelta(
	ctx context.Context,
	trigger *models.Trigger,
	accessToken string,
	current string,
) (*cursor.Delta, error) {
	query := url.Values{}
	query.Set("cursor", current)

	var payload struct {
		Cursor string `json:"cursor"`
		Items  []struct {
			ID       string         `json:"id"`
			Status   string         `json:"status"`
			Metadata map[string]any `json:"metadata"`
		} `json:"items"`
	}

	err := s.client.getJSON(ctx, trigger, accessToken, query, &payload)
	if err != nil {
		if isStatus(err, http.StatusGone) {
			return nil, fmt.Errorf("%w: %w", cursor.ErrCursorInvalid, err)
		}

		return nil, err
	}

	delta := &cursor.Delta{Cursor: payload.Cursor}
	for _, item := range payload.Items {
		delta.Items = append(delta.Items, cursor.Item{
			ID:       item.ID,
			Status:   item.Status,
			Metadata: item.Metadata,
		})
	}

	return delta, nil
}

// MemberSource lists collection members for the membership poller.
type MemberSource struct {
	client *Client
}

func NewMemberSource(client *Client) *MemberSource {
	return &MemberSource{client: client}
}

func (s *MemberSource) FetchMembers(ctx context.Context, trigger *models.Trigger, accessToken string) ([]membership.Entity, error) {
	var payload []entityPayload

	err := s.client.getJSON(ctx, trigger, accessToken, nil, &payload)
	if err != nil {
		return nil, err
	}

	entities := make([]membership.Entity, 0, len(payload))
	for _, entity := range payload {
		entities = append(entities, membership.Entity{ID: entity.ID, Metadata: entity.Metadata})
	}

	return entities, nil
}

// SearchSource runs the trigger's configured query for the search poller.
type SearchSource struct {
	client *Client
}

func NewSearchSource(client *Client) *SearchSource {
	return &SearchSource{client: client}
}

func (s *SearchSource) Search(
	ctx context.Context,
	trigger *models.Trigger,
	accessToken string,
	since time.Time,
) ([]search.Entity, error) {
	query := url.Values{}
	query.Set("since", since.Format(time.RFC3339))

	if q := trigger.ConfigString("query", ""); q != "" {
		query.Set("query", q)
	}

	var payload []entityPayload

	err := s.client.getJSON(ctx, trigger, accessToken, query, &payload)
	if err != nil {
		return nil, err
	}

	entities := make([]search.Entity, 0, len(payload))
	for _, entity := range payload {
		entities = append(entities, search.Entity{ID: entity.ID, Metadata: entity.Metadata})
	}

	return entities, nil
}
