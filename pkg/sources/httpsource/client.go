// Package httpsource implements the poller source interfaces over plain
// HTTP JSON endpoints. The endpoint URL comes from the trigger
// configuration; the trigger's credential, when present, is sent as a
// bearer token.
package httpsource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/zapline/zapline/pkg/models"
)

const requestTimeout = 30 * time.Second

// ErrMissingURL indicates a trigger without the required "url"
// configuration key.
var ErrMissingURL = errors.New("trigger configuration is missing url")

// statusError keeps the status code inspectable while its message stays
// classifiable by the retry helper (429/502/503 are transient).
type statusError struct {
	Code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("source returned status %d", e.Code)
}

func isStatus(err error, code int) bool {
	var status *statusError

	return errors.As(err, &status) && status.Code == code
}

type Client struct {
	httpClient *http.Client
}

func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// getJSON performs a GET against the trigger's configured URL with the
// given query parameters and decodes the JSON response into out. Transient
// failures are reported with the status code in the message so the retry
// helper can classify them.
func (c *Client) getJSON(
	ctx context.Context,
	trigger *models.Trigger,
	accessToken string,
	query url.Values,
	out any,
) error {
	endpoint := trigger.ConfigString("url", "")
	if endpoint == "" {
		return ErrMissingURL
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create source request: %w", err)
	}

	if len(query) > 0 {
		req.URL.RawQuery = query.Encode()
	}

	req.Header.Set("Accept", "application/json")

	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("source request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &statusError{Code: resp.StatusCode}
	}

	err = json.NewDecoder(resp.Body).Decode(out)
	if err != nil {
		return fmt.Errorf("failed to decode source response: %w", err)
	}

	return nil
}
