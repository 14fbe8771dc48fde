// Package oauth exchanges refresh tokens for fresh access tokens against a
// provider token endpoint.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/zapline/zapline/pkg/models"
)

const requestTimeout = 30 * time.Second

type Refresher struct {
	tokenURL   string
	httpClient *http.Client
}

func NewRefresher(tokenURL string) *Refresher {
	return &Refresher{
		tokenURL:   tokenURL,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// Refresh performs the refresh_token grant. The returned credential keeps
// the stored refresh token when the provider does not rotate it.
func (r *Refresher) Refresh(ctx context.Context, credential *models.Credential) (*models.Credential, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", credential.RefreshToken)

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, r.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var payload struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
	}

	err = json.NewDecoder(resp.Body).Decode(&payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	if payload.AccessToken == "" {
		return nil, fmt.Errorf("token endpoint returned no access token")
	}

	refreshToken := payload.RefreshToken
	if refreshToken == "" {
		refreshToken = credential.RefreshToken
	}

	return &models.Credential{
		ID:           credential.ID,
		AccessToken:  payload.AccessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().UTC().Add(time.Duration(payload.ExpiresIn) * time.Second),
		UpdatedAt:    time.Now().UTC(),
	}, nil
}
