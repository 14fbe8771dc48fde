package oauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapline/zapline/pkg/models"
)

func TestRefreshExchangesToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "ref-1", r.Form.Get("refresh_token"))

		_, _ = w.Write([]byte(`{"access_token":"tok-2","expires_in":3600}`))
	}))
	defer server.Close()

	refresher := NewRefresher(server.URL)

	refreshed, err := refresher.Refresh(context.Background(), &models.Credential{
		ID:           "cred-1",
		AccessToken:  "tok-1",
		RefreshToken: "ref-1",
	})

	require.NoError(t, err)
	assert.Equal(t, "tok-2", refreshed.AccessToken)
	// Provider did not rotate the refresh token; keep the stored one.
	assert.Equal(t, "ref-1", refreshed.RefreshToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), refreshed.ExpiresAt, time.Minute)
}

func TestRefreshRotatedRefreshToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"tok-2","refresh_token":"ref-2","expires_in":600}`))
	}))
	defer server.Close()

	refreshed, err := NewRefresher(server.URL).Refresh(context.Background(), &models.Credential{
		ID:           "cred-1",
		RefreshToken: "ref-1",
	})

	require.NoError(t, err)
	assert.Equal(t, "ref-2", refreshed.RefreshToken)
}

func TestRefreshRejectedByProvider(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := NewRefresher(server.URL).Refresh(context.Background(), &models.Credential{ID: "cred-1"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}
