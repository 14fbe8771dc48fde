package pollers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapline/zapline/pkg/models"
	"github.com/zapline/zapline/pkg/persistence/memory"
)

type fakeRefresher struct {
	refreshed *models.Credential
	err       error
	calls     int
}

func (f *fakeRefresher) Refresh(_ context.Context, _ *models.Credential) (*models.Credential, error) {
	f.calls++

	if f.err != nil {
		return nil, f.err
	}

	return f.refreshed, nil
}

func TestFreshCredentialSkipsTriggersWithoutCredential(t *testing.T) {
	refresher := &fakeRefresher{}

	credential, err := FreshCredential(context.Background(), memory.NewPersistence(), refresher, &models.Trigger{ID: "trig-1"})

	require.NoError(t, err)
	assert.Nil(t, credential)
	assert.Equal(t, 0, refresher.calls)
	assert.Empty(t, AccessToken(credential))
}

func TestFreshCredentialReturnsValidTokenUntouched(t *testing.T) {
	store := memory.NewPersistence()
	store.AddCredential(&models.Credential{
		ID:          "cred-1",
		AccessToken: "tok-1",
		ExpiresAt:   time.Now().Add(time.Hour),
	})

	refresher := &fakeRefresher{}
	trigger := &models.Trigger{ID: "trig-1", CredentialID: "cred-1"}

	credential, err := FreshCredential(context.Background(), store, refresher, trigger)

	require.NoError(t, err)
	assert.Equal(t, "tok-1", AccessToken(credential))
	assert.Equal(t, 0, refresher.calls)
}

func TestFreshCredentialRefreshesInsideBuffer(t *testing.T) {
	store := memory.NewPersistence()
	store.AddCredential(&models.Credential{
		ID:          "cred-1",
		AccessToken: "stale",
		ExpiresAt:   time.Now().Add(30 * time.Second),
	})

	refresher := &fakeRefresher{refreshed: &models.Credential{
		ID:          "cred-1",
		AccessToken: "fresh",
		ExpiresAt:   time.Now().Add(time.Hour),
	}}
	trigger := &models.Trigger{ID: "trig-1", CredentialID: "cred-1"}

	credential, err := FreshCredential(context.Background(), store, refresher, trigger)

	require.NoError(t, err)
	assert.Equal(t, "fresh", AccessToken(credential))
	assert.Equal(t, 1, refresher.calls)

	// The rotation is persisted before any source call uses it.
	stored, err := store.CredentialByID(context.Background(), "cred-1")
	require.NoError(t, err)
	assert.Equal(t, "fresh", stored.AccessToken)
}

func TestFreshCredentialSurfacesRefreshFailure(t *testing.T) {
	store := memory.NewPersistence()
	store.AddCredential(&models.Credential{
		ID:        "cred-1",
		ExpiresAt: time.Now().Add(-time.Minute),
	})

	refresher := &fakeRefresher{err: errors.New("provider rejected refresh token")}
	trigger := &models.Trigger{ID: "trig-1", CredentialID: "cred-1"}

	_, err := FreshCredential(context.Background(), store, refresher, trigger)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to refresh credential")
}
