package pollers

import (
	"context"
	"fmt"
	"time"

	"github.com/zapline/zapline/pkg/models"
	"github.com/zapline/zapline/pkg/persistence"
)

// ExpiryBuffer is how close to expiry a token may get before it is
// refreshed ahead of a source call.
const ExpiryBuffer = 60 * time.Second

// TokenRefresher exchanges a refresh token for a new access token. The
// OAuth HTTP flow behind it is an external collaborator.
type TokenRefresher interface {
	Refresh(ctx context.Context, credential *models.Credential) (*models.Credential, error)
}

// FreshCredential returns a credential that is valid for at least
// ExpiryBuffer. A refreshed token is persisted before it is returned, so a
// crash after the source call never loses the rotation. Triggers without a
// credential get a nil credential and no error.
func FreshCredential(
	ctx context.Context,
	store persistence.CredentialRepository,
	refresher TokenRefresher,
	trigger *models.Trigger,
) (*models.Credential, error) {
	if trigger.CredentialID == "" {
		return nil, nil
	}

	credential, err := store.CredentialByID(ctx, trigger.CredentialID)
	if err != nil {
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}

	if !credential.ExpiresWithin(ExpiryBuffer) {
		return credential, nil
	}

	refreshed, err := refresher.Refresh(ctx, credential)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh credential %s: %w", credential.ID, err)
	}

	err = store.SaveCredential(ctx, refreshed)
	if err != nil {
		return nil, fmt.Errorf("failed to persist refreshed credential %s: %w", credential.ID, err)
	}

	return refreshed, nil
}

// AccessToken unwraps a possibly-nil credential.
func AccessToken(credential *models.Credential) string {
	if credential == nil {
		return ""
	}

	return credential.AccessToken
}
