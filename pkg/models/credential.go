package models

import "time"

// Credential holds the OAuth token state a trigger uses against its source.
// Obtaining and storing credentials is handled elsewhere; pollers only read
// the token and persist refreshed values.
type Credential struct {
	ID           string    `json:"id"            validate:"required"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ExpiresWithin reports whether the access token expires inside the given
// buffer window (or already has).
func (c *Credential) ExpiresWithin(buffer time.Duration) bool {
	return time.Now().Add(buffer).After(c.ExpiresAt)
}
