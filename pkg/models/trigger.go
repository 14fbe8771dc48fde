package models

import "time"

// Trigger binds an external source to a workflow. The Type selects which
// poller owns it; Configuration is interpreted by that poller alone.
type Trigger struct {
	ID            string         `json:"id"            validate:"required"`
	WorkflowID    string         `json:"workflow_id"   validate:"required"`
	Name          string         `json:"name"          validate:"required"`
	Type          string         `json:"type"          validate:"required"`
	CredentialID  string         `json:"credential_id,omitempty"`
	Configuration map[string]any `json:"configuration"`
	Active        bool           `json:"active"`
	LastPolledAt  *time.Time     `json:"last_polled_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// ConfigString reads a string value from the trigger configuration,
// returning the fallback when the key is absent or not a string.
func (t *Trigger) ConfigString(key, fallback string) string {
	value, ok := t.Configuration[key].(string)
	if !ok || value == "" {
		return fallback
	}

	return value
}
