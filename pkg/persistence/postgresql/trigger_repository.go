package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/zapline/zapline/pkg/models"
	"github.com/zapline/zapline/pkg/persistence"
)

// TriggerRepository handles trigger and credential database operations.
type TriggerRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewTriggerRepository(db *sql.DB, logger *slog.Logger) *TriggerRepository {
	return &TriggerRepository{db: db, logger: logger}
}

// ActiveByType returns all active triggers owned by the given poller type.
func (r *TriggerRepository) ActiveByType(ctx context.Context, triggerType string) ([]*models.Trigger, error) {
	query := `
		SELECT
			id
		  , workflow_id
		  , name
		  , type
		  , credential_id
		  , configuration
		  , active
		  , last_polled_at
		  , created_at
		  , updated_at
		FROM triggers
		WHERE type = $1 AND active
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query, triggerType)
	if err != nil {
		return nil, fmt.Errorf("failed to query triggers: %w", err)
	}

	defer func(ctx context.Context, r *TriggerRepository) {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}(ctx, r)

	triggers := make([]*models.Trigger, 0)

	for rows.Next() {
		trigger, err := scanTrigger(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trigger: %w", err)
		}

		triggers = append(triggers, trigger)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating triggers: %w", err)
	}

	return triggers, nil
}

// UpdateLastPolled stamps the trigger after a completed poll pass.
func (r *TriggerRepository) UpdateLastPolled(ctx context.Context, triggerID string, polledAt time.Time) error {
	query := `UPDATE triggers SET last_polled_at = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, triggerID, polledAt.UTC())
	if err != nil {
		return persistence.NewStoreError("UpdateTriggerLastPolled", triggerID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewStoreError("UpdateTriggerLastPolled", triggerID, err)
	}

	if affected == 0 {
		return persistence.NewStoreError("UpdateTriggerLastPolled", triggerID, persistence.ErrTriggerNotFound)
	}

	return nil
}

func (r *TriggerRepository) CredentialByID(ctx context.Context, id string) (*models.Credential, error) {
	query := `
		SELECT id, access_token, refresh_token, expires_at, updated_at
		FROM credentials
		WHERE id = $1
	`

	credential := &models.Credential{}

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&credential.ID,
		&credential.AccessToken,
		&credential.RefreshToken,
		&credential.ExpiresAt,
		&credential.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("CredentialByID", id, persistence.ErrCredentialNotFound)
		}

		return nil, persistence.NewStoreError("CredentialByID", id, err)
	}

	return credential, nil
}

func (r *TriggerRepository) SaveCredential(ctx context.Context, credential *models.Credential) error {
	query := `
		INSERT INTO credentials (id, access_token, refresh_token, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at,
			updated_at = NOW()
	`

	_, err := r.db.ExecContext(ctx, query,
		credential.ID,
		credential.AccessToken,
		credential.RefreshToken,
		credential.ExpiresAt.UTC(),
	)
	if err != nil {
		return persistence.NewStoreError("SaveCredential", credential.ID, err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrigger(row rowScanner) (*models.Trigger, error) {
	trigger := &models.Trigger{}

	var (
		configurationJSON []byte
		credentialID      sql.NullString
		lastPolledAt      sql.NullTime
	)

	err := row.Scan(
		&trigger.ID,
		&trigger.WorkflowID,
		&trigger.Name,
		&trigger.Type,
		&credentialID,
		&configurationJSON,
		&trigger.Active,
		&lastPolledAt,
		&trigger.CreatedAt,
		&trigger.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if credentialID.Valid {
		trigger.CredentialID = credentialID.String
	}

	if lastPolledAt.Valid {
		polledAt := lastPolledAt.Time
		trigger.LastPolledAt = &polledAt
	}

	if len(configurationJSON) > 0 {
		err = json.Unmarshal(configurationJSON, &trigger.Configuration)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal trigger configuration: %w", err)
		}
	}

	return trigger, nil
}
