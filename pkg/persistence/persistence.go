// Package persistence abstracts the relational store that owns workflow
// structure and run history. The store is the single source of truth;
// the fingerprint store never is.
package persistence

import (
	"context"
	"time"

	"github.com/zapline/zapline/pkg/models"
)

type Persistence interface {
	TriggerRepository
	CredentialRepository
	WorkflowRepository
	RunRepository
	OutboxRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

type TriggerRepository interface {
	// ActiveTriggersByType returns the active triggers owned by one poller.
	ActiveTriggersByType(ctx context.Context, triggerType string) ([]*models.Trigger, error)
	// UpdateTriggerLastPolled stamps the trigger after a completed pass,
	// regardless of how many entities matched.
	UpdateTriggerLastPolled(ctx context.Context, triggerID string, polledAt time.Time) error
}

type CredentialRepository interface {
	CredentialByID(ctx context.Context, id string) (*models.Credential, error)
	// SaveCredential persists a refreshed token before any source call uses it.
	SaveCredential(ctx context.Context, credential *models.Credential) error
}

type WorkflowRepository interface {
	WorkflowByID(ctx context.Context, id string) (*models.Workflow, error)
	// ActionStepsByWorkflowID returns the workflow's steps ordered by stage index.
	ActionStepsByWorkflowID(ctx context.Context, workflowID string) ([]*models.ActionStep, error)
}

type RunRepository interface {
	RunByID(ctx context.Context, id string) (*models.Run, error)
	// CreateRunWithOutbox inserts the run and its outbox entry in a single
	// transaction. This is the only way runs are created.
	CreateRunWithOutbox(ctx context.Context, run *models.Run) (*models.OutboxEntry, error)
}

type OutboxRepository interface {
	// PendingOutboxEntries returns up to limit entries whose workflows are
	// active. Order is irrelevant.
	PendingOutboxEntries(ctx context.Context, limit int) ([]*models.OutboxEntry, error)
	// DeleteOutboxEntries removes published entries by id. An entry deleted
	// here is never recreated for the same run.
	DeleteOutboxEntries(ctx context.Context, ids []string) error
}
