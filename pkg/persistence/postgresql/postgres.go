// Package postgresql provides PostgreSQL persistence for triggers, runs and
// the outbox.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	// Registers the postgres driver.
	_ "github.com/lib/pq"
	"github.com/zapline/zapline/pkg/models"
	"github.com/zapline/zapline/pkg/persistence/sqlbase"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db           *sql.DB
	logger       *slog.Logger
	triggerRepo  *TriggerRepository
	workflowRepo *WorkflowRepository
	runRepo      *RunRepository
	outboxRepo   *OutboxRepository
}

// NewPersistence connects, runs migrations and wires the repositories.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:           database,
		logger:       logger,
		triggerRepo:  NewTriggerRepository(database, logger),
		workflowRepo: NewWorkflowRepository(database, logger),
		runRepo:      NewRunRepository(database, logger),
		outboxRepo:   NewOutboxRepository(database, logger),
	}, nil
}

// Close closes the database connection.
func (p *Persistence) Close(ctx context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) ActiveTriggersByType(ctx context.Context, triggerType string) ([]*models.Trigger, error) {
	return p.triggerRepo.ActiveByType(ctx, triggerType)
}

func (p *Persistence) UpdateTriggerLastPolled(ctx context.Context, triggerID string, polledAt time.Time) error {
	return p.triggerRepo.UpdateLastPolled(ctx, triggerID, polledAt)
}

func (p *Persistence) CredentialByID(ctx context.Context, id string) (*models.Credential, error) {
	return p.triggerRepo.CredentialByID(ctx, id)
}

func (p *Persistence) SaveCredential(ctx context.Context, credential *models.Credential) error {
	return p.triggerRepo.SaveCredential(ctx, credential)
}

func (p *Persistence) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	return p.workflowRepo.GetByID(ctx, id)
}

func (p *Persistence) ActionStepsByWorkflowID(ctx context.Context, workflowID string) ([]*models.ActionStep, error) {
	return p.workflowRepo.ActionSteps(ctx, workflowID)
}

func (p *Persistence) RunByID(ctx context.Context, id string) (*models.Run, error) {
	return p.runRepo.GetByID(ctx, id)
}

func (p *Persistence) CreateRunWithOutbox(ctx context.Context, run *models.Run) (*models.OutboxEntry, error) {
	return p.runRepo.CreateWithOutbox(ctx, run)
}

func (p *Persistence) PendingOutboxEntries(ctx context.Context, limit int) ([]*models.OutboxEntry, error) {
	return p.outboxRepo.Pending(ctx, limit)
}

func (p *Persistence) DeleteOutboxEntries(ctx context.Context, ids []string) error {
	return p.outboxRepo.DeleteByIDs(ctx, ids)
}
