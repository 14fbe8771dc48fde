// Package memory provides an in-process persistence implementation for
// tests and local development.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zapline/zapline/pkg/models"
	"github.com/zapline/zapline/pkg/persistence"
)

type Persistence struct {
	mu          sync.RWMutex
	workflows   map[string]*models.Workflow
	triggers    map[string]*models.Trigger
	credentials map[string]*models.Credential
	steps       map[string][]*models.ActionStep
	runs        map[string]*models.Run
	outbox      map[string]*models.OutboxEntry
}

func NewPersistence() *Persistence {
	return &Persistence{
		workflows:   make(map[string]*models.Workflow),
		triggers:    make(map[string]*models.Trigger),
		credentials: make(map[string]*models.Credential),
		steps:       make(map[string][]*models.ActionStep),
		runs:        make(map[string]*models.Run),
		outbox:      make(map[string]*models.OutboxEntry),
	}
}

func (p *Persistence) AddWorkflow(workflow *models.Workflow) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.workflows[workflow.ID] = workflow
}

func (p *Persistence) AddTrigger(trigger *models.Trigger) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.triggers[trigger.ID] = trigger
}

func (p *Persistence) AddCredential(credential *models.Credential) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.credentials[credential.ID] = credential
}

func (p *Persistence) AddActionSteps(workflowID string, steps ...*models.ActionStep) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.steps[workflowID] = append(p.steps[workflowID], steps...)
}

func (p *Persistence) ActiveTriggersByType(_ context.Context, triggerType string) ([]*models.Trigger, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	triggers := make([]*models.Trigger, 0)

	for _, trigger := range p.triggers {
		if trigger.Type == triggerType && trigger.Active {
			triggers = append(triggers, trigger)
		}
	}

	return triggers, nil
}

func (p *Persistence) UpdateTriggerLastPolled(_ context.Context, triggerID string, polledAt time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	trigger, ok := p.triggers[triggerID]
	if !ok {
		return persistence.NewStoreError("UpdateTriggerLastPolled", triggerID, persistence.ErrTriggerNotFound)
	}

	stamped := polledAt
	trigger.LastPolledAt = &stamped
	trigger.UpdatedAt = time.Now().UTC()

	return nil
}

func (p *Persistence) CredentialByID(_ context.Context, id string) (*models.Credential, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	credential, ok := p.credentials[id]
	if !ok {
		return nil, persistence.NewStoreError("CredentialByID", id, persistence.ErrCredentialNotFound)
	}

	copied := *credential

	return &copied, nil
}

func (p *Persistence) SaveCredential(_ context.Context, credential *models.Credential) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	copied := *credential
	copied.UpdatedAt = time.Now().UTC()
	p.credentials[credential.ID] = &copied

	return nil
}

func (p *Persistence) WorkflowByID(_ context.Context, id string) (*models.Workflow, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	workflow, ok := p.workflows[id]
	if !ok || workflow.DeletedAt != nil {
		return nil, persistence.NewStoreError("WorkflowByID", id, persistence.ErrWorkflowNotFound)
	}

	return workflow, nil
}

func (p *Persistence) ActionStepsByWorkflowID(_ context.Context, workflowID string) ([]*models.ActionStep, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	steps := make([]*models.ActionStep, len(p.steps[workflowID]))
	copy(steps, p.steps[workflowID])

	for i := 1; i < len(steps); i++ {
		for j := i; j > 0 && steps[j-1].StageIndex > steps[j].StageIndex; j-- {
			steps[j-1], steps[j] = steps[j], steps[j-1]
		}
	}

	return steps, nil
}

func (p *Persistence) RunByID(_ context.Context, id string) (*models.Run, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	run, ok := p.runs[id]
	if !ok {
		return nil, persistence.NewStoreError("RunByID", id, persistence.ErrRunNotFound)
	}

	return run, nil
}

func (p *Persistence) CreateRunWithOutbox(_ context.Context, run *models.Run) (*models.OutboxEntry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	if _, exists := p.runs[run.ID]; exists {
		return nil, persistence.NewStoreError("CreateRunWithOutbox", run.ID, persistence.ErrRunAlreadyExists)
	}

	p.runs[run.ID] = run

	entry := &models.OutboxEntry{
		ID:        uuid.New().String(),
		RunID:     run.ID,
		CreatedAt: run.CreatedAt,
	}
	p.outbox[entry.ID] = entry

	return entry, nil
}

func (p *Persistence) PendingOutboxEntries(_ context.Context, limit int) ([]*models.OutboxEntry, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entries := make([]*models.OutboxEntry, 0)

	for _, entry := range p.outbox {
		run, ok := p.runs[entry.RunID]
		if !ok {
			continue
		}

		workflow, ok := p.workflows[run.WorkflowID]
		if !ok || !workflow.IsActive() {
			continue
		}

		entries = append(entries, entry)
		if len(entries) == limit {
			break
		}
	}

	return entries, nil
}

func (p *Persistence) DeleteOutboxEntries(_ context.Context, ids []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, id := range ids {
		delete(p.outbox, id)
	}

	return nil
}

// Runs returns all runs created so far, for test assertions.
func (p *Persistence) Runs() []*models.Run {
	p.mu.RLock()
	defer p.mu.RUnlock()

	runs := make([]*models.Run, 0, len(p.runs))
	for _, run := range p.runs {
		runs = append(runs, run)
	}

	return runs
}

// OutboxSize returns the number of live outbox entries, for test assertions.
func (p *Persistence) OutboxSize() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.outbox)
}

func (p *Persistence) HealthCheck(_ context.Context) error {
	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	return nil
}
