// Package models defines the persisted domain entities shared across the pipeline.
package models

import "time"

type WorkflowStatus string

const (
	WorkflowStatusActive   WorkflowStatus = "active"
	WorkflowStatusInactive WorkflowStatus = "inactive"
)

type Workflow struct {
	ID        string         `json:"id"         validate:"required"`
	Name      string         `json:"name"       validate:"required,min=3"`
	Status    WorkflowStatus `json:"status"     validate:"required,oneof=active inactive"`
	Owner     string         `json:"owner,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt *time.Time     `json:"deleted_at,omitempty"`
}

func (w *Workflow) IsActive() bool {
	return w.Status == WorkflowStatusActive && w.DeletedAt == nil
}
