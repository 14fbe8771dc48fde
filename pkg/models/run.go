package models

import "time"

// Run is one instantiation of a workflow, created when a trigger matched.
// The metadata payload is captured at trigger time and is immutable after
// creation; stage execution only reads it.
type Run struct {
	ID         string         `json:"id"          validate:"required"`
	WorkflowID string         `json:"workflow_id" validate:"required"`
	Metadata   map[string]any `json:"metadata"`
	CreatedAt  time.Time      `json:"created_at"`
}
