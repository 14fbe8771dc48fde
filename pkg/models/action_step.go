package models

import "github.com/zapline/zapline/pkg/filter"

// ActionStep is one position in a workflow's ordered action chain. Stage
// indexes start at 1 and are unique per workflow. The metadata template may
// contain {field} placeholders resolved against the run metadata at
// execution time.
type ActionStep struct {
	ID               string             `json:"id"          validate:"required"`
	WorkflowID       string             `json:"workflow_id" validate:"required"`
	StageIndex       int                `json:"stage_index" validate:"required,min=1"`
	ActionType       string             `json:"action_type" validate:"required"`
	MetadataTemplate map[string]any     `json:"metadata_template"`
	Conditions       []filter.Condition `json:"conditions,omitempty"`
}
