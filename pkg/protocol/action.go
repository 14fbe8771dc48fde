// Package protocol defines the contracts between the stage executor and
// pluggable action implementations.
package protocol

import (
	"context"
	"log/slog"

	"github.com/zapline/zapline/pkg/models"
)

// Action performs one workflow step's side effect. Delivery is
// at-least-once: Execute may run more than once for the same (run, stage)
// and should key external effects on the execution context's idempotency
// key where the target supports it.
type Action interface {
	Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (any, error)
}

// ActionFactory builds actions of one type from resolved step metadata.
type ActionFactory interface {
	// Create builds the action. The config has already passed Schema
	// validation.
	Create(config map[string]any) (Action, error)

	// ID returns the action type tag referenced by ActionStep.ActionType.
	ID() string

	// Schema returns the JSON schema the resolved metadata must satisfy.
	Schema() map[string]any
}
