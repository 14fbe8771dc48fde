package models

import "fmt"

// ExecutionContext is what an action sees when it runs: the identity of the
// run and stage plus the run's captured metadata. Actions never see the
// store or the broker.
type ExecutionContext struct {
	RunID      string
	WorkflowID string
	Stage      int
	Metadata   map[string]any
}

// IdempotencyKey identifies one logical execution across broker
// redeliveries of the same stage event.
func (c ExecutionContext) IdempotencyKey() string {
	return fmt.Sprintf("%s:%d", c.RunID, c.Stage)
}
