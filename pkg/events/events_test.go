package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStageAvailable_JSONSerialization(t *testing.T) {
	original := RunStageAvailable{
		ID:        "evt-1",
		RunID:     "run-123",
		Stage:     2,
		Timestamp: time.Now().UTC(),
	}

	jsonData, err := json.Marshal(original)
	require.NoError(t, err)
	assert.Contains(t, string(jsonData), `"run_id":"run-123"`)
	assert.Contains(t, string(jsonData), `"stage":2`)

	var deserialized RunStageAvailable

	err = json.Unmarshal(jsonData, &deserialized)
	require.NoError(t, err)
	assert.Equal(t, original.RunID, deserialized.RunID)
	assert.Equal(t, original.Stage, deserialized.Stage)
	assert.Equal(t, RunStageAvailableEvent, deserialized.GetType())
}

func TestRunStageAvailable_Validate(t *testing.T) {
	tests := []struct {
		name    string
		event   RunStageAvailable
		wantErr error
	}{
		{"valid", RunStageAvailable{RunID: "run-1", Stage: 1}, nil},
		{"missing_run_id", RunStageAvailable{Stage: 1}, ErrMissingRunID},
		{"zero_stage", RunStageAvailable{RunID: "run-1"}, ErrInvalidStage},
		{"negative_stage", RunStageAvailable{RunID: "run-1", Stage: -2}, ErrInvalidStage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestEventTypes(t *testing.T) {
	assert.Equal(t, RunFinishedEvent, RunFinished{}.GetType())
	assert.Equal(t, RunStageDeadLetteredEvent, RunStageDeadLettered{}.GetType())
}
