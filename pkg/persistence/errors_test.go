package persistence

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStoreError_WrapsSentinel(t *testing.T) {
	err := NewStoreError("RunByID", "run-1", ErrRunNotFound)

	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.Contains(t, err.Error(), "RunByID")
	assert.Contains(t, err.Error(), "run-1")
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(ErrRunNotFound))
	assert.True(t, IsNotFound(NewStoreError("WorkflowByID", "wf-1", ErrWorkflowNotFound)))
	assert.True(t, IsNotFound(ErrTriggerNotFound))
	assert.True(t, IsNotFound(ErrCredentialNotFound))
	assert.False(t, IsNotFound(errors.New("connection refused")))
	assert.False(t, IsNotFound(nil))
}
