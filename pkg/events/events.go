// Package events defines the broker event types that carry a run through
// its action stages.
package events

import (
	"errors"
	"time"
)

type EventType string

// Kafka topics. All stage events share one topic and are partitioned by run
// id so one run's stages are consumed in order by a single consumer lane.
const Topic = "zapline.runs"
const DeadLetterTopic = "zapline.runs.deadletter"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	RunStageAvailableEvent    EventType = "run.stage.available"
	RunFinishedEvent          EventType = "run.finished"
	RunStageDeadLetteredEvent EventType = "run.stage.deadlettered"
)

var (
	ErrMissingRunID = errors.New("run id is required")
	ErrInvalidStage = errors.New("stage must be >= 1")
)

// RunStageAvailable announces that stage Stage of run RunID is ready to
// execute. Delivery is at-least-once; consumers must tolerate duplicates.
type RunStageAvailable struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id"`
	Stage     int       `json:"stage"`
	Timestamp time.Time `json:"timestamp"`
}

func (e RunStageAvailable) GetType() EventType {
	return RunStageAvailableEvent
}

func (e RunStageAvailable) Validate() error {
	if e.RunID == "" {
		return ErrMissingRunID
	}

	if e.Stage < 1 {
		return ErrInvalidStage
	}

	return nil
}

// RunFinished is published after the last stage of a run completed.
type RunFinished struct {
	ID         string    `json:"id"`
	RunID      string    `json:"run_id"`
	WorkflowID string    `json:"workflow_id"`
	Stages     int       `json:"stages"`
	Timestamp  time.Time `json:"timestamp"`
}

func (e RunFinished) GetType() EventType {
	return RunFinishedEvent
}

// RunStageDeadLettered records a stage whose action failed after all
// in-place retries. The run halts at this stage; redelivery is over.
type RunStageDeadLettered struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id"`
	Stage     int       `json:"stage"`
	Error     string    `json:"error"`
	Attempts  int       `json:"attempts"`
	Timestamp time.Time `json:"timestamp"`
}

func (e RunStageDeadLettered) GetType() EventType {
	return RunStageDeadLetteredEvent
}
