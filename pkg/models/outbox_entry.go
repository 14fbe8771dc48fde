package models

import "time"

// OutboxEntry is written in the same transaction as its Run and deleted by
// the relay after a successful publish. A run never gets a second entry;
// once the row is gone, redelivery of the stage-1 event is the broker's job.
type OutboxEntry struct {
	ID        string    `json:"id"         validate:"required"`
	RunID     string    `json:"run_id"     validate:"required"`
	CreatedAt time.Time `json:"created_at"`
}
