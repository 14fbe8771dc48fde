// Package pollers provides the polling framework that turns external source
// state into workflow runs. Each concrete poller owns one change-detection
// strategy; the shared helpers here cover the cycle loop, per-trigger
// mutual exclusion, credential refresh and run emission.
package pollers

import (
	"context"
	"time"
)

// Poller is the contract every source poller implements. A poller owns no
// shared mutable state beyond what it reads and writes through the
// fingerprint store and the relational store.
type Poller interface {
	Name() string
	Poll(ctx context.Context) Result
}

// Result aggregates one poll cycle.
type Result struct {
	Processed int           `json:"processed"`
	Errors    int           `json:"errors"`
	Duration  time.Duration `json:"duration_ms"`
}

func (r Result) Add(other Result) Result {
	return Result{
		Processed: r.Processed + other.Processed,
		Errors:    r.Errors + other.Errors,
		Duration:  r.Duration + other.Duration,
	}
}
