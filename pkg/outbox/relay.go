// Package outbox relays pending outbox entries to the broker. Together with
// the transactional run+entry insert it closes the dual-write gap between
// the relational store and Kafka.
package outbox

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/zapline/zapline/pkg/eventbus"
	"github.com/zapline/zapline/pkg/events"
	"github.com/zapline/zapline/pkg/persistence"
)

const (
	DefaultInterval  = 3 * time.Second
	DefaultBatchSize = 100
)

// Relay periodically drains pending outbox entries, publishing a stage-1
// event per entry. Publish and delete are not atomic: a crash in between
// re-publishes the batch next cycle, which downstream tolerates as
// at-least-once delivery.
type Relay struct {
	logger    *slog.Logger
	store     persistence.Persistence
	bus       eventbus.EventBus
	interval  time.Duration
	batchSize int
}

func NewRelay(logger *slog.Logger, store persistence.Persistence, bus eventbus.EventBus) *Relay {
	return &Relay{
		logger:    logger.With("module", "outbox_relay"),
		store:     store,
		bus:       bus,
		interval:  DefaultInterval,
		batchSize: DefaultBatchSize,
	}
}

// Start drains batches until the context is cancelled.
func (r *Relay) Start(ctx context.Context) error {
	r.logger.InfoContext(ctx, "Starting outbox relay",
		"interval", r.interval, "batch_size", r.batchSize)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "Stopping outbox relay")

			return ctx.Err()
		case <-ticker.C:
			published, err := r.DrainOnce(ctx)
			if err != nil {
				r.logger.ErrorContext(ctx, "Outbox drain failed", "error", err)

				continue
			}

			if published > 0 {
				r.logger.InfoContext(ctx, "Drained outbox batch", "published", published)
			}
		}
	}
}

// DrainOnce fetches one batch of pending entries, publishes a stage-1 event
// for each, then deletes the published rows. An entry whose publish failed
// stays in the outbox for the next cycle.
func (r *Relay) DrainOnce(ctx context.Context) (int, error) {
	entries, err := r.store.PendingOutboxEntries(ctx, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch pending outbox entries: %w", err)
	}

	if len(entries) == 0 {
		return 0, nil
	}

	published := make([]string, 0, len(entries))

	for _, entry := range entries {
		event := events.RunStageAvailable{
			ID:        r.bus.GenerateID(),
			RunID:     entry.RunID,
			Stage:     1,
			Timestamp: time.Now().UTC(),
		}

		err = r.bus.Publish(ctx, events.Topic, entry.RunID, event)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to publish outbox entry, leaving for next cycle",
				"outbox_entry_id", entry.ID, "run_id", entry.RunID, "error", err)

			continue
		}

		published = append(published, entry.ID)
	}

	err = r.store.DeleteOutboxEntries(ctx, published)
	if err != nil {
		return len(published), fmt.Errorf("failed to delete published outbox entries: %w", err)
	}

	return len(published), nil
}
