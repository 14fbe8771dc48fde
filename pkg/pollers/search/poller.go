// Package search polls sources that answer a caller-supplied query, such as
// "emails matching from:billing@example.com", asking only for entities that
// changed since the trigger was last polled.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/zapline/zapline/pkg/fingerprint"
	"github.com/zapline/zapline/pkg/models"
	"github.com/zapline/zapline/pkg/persistence"
	"github.com/zapline/zapline/pkg/pollers"
	"github.com/zapline/zapline/pkg/retry"
)

const Name = "search"

// DefaultLookback bounds the first query of a trigger that has never been
// polled, so a fresh trigger does not replay the source's entire history.
const DefaultLookback = time.Hour

// Entity is one search hit. ID must be stable across polls.
type Entity struct {
	ID       string
	Metadata map[string]any
}

// Source runs the trigger's configured query for entities changed since the
// given time.
type Source interface {
	Search(ctx context.Context, trigger *models.Trigger, accessToken string, since time.Time) ([]Entity, error)
}

type Poller struct {
	logger       *slog.Logger
	store        persistence.Persistence
	fingerprints fingerprint.Store
	emitter      *pollers.RunEmitter
	refresher    pollers.TokenRefresher
	source       Source
	guard        *pollers.Guard
	retryConfig  retry.Config
	now          func() time.Time
}

func NewPoller(
	logger *slog.Logger,
	store persistence.Persistence,
	fingerprints fingerprint.Store,
	refresher pollers.TokenRefresher,
	source Source,
) *Poller {
	return &Poller{
		logger:       logger.With("module", "search_poller"),
		store:        store,
		fingerprints: fingerprints,
		emitter:      pollers.NewRunEmitter(store, logger),
		refresher:    refresher,
		source:       source,
		guard:        pollers.NewGuard(),
		retryConfig:  retry.DefaultConfig(),
		now:          time.Now,
	}
}

func (p *Poller) Name() string {
	return Name
}

func (p *Poller) Poll(ctx context.Context) pollers.Result {
	return pollers.Cycle(ctx, p.logger, p.store, p.guard, Name, p.pollTrigger)
}

func (p *Poller) pollTrigger(ctx context.Context, trigger *models.Trigger) (int, error) {
	credential, err := pollers.FreshCredential(ctx, p.store, p.refresher, trigger)
	if err != nil {
		return 0, err
	}

	since := p.now().UTC().Add(-DefaultLookback)
	if trigger.LastPolledAt != nil {
		since = *trigger.LastPolledAt
	}

	result := retry.Do(ctx, p.retryConfig, func(ctx context.Context) (any, error) {
		return p.source.Search(ctx, trigger, pollers.AccessToken(credential), since)
	})
	if !result.Success {
		return 0, fmt.Errorf("failed to search after %d attempts: %w", result.Attempts, result.Err)
	}

	entities, _ := result.Value.([]Entity)
	emitted := 0

	// The query window overlaps between cycles (last-polled is stamped
	// after the pass), so per-entity markers carry the dedup.
	for _, entity := range entities {
		matched, err := pollers.EmitOnce(ctx, p.fingerprints, trigger, entity.ID, func() error {
			return p.emitter.Emit(ctx, trigger, entity.Metadata)
		})
		if err != nil {
			return emitted, err
		}

		if matched {
			emitted++
		}
	}

	return emitted, nil
}
