// Package membership detects entities appearing in a source collection for
// the first time, such as new files in a folder or new rows in a table,
// using a stored set of known entity ids.
package membership

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zapline/zapline/pkg/fingerprint"
	"github.com/zapline/zapline/pkg/models"
	"github.com/zapline/zapline/pkg/persistence"
	"github.com/zapline/zapline/pkg/pollers"
	"github.com/zapline/zapline/pkg/retry"
)

const Name = "membership"

const strategy = "knownset"

// Entity is one member of the source collection.
type Entity struct {
	ID       string
	Metadata map[string]any
}

// Source lists the current members of the watched collection.
type Source interface {
	FetchMembers(ctx context.Context, trigger *models.Trigger, accessToken string) ([]Entity, error)
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
}

func NewPoller(
	logger *slog.Logger,
	store persistence.Persistence,
	fingerprints fingerprint.Store,
	refresher pollers.TokenRefresher,
	source Source,
) *Poller {
	return &Poller{
		logger:       logger.With("module", "membership_poller"),
		store:        store,
		fingerprints: fingerprints,
		emitter:      pollers.NewRunEmitter(store, logger),
		refresher:    refresher,
		source:       source,
		guard:        pollers.NewGuard(),
		retryConfig:  retry.DefaultConfig(),
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

	result := retry.Do(ctx, p.retryConfig, func(ctx context.Context) (any, error) {
		return p.source.FetchMembers(ctx, trigger, pollers.AccessToken(credential))
	})
	if !result.Success {
		return 0, fmt.Errorf("failed to fetch members after %d attempts: %w", result.Attempts, result.Err)
	}

	entities, _ := result.Value.([]Entity)

	key := fingerprint.Key(strategy, trigger.ID)

	stored, err := p.fingerprints.Members(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("failed to read known set: %w", err)
	}

	known := make(map[string]struct{}, len(stored))
	for _, id := range stored {
		known[id] = struct{}{}
	}

	// An empty stored set means this is the first sighting of the
	// collection: record everything, emit nothing. Otherwise a fresh
	// trigger would fire once per pre-existing entity.
	bootstrap := len(stored) == 0
	emitted := 0

	for _, entity := range entities {
		_, seen := known[entity.ID]
		if seen || bootstrap {
			continue
		}

		err = p.emitter.Emit(ctx, trigger, entity.Metadata)
		if err != nil {
			return emitted, err
		}

		emitted++
	}

	err = p.recordMembers(ctx, key, entities)
	if err != nil {
		return emitted, err
	}

	return emitted, nil
}

func (p *Poller) recordMembers(ctx context.Context, key string, entities []Entity) error {
	if len(entities) == 0 {
		return nil
	}

	ids := make([]string, len(entities))
	for i, entity := range entities {
		ids[i] = entity.ID
	}

	err := p.fingerprints.AddToSet(ctx, key, ids...)
	if err != nil {
		return fmt.Errorf("failed to record known ids: %w", err)
	}

	err = p.fingerprints.RefreshTTL(ctx, key, fingerprint.KnownSetTTL)
	if err != nil {
		return fmt.Errorf("failed to refresh known set ttl: %w", err)
	}

	return nil
}
