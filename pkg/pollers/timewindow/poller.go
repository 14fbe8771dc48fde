// Package timewindow emits runs for entities whose relevant timestamp falls
// inside a sliding window around now, such as calendar events about to start
// or reminders that just ended.
package timewindow

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

const Name = "timewindow"

// DefaultWindow is used when the trigger does not configure one.
const DefaultWindow = 15 * time.Minute

// Variant selects which side of now the window covers. The per-trigger
// "variant" configuration key overrides the default.
type Variant string

const (
	// VariantStarting matches entities with timestamps in [now, now+window].
	VariantStarting Variant = "starting"
	// VariantEnded matches entities with timestamps in [now-window, now].
	VariantEnded Variant = "ended"
)

// Entity is one source record inside the window. ID must be stable across
// polls; Metadata becomes the run payload.
type Entity struct {
	ID       string
	Metadata map[string]any
}

// Source fetches entities whose relevant timestamp lies in [from, to].
type Source interface {
	FetchWindow(ctx context.Context, trigger *models.Trigger, accessToken string, from, to time.Time) ([]Entity, error)
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
		logger:       logger.With("module", "timewindow_poller"),
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

	from, to := windowBounds(p.now().UTC(), trigger)

	result := retry.Do(ctx, p.retryConfig, func(ctx context.Context) (any, error) {
		return p.source.FetchWindow(ctx, trigger, pollers.AccessToken(credential), from, to)
	})
	if !result.Success {
		return 0, fmt.Errorf("failed to fetch window after %d attempts: %w", result.Attempts, result.Err)
	}

	entities, _ := result.Value.([]Entity)
	emitted := 0

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

func windowBounds(now time.Time, trigger *models.Trigger) (time.Time, time.Time) {
	window := DefaultWindow

	configured, err := time.ParseDuration(trigger.ConfigString("window", ""))
	if err == nil && configured > 0 {
		window = configured
	}

	if Variant(trigger.ConfigString("variant", string(VariantStarting))) == VariantEnded {
		return now.Add(-window), now
	}

	return now, now.Add(window)
}
