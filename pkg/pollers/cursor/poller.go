// Package cursor polls sources that issue opaque sync cursors, fetching only
// the delta since the last stored cursor and classifying returned items by a
// status field.
package cursor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/zapline/zapline/pkg/fingerprint"
	"github.com/zapline/zapline/pkg/models"
	"github.com/zapline/zapline/pkg/persistence"
	"github.com/zapline/zapline/pkg/pollers"
	"github.com/zapline/zapline/pkg/retry"
)

const Name = "cursor"

const strategy = "cursor"

// ErrCursorInvalid is returned (possibly wrapped) by sources when the stored
// cursor was rejected as expired or unknown. The poller clears the cursor
// and bootstraps again next cycle.
var ErrCursorInvalid = errors.New("cursor rejected by source")

// Item is one delta member. Status carries the source's lifecycle field,
// such as "cancelled" or "completed".
type Item struct {
	ID       string
	Status   string
	Metadata map[string]any
}

// Delta is one incremental response. Cursor is the token to persist for the
// next cycle.
type Delta struct {
	Cursor string
	Items  []Item
}

// Source exposes a cursor-based sync endpoint. Bootstrap obtains the first
// cursor without reporting any items as changed.
type Source interface {
	Bootstrap(ctx context.Context, trigger *models.Trigger, accessToken string) (string, error)
	FetchDelta(ctx context.Context, trigger *models.Trigger, accessToken string, cursor string) (*Delta, error)
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
		logger:       logger.With("module", "cursor_poller"),
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

	token := pollers.AccessToken(credential)
	key := fingerprint.Key(strategy, trigger.ID)

	stored, err := p.fingerprints.Get(ctx, key)
	if errors.Is(err, fingerprint.ErrNotFound) {
		return 0, p.bootstrap(ctx, trigger, token, key)
	}

	if err != nil {
		return 0, fmt.Errorf("failed to read cursor: %w", err)
	}

	result := retry.Do(ctx, p.retryConfig, func(ctx context.Context) (any, error) {
		return p.source.FetchDelta(ctx, trigger, token, stored)
	})
	if !result.Success {
		if errors.Is(result.Err, ErrCursorInvalid) {
			return 0, p.clearCursor(ctx, trigger, key)
		}

		return 0, fmt.Errorf("failed to fetch delta after %d attempts: %w", result.Attempts, result.Err)
	}

	delta, ok := result.Value.(*Delta)
	if !ok || delta == nil {
		return 0, fmt.Errorf("source returned no delta for trigger %s", trigger.ID)
	}

	matchStatus := trigger.ConfigString("match_status", "")
	emitted := 0

	for _, item := range delta.Items {
		if matchStatus != "" && item.Status != matchStatus {
			continue
		}

		err = p.emitter.Emit(ctx, trigger, item.Metadata)
		if err != nil {
			return emitted, err
		}

		emitted++
	}

	err = p.fingerprints.Set(ctx, key, delta.Cursor, fingerprint.CursorTTL)
	if err != nil {
		return emitted, fmt.Errorf("failed to store cursor: %w", err)
	}

	return emitted, nil
}

// bootstrap obtains and persists the first cursor. Nothing is emitted: the
// pre-existing state of the source is not a change.
func (p *Poller) bootstrap(ctx context.Context, trigger *models.Trigger, token, key string) error {
	result := retry.Do(ctx, p.retryConfig, func(ctx context.Context) (any, error) {
		return p.source.Bootstrap(ctx, trigger, token)
	})
	if !result.Success {
		return fmt.Errorf("failed to bootstrap cursor after %d attempts: %w", result.Attempts, result.Err)
	}

	next, _ := result.Value.(string)
	if next == "" {
		return fmt.Errorf("source returned empty cursor for trigger %s", trigger.ID)
	}

	err := p.fingerprints.Set(ctx, key, next, fingerprint.CursorTTL)
	if err != nil {
		return fmt.Errorf("failed to store cursor: %w", err)
	}

	p.logger.InfoContext(ctx, "Bootstrapped cursor", "trigger_id", trigger.ID)

	return nil
}

// clearCursor drops a rejected cursor so the next cycle bootstraps. This is
// routine source behavior for long-idle triggers, not an error.
func (p *Poller) clearCursor(ctx context.Context, trigger *models.Trigger, key string) error {
	err := p.fingerprints.Delete(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to clear rejected cursor: %w", err)
	}

	p.logger.InfoContext(ctx, "Cleared rejected cursor, will bootstrap next cycle", "trigger_id", trigger.ID)

	return nil
}
