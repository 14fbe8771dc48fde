package pollers

import (
	"context"
	"errors"
	"fmt"

	"github.com/zapline/zapline/pkg/fingerprint"
	"github.com/zapline/zapline/pkg/models"
)

const markerStrategy = "marker"

// EmitOnce runs emit unless a marker for the entity already exists, and
// writes the marker only after emit succeeded. A crash mid-emission then
// re-emits next cycle rather than silently dropping the entity. The marker
// expires after fingerprint.MarkerTTL so a distinct future occurrence of the
// same entity can trigger again.
func EmitOnce(
	ctx context.Context,
	store fingerprint.Store,
	trigger *models.Trigger,
	entityID string,
	emit func() error,
) (bool, error) {
	key := fingerprint.Key(markerStrategy, trigger.ID, entityID)

	_, err := store.Get(ctx, key)
	if err == nil {
		return false, nil
	}

	if !errors.Is(err, fingerprint.ErrNotFound) {
		return false, fmt.Errorf("failed to read marker: %w", err)
	}

	err = emit()
	if err != nil {
		return false, err
	}

	err = store.Set(ctx, key, "1", fingerprint.MarkerTTL)
	if err != nil {
		return false, fmt.Errorf("failed to store marker: %w", err)
	}

	return true, nil
}
