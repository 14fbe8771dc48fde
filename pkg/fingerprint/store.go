// Package fingerprint provides the ephemeral change-detection store used by
// all poller dedup strategies. The store is TTL-bounded and never
// authoritative: losing it only causes re-detection of existing source
// state, never loss of runs already created.
package fingerprint

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Reference TTLs per strategy.
const (
	MarkerTTL   = 24 * time.Hour
	CursorTTL   = 7 * 24 * time.Hour
	RowHashTTL  = 30 * 24 * time.Hour
	KnownSetTTL = 30 * 24 * time.Hour
)

// ErrNotFound indicates the key is absent or has expired.
var ErrNotFound = errors.New("fingerprint not found")

type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	AddToSet(ctx context.Context, key string, members ...string) error
	Members(ctx context.Context, key string) ([]string, error)
	Delete(ctx context.Context, key string) error
	RefreshTTL(ctx context.Context, key string, ttl time.Duration) error
	Close() error
}

// Key builds a namespaced store key. All keys follow
// zapline:<strategy>:<triggerID>[:<entityID>] so one trigger's state can
// never bleed into another's.
func Key(strategy, triggerID string, entityID ...string) string {
	key := fmt.Sprintf("zapline:%s:%s", strategy, triggerID)
	for _, entity := range entityID {
		key += ":" + entity
	}

	return key
}
