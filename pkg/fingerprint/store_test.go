package fingerprint

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey_Namespacing(t *testing.T) {
	assert.Equal(t, "zapline:rowhash:trg-1", Key("rowhash", "trg-1"))
	assert.Equal(t, "zapline:marker:trg-1:evt-9", Key("marker", "trg-1", "evt-9"))
}

func TestMemoryStore_GetSet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, "k", "v", time.Minute))

	value, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", value)

	require.NoError(t, store.Delete(ctx, "k"))

	_, err = store.Get(ctx, "k")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Set(ctx, "k", "v", time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, err := store.Get(ctx, "k")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.RefreshTTL(ctx, "k", time.Minute))

	value, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", value)
}

func TestMemoryStore_Sets(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	members, err := store.Members(ctx, "s")
	require.NoError(t, err)
	assert.Empty(t, members)

	require.NoError(t, store.AddToSet(ctx, "s", "a", "b"))
	require.NoError(t, store.AddToSet(ctx, "s", "b", "c"))

	members, err = store.Members(ctx, "s")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, members)
}
