package keys

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balesniy/reduced.to/internal"
	"github.com/balesniy/reduced.to/internal/store"
)

func TestAllocateRequestedKey(t *testing.T) {
	st := store.NewMemoryStore()
	a := NewAllocator(st)
	ctx := context.Background()

	key, err := a.Allocate(ctx, "my-key")
	require.NoError(t, err)
	assert.Equal(t, "my-key", key)

	// Allocation does not persist; the link-creation orchestrator does.
	require.NoError(t, st.InsertLink(ctx, &internal.Link{Key: key, DestinationURL: "https://example.com"}))

	available, err := a.IsAvailable(ctx, key)
	require.NoError(t, err)
	assert.False(t, available)
}

func TestAllocateRequestedKeyConflict(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, st.InsertLink(ctx, &internal.Link{Key: "taken123", DestinationURL: "https://example.com"}))

	_, err := NewAllocator(st).Allocate(ctx, "taken123")
	assert.ErrorIs(t, err, internal.ErrKeyConflict)
}

func TestAllocateInvalidFormat(t *testing.T) {
	a := NewAllocator(store.NewMemoryStore())

	for _, key := range []string{"ab", "has space", "under_score", "waaaaaaaaaaaaay-too-long-key"} {
		_, err := a.Allocate(context.Background(), key)
		assert.ErrorIs(t, err, internal.ErrInvalidKeyFormat, "key %q", key)
	}
}

func TestAllocateRandomKey(t *testing.T) {
	st := store.NewMemoryStore()
	a := NewAllocator(st)
	ctx := context.Background()

	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		key, err := a.Allocate(ctx, "")
		require.NoError(t, err)
		assert.True(t, internal.ValidKey(key))

		_, dup := seen[key]
		require.False(t, dup, "duplicate random key %q", key)
		seen[key] = struct{}{}

		require.NoError(t, st.InsertLink(ctx, &internal.Link{Key: key, DestinationURL: "https://example.com"}))
	}
}

// saturatedStore answers every availability check with a hit.
type saturatedStore struct {
	store.Store
}

func (s saturatedStore) FindLinkByKey(ctx context.Context, key string) (*internal.Link, error) {
	return &internal.Link{Key: key}, nil
}

func TestAllocateExhaustion(t *testing.T) {
	a := NewAllocator(saturatedStore{})

	_, err := a.Allocate(context.Background(), "")
	assert.ErrorIs(t, err, internal.ErrAllocationExhausted)
}
