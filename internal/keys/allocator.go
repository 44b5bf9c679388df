// Package keys issues short keys. The allocator only guarantees a key was
// unused at check time; the store's unique constraint settles races at
// insert, surfacing as internal.ErrKeyConflict there.
package keys

import (
	"context"
	"errors"
	"fmt"

	"github.com/balesniy/reduced.to/internal"
	"github.com/balesniy/reduced.to/internal/store"
)

const (
	defaultLength   = internal.RandomKeyLength
	defaultAttempts = 10
)

type Allocator struct {
	store    store.Store
	length   int
	attempts int
}

func NewAllocator(s store.Store) *Allocator {
	return &Allocator{store: s, length: defaultLength, attempts: defaultAttempts}
}

// Allocate returns a usable short key. With a requested key it validates the
// format and checks availability; without one it draws random candidates,
// retrying on collision up to the attempt bound.
func (a *Allocator) Allocate(ctx context.Context, requestedKey string) (string, error) {
	if requestedKey != "" {
		if !internal.ValidKey(requestedKey) {
			return "", fmt.Errorf("%w: %q", internal.ErrInvalidKeyFormat, requestedKey)
		}
		available, err := a.IsAvailable(ctx, requestedKey)
		if err != nil {
			return "", err
		}
		if !available {
			return "", fmt.Errorf("%w: %q", internal.ErrKeyConflict, requestedKey)
		}
		return requestedKey, nil
	}

	for i := 0; i < a.attempts; i++ {
		candidate, err := internal.RandomKey(a.length)
		if err != nil {
			return "", err
		}
		available, err := a.IsAvailable(ctx, candidate)
		if err != nil {
			return "", err
		}
		if available {
			return candidate, nil
		}
	}
	// Every candidate collided: the keyspace or the store is saturated
	// beyond what random draws can absorb.
	return "", fmt.Errorf("%w after %d attempts", internal.ErrAllocationExhausted, a.attempts)
}

// IsAvailable reports whether no active link holds the key.
func (a *Allocator) IsAvailable(ctx context.Context, key string) (bool, error) {
	_, err := a.store.FindLinkByKey(ctx, key)
	if errors.Is(err, internal.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking key availability: %w", err)
	}
	return false, nil
}
