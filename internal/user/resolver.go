package user

import (
	"context"
	"errors"

	"folio/pkg/platform/sentinel"
)

// Resolver is the cache-aside read path for identities: check the profile
// cache, fall back to the durable store on miss, repopulate the cache.
type Resolver struct {
	store Store
	cache *ProfileCache
}

// NewResolver creates a resolver over the durable store and profile cache.
func NewResolver(store Store, cache *ProfileCache) *Resolver {
	return &Resolver{store: store, cache: cache}
}

// Resolve returns the profile for userID, or sentinel.ErrNotFound if no such
// user exists durably.
func (r *Resolver) Resolve(ctx context.Context, userID string) (*Profile, error) {
	cached, err := r.cache.Get(ctx, userID)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, err
	}

	u, err := r.store.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile := u.Profile()
	// Best effort: a failed cache write must not fail an otherwise
	// authenticated request. Concurrent misses may both land here; last
	// write wins and the TTL bounds any staleness.
	_ = r.cache.Set(ctx, profile)

	return &profile, nil
}
