package user

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"folio/internal/kv"
)

const cacheKeyPrefix = "user:"

// ProfileCache is the read-through cache consulted by the auth gateway on
// every request. Entries are populated lazily on cache miss and bounded by
// TTL; concurrent misses may both write and last write wins, which is
// acceptable because the source of truth is the durable store.
type ProfileCache struct {
	store kv.Store
	ttl   time.Duration
}

// NewProfileCache creates a cache with the given entry TTL.
func NewProfileCache(store kv.Store, ttl time.Duration) *ProfileCache {
	return &ProfileCache{store: store, ttl: ttl}
}

// Get returns the cached profile, or sentinel.ErrNotFound on miss.
func (c *ProfileCache) Get(ctx context.Context, userID string) (*Profile, error) {
	payload, err := c.store.Get(ctx, cacheKeyPrefix+userID)
	if err != nil {
		return nil, err
	}

	var profile Profile
	if err := json.Unmarshal([]byte(payload), &profile); err != nil {
		return nil, fmt.Errorf("unmarshal cached profile: %w", err)
	}
	return &profile, nil
}

// Set stores the profile under its user ID.
func (c *ProfileCache) Set(ctx context.Context, profile Profile) error {
	payload, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	return c.store.Set(ctx, cacheKeyPrefix+profile.ID, string(payload), c.ttl)
}

// Invalidate drops the cached profile. Called on logout; TTL handles the
// rest.
func (c *ProfileCache) Invalidate(ctx context.Context, userID string) error {
	return c.store.Delete(ctx, cacheKeyPrefix+userID)
}
