// Package kv defines the ephemeral TTL key-value store every auth component
// is built on. The store is the single source of truth for "is this
// credential still valid right now": sessions, CSRF tokens, pending
// challenges, rate-limit marks and cached profiles all live here, partitioned
// by user- or identity-scoped keys.
package kv

import (
	"context"
	"time"
)

// Store is an ephemeral key-value store with per-key TTL.
//
// Implementations must make Get, Set, Delete and GetDel atomic per key.
// GetDel is the load-bearing one: challenge consumption (verification tokens,
// OTPs) relies on it so that two concurrent consumption attempts can never
// both succeed.
//
// Absent keys and keys whose TTL elapsed are indistinguishable: both return
// sentinel.ErrNotFound.
type Store interface {
	// Get returns the value for key, or sentinel.ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key with the given TTL, overwriting any
	// previous value and its TTL.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// GetDel atomically fetches and removes key, returning
	// sentinel.ErrNotFound if it was absent.
	GetDel(ctx context.Context, key string) (string, error)
}
