// Package session tracks which (user, session) pairs are currently live.
//
// The registry, not token signatures, is the authority on liveness: revoking
// a session immediately invalidates every outstanding access and refresh
// token minted for it, however long their signatures remain valid.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"folio/internal/kv"
	"folio/pkg/platform/sentinel"
)

const keyPrefix = "session:"

// Record is the stored session state.
type Record struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

// Registry stores session records in the ephemeral store with a fixed TTL.
//
// There is deliberately no touch/sliding-expiry operation: refreshing an
// access token does not extend the session, so a session dies on its fixed
// clock and forces a full re-login after that horizon.
type Registry struct {
	store kv.Store
	ttl   time.Duration
}

// NewRegistry creates a registry. ttl must equal the refresh token lifetime,
// which bounds the maximum session lifetime.
func NewRegistry(store kv.Store, ttl time.Duration) *Registry {
	return &Registry{store: store, ttl: ttl}
}

// Create generates a fresh unguessable session ID and stores its record.
func (r *Registry) Create(ctx context.Context, userID string) (string, error) {
	sessionID, err := newSessionID()
	if err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}

	now := time.Now().UTC()
	record := Record{
		ID:           sessionID,
		UserID:       userID,
		CreatedAt:    now,
		LastActivity: now,
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("marshal session record: %w", err)
	}

	if err := r.store.Set(ctx, key(userID, sessionID), string(payload), r.ttl); err != nil {
		return "", err
	}
	return sessionID, nil
}

// Get returns the session record, or sentinel.ErrNotFound if it is not live.
func (r *Registry) Get(ctx context.Context, userID, sessionID string) (*Record, error) {
	payload, err := r.store.Get(ctx, key(userID, sessionID))
	if err != nil {
		return nil, err
	}

	var record Record
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return nil, fmt.Errorf("unmarshal session record: %w", err)
	}
	return &record, nil
}

// IsLive reports whether the (user, session) pair is currently live.
func (r *Registry) IsLive(ctx context.Context, userID, sessionID string) (bool, error) {
	record, err := r.Get(ctx, userID, sessionID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return record.UserID == userID && record.ID == sessionID, nil
}

// Revoke destroys the session. Idempotent: revoking an absent session is not
// an error.
func (r *Registry) Revoke(ctx context.Context, userID, sessionID string) error {
	return r.store.Delete(ctx, key(userID, sessionID))
}

func key(userID, sessionID string) string {
	return keyPrefix + userID + ":" + sessionID
}

func newSessionID() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
