// Package ratelimit implements the fixed-window throttle guarding the
// email-sending actions (registration and login).
//
// The mechanism is a presence flag: a key scoped to (client address,
// identity, action) set with a short TTL. Presence alone blocks; the value is
// irrelevant. Mark is called only on the success path of the guarded action
// — after the email actually went out — so repeated failed attempts are not
// throttled by this mechanism. That is a documented policy choice, not an
// oversight (see DESIGN.md).
package ratelimit

import (
	"context"
	"errors"
	"time"

	"folio/internal/kv"
	"folio/pkg/platform/sentinel"
)

// Action names the guarded operation; it is part of the key, so limits for
// different actions never interfere.
type Action string

const (
	ActionRegister Action = "register"
	ActionLogin    Action = "login"
)

// Key identifies one throttling scope.
type Key struct {
	Action Action
	IP     string
	Email  string
}

func (k Key) storeKey() string {
	return string(k.Action) + "-rate-limit:" + k.IP + ":" + k.Email
}

// Limiter is a fixed-window presence-flag throttle over the ephemeral store.
type Limiter struct {
	store  kv.Store
	window time.Duration
}

// NewLimiter creates a limiter with the given window.
func NewLimiter(store kv.Store, window time.Duration) *Limiter {
	return &Limiter{store: store, window: window}
}

// Allow reports whether the action may proceed for the key. The flag is not
// set here; callers Mark after the action completes.
func (l *Limiter) Allow(ctx context.Context, key Key) (bool, error) {
	_, err := l.store.Get(ctx, key.storeKey())
	if errors.Is(err, sentinel.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

// Mark sets the throttle flag for the key, blocking further attempts until
// the window elapses.
func (l *Limiter) Mark(ctx context.Context, key Key) error {
	return l.store.Set(ctx, key.storeKey(), "true", l.window)
}
