// Package csrf implements double-submit anti-forgery protection.
//
// A random token is stored server-side under the user's ID and mirrored to
// the client in a script-readable cookie. State-changing requests must echo
// the token back in a custom header; the guard compares header and stored
// value. The three failure kinds are distinct so clients can decide between
// "refresh the CSRF token" and "re-login".
package csrf

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"folio/internal/kv"
	dErrors "folio/pkg/domain-errors"
	"folio/pkg/platform/sentinel"
)

const (
	keyPrefix = "csrf:"

	// CookieName is the script-readable cookie carrying the mirrored token.
	CookieName = "csrfToken"
)

// headerNames are the request headers accepted as the client's echo of the
// token, in lookup order.
var headerNames = []string{"X-CSRF-Token", "X-XSRF-Token", "Csrf-Token"}

// Guard issues and verifies per-user CSRF tokens.
type Guard struct {
	store  kv.Store
	ttl    time.Duration
	secure bool
}

// NewGuard creates a guard. secure controls the cookie's Secure attribute
// (disabled for plain-HTTP local development).
func NewGuard(store kv.Store, ttl time.Duration, secure bool) *Guard {
	return &Guard{store: store, ttl: ttl, secure: secure}
}

// Generate stores a fresh token for the user and returns it. One active
// token per user: generation overwrites, never appends. Callers hand the
// token to the client with SetCookie.
func (g *Guard) Generate(ctx context.Context, userID string) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate csrf token: %w", err)
	}
	token := hex.EncodeToString(buf)

	if err := g.store.Set(ctx, keyPrefix+userID, token, g.ttl); err != nil {
		return "", err
	}
	return token, nil
}

// SetCookie writes the script-readable mirror cookie.
func (g *Guard) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(g.ttl.Seconds()),
		Secure:   g.secure,
		HttpOnly: false, // the page's own script must read and mirror it
		SameSite: http.SameSiteNoneMode,
	})
}

// Verify checks the double-submit proof for a request by the given user.
// Safe methods always pass. Returns nil on success or a coded domain error.
func (g *Guard) Verify(ctx context.Context, r *http.Request, userID string) error {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return nil
	}

	if userID == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "User not authenticated")
	}

	clientToken := headerToken(r)
	if clientToken == "" {
		return dErrors.New(dErrors.CodeCSRFMissing, "CSRF token missing. Please refresh the page")
	}

	stored, err := g.store.Get(ctx, keyPrefix+userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeCSRFExpired, "CSRF token expired. Please try again")
	}
	if err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "CSRF verification failed", err)
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(clientToken)) != 1 {
		return dErrors.New(dErrors.CodeCSRFInvalid, "Invalid CSRF token. Please refresh the page")
	}
	return nil
}

// Revoke deletes the user's stored token. Idempotent.
func (g *Guard) Revoke(ctx context.Context, userID string) error {
	return g.store.Delete(ctx, keyPrefix+userID)
}

// Refresh rotates the user's token: revoke then generate. The old token is
// unusable the moment this returns.
func (g *Guard) Refresh(ctx context.Context, userID string) (string, error) {
	if err := g.Revoke(ctx, userID); err != nil {
		return "", err
	}
	return g.Generate(ctx, userID)
}

func headerToken(r *http.Request) string {
	for _, name := range headerNames {
		if v := r.Header.Get(name); v != "" {
			return v
		}
	}
	return ""
}
