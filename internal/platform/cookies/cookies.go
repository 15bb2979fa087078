// Package cookies centralizes the names and attributes of the three auth
// cookies so the handlers and the gateway middleware cannot drift apart.
//
// accessToken and refreshToken are http-only: scripts never read them. The
// CSRF mirror cookie is managed by the csrf package because it must stay
// script-readable.
package cookies

import (
	"net/http"
	"time"
)

const (
	AccessToken  = "accessToken"
	RefreshToken = "refreshToken"
	CSRFToken    = "csrfToken"
)

// Writer stamps cookies with consistent attributes.
type Writer struct {
	secure     bool
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewWriter creates a cookie writer. secure is disabled only for plain-HTTP
// local development.
func NewWriter(secure bool, accessTTL, refreshTTL time.Duration) *Writer {
	return &Writer{secure: secure, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

// SetAccess sets the short-lived access token cookie.
func (c *Writer) SetAccess(w http.ResponseWriter, token string) {
	c.set(w, AccessToken, token, c.accessTTL)
}

// SetRefresh sets the long-lived refresh token cookie.
func (c *Writer) SetRefresh(w http.ResponseWriter, token string) {
	c.set(w, RefreshToken, token, c.refreshTTL)
}

func (c *Writer) set(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		Secure:   c.secure,
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
	})
}

// ClearAll expires all three auth cookies. Used whenever session state dies,
// so a client is never left holding a consistent-looking but dead credential
// set.
func (c *Writer) ClearAll(w http.ResponseWriter) {
	for _, name := range []string{AccessToken, RefreshToken, CSRFToken} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			Secure:   c.secure,
			HttpOnly: name != CSRFToken,
			SameSite: http.SameSiteNoneMode,
		})
	}
}
