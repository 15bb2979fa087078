// Package token issues and verifies the signed credentials handed to
// clients: short-lived access tokens and long-lived refresh tokens.
//
// A valid signature is necessary but never sufficient for access. Tokens are
// not stored server-side; the session registry independently decides whether
// the (user, session) pair a token names is still live.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind discriminates access from refresh tokens so one cannot be replayed in
// place of the other.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Verification failures. Callers must distinguish them: ErrExpired on an
// access token triggers the refresh flow, ErrInvalid anywhere is fatal to the
// request.
var (
	ErrInvalid = errors.New("token invalid")
	ErrExpired = errors.New("token expired")
)

// Claims are the JWT claims carried by both token kinds.
type Claims struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Kind      Kind   `json:"kind"`
	jwt.RegisteredClaims
}

// Issuer creates and verifies signed tokens with HMAC-SHA256.
type Issuer struct {
	signingKey []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewIssuer constructs an Issuer. refreshTTL bounds the maximum session
// lifetime; the session registry uses it as the session TTL.
func NewIssuer(signingKey, issuer string, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// AccessTTL returns the access token lifetime (drives the cookie max-age).
func (i *Issuer) AccessTTL() time.Duration { return i.accessTTL }

// RefreshTTL returns the refresh token lifetime (drives the cookie max-age
// and the session TTL).
func (i *Issuer) RefreshTTL() time.Duration { return i.refreshTTL }

// IssueAccess mints a short-lived access token for the session.
func (i *Issuer) IssueAccess(userID, sessionID string) (string, error) {
	return i.issue(userID, sessionID, KindAccess, i.accessTTL)
}

// IssueRefresh mints a long-lived refresh token for the session.
//
// Refresh tokens are not rotated on use: a compromised refresh token remains
// usable until its own expiry or until the session is revoked. Accepted
// design trade-off, not a bug.
func (i *Issuer) IssueRefresh(userID, sessionID string) (string, error) {
	return i.issue(userID, sessionID, KindRefresh, i.refreshTTL)
}

func (i *Issuer) issue(userID, sessionID string, kind Kind, ttl time.Duration) (string, error) {
	now := time.Now()
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:    userID,
		SessionID: sessionID,
		Kind:      kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    i.issuer,
			ID:        uuid.NewString(),
		},
	})
	return newToken.SignedString(i.signingKey)
}

// Verify checks signature integrity and expiry, returning the embedded
// claims. It does not consult the session registry.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return i.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalid
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalid
	}
	return claims, nil
}

// VerifyKind is Verify plus a check that the token is of the expected kind.
// A kind mismatch reads as ErrInvalid: an access token presented as a refresh
// token is a malformed request, not an expired one.
func (i *Issuer) VerifyKind(tokenString string, kind Kind) (*Claims, error) {
	claims, err := i.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Kind != kind {
		return nil, ErrInvalid
	}
	return claims, nil
}
