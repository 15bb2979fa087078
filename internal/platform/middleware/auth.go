package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"folio/internal/platform/cookies"
	"folio/internal/platform/metrics"
	"folio/internal/token"
	"folio/internal/user"
	dErrors "folio/pkg/domain-errors"
	"folio/pkg/httputil"
	"folio/pkg/platform/sentinel"
	"folio/pkg/requestcontext"
)

// TokenVerifier checks a signed token's signature, expiry and kind.
type TokenVerifier interface {
	VerifyKind(tokenString string, kind token.Kind) (*token.Claims, error)
}

// SessionChecker answers whether a (user, session) pair is still live.
type SessionChecker interface {
	IsLive(ctx context.Context, userID, sessionID string) (bool, error)
}

// IdentityResolver loads the authenticated user's profile (cache-aside).
type IdentityResolver interface {
	Resolve(ctx context.Context, userID string) (*user.Profile, error)
}

type contextKeyProfile struct{}

// CurrentUser retrieves the authenticated profile placed in the context by
// RequireAuth. Returns nil outside an authenticated request.
func CurrentUser(ctx context.Context) *user.Profile {
	profile, _ := ctx.Value(contextKeyProfile{}).(*user.Profile)
	return profile
}

// WithCurrentUser injects a profile into the context. Exposed for handler
// tests that bypass the middleware chain.
func WithCurrentUser(ctx context.Context, profile *user.Profile) context.Context {
	return context.WithValue(ctx, contextKeyProfile{}, profile)
}

// RequireAuth is the per-request auth gateway. Order matters and encodes the
// design's core rule: a token signature alone is never enough.
//
//  1. No access-token cookie: unauthenticated.
//  2. Verify the signature. Expired is reported distinctly so the client
//     knows to call the refresh endpoint; invalid is fatal.
//  3. Check session liveness. A revoked or expired session rejects the
//     request and clears all three cookies, regardless of what the token
//     signature claims.
//  4. Resolve the identity via the profile cache, falling back to the
//     durable store.
//  5. Attach identity and session to the request context.
//
// CSRF enforcement is a separate middleware applied only to state-changing
// routes, after this one.
func RequireAuth(
	verifier TokenVerifier,
	sessions SessionChecker,
	identities IdentityResolver,
	cookieWriter *cookies.Writer,
	m *metrics.Metrics,
	logger *slog.Logger,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			cookie, err := r.Cookie(cookies.AccessToken)
			if err != nil || cookie.Value == "" {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Please login"))
				return
			}

			claims, err := verifier.VerifyKind(cookie.Value, token.KindAccess)
			if err != nil {
				if errors.Is(err, token.ErrExpired) {
					httputil.WriteError(w, dErrors.New(dErrors.CodeTokenExpired, "Access token expired"))
					return
				}
				logger.WarnContext(ctx, "rejected invalid access token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeTokenInvalid, "Invalid token"))
				return
			}

			start := time.Now()
			live, err := sessions.IsLive(ctx, claims.UserID, claims.SessionID)
			m.SessionCheckDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
			if err != nil {
				logger.ErrorContext(ctx, "session liveness check failed",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.Wrap(dErrors.CodeInternal, "session check failed", err))
				return
			}
			if !live {
				cookieWriter.ClearAll(w)
				httputil.WriteError(w, dErrors.New(dErrors.CodeSessionExpired, "Session expired"))
				return
			}

			profile, err := identities.Resolve(ctx, claims.UserID)
			if errors.Is(err, sentinel.ErrNotFound) {
				httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "No user with this ID"))
				return
			}
			if err != nil {
				logger.ErrorContext(ctx, "identity resolution failed",
					"error", err,
					"user_id", claims.UserID,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.Wrap(dErrors.CodeInternal, "identity resolution failed", err))
				return
			}

			ctx = requestcontext.WithUserID(ctx, claims.UserID)
			ctx = requestcontext.WithSessionID(ctx, claims.SessionID)
			ctx = WithCurrentUser(ctx, profile)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin gates admin-only routes. Must run after RequireAuth.
func RequireAdmin(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			profile := CurrentUser(r.Context())
			if profile == nil {
				httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context missing"))
				return
			}
			if profile.Role != user.RoleAdmin {
				logger.WarnContext(r.Context(), "non-admin rejected from admin route",
					"user_id", profile.ID,
					"request_id", requestcontext.RequestID(r.Context()),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "Not authorized for this action"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
