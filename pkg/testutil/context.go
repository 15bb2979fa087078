package testutil

import (
	"net/http"

	"folio/pkg/requestcontext"
)

// WithUserID injects a user ID into the request context, simulating what the
// auth gateway does for authenticated requests.
func WithUserID(req *http.Request, userID string) *http.Request {
	return req.WithContext(requestcontext.WithUserID(req.Context(), userID))
}

// WithSessionID injects a session ID into the request context.
func WithSessionID(req *http.Request, sessionID string) *http.Request {
	return req.WithContext(requestcontext.WithSessionID(req.Context(), sessionID))
}

// WithAuth injects both user and session ID, the typical state of a request
// that already passed the gateway.
func WithAuth(req *http.Request, userID, sessionID string) *http.Request {
	return WithSessionID(WithUserID(req, userID), sessionID)
}
