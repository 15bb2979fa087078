package csrf

import (
	"log/slog"
	"net/http"

	"folio/pkg/httputil"
	"folio/pkg/requestcontext"
)

// Middleware enforces the double-submit check on state-changing routes. It
// must run after authentication so the user's identity is in the context.
func Middleware(guard *Guard, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			userID := requestcontext.UserID(ctx)

			if err := guard.Verify(ctx, r, userID); err != nil {
				logger.WarnContext(ctx, "csrf verification failed",
					"error", err,
					"user_id", userID,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
