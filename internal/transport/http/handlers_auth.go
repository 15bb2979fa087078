package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"

	"folio/internal/auth"
	"folio/internal/csrf"
	"folio/internal/platform/cookies"
	platformmw "folio/internal/platform/middleware"
	"folio/internal/user"
	dErrors "folio/pkg/domain-errors"
	"folio/pkg/httputil"
	"folio/pkg/requestcontext"
)

// AuthService is the slice of the auth service the handlers need.
type AuthService interface {
	Register(ctx context.Context, in auth.RegisterInput, clientIP string) error
	VerifyRegistration(ctx context.Context, token string) (*user.Profile, error)
	Login(ctx context.Context, in auth.LoginInput, clientIP string) error
	VerifyOTP(ctx context.Context, in auth.VerifyOTPInput) (*auth.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, userID, sessionID string) error
	SessionInfo(ctx context.Context, userID, sessionID string) (*auth.SessionSummary, error)
	RefreshCSRF(ctx context.Context, userID string) (string, error)
}

// AuthHandler is the thin HTTP layer over the auth service. Validation and
// cookie handling live here; business logic does not.
type AuthHandler struct {
	auth    AuthService
	cookies *cookies.Writer
	csrf    *csrf.Guard
	logger  *slog.Logger
}

// NewAuthHandler wires the handler.
func NewAuthHandler(svc AuthService, cookieWriter *cookies.Writer, guard *csrf.Guard, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: svc, cookies: cookieWriter, csrf: guard, logger: logger}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Invalid request body"))
		return
	}
	if err := validateRegisterRequest(req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	err := h.auth.Register(r.Context(), auth.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	}, requestcontext.ClientIP(r.Context()))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, "Verification email sent. Please check your inbox", nil)
}

func (h *AuthHandler) handleVerifyRegistration(w http.ResponseWriter, r *http.Request) {
	verifyToken := chi.URLParam(r, "token")
	if verifyToken == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Verification token is required"))
		return
	}

	profile, err := h.auth.VerifyRegistration(r.Context(), verifyToken)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, "Email verified successfully", map[string]any{
		"user": profile,
	})
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Invalid request body"))
		return
	}
	if err := validateLoginRequest(req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	err := h.auth.Login(r.Context(), auth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	}, requestcontext.ClientIP(r.Context()))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, "OTP sent to your email", nil)
}

func (h *AuthHandler) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Invalid request body"))
		return
	}
	if err := validateVerifyOTPRequest(req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.auth.VerifyOTP(r.Context(), auth.VerifyOTPInput{Email: req.Email, OTP: req.OTP})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.cookies.SetAccess(w, result.AccessToken)
	h.cookies.SetRefresh(w, result.RefreshToken)
	h.csrf.SetCookie(w, result.CSRFToken)

	httputil.WriteJSON(w, http.StatusOK, "Login successful", map[string]any{
		"user":      result.Profile,
		"sessionId": result.SessionID,
		"loginTime": result.LoginTime,
	})
}

func (h *AuthHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profile := platformmw.CurrentUser(ctx)
	if profile == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context missing"))
		return
	}

	info, err := h.auth.SessionInfo(ctx, requestcontext.UserID(ctx), requestcontext.SessionID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, "", map[string]any{
		"user":    profile,
		"session": info,
	})
}

// handleRefresh reissues the access token for a live session. The refresh
// token is read from its http-only cookie, never from the body. A dead
// session clears all three cookies so the client is not left holding a
// half-valid credential set.
func (h *AuthHandler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(cookies.RefreshToken)
	if err != nil || cookie.Value == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Please login"))
		return
	}

	access, err := h.auth.Refresh(r.Context(), cookie.Value)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeSessionExpired) {
			h.cookies.ClearAll(w)
		}
		httputil.WriteError(w, err)
		return
	}

	h.cookies.SetAccess(w, access)
	httputil.WriteJSON(w, http.StatusOK, "Access token refreshed", nil)
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	err := h.auth.Logout(ctx, requestcontext.UserID(ctx), requestcontext.SessionID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.cookies.ClearAll(w)
	httputil.WriteJSON(w, http.StatusOK, "Logged out successfully", nil)
}

func (h *AuthHandler) handleRefreshCSRF(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	fresh, err := h.auth.RefreshCSRF(ctx, requestcontext.UserID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.csrf.SetCookie(w, fresh)
	httputil.WriteJSON(w, http.StatusOK, "CSRF token refreshed", map[string]any{
		"csrfToken": fresh,
	})
}

func validateRegisterRequest(req registerRequest) error {
	if !govalidator.StringLength(req.Name, "1", "100") {
		return dErrors.New(dErrors.CodeBadRequest, "Name is required")
	}
	if !govalidator.IsEmail(req.Email) || !govalidator.StringLength(req.Email, "3", "255") {
		return dErrors.New(dErrors.CodeBadRequest, "Invalid email")
	}
	// bcrypt truncates past 72 bytes, so longer passwords are rejected rather
	// than silently weakened.
	if !govalidator.StringLength(req.Password, "8", "72") {
		return dErrors.New(dErrors.CodeBadRequest, "Password must be 8-72 characters")
	}
	return nil
}

func validateLoginRequest(req loginRequest) error {
	if !govalidator.IsEmail(req.Email) || !govalidator.StringLength(req.Email, "3", "255") {
		return dErrors.New(dErrors.CodeBadRequest, "Invalid email")
	}
	if req.Password == "" {
		return dErrors.New(dErrors.CodeBadRequest, "Password is required")
	}
	return nil
}

func validateVerifyOTPRequest(req verifyOTPRequest) error {
	if !govalidator.IsEmail(req.Email) || !govalidator.StringLength(req.Email, "3", "255") {
		return dErrors.New(dErrors.CodeBadRequest, "Invalid email")
	}
	if len(req.OTP) != 6 || !govalidator.IsNumeric(req.OTP) {
		return dErrors.New(dErrors.CodeBadRequest, "OTP must be a 6-digit code")
	}
	return nil
}
