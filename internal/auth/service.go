// Package auth orchestrates the account and session flows: registration with
// email verification, two-step (password + OTP) login, token refresh and
// logout.
//
// The service owns flow sequencing and error mapping; the mechanics live in
// the collaborating packages (challenge, session, token, csrf, ratelimit).
// The true authentication boundary is OTP confirmation: password checks alone
// never create a session.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"folio/internal/challenge"
	"folio/internal/csrf"
	"folio/internal/mail"
	"folio/internal/platform/metrics"
	"folio/internal/ratelimit"
	"folio/internal/session"
	"folio/internal/token"
	"folio/internal/user"
	dErrors "folio/pkg/domain-errors"
	"folio/pkg/platform/sentinel"
)

// Deps are the service's collaborators, injected by main (or by tests with
// memory-backed fakes).
type Deps struct {
	Users      user.Store
	Profiles   *user.ProfileCache
	Sessions   *session.Registry
	Tokens     *token.Issuer
	CSRF       *csrf.Guard
	Challenges *challenge.Store
	Limiter    *ratelimit.Limiter
	Mailer     mail.Mailer
	Metrics    *metrics.Metrics
	Logger     *slog.Logger

	// AppURL is the public base URL the verification link points at.
	AppURL string
}

// Service implements the account and session flows.
type Service struct {
	users      user.Store
	profiles   *user.ProfileCache
	sessions   *session.Registry
	tokens     *token.Issuer
	csrf       *csrf.Guard
	challenges *challenge.Store
	limiter    *ratelimit.Limiter
	mailer     mail.Mailer
	metrics    *metrics.Metrics
	logger     *slog.Logger
	appURL     string
}

// NewService wires a Service from its dependencies.
func NewService(d Deps) *Service {
	return &Service{
		users:      d.Users,
		profiles:   d.Profiles,
		sessions:   d.Sessions,
		tokens:     d.Tokens,
		csrf:       d.CSRF,
		challenges: d.Challenges,
		limiter:    d.Limiter,
		mailer:     d.Mailer,
		metrics:    d.Metrics,
		logger:     d.Logger,
		appURL:     d.AppURL,
	}
}

// Register parks a pending signup behind an emailed verification link. No
// durable record is created until the link is visited. The rate-limit flag is
// set only after the mail goes out, so a failed attempt can be retried
// immediately.
func (s *Service) Register(ctx context.Context, in RegisterInput, clientIP string) error {
	key := ratelimit.Key{Action: ratelimit.ActionRegister, IP: clientIP, Email: in.Email}
	allowed, err := s.limiter.Allow(ctx, key)
	if err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "rate limit check failed", err)
	}
	if !allowed {
		s.metrics.RateLimited.Inc()
		return dErrors.New(dErrors.CodeRateLimited, "Too many requests! Try after 1 minute")
	}

	_, err = s.users.FindByEmail(ctx, in.Email)
	if err == nil {
		return dErrors.New(dErrors.CodeConflict, "User already exists")
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(dErrors.CodeInternal, "user lookup failed", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "password hashing failed", err)
	}

	verifyToken, err := s.challenges.CreateRegistration(ctx, challenge.PendingRegistration{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
	})
	if err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "could not store pending registration", err)
	}

	link := s.appURL + "/verify/" + verifyToken
	body, err := mail.VerifyEmailHTML(in.Email, link, int(s.challenges.RegistrationTTL().Minutes()))
	if err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "could not render verification mail", err)
	}
	if err := s.mailer.Send(ctx, in.Email, mail.SubjectVerifyEmail, body); err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "Failed to send verification email", err)
	}

	if err := s.limiter.Mark(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "failed to mark rate limit", "action", key.Action, "error", err)
	}
	s.metrics.RegistrationsStarted.Inc()
	return nil
}

// VerifyRegistration consumes a verification token and creates the durable
// user record. The token is single-use: a replayed link reports expired.
//
// The duplicate check is repeated here even though Register performed it,
// because two verification links for the same email can both be outstanding;
// the unique email constraint in the store is the final arbiter of the race.
func (s *Service) VerifyRegistration(ctx context.Context, verifyToken string) (*user.Profile, error) {
	pending, err := s.challenges.ConsumeRegistration(ctx, verifyToken)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeBadRequest, "Verification link is expired")
	}
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "could not consume verification token", err)
	}

	if _, err := s.users.FindByEmail(ctx, pending.Email); err == nil {
		return nil, dErrors.New(dErrors.CodeConflict, "User already exists")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "user lookup failed", err)
	}

	u := &user.User{
		ID:           uuid.NewString(),
		Name:         pending.Name,
		Email:        pending.Email,
		PasswordHash: pending.PasswordHash,
		Role:         user.RoleUser,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "User already exists")
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "could not create user", err)
	}

	s.metrics.UsersCreated.Inc()
	profile := u.Profile()
	return &profile, nil
}

// Login checks the password and emails a one-time code. It never creates a
// session; only VerifyOTP does. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, in LoginInput, clientIP string) error {
	key := ratelimit.Key{Action: ratelimit.ActionLogin, IP: clientIP, Email: in.Email}
	allowed, err := s.limiter.Allow(ctx, key)
	if err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "rate limit check failed", err)
	}
	if !allowed {
		s.metrics.RateLimited.Inc()
		return dErrors.New(dErrors.CodeRateLimited, "Too many requests! Try after 1 minute")
	}

	u, err := s.users.FindByEmail(ctx, in.Email)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeBadRequest, "Invalid credentials")
	}
	if err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "user lookup failed", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
		return dErrors.New(dErrors.CodeBadRequest, "Invalid credentials")
	}

	otp, err := s.challenges.CreateOTP(ctx, in.Email)
	if err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "could not create OTP", err)
	}

	body, err := mail.OTPHTML(in.Email, otp, int(s.challenges.OTPTTL().Minutes()))
	if err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "could not render OTP mail", err)
	}
	if err := s.mailer.Send(ctx, in.Email, mail.SubjectOTP, body); err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "Failed to send OTP email", err)
	}

	if err := s.limiter.Mark(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "failed to mark rate limit", "action", key.Action, "error", err)
	}
	s.metrics.OTPsSent.Inc()
	return nil
}

// VerifyOTP completes authentication. A correct code consumes the challenge
// and yields a session, both signed tokens and a CSRF token; a wrong code
// leaves the challenge in place for retry until it expires.
func (s *Service) VerifyOTP(ctx context.Context, in VerifyOTPInput) (*LoginResult, error) {
	u, err := s.users.FindByEmail(ctx, in.Email)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeBadRequest, "Invalid credentials")
	}
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "user lookup failed", err)
	}

	switch err := s.challenges.ConsumeOTP(ctx, in.Email, in.OTP); {
	case errors.Is(err, challenge.ErrMismatch):
		s.metrics.OTPFailures.Inc()
		return nil, dErrors.New(dErrors.CodeBadRequest, "Invalid OTP")
	case errors.Is(err, sentinel.ErrNotFound):
		s.metrics.OTPFailures.Inc()
		return nil, dErrors.New(dErrors.CodeBadRequest, "OTP expired")
	case err != nil:
		return nil, dErrors.Wrap(dErrors.CodeInternal, "could not consume OTP", err)
	}

	sessionID, err := s.sessions.Create(ctx, u.ID)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "could not create session", err)
	}

	access, err := s.tokens.IssueAccess(u.ID, sessionID)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "could not issue access token", err)
	}
	refresh, err := s.tokens.IssueRefresh(u.ID, sessionID)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "could not issue refresh token", err)
	}
	csrfToken, err := s.csrf.Generate(ctx, u.ID)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "could not issue CSRF token", err)
	}

	profile := u.Profile()
	if err := s.profiles.Set(ctx, profile); err != nil {
		// Cache only; the gateway falls back to the durable store.
		s.logger.WarnContext(ctx, "failed to cache profile", "user_id", u.ID, "error", err)
	}

	s.metrics.SessionsCreated.Inc()
	return &LoginResult{
		Profile:      profile,
		SessionID:    sessionID,
		AccessToken:  access,
		RefreshToken: refresh,
		CSRFToken:    csrfToken,
		LoginTime:    time.Now().UTC(),
	}, nil
}

// Refresh mints a new access token for a still-live session. The refresh
// token itself is not rotated. Any failure here means the client must log in
// again, so signature and liveness failures collapse into one outcome.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokens.VerifyKind(refreshToken, token.KindRefresh)
	if err != nil {
		return "", dErrors.New(dErrors.CodeSessionExpired, "Session expired. Please login again")
	}

	live, err := s.sessions.IsLive(ctx, claims.UserID, claims.SessionID)
	if err != nil {
		return "", dErrors.Wrap(dErrors.CodeInternal, "session check failed", err)
	}
	if !live {
		return "", dErrors.New(dErrors.CodeSessionExpired, "Session expired. Please login again")
	}

	access, err := s.tokens.IssueAccess(claims.UserID, claims.SessionID)
	if err != nil {
		return "", dErrors.Wrap(dErrors.CodeInternal, "could not issue access token", err)
	}
	return access, nil
}

// Logout revokes the session and CSRF token and drops the cached profile.
// Idempotent; logging out an already-dead session succeeds.
func (s *Service) Logout(ctx context.Context, userID, sessionID string) error {
	if err := s.sessions.Revoke(ctx, userID, sessionID); err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "could not revoke session", err)
	}
	if err := s.csrf.Revoke(ctx, userID); err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "could not revoke CSRF token", err)
	}
	if err := s.profiles.Invalidate(ctx, userID); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate cached profile", "user_id", userID, "error", err)
	}
	s.metrics.SessionsRevoked.Inc()
	return nil
}

// SessionInfo returns the live session's summary for /me.
func (s *Service) SessionInfo(ctx context.Context, userID, sessionID string) (*SessionSummary, error) {
	record, err := s.sessions.Get(ctx, userID, sessionID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeSessionExpired, "Session expired")
	}
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "session lookup failed", err)
	}
	return &SessionSummary{
		SessionID:    record.ID,
		LoginTime:    record.CreatedAt,
		LastActivity: record.LastActivity,
	}, nil
}

// RefreshCSRF rotates the user's CSRF token and returns the fresh value.
func (s *Service) RefreshCSRF(ctx context.Context, userID string) (string, error) {
	fresh, err := s.csrf.Refresh(ctx, userID)
	if err != nil {
		return "", dErrors.Wrap(dErrors.CodeInternal, "could not rotate CSRF token", err)
	}
	return fresh, nil
}
