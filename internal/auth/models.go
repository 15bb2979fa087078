package auth

import (
	"time"

	"folio/internal/user"
)

// RegisterInput is a validated registration submission. Validation happens at
// the transport boundary; the service assumes the fields are present.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// LoginInput is a validated password-login submission.
type LoginInput struct {
	Email    string
	Password string
}

// VerifyOTPInput is a validated OTP submission completing a login.
type VerifyOTPInput struct {
	Email string
	OTP   string
}

// LoginResult is everything the transport needs to establish the client's
// credential set after a successful OTP verification.
type LoginResult struct {
	Profile      user.Profile
	SessionID    string
	AccessToken  string
	RefreshToken string
	CSRFToken    string
	LoginTime    time.Time
}

// SessionSummary is the session view returned alongside the profile on /me.
type SessionSummary struct {
	SessionID    string    `json:"sessionId"`
	LoginTime    time.Time `json:"loginTime"`
	LastActivity time.Time `json:"lastActivity"`
}
