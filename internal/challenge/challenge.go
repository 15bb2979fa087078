// Package challenge manages the two short-lived one-time secrets gating state
// transitions: email-verification tokens for registration and numeric OTPs
// for login.
//
// Both kinds share one mechanism: a secret stored under a lookup key with a
// short TTL, consumed exactly once via the store's atomic fetch-and-delete.
// A replayed consumption attempt sees "expired", never "already used
// differently".
package challenge

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"folio/internal/kv"
	"folio/pkg/platform/sentinel"
)

const (
	registrationKeyPrefix = "verify:"
	otpKeyPrefix          = "otp:"
)

// ErrMismatch is returned when a submitted OTP differs from the stored one.
// The stored entry is left in place: a wrong guess may be retried until the
// TTL runs out.
var ErrMismatch = errors.New("otp mismatch")

// PendingRegistration is the unconfirmed signup parked behind a verification
// token. The password is already hashed before it enters the store.
type PendingRegistration struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash"`
}

// Store issues and consumes both challenge kinds against the ephemeral store.
type Store struct {
	kv              kv.Store
	registrationTTL time.Duration
	otpTTL          time.Duration
}

// NewStore creates a challenge store. Both TTLs are short (minutes).
func NewStore(kvStore kv.Store, registrationTTL, otpTTL time.Duration) *Store {
	return &Store{kv: kvStore, registrationTTL: registrationTTL, otpTTL: otpTTL}
}

// RegistrationTTL returns the verification-link lifetime, for user-facing
// messages.
func (s *Store) RegistrationTTL() time.Duration { return s.registrationTTL }

// OTPTTL returns the OTP lifetime, for user-facing messages.
func (s *Store) OTPTTL() time.Duration { return s.otpTTL }

// CreateRegistration parks a pending signup under a fresh verification token
// and returns the token for inclusion in the emailed link.
func (s *Store) CreateRegistration(ctx context.Context, pending PendingRegistration) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate verification token: %w", err)
	}
	token := hex.EncodeToString(buf)

	payload, err := json.Marshal(pending)
	if err != nil {
		return "", fmt.Errorf("marshal pending registration: %w", err)
	}

	if err := s.kv.Set(ctx, registrationKeyPrefix+token, string(payload), s.registrationTTL); err != nil {
		return "", err
	}
	return token, nil
}

// ConsumeRegistration atomically fetches and deletes the pending signup for
// the token. Returns sentinel.ErrNotFound when the token is unknown, already
// consumed, or expired — indistinguishable by design.
func (s *Store) ConsumeRegistration(ctx context.Context, token string) (*PendingRegistration, error) {
	payload, err := s.kv.GetDel(ctx, registrationKeyPrefix+token)
	if err != nil {
		return nil, err
	}

	var pending PendingRegistration
	if err := json.Unmarshal([]byte(payload), &pending); err != nil {
		return nil, fmt.Errorf("unmarshal pending registration: %w", err)
	}
	return &pending, nil
}

// CreateOTP generates a 6-digit code for the email and stores it, replacing
// any outstanding code for the same address.
func (s *Store) CreateOTP(ctx context.Context, email string) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	otp := fmt.Sprintf("%06d", n.Int64()+100000)

	if err := s.kv.Set(ctx, otpKeyPrefix+email, otp, s.otpTTL); err != nil {
		return "", err
	}
	return otp, nil
}

// ConsumeOTP checks a submitted code. A correct submission consumes the
// stored entry; a wrong one returns ErrMismatch and leaves it in place.
// Returns sentinel.ErrNotFound when no code is outstanding (or it expired).
//
// Consumption is two-phase: compare against a plain read first, then claim
// the entry with fetch-and-delete. Two concurrent correct submissions race
// on the claim and exactly one wins; the loser sees ErrNotFound.
func (s *Store) ConsumeOTP(ctx context.Context, email, otp string) error {
	key := otpKeyPrefix + email

	stored, err := s.kv.Get(ctx, key)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(otp)) != 1 {
		return ErrMismatch
	}

	claimed, err := s.kv.GetDel(ctx, key)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(claimed), []byte(otp)) != 1 {
		// A newer code landed between read and claim. Put it back and treat
		// this submission as a lost race.
		_ = s.kv.Set(ctx, key, claimed, s.otpTTL)
		return sentinel.ErrNotFound
	}
	return nil
}
