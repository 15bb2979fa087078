package token

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIssuer() *Issuer {
	return NewIssuer("test-signing-key", "folio", 15*time.Minute, 7*24*time.Hour)
}

func TestAccessRoundTrip(t *testing.T) {
	issuer := newTestIssuer()

	signed, err := issuer.IssueAccess("user-1", "sess-1")
	require.NoError(t, err)

	claims, err := issuer.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "sess-1", claims.SessionID)
	assert.Equal(t, KindAccess, claims.Kind)
	assert.NotEmpty(t, claims.ID, "jti must be set")
}

func TestRefreshRoundTrip(t *testing.T) {
	issuer := newTestIssuer()

	signed, err := issuer.IssueRefresh("user-1", "sess-1")
	require.NoError(t, err)

	claims, err := issuer.VerifyKind(signed, KindRefresh)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "sess-1", claims.SessionID)
}

func TestExpiredTokenIsExpiredNotInvalid(t *testing.T) {
	issuer := NewIssuer("test-signing-key", "folio", -time.Second, 7*24*time.Hour)

	signed, err := issuer.IssueAccess("user-1", "sess-1")
	require.NoError(t, err)

	_, err = issuer.Verify(signed)
	assert.ErrorIs(t, err, ErrExpired)
	assert.NotErrorIs(t, err, ErrInvalid)
}

func TestTamperedTokenIsInvalid(t *testing.T) {
	issuer := newTestIssuer()

	signed, err := issuer.IssueAccess("user-1", "sess-1")
	require.NoError(t, err)

	parts := strings.Split(signed, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + ".AAAA" + parts[2][4:]

	_, err = issuer.Verify(tampered)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestWrongKeyIsInvalid(t *testing.T) {
	issuer := newTestIssuer()
	other := NewIssuer("other-key", "folio", 15*time.Minute, 7*24*time.Hour)

	signed, err := issuer.IssueAccess("user-1", "sess-1")
	require.NoError(t, err)

	_, err = other.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestGarbageIsInvalid(t *testing.T) {
	issuer := newTestIssuer()

	_, err := issuer.Verify("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestKindMismatchIsInvalid(t *testing.T) {
	issuer := newTestIssuer()

	access, err := issuer.IssueAccess("user-1", "sess-1")
	require.NoError(t, err)

	_, err = issuer.VerifyKind(access, KindRefresh)
	assert.ErrorIs(t, err, ErrInvalid)
}
