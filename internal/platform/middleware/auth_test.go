package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"folio/internal/kv"
	"folio/internal/platform/cookies"
	"folio/internal/platform/metrics"
	"folio/internal/session"
	"folio/internal/token"
	"folio/internal/user"
	"folio/pkg/requestcontext"
	"folio/pkg/testutil"
)

type RequireAuthSuite struct {
	suite.Suite

	issuer   *token.Issuer
	sessions *session.Registry
	users    *user.MemoryStore
	handler  http.Handler

	// seen* capture what the inner handler observed.
	seenUserID    string
	seenSessionID string
	seenProfile   *user.Profile
	innerCalled   bool
}

func (s *RequireAuthSuite) SetupTest() {
	store := kv.NewMemory()
	s.issuer = token.NewIssuer("test-signing-key", "folio", 15*time.Minute, time.Hour)
	s.sessions = session.NewRegistry(store, time.Hour)
	s.users = user.NewMemory()
	s.innerCalled = false
	s.seenProfile = nil

	resolver := user.NewResolver(s.users, user.NewProfileCache(store, time.Hour))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gateway := RequireAuth(
		s.issuer,
		s.sessions,
		resolver,
		cookies.NewWriter(true, 15*time.Minute, time.Hour),
		metrics.New(prometheus.NewRegistry()),
		logger,
	)

	s.handler = gateway(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.innerCalled = true
		s.seenUserID = requestcontext.UserID(r.Context())
		s.seenSessionID = requestcontext.SessionID(r.Context())
		s.seenProfile = CurrentUser(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
}

// establish creates a user and a live session and returns a valid access
// token for the pair.
func (s *RequireAuthSuite) establish() (*user.User, string, string) {
	u := &user.User{
		ID: uuid.NewString(), Name: "Ann", Email: "ann@x.com",
		PasswordHash: "x", Role: user.RoleUser, CreatedAt: time.Now().UTC(),
	}
	require.NoError(s.T(), s.users.Create(context.Background(), u))

	sessionID, err := s.sessions.Create(context.Background(), u.ID)
	require.NoError(s.T(), err)

	access, err := s.issuer.IssueAccess(u.ID, sessionID)
	require.NoError(s.T(), err)
	return u, sessionID, access
}

func (s *RequireAuthSuite) request(accessToken string) *httptest.ResponseRecorder {
	req := testutil.NewRequest(s.T(), http.MethodGet, "/me")
	if accessToken != "" {
		req.AddCookie(&http.Cookie{Name: cookies.AccessToken, Value: accessToken})
	}
	return testutil.DoRequest(s.handler, req)
}

func (s *RequireAuthSuite) TestNoCookie() {
	rr := s.request("")
	assert.Equal(s.T(), http.StatusUnauthorized, rr.Code)
	assert.False(s.T(), s.innerCalled)
}

func (s *RequireAuthSuite) TestGarbageToken() {
	rr := s.request("not-a-jwt")
	assert.Equal(s.T(), http.StatusForbidden, rr.Code)
	assert.Contains(s.T(), rr.Body.String(), "token_invalid")
}

func (s *RequireAuthSuite) TestExpiredTokenIsDistinct() {
	u, sessionID, _ := s.establish()

	expiredIssuer := token.NewIssuer("test-signing-key", "folio", -time.Minute, time.Hour)
	expired, err := expiredIssuer.IssueAccess(u.ID, sessionID)
	require.NoError(s.T(), err)

	rr := s.request(expired)
	assert.Equal(s.T(), http.StatusUnauthorized, rr.Code)
	assert.Contains(s.T(), rr.Body.String(), "token_expired",
		"client must be able to tell expiry from tampering to trigger refresh")
	assert.False(s.T(), s.innerCalled)
}

func (s *RequireAuthSuite) TestRefreshTokenRejectedAsAccess() {
	u, sessionID, _ := s.establish()
	refresh, err := s.issuer.IssueRefresh(u.ID, sessionID)
	require.NoError(s.T(), err)

	rr := s.request(refresh)
	assert.Equal(s.T(), http.StatusForbidden, rr.Code)
	assert.Contains(s.T(), rr.Body.String(), "token_invalid")
}

func (s *RequireAuthSuite) TestRevokedSessionClearsCookies() {
	u, sessionID, access := s.establish()
	require.NoError(s.T(), s.sessions.Revoke(context.Background(), u.ID, sessionID))

	rr := s.request(access)
	assert.Equal(s.T(), http.StatusUnauthorized, rr.Code)
	assert.Contains(s.T(), rr.Body.String(), "session_expired")
	assert.False(s.T(), s.innerCalled)

	for _, name := range []string{cookies.AccessToken, cookies.RefreshToken, cookies.CSRFToken} {
		cleared := testutil.CookieByName(rr, name)
		require.NotNil(s.T(), cleared, name)
		assert.Less(s.T(), cleared.MaxAge, 0, "%s must be expired", name)
	}
}

func (s *RequireAuthSuite) TestUnknownUser() {
	// A live session naming a user the store has never seen.
	ghostID := uuid.NewString()
	ghostSession, err := s.sessions.Create(context.Background(), ghostID)
	require.NoError(s.T(), err)
	access, err := s.issuer.IssueAccess(ghostID, ghostSession)
	require.NoError(s.T(), err)

	rr := s.request(access)
	assert.Equal(s.T(), http.StatusBadRequest, rr.Code)
	assert.False(s.T(), s.innerCalled)
}

func (s *RequireAuthSuite) TestHappyPathInjectsIdentity() {
	u, sessionID, access := s.establish()

	rr := s.request(access)
	require.Equal(s.T(), http.StatusOK, rr.Code, rr.Body.String())
	assert.True(s.T(), s.innerCalled)
	assert.Equal(s.T(), u.ID, s.seenUserID)
	assert.Equal(s.T(), sessionID, s.seenSessionID)
	require.NotNil(s.T(), s.seenProfile)
	assert.Equal(s.T(), u.Email, s.seenProfile.Email)
	assert.Empty(s.T(), rr.Result().Cookies(), "happy path must not touch cookies")
}

func TestRequireAuthSuite(t *testing.T) {
	suite.Run(t, new(RequireAuthSuite))
}

func TestRequireAdmin(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var called bool
	handler := RequireAdmin(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("missing profile", func(t *testing.T) {
		called = false
		rr := testutil.DoRequest(handler, testutil.NewRequest(t, http.MethodGet, "/admin"))
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.False(t, called)
	})

	t.Run("non-admin", func(t *testing.T) {
		called = false
		req := testutil.NewRequest(t, http.MethodGet, "/admin")
		ctx := WithCurrentUser(req.Context(), &user.Profile{ID: "u1", Role: user.RoleUser})
		rr := testutil.DoRequest(handler, req.WithContext(ctx))
		assert.Equal(t, http.StatusForbidden, rr.Code)
		assert.False(t, called)
	})

	t.Run("admin", func(t *testing.T) {
		called = false
		req := testutil.NewRequest(t, http.MethodGet, "/admin")
		ctx := WithCurrentUser(req.Context(), &user.Profile{ID: "u1", Role: user.RoleAdmin})
		rr := testutil.DoRequest(handler, req.WithContext(ctx))
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.True(t, called)
	})
}
