package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"folio/internal/kv"
	"folio/pkg/platform/sentinel"
)

type RegistrySuite struct {
	suite.Suite
	store    *kv.MemoryStore
	registry *Registry
	clock    time.Time
}

func (s *RegistrySuite) SetupTest() {
	s.store = kv.NewMemory()
	s.clock = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.store.SetClock(func() time.Time { return s.clock })
	s.registry = NewRegistry(s.store, 7*24*time.Hour)
}

func (s *RegistrySuite) TestCreateAndIsLive() {
	ctx := context.Background()

	sessionID, err := s.registry.Create(ctx, "user-1")
	require.NoError(s.T(), err)
	assert.Len(s.T(), sessionID, 64, "session id is 32 random bytes hex-encoded")

	live, err := s.registry.IsLive(ctx, "user-1", sessionID)
	require.NoError(s.T(), err)
	assert.True(s.T(), live)
}

func (s *RegistrySuite) TestIsLiveWrongUser() {
	ctx := context.Background()

	sessionID, err := s.registry.Create(ctx, "user-1")
	require.NoError(s.T(), err)

	live, err := s.registry.IsLive(ctx, "user-2", sessionID)
	require.NoError(s.T(), err)
	assert.False(s.T(), live)
}

func (s *RegistrySuite) TestRevokeKillsSessionImmediately() {
	ctx := context.Background()

	sessionID, err := s.registry.Create(ctx, "user-1")
	require.NoError(s.T(), err)

	require.NoError(s.T(), s.registry.Revoke(ctx, "user-1", sessionID))

	live, err := s.registry.IsLive(ctx, "user-1", sessionID)
	require.NoError(s.T(), err)
	assert.False(s.T(), live)
}

func (s *RegistrySuite) TestRevokeIsIdempotent() {
	ctx := context.Background()

	sessionID, err := s.registry.Create(ctx, "user-1")
	require.NoError(s.T(), err)

	require.NoError(s.T(), s.registry.Revoke(ctx, "user-1", sessionID))
	require.NoError(s.T(), s.registry.Revoke(ctx, "user-1", sessionID))
}

func (s *RegistrySuite) TestSessionDiesOnFixedClock() {
	ctx := context.Background()

	sessionID, err := s.registry.Create(ctx, "user-1")
	require.NoError(s.T(), err)

	s.clock = s.clock.Add(7*24*time.Hour + time.Minute)

	live, err := s.registry.IsLive(ctx, "user-1", sessionID)
	require.NoError(s.T(), err)
	assert.False(s.T(), live)

	_, err = s.registry.Get(ctx, "user-1", sessionID)
	assert.ErrorIs(s.T(), err, sentinel.ErrNotFound)
}

func (s *RegistrySuite) TestGetReturnsRecordFields() {
	ctx := context.Background()

	sessionID, err := s.registry.Create(ctx, "user-1")
	require.NoError(s.T(), err)

	record, err := s.registry.Get(ctx, "user-1", sessionID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), sessionID, record.ID)
	assert.Equal(s.T(), "user-1", record.UserID)
	assert.False(s.T(), record.CreatedAt.IsZero())
	assert.False(s.T(), record.LastActivity.IsZero())
}

func (s *RegistrySuite) TestSessionIDsAreUnique() {
	ctx := context.Background()

	first, err := s.registry.Create(ctx, "user-1")
	require.NoError(s.T(), err)
	second, err := s.registry.Create(ctx, "user-1")
	require.NoError(s.T(), err)

	assert.NotEqual(s.T(), first, second)
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}
