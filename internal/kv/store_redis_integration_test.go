//go:build integration

package kv_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"folio/internal/kv"
	"folio/pkg/platform/sentinel"
	"folio/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *kv.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = kv.NewRedis(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	s.Require().NoError(s.store.Set(ctx, "csrf:u1", "tok", time.Hour))

	val, err := s.store.Get(ctx, "csrf:u1")
	s.Require().NoError(err)
	s.Equal("tok", val)

	s.Require().NoError(s.store.Delete(ctx, "csrf:u1"))
	_, err = s.store.Get(ctx, "csrf:u1")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestTTLExpiry() {
	ctx := context.Background()
	s.Require().NoError(s.store.Set(ctx, "otp:a@x.com", "123456", time.Second))

	time.Sleep(1500 * time.Millisecond)

	_, err := s.store.Get(ctx, "otp:a@x.com")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// TestGetDelSingleWinner verifies that concurrent challenge consumption has
// exactly one winner under real Redis.
func (s *RedisStoreSuite) TestGetDelSingleWinner() {
	ctx := context.Background()
	s.Require().NoError(s.store.Set(ctx, "verify:t", "payload", time.Minute))

	const goroutines = 20
	var wg sync.WaitGroup
	var hits, misses, others atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.GetDel(ctx, "verify:t")
			switch {
			case err == nil:
				hits.Add(1)
			case errors.Is(err, sentinel.ErrNotFound):
				misses.Add(1)
			default:
				others.Add(1)
			}
		}()
	}
	wg.Wait()

	s.EqualValues(1, hits.Load())
	s.EqualValues(goroutines-1, misses.Load())
	s.EqualValues(0, others.Load())
}
