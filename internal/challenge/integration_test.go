//go:build integration

package challenge

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultsandbox/trustcore/internal/trusterrors"
)

func newRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	addr := os.Getenv("TRUSTCORE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TRUSTCORE_TEST_REDIS_ADDR not set")
	}
	c := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = c.Close() })
	return NewRedisStore(c, "trustcore:test:"+uuid.NewString()+":", time.Minute)
}

func TestRedisStore_TakeOnce(t *testing.T) {
	ctx := context.Background()
	s := newRedisStore(t)
	c := newChallenge(t, "r-1")
	require.NoError(t, s.Put(ctx, c))

	got, err := s.Take(ctx, c.Nonce)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	assert.True(t, got.ExpiresAt.Equal(c.ExpiresAt))

	_, err = s.Take(ctx, c.Nonce)
	assert.ErrorIs(t, err, trusterrors.ErrChallengeAlreadyConsumed)

	_, err = s.Take(ctx, make([]byte, NonceSize))
	assert.ErrorIs(t, err, trusterrors.ErrChallengeNotFound)
}

func TestRedisStore_ConcurrentTake(t *testing.T) {
	ctx := context.Background()
	s := newRedisStore(t)
	c := newChallenge(t, "r-2")
	require.NoError(t, s.Put(ctx, c))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Take(ctx, c.Nonce); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}
