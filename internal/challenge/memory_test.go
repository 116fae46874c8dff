package challenge

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultsandbox/trustcore/internal/trusterrors"
)

func newChallenge(t *testing.T, id string) *Challenge {
	t.Helper()
	nonce := make([]byte, NonceSize)
	copy(nonce, id)
	now := time.Now()
	return &Challenge{ID: id, Nonce: nonce, IssuedAt: now, ExpiresAt: now.Add(DefaultTTL)}
}

func TestMemoryStore_TakeOnce(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	c := newChallenge(t, "c-1")
	require.NoError(t, s.Put(ctx, c))

	got, err := s.Take(ctx, c.Nonce)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)

	_, err = s.Take(ctx, c.Nonce)
	assert.ErrorIs(t, err, trusterrors.ErrChallengeAlreadyConsumed)

	var chErr *trusterrors.ChallengeError
	require.ErrorAs(t, err, &chErr)
	assert.Equal(t, "c-1", chErr.ID)

	// Tombstone is still held.
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStore_Unknown(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	_, err := s.Take(context.Background(), make([]byte, NonceSize))
	assert.ErrorIs(t, err, trusterrors.ErrChallengeNotFound)
}

func TestMemoryStore_PutDuplicateNonce(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Minute)
	c := newChallenge(t, "dup")
	require.NoError(t, s.Put(ctx, c))
	assert.Error(t, s.Put(ctx, c))
}

func TestMemoryStore_ForgetsAfterRetention(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Millisecond)
	c := newChallenge(t, "short")
	c.ExpiresAt = time.Now()
	require.NoError(t, s.Put(ctx, c))

	// keepFor never goes below one second.
	time.Sleep(1100 * time.Millisecond)
	_, err := s.Take(ctx, c.Nonce)
	assert.ErrorIs(t, err, trusterrors.ErrChallengeNotFound)
}

func TestMemoryStore_ConcurrentTake(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Minute)
	c := newChallenge(t, "race")
	require.NoError(t, s.Put(ctx, c))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Take(ctx, c.Nonce); err == nil {
				wins.Add(1)
			} else {
				assert.ErrorIs(t, err, trusterrors.ErrChallengeAlreadyConsumed)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, wins.Load())
}

func TestKeepFor(t *testing.T) {
	issued := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		lifetime  time.Duration
		retention time.Duration
		want      time.Duration
	}{
		{"lifetime plus retention", 2 * time.Minute, 5 * time.Minute, 7 * time.Minute},
		{"floor of one second", 0, time.Millisecond, time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Challenge{IssuedAt: issued, ExpiresAt: issued.Add(tt.lifetime)}
			assert.Equal(t, tt.want, keepFor(c, tt.retention))
		})
	}
}

func TestMemoryStore_LaggingClockKeepsTombstone(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Minute)
	c := newChallenge(t, "lag")
	c.IssuedAt = c.IssuedAt.Add(-time.Hour)
	c.ExpiresAt = c.IssuedAt.Add(DefaultTTL)
	require.NoError(t, s.Put(ctx, c))

	_, err := s.Take(ctx, c.Nonce)
	require.NoError(t, err)

	time.Sleep(1100 * time.Millisecond)
	_, err = s.Take(ctx, c.Nonce)
	assert.ErrorIs(t, err, trusterrors.ErrChallengeAlreadyConsumed)
}
