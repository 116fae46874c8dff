package ca

import (
	"context"
	"crypto/rsa"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vaultsandbox/trustcore/internal/crypto"
	"github.com/vaultsandbox/trustcore/internal/revocation"
)

var (
	keyOnce sync.Once
	keyPool []*rsa.PrivateKey
	keyErr  error
)

// testKeys returns a few pre-generated 2048-bit keys.
func testKeys(t *testing.T) []*rsa.PrivateKey {
	t.Helper()
	keyOnce.Do(func() {
		for i := 0; i < 4; i++ {
			k, err := crypto.GenerateRSA(crypto.DefaultRSABits)
			if err != nil {
				keyErr = err
				return
			}
			keyPool = append(keyPool, k)
		}
	})
	require.NoError(t, keyErr)
	return keyPool
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func fixedKey(k *rsa.PrivateKey) KeySource {
	return func(context.Context) (*rsa.PrivateKey, error) { return k, nil }
}

// newTestAuthority returns an initialized authority on memory stores whose
// root key is keys[0].
func newTestAuthority(t *testing.T, opts ...Option) (*Authority, *testClock, *revocation.MemoryList) {
	t.Helper()
	clock := newTestClock()
	revs := revocation.NewMemoryList()
	base := []Option{WithClock(clock.Now), WithKeySource(fixedKey(testKeys(t)[0]))}
	a := New(NewMemoryRootStore(), revs, append(base, opts...)...)
	require.NoError(t, a.Initialize(context.Background()))
	return a, clock, revs
}
