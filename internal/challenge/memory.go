package challenge

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/vaultsandbox/trustcore/internal/trusterrors"
)

type memEntry struct {
	challenge *Challenge
	consumed  atomic.Bool
}

// MemoryStore holds challenges in process. Consumed challenges stay behind
// as tombstones until the go-cache janitor sweeps them after the retention
// window.
type MemoryStore struct {
	c         *gocache.Cache
	retention time.Duration
}

// NewMemoryStore returns a store that forgets challenges retention after
// their expiry.
func NewMemoryStore(retention time.Duration) *MemoryStore {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &MemoryStore{
		c:         gocache.New(retention, time.Minute),
		retention: retention,
	}
}

func (m *MemoryStore) Put(_ context.Context, c *Challenge) error {
	key := storeKey(c.Nonce)
	if err := m.c.Add(key, &memEntry{challenge: c}, keepFor(c, m.retention)); err != nil {
		return fmt.Errorf("store challenge %s: %w", c.ID, err)
	}
	return nil
}

func (m *MemoryStore) Take(_ context.Context, nonce []byte) (*Challenge, error) {
	v, ok := m.c.Get(storeKey(nonce))
	if !ok {
		return nil, trusterrors.NewChallengeError("", "not found", trusterrors.ErrChallengeNotFound)
	}
	e := v.(*memEntry)
	if !e.consumed.CompareAndSwap(false, true) {
		return nil, trusterrors.NewChallengeError(e.challenge.ID, "already consumed", trusterrors.ErrChallengeAlreadyConsumed)
	}
	return e.challenge, nil
}

// Len returns the number of challenges and tombstones currently held.
func (m *MemoryStore) Len() int {
	return m.c.ItemCount()
}
