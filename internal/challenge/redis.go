package challenge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	rdb "github.com/redis/go-redis/v9"

	"github.com/vaultsandbox/trustcore/internal/trusterrors"
)

// DefaultRedisPrefix namespaces challenge keys.
const DefaultRedisPrefix = "trustcore:challenge:"

// RedisStore shares challenges between processes. Each challenge is a JSON
// value; consumption is a separate marker key claimed with SETNX, so only one
// redeemer wins and later attempts still find the challenge and report it
// as consumed.
type RedisStore struct {
	c         rdb.UniversalClient
	prefix    string
	retention time.Duration
}

// NewRedisStore wraps an existing client. An empty prefix selects
// DefaultRedisPrefix.
func NewRedisStore(c rdb.UniversalClient, prefix string, retention time.Duration) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &RedisStore{c: c, prefix: prefix, retention: retention}
}

func (r *RedisStore) key(nonce []byte) string {
	return r.prefix + storeKey(nonce)
}

func (r *RedisStore) Put(ctx context.Context, c *Challenge) error {
	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode challenge: %w", err)
	}
	ok, err := r.c.SetNX(ctx, r.key(c.Nonce), b, keepFor(c, r.retention)).Result()
	if err != nil {
		return fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return fmt.Errorf("store challenge %s: nonce already present", c.ID)
	}
	return nil
}

func (r *RedisStore) Take(ctx context.Context, nonce []byte) (*Challenge, error) {
	key := r.key(nonce)
	b, err := r.c.Get(ctx, key).Bytes()
	if errors.Is(err, rdb.Nil) {
		return nil, trusterrors.NewChallengeError("", "not found", trusterrors.ErrChallengeNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var c Challenge
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("decode challenge: %w", err)
	}

	won, err := r.c.SetNX(ctx, key+":used", 1, keepFor(&c, r.retention)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis setnx: %w", err)
	}
	if !won {
		return nil, trusterrors.NewChallengeError(c.ID, "already consumed", trusterrors.ErrChallengeAlreadyConsumed)
	}
	return &c, nil
}
