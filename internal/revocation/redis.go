package revocation

import (
	"context"
	"encoding/json"
	"fmt"

	rdb "github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the hash holding revocation entries.
const DefaultRedisKey = "trustcore:revocations"

// RedisList stores entries as JSON values of a single Redis hash keyed by
// serial. HSETNX keeps the first entry for a serial.
type RedisList struct {
	c   rdb.UniversalClient
	key string
}

// NewRedisList wraps an existing client. An empty key selects DefaultRedisKey.
func NewRedisList(c rdb.UniversalClient, key string) *RedisList {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisList{c: c, key: key}
}

func (r *RedisList) Add(ctx context.Context, e Entry) (bool, error) {
	e.Serial = NormalizeSerial(e.Serial)
	b, err := json.Marshal(e)
	if err != nil {
		return false, fmt.Errorf("encode revocation entry: %w", err)
	}
	added, err := r.c.HSetNX(ctx, r.key, e.Serial, b).Result()
	if err != nil {
		return false, fmt.Errorf("redis hsetnx: %w", err)
	}
	return added, nil
}

func (r *RedisList) Lookup(ctx context.Context, serial string) (*Entry, bool, error) {
	b, err := r.c.HGet(ctx, r.key, NormalizeSerial(serial)).Bytes()
	if err == rdb.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis hget: %w", err)
	}
	var e Entry
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, false, fmt.Errorf("decode revocation entry: %w", err)
	}
	return &e, true, nil
}

func (r *RedisList) Entries(ctx context.Context) ([]Entry, error) {
	all, err := r.c.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}
	out := make([]Entry, 0, len(all))
	for serial, raw := range all {
		var e Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("decode revocation entry %s: %w", serial, err)
		}
		out = append(out, e)
	}
	sortEntries(out)
	return out, nil
}
