package commands

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/vaultsandbox/trustcore"
	"github.com/vaultsandbox/trustcore/internal/config"
	"github.com/vaultsandbox/trustcore/internal/observability/logger"
)

// closer releases backend connections opened for one invocation.
type closer []func()

func (c closer) Close() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

// openTrust builds a Trust from the loaded configuration. The caller must
// call Close on the returned closer.
func (a *app) openTrust(ctx context.Context, extra ...trustcore.Option) (*trustcore.Trust, closer, error) {
	var cl closer
	opts := a.baseOptions()

	switch a.cfg.CA.Store {
	case config.StoreMemory:
		opts = append(opts, trustcore.WithRootStore(trustcore.NewMemoryRootStore()))
	default:
		opts = append(opts, trustcore.WithRootStore(trustcore.NewFileRootStore(a.cfg.CA.Dir, a.cfg.Passphrase())))
	}

	revocations, err := a.openRevocations(ctx, &cl)
	if err != nil {
		cl.Close()
		return nil, nil, err
	}
	opts = append(opts, trustcore.WithRevocationList(revocations))

	challenges, err := a.openChallenges(ctx, &cl)
	if err != nil {
		cl.Close()
		return nil, nil, err
	}
	opts = append(opts, trustcore.WithChallengeStore(challenges))

	trust, err := trustcore.New(ctx, append(opts, extra...)...)
	if err != nil {
		cl.Close()
		return nil, nil, err
	}
	return trust, cl, nil
}

func (a *app) baseOptions() []trustcore.Option {
	c := a.cfg
	return []trustcore.Option{
		trustcore.WithLogger(a.log),
		trustcore.WithCAName(c.CA.CommonName, c.CA.Organization),
		trustcore.WithRootValidity(c.CA.RootValidity),
		trustcore.WithLeafValidity(c.CA.LeafValidity),
		trustcore.WithKeyBits(c.CA.KeyBits),
		trustcore.WithKeyGenWorkers(c.KeyGen.Workers),
		trustcore.WithChallengeTTL(c.Challenge.TTL),
	}
}

func (a *app) openRevocations(ctx context.Context, cl *closer) (trustcore.RevocationList, error) {
	c := a.cfg.Revocation
	switch c.Store {
	case config.StoreRedis:
		client, err := dialRedis(ctx, c.Redis, cl)
		if err != nil {
			return nil, err
		}
		return trustcore.NewRedisRevocationList(client), nil
	case config.StorePostgres:
		pool, err := pgxpool.New(ctx, c.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		*cl = append(*cl, pool.Close)
		list := trustcore.NewPostgresRevocationList(pool)
		if c.Postgres.EnsureSchema {
			if err := list.EnsureSchema(ctx); err != nil {
				return nil, err
			}
		}
		return list, nil
	default:
		a.log.Debug("using in-memory revocation list", logger.Component("trustctl"))
		return trustcore.NewMemoryRevocationList(), nil
	}
}

func (a *app) openChallenges(ctx context.Context, cl *closer) (trustcore.ChallengeStore, error) {
	c := a.cfg.Challenge
	if c.Store == config.StoreRedis {
		client, err := dialRedis(ctx, c.Redis, cl)
		if err != nil {
			return nil, err
		}
		return trustcore.NewRedisChallengeStore(client, c.Redis.Prefix, c.Retention), nil
	}
	return trustcore.NewMemoryChallengeStore(c.Retention), nil
}

func dialRedis(ctx context.Context, c config.Redis, cl *closer) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
	})
	*cl = append(*cl, func() { _ = client.Close() })
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect redis %s: %w", c.Addr, err)
	}
	return client, nil
}
