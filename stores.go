package trustcore

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/vaultsandbox/trustcore/internal/ca"
	"github.com/vaultsandbox/trustcore/internal/challenge"
	"github.com/vaultsandbox/trustcore/internal/directory"
	"github.com/vaultsandbox/trustcore/internal/revocation"
)

// RootStore persists the CA root key and certificate.
type RootStore = ca.RootStore

// RevocationList is the append-only set of revoked serials.
type RevocationList = revocation.List

// ChallengeStore holds issued challenges and consumes each one at most once.
type ChallengeStore = challenge.Store

// Directory maps usernames to their current certificate.
type Directory = directory.Directory

// Backend implementations.
type (
	MemoryRootStore        = ca.MemoryRootStore
	FileRootStore          = ca.FileRootStore
	MemoryRevocationList   = revocation.MemoryList
	RedisRevocationList    = revocation.RedisList
	PostgresRevocationList = revocation.PostgresList
	MemoryChallengeStore   = challenge.MemoryStore
	RedisChallengeStore    = challenge.RedisStore
	MemoryDirectory        = directory.Memory
)

// NewMemoryRootStore returns an ephemeral root store.
func NewMemoryRootStore() *MemoryRootStore {
	return ca.NewMemoryRootStore()
}

// NewFileRootStore keeps the root in dir as ca.crt and ca.key. A non-empty
// passphrase encrypts the key file with Argon2id and AES-256-GCM.
func NewFileRootStore(dir string, passphrase []byte) *FileRootStore {
	if len(passphrase) == 0 {
		return ca.NewFileRootStore(dir)
	}
	return ca.NewFileRootStore(dir, ca.WithPassphrase(passphrase))
}

// NewMemoryRevocationList returns an in-process revocation list.
func NewMemoryRevocationList() *MemoryRevocationList {
	return revocation.NewMemoryList()
}

// NewRedisRevocationList stores revocations in a Redis hash.
func NewRedisRevocationList(client redis.UniversalClient) *RedisRevocationList {
	return revocation.NewRedisList(client, "")
}

// NewPostgresRevocationList stores revocations in the trustcore_revocations table.
func NewPostgresRevocationList(pool *pgxpool.Pool) *PostgresRevocationList {
	return revocation.NewPostgresList(pool)
}

// OpenPostgresRevocationList connects to dsn and creates the table if missing.
func OpenPostgresRevocationList(ctx context.Context, dsn string) (*PostgresRevocationList, error) {
	return revocation.OpenPostgresList(ctx, dsn)
}

// NewMemoryChallengeStore keeps consumed challenges for retention after
// their expiry so replays report ErrChallengeAlreadyConsumed.
func NewMemoryChallengeStore(retention time.Duration) *MemoryChallengeStore {
	return challenge.NewMemoryStore(retention)
}

// NewRedisChallengeStore shares challenges between processes. Keys are
// namespaced by prefix; an empty prefix selects "trustcore:challenge:".
func NewRedisChallengeStore(client redis.UniversalClient, prefix string, retention time.Duration) *RedisChallengeStore {
	return challenge.NewRedisStore(client, prefix, retention)
}

// NewMemoryDirectory returns an in-process directory.
func NewMemoryDirectory() *MemoryDirectory {
	return directory.NewMemory()
}
