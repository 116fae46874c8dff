//go:build integration

package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultsandbox/trustcore"
)

var (
	redisAddr   string
	postgresDSN string
)

func TestMain(m *testing.M) {
	// Load .env file if it exists (won't error if missing)
	if err := godotenv.Load("../.env"); err != nil {
		os.Stderr.WriteString("Note: .env file not found at project root\n")
	}

	redisAddr = os.Getenv("TRUSTCORE_TEST_REDIS_ADDR")
	postgresDSN = os.Getenv("TRUSTCORE_TEST_POSTGRES_DSN")

	if redisAddr == "" || postgresDSN == "" {
		os.Stderr.WriteString("Skipping integration tests: TRUSTCORE_TEST_REDIS_ADDR and TRUSTCORE_TEST_POSTGRES_DSN must be set\n")
		os.Exit(0)
	}

	os.Exit(m.Run())
}

// newTrust builds a Trust whose CA root lives in dir and whose challenges
// and revocations are shared through Redis and Postgres.
func newTrust(t *testing.T, ctx context.Context, dir string) *trustcore.Trust {
	t.Helper()

	rc := redis.NewClient(&redis.Options{Addr: redisAddr})
	t.Cleanup(func() { _ = rc.Close() })
	require.NoError(t, rc.Ping(ctx).Err())

	revocations, err := trustcore.OpenPostgresRevocationList(ctx, postgresDSN)
	require.NoError(t, err)
	t.Cleanup(revocations.Close)

	trust, err := trustcore.New(ctx,
		trustcore.WithRootStore(trustcore.NewFileRootStore(dir, []byte("integration"))),
		trustcore.WithRevocationList(revocations),
		trustcore.WithChallengeStore(trustcore.NewRedisChallengeStore(rc, "trustcore:it:", time.Minute)),
	)
	require.NoError(t, err)
	return trust
}

func TestIntegration_RevocationIsSharedAcrossInstances(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	dir := t.TempDir()
	a := newTrust(t, ctx, dir)
	b := newTrust(t, ctx, dir)
	assert.Equal(t, a.TrustAnchorPEM(), b.TrustAnchorPEM())

	enr, err := a.Enroll(ctx, trustcore.Identity{Username: "it-user"})
	require.NoError(t, err)

	v := b.VerifyCertificate(ctx, enr.Certificate)
	require.Equal(t, trustcore.StatusActive, v.Status)

	require.NoError(t, a.Revoke(ctx, trustcore.SerialString(enr.Certificate), trustcore.ReasonSuperseded))

	v = b.VerifyCertificate(ctx, enr.Certificate)
	assert.Equal(t, trustcore.StatusRevoked, v.Status)
	assert.ErrorIs(t, v.Err(), trustcore.ErrCertificateRevoked)
}

func TestIntegration_ChallengeRedeemedOnce(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	dir := t.TempDir()
	a := newTrust(t, ctx, dir)

	enr, err := a.Enroll(ctx, trustcore.Identity{Username: "it-login"})
	require.NoError(t, err)

	ch, err := a.IssueChallenge(ctx)
	require.NoError(t, err)
	sig, err := a.Sign(enr.KeyPair.PrivateKey, ch.Nonce.Bytes())
	require.NoError(t, err)

	res, err := a.Authenticate(ctx, "it-login", ch.Nonce, sig)
	require.NoError(t, err)
	assert.Equal(t, "it-login", res.Username)

	_, err = a.Authenticate(ctx, "it-login", ch.Nonce, sig)
	assert.ErrorIs(t, err, trustcore.ErrChallengeAlreadyConsumed)
}
