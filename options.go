package trustcore

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/vaultsandbox/trustcore/internal/ca"
	"github.com/vaultsandbox/trustcore/internal/challenge"
	"github.com/vaultsandbox/trustcore/internal/crypto"
)

// trustConfig holds configuration for New.
type trustConfig struct {
	rootStore   RootStore
	revocations RevocationList
	challenges  ChallengeStore
	directory   Directory
	now         func() time.Time

	leafValidity time.Duration
	rootValidity time.Duration
	challengeTTL time.Duration

	caCommonName   string
	caOrganization string

	keyBits       int
	keyGenWorkers int

	log        *zap.Logger
	registerer prometheus.Registerer
}

func defaultConfig() *trustConfig {
	return &trustConfig{
		now:          time.Now,
		leafValidity: ca.DefaultLeafValidity,
		rootValidity: ca.DefaultRootValidity,
		challengeTTL: challenge.DefaultTTL,
		caCommonName: ca.DefaultCommonName,
		keyBits:      crypto.DefaultRSABits,
		log:          zap.NewNop(),
	}
}

// Option configures a Trust.
type Option func(*trustConfig)

// WithRootStore sets where the CA root key and certificate live.
// The default is an ephemeral in-memory store.
func WithRootStore(s RootStore) Option {
	return func(c *trustConfig) {
		c.rootStore = s
	}
}

// WithRevocationList sets the revocation backend. The default is in-memory.
func WithRevocationList(l RevocationList) Option {
	return func(c *trustConfig) {
		c.revocations = l
	}
}

// WithChallengeStore sets the challenge backend. The default is in-memory.
func WithChallengeStore(s ChallengeStore) Option {
	return func(c *trustConfig) {
		c.challenges = s
	}
}

// WithDirectory sets the username to certificate directory. The default is
// in-memory.
func WithDirectory(d Directory) Option {
	return func(c *trustConfig) {
		c.directory = d
	}
}

// WithClock overrides the time source for issuance, verification and
// challenge expiry.
func WithClock(now func() time.Time) Option {
	return func(c *trustConfig) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLeafValidity sets the lifetime of issued certificates.
func WithLeafValidity(d time.Duration) Option {
	return func(c *trustConfig) {
		c.leafValidity = d
	}
}

// WithRootValidity sets the lifetime of a newly created CA root.
func WithRootValidity(d time.Duration) Option {
	return func(c *trustConfig) {
		c.rootValidity = d
	}
}

// WithChallengeTTL sets how long an issued challenge can be redeemed.
func WithChallengeTTL(d time.Duration) Option {
	return func(c *trustConfig) {
		c.challengeTTL = d
	}
}

// WithKeyBits sets the RSA modulus size for generated key pairs.
// Sizes below 2048 make New fail.
func WithKeyBits(bits int) Option {
	return func(c *trustConfig) {
		c.keyBits = bits
	}
}

// WithKeyGenWorkers bounds how many key pairs are generated concurrently.
// The default is GOMAXPROCS.
func WithKeyGenWorkers(n int) Option {
	return func(c *trustConfig) {
		c.keyGenWorkers = n
	}
}

// WithCAName sets the subject of a newly created CA root.
func WithCAName(commonName, organization string) Option {
	return func(c *trustConfig) {
		if commonName != "" {
			c.caCommonName = commonName
		}
		c.caOrganization = organization
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *trustConfig) {
		if l != nil {
			c.log = l
		}
	}
}

// WithMetrics registers the trust core's Prometheus collectors on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *trustConfig) {
		c.registerer = reg
	}
}
