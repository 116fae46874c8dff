package challenge

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vaultsandbox/trustcore/internal/ca"
	"github.com/vaultsandbox/trustcore/internal/crypto"
	"github.com/vaultsandbox/trustcore/internal/directory"
	"github.com/vaultsandbox/trustcore/internal/metrics"
	"github.com/vaultsandbox/trustcore/internal/observability/logger"
	"github.com/vaultsandbox/trustcore/internal/trusterrors"
)

// CertificateVerifier checks certificates on file. *ca.Authority implements it.
type CertificateVerifier interface {
	Verify(ctx context.Context, cert *x509.Certificate) ca.Verification
}

// Result describes a successful authentication.
type Result struct {
	Username        string
	Serial          string
	AuthenticatedAt time.Time
}

// Authenticator issues challenges and redeems signed ones.
type Authenticator struct {
	store    Store
	dir      directory.Directory
	verifier CertificateVerifier
	ttl      time.Duration
	now      func() time.Time
	log      *zap.Logger
	metrics  *metrics.Metrics
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithTTL sets the lifetime of issued challenges.
func WithTTL(d time.Duration) Option {
	return func(a *Authenticator) {
		if d > 0 {
			a.ttl = d
		}
	}
}

// WithClock overrides the time source used for issuing and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) { a.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Authenticator) { a.log = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Authenticator) { a.metrics = m }
}

// NewAuthenticator builds an Authenticator.
func NewAuthenticator(store Store, dir directory.Directory, verifier CertificateVerifier, opts ...Option) *Authenticator {
	a := &Authenticator{
		store:    store,
		dir:      dir,
		verifier: verifier,
		ttl:      DefaultTTL,
		now:      time.Now,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.With(logger.Component("challenge"))
	return a
}

// TTL returns the lifetime of issued challenges.
func (a *Authenticator) TTL() time.Duration {
	return a.ttl
}

// Issue creates and stores a fresh challenge.
func (a *Authenticator) Issue(ctx context.Context) (*Challenge, error) {
	nonce, err := crypto.RandomBytes(NonceSize)
	if err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	now := a.now().UTC()
	c := &Challenge{
		ID:        uuid.NewString(),
		Nonce:     nonce,
		IssuedAt:  now,
		ExpiresAt: now.Add(a.ttl),
	}
	if err := a.store.Put(ctx, c); err != nil {
		return nil, err
	}
	a.log.Debug("challenge issued", logger.ChallengeID(c.ID))
	return c, nil
}

// Verify redeems the challenge identified by nonce for username.
//
// The challenge is consumed before anything else is checked, so a failed
// attempt burns it. Then the username's certificate must verify as active
// and sig must be a valid signature over nonce under its key.
func (a *Authenticator) Verify(ctx context.Context, nonce []byte, username string, sig []byte) (*Result, error) {
	res, err := a.verify(ctx, nonce, username, sig)
	a.metrics.Authenticated(resultLabel(err))
	log := logger.From(ctx, a.log)
	if err != nil {
		log.Info("authentication failed", logger.Username(username), logger.Err(err))
		return nil, err
	}
	log.Info("authenticated", logger.Username(username), logger.Serial(res.Serial))
	return res, nil
}

func (a *Authenticator) verify(ctx context.Context, nonce []byte, username string, sig []byte) (*Result, error) {
	if len(nonce) != NonceSize {
		return nil, trusterrors.NewChallengeError("", "not found", trusterrors.ErrChallengeNotFound)
	}

	c, err := a.store.Take(ctx, nonce)
	if err != nil {
		return nil, err
	}
	now := a.now()
	if c.Expired(now) {
		return nil, trusterrors.NewChallengeError(c.ID, "expired", trusterrors.ErrChallengeExpired)
	}

	cert, err := a.dir.Get(ctx, username)
	if err != nil {
		return nil, err
	}
	if v := a.verifier.Verify(ctx, cert); !v.OK() {
		return nil, v.Err()
	}

	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: certificate key is %T", trusterrors.ErrKeyFormat, cert.PublicKey)
	}
	if err := crypto.Verify(pub, nonce, sig); err != nil {
		return nil, err
	}

	return &Result{
		Username:        username,
		Serial:          ca.SerialString(cert.SerialNumber),
		AuthenticatedAt: now.UTC(),
	}, nil
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, trusterrors.ErrChallengeNotFound):
		return "challenge_not_found"
	case errors.Is(err, trusterrors.ErrChallengeAlreadyConsumed):
		return "challenge_consumed"
	case errors.Is(err, trusterrors.ErrChallengeExpired):
		return "challenge_expired"
	case errors.Is(err, trusterrors.ErrIdentityNotFound):
		return "identity_not_found"
	case errors.Is(err, trusterrors.ErrCertificateRevoked),
		errors.Is(err, trusterrors.ErrCertificateExpired),
		errors.Is(err, trusterrors.ErrCertificateNotYetValid),
		errors.Is(err, trusterrors.ErrCertificateInvalid):
		return "certificate_rejected"
	case errors.Is(err, trusterrors.ErrSignatureInvalid):
		return "signature_invalid"
	default:
		return "error"
	}
}
