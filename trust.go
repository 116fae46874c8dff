package trustcore

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vaultsandbox/trustcore/internal/ca"
	"github.com/vaultsandbox/trustcore/internal/challenge"
	"github.com/vaultsandbox/trustcore/internal/crypto"
	"github.com/vaultsandbox/trustcore/internal/directory"
	"github.com/vaultsandbox/trustcore/internal/keygen"
	"github.com/vaultsandbox/trustcore/internal/metrics"
	"github.com/vaultsandbox/trustcore/internal/observability/logger"
	"github.com/vaultsandbox/trustcore/internal/revocation"
)

// Identity is the subject of a certificate.
type Identity = ca.Identity

// Certificate is an X.509 certificate issued by the trust core.
type Certificate = x509.Certificate

// Verification is the discriminated result of VerifyCertificate.
type Verification = ca.Verification

// VerificationStatus is the outcome of verifying a certificate.
type VerificationStatus = ca.Status

// Verification statuses. Only StatusActive means the certificate can be used.
const (
	StatusActive           = ca.StatusActive
	StatusExpired          = ca.StatusExpired
	StatusNotYetValid      = ca.StatusNotYetValid
	StatusRevoked          = ca.StatusRevoked
	StatusSignatureInvalid = ca.StatusSignatureInvalid
	StatusIndeterminate    = ca.StatusIndeterminate
)

// RevocationReason is an RFC 5280 CRL reason code.
type RevocationReason = revocation.Reason

// RevocationEntry records one revoked certificate.
type RevocationEntry = revocation.Entry

// Revocation reasons.
const (
	ReasonUnspecified          = revocation.ReasonUnspecified
	ReasonKeyCompromise        = revocation.ReasonKeyCompromise
	ReasonCACompromise         = revocation.ReasonCACompromise
	ReasonAffiliationChanged   = revocation.ReasonAffiliationChanged
	ReasonSuperseded           = revocation.ReasonSuperseded
	ReasonCessationOfOperation = revocation.ReasonCessationOfOperation
)

// IdentityOf returns the identity a certificate was issued for.
func IdentityOf(cert *Certificate) Identity {
	return ca.IdentityOf(cert)
}

// ParseRevocationReason parses a reason name such as "keyCompromise".
func ParseRevocationReason(s string) (RevocationReason, error) {
	return revocation.ParseReason(s)
}

// AuthResult describes a successful authentication.
type AuthResult = challenge.Result

// Challenge is an issued login challenge. The client signs Nonce.Bytes()
// and returns the signature before ExpiresAt.
type Challenge struct {
	ID        string
	Nonce     Nonce
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Enrollment is the result of Enroll. The private key is not kept by the
// trust core; this is the only copy.
type Enrollment struct {
	Certificate    *Certificate
	CertificatePEM []byte
	KeyPair        *KeyPair
	PrivateKeyPEM  []byte
}

// Trust is the boundary collaborators use for certificates, authentication
// and payload protection. It is safe for concurrent use.
type Trust struct {
	authority *ca.Authority
	auth      *challenge.Authenticator
	dir       Directory
	keys      *keygen.Pool
	log       *zap.Logger
	metrics   *metrics.Metrics
}

// New builds a Trust and loads or creates its CA root. A stored root that
// cannot be loaded fails with ErrRootCorrupt.
func New(ctx context.Context, opts ...Option) (*Trust, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	var m *metrics.Metrics
	if cfg.registerer != nil {
		var err error
		if m, err = metrics.New(cfg.registerer); err != nil {
			return nil, err
		}
	}

	poolOpts := []keygen.Option{
		keygen.WithBits(cfg.keyBits),
		keygen.WithObserver(m.ObserveKeyGen),
	}
	if cfg.keyGenWorkers > 0 {
		poolOpts = append(poolOpts, keygen.WithWorkers(cfg.keyGenWorkers))
	}
	pool, err := keygen.New(poolOpts...)
	if err != nil {
		return nil, err
	}

	if cfg.rootStore == nil {
		cfg.rootStore = ca.NewMemoryRootStore()
	}
	if cfg.revocations == nil {
		cfg.revocations = revocation.NewMemoryList()
	}
	if cfg.challenges == nil {
		cfg.challenges = challenge.NewMemoryStore(challenge.DefaultRetention)
	}
	if cfg.directory == nil {
		cfg.directory = directory.NewMemory()
	}

	authority := ca.New(cfg.rootStore, cfg.revocations,
		ca.WithClock(cfg.now),
		ca.WithLeafValidity(cfg.leafValidity),
		ca.WithRootValidity(cfg.rootValidity),
		ca.WithSubject(cfg.caCommonName, cfg.caOrganization),
		ca.WithKeySource(pool.Generate),
		ca.WithLogger(cfg.log),
		ca.WithMetrics(m),
	)
	start := time.Now()
	if err := authority.Initialize(ctx); err != nil {
		return nil, err
	}

	auth := challenge.NewAuthenticator(cfg.challenges, cfg.directory, authority,
		challenge.WithTTL(cfg.challengeTTL),
		challenge.WithClock(cfg.now),
		challenge.WithLogger(cfg.log),
		challenge.WithMetrics(m),
	)

	t := &Trust{
		authority: authority,
		auth:      auth,
		dir:       cfg.directory,
		keys:      pool,
		log:       cfg.log.With(logger.Component("trust")),
		metrics:   m,
	}
	t.log.Debug("trust core ready",
		logger.Serial(ca.SerialString(authority.Anchor().SerialNumber)),
		zap.Int("keygen_workers", pool.Workers()),
		zap.Int("key_bits", pool.Bits()),
		zap.Duration("leaf_validity", authority.LeafValidity()),
		zap.Duration("challenge_ttl", auth.TTL()),
		logger.Duration(time.Since(start)))
	return t, nil
}

// GenerateKeyPair mints a key pair on the bounded key generation pool.
func (t *Trust) GenerateKeyPair(ctx context.Context) (*KeyPair, error) {
	priv, err := t.keys.Generate(ctx)
	if err != nil {
		return nil, err
	}
	return &KeyPair{PublicKey: &priv.PublicKey, PrivateKey: priv}, nil
}

// RegisterIdentity issues a certificate binding pub to id and records it as
// id's current certificate.
func (t *Trust) RegisterIdentity(ctx context.Context, pub *rsa.PublicKey, id Identity) (*Certificate, error) {
	if pub == nil {
		return nil, fmt.Errorf("%w: missing public key", ErrKeyFormat)
	}
	cert, err := t.authority.Issue(ctx, pub, id)
	if err != nil {
		return nil, err
	}
	if err := t.dir.Put(ctx, id.Username, cert); err != nil {
		return nil, fmt.Errorf("record certificate for %s: %w", id.Username, err)
	}
	return cert, nil
}

// Enroll generates a key pair for id, registers it and returns the private
// key. The trust core keeps no copy of the private key.
func (t *Trust) Enroll(ctx context.Context, id Identity) (*Enrollment, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	kp, err := t.GenerateKeyPair(ctx)
	if err != nil {
		return nil, err
	}
	cert, err := t.RegisterIdentity(ctx, kp.PublicKey, id)
	if err != nil {
		return nil, err
	}
	return &Enrollment{
		Certificate:    cert,
		CertificatePEM: CertificatePEM(cert),
		KeyPair:        kp,
		PrivateKeyPEM:  kp.PrivateKeyPEM(),
	}, nil
}

// CertificateFor returns the current certificate on file for username.
func (t *Trust) CertificateFor(ctx context.Context, username string) (*Certificate, error) {
	return t.dir.Get(ctx, username)
}

// VerifyCertificate checks cert's CA signature, validity window and
// revocation state, in that order.
func (t *Trust) VerifyCertificate(ctx context.Context, cert *Certificate) Verification {
	v := t.authority.Verify(ctx, cert)
	if v.Status != StatusActive {
		t.log.Debug("certificate not active", logger.Serial(v.Serial), logger.Status(string(v.Status)))
	}
	return v
}

// IssueChallenge creates a single-use login challenge.
func (t *Trust) IssueChallenge(ctx context.Context) (*Challenge, error) {
	c, err := t.auth.Issue(ctx)
	if err != nil {
		return nil, err
	}
	nonce, err := NonceFromBytes(c.Nonce)
	if err != nil {
		return nil, err
	}
	return &Challenge{ID: c.ID, Nonce: nonce, IssuedAt: c.IssuedAt, ExpiresAt: c.ExpiresAt}, nil
}

// Authenticate redeems the challenge for nonce. The challenge is consumed
// whether or not authentication succeeds.
func (t *Trust) Authenticate(ctx context.Context, username string, nonce Nonce, sig Signature) (*AuthResult, error) {
	return t.auth.Verify(ctx, nonce.b, username, sig.b)
}

// Revoke permanently revokes the certificate with the given hex serial.
// Revoking twice is a no-op.
func (t *Trust) Revoke(ctx context.Context, serial string, reason RevocationReason) error {
	return t.authority.Revoke(ctx, serial, reason)
}

// TrustAnchor returns the CA root certificate.
func (t *Trust) TrustAnchor() *Certificate {
	return t.authority.Anchor()
}

// TrustAnchorPEM returns the CA root certificate as PEM.
func (t *Trust) TrustAnchorPEM() []byte {
	return t.authority.AnchorPEM()
}

// RevocationListPEM returns a CRL signed by the CA root listing every
// revoked serial.
func (t *Trust) RevocationListPEM(ctx context.Context) ([]byte, error) {
	return t.authority.RevocationList(ctx)
}

// Sign signs msg with RSA-PSS-SHA256.
func (t *Trust) Sign(priv *rsa.PrivateKey, msg []byte) (Signature, error) {
	return Sign(priv, msg)
}

// Verify checks an RSA-PSS-SHA256 signature over msg.
func (t *Trust) Verify(pub *rsa.PublicKey, msg []byte, sig Signature) error {
	return Verify(pub, msg, sig)
}

// Sign signs msg with RSA-PSS-SHA256. It needs no CA.
func Sign(priv *rsa.PrivateKey, msg []byte) (Signature, error) {
	sig, err := crypto.Sign(priv, msg)
	if err != nil {
		return Signature{}, err
	}
	return Signature{b: sig}, nil
}

// Verify checks an RSA-PSS-SHA256 signature over msg. It needs no CA.
func Verify(pub *rsa.PublicKey, msg []byte, sig Signature) error {
	return crypto.Verify(pub, msg, sig.b)
}

// SerialString formats a certificate serial the way Revoke expects it.
func SerialString(cert *Certificate) string {
	return ca.SerialString(cert.SerialNumber)
}

// CertificatePEM encodes cert as a PEM "CERTIFICATE" block.
func CertificatePEM(cert *Certificate) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: ca.PEMTypeCertificate, Bytes: cert.Raw})
}

// ParseCertificatePEM decodes a single PEM certificate.
func ParseCertificatePEM(data []byte) (*Certificate, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != ca.PEMTypeCertificate {
		return nil, fmt.Errorf("%w: no PEM certificate block", ErrCertificateInvalid)
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, errors.Join(ErrCertificateInvalid, err)
	}
	return cert, nil
}
