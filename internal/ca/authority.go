// Package ca implements the self-signed certificate authority of the trust
// core: root bootstrap, leaf issuance, verification, revocation and CRLs.
package ca

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vaultsandbox/trustcore/internal/crypto"
	"github.com/vaultsandbox/trustcore/internal/metrics"
	"github.com/vaultsandbox/trustcore/internal/observability/logger"
	"github.com/vaultsandbox/trustcore/internal/revocation"
	"github.com/vaultsandbox/trustcore/internal/trusterrors"
)

// Defaults.
const (
	DefaultCommonName   = "trustcore root CA"
	DefaultRootValidity = 10 * 365 * 24 * time.Hour
	DefaultLeafValidity = 365 * 24 * time.Hour
	DefaultCRLValidity  = 7 * 24 * time.Hour
)

// ErrNotInitialized is returned by operations that need the root before
// Initialize succeeded.
var ErrNotInitialized = errors.New("certificate authority not initialized")

// KeySource generates the root key pair.
type KeySource func(ctx context.Context) (*rsa.PrivateKey, error)

// Authority issues and verifies certificates under a single root.
type Authority struct {
	store       RootStore
	revocations revocation.List
	keys        KeySource
	now         func() time.Time
	log         *zap.Logger
	metrics     *metrics.Metrics

	commonName   string
	organization string
	rootValidity time.Duration
	leafValidity time.Duration

	initMu sync.Mutex
	rootMu sync.RWMutex
	root   *Root

	// mu guards serial and CRL bookkeeping.
	mu        sync.Mutex
	issued    map[string]struct{}
	crlNumber int64
}

// Option configures an Authority.
type Option func(*Authority)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(a *Authority) { a.now = now }
}

// WithRootValidity sets the lifetime of a newly created root.
func WithRootValidity(d time.Duration) Option {
	return func(a *Authority) { a.rootValidity = d }
}

// WithLeafValidity sets the lifetime of issued certificates.
func WithLeafValidity(d time.Duration) Option {
	return func(a *Authority) { a.leafValidity = d }
}

// WithSubject sets the root subject.
func WithSubject(commonName, organization string) Option {
	return func(a *Authority) {
		if commonName != "" {
			a.commonName = commonName
		}
		a.organization = organization
	}
}

// WithKeySource sets how the root key pair is generated.
func WithKeySource(ks KeySource) Option {
	return func(a *Authority) { a.keys = ks }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Authority) { a.log = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Authority) { a.metrics = m }
}

// New builds an Authority. Initialize must be called before use.
func New(store RootStore, revocations revocation.List, opts ...Option) *Authority {
	a := &Authority{
		store:        store,
		revocations:  revocations,
		now:          time.Now,
		log:          zap.NewNop(),
		commonName:   DefaultCommonName,
		rootValidity: DefaultRootValidity,
		leafValidity: DefaultLeafValidity,
		issued:       make(map[string]struct{}),
		keys: func(context.Context) (*rsa.PrivateKey, error) {
			return crypto.GenerateRSA(crypto.DefaultRSABits)
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.With(logger.Component("ca"))
	return a
}

// Initialize loads the root from the store, creating it on first use.
// It is idempotent and safe for concurrent callers. A stored root that
// cannot be parsed yields an error matching trusterrors.ErrRootCorrupt.
func (a *Authority) Initialize(ctx context.Context) error {
	a.initMu.Lock()
	defer a.initMu.Unlock()

	if a.anchor() != nil {
		return nil
	}

	root, err := a.store.Load(ctx)
	switch {
	case err == nil:
		a.log.Info("root loaded", logger.Serial(SerialString(root.Certificate.SerialNumber)))
	case errors.Is(err, trusterrors.ErrRootNotFound):
		root, err = a.createRoot(ctx)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("load root: %w", err)
	}

	a.rootMu.Lock()
	a.root = root
	a.rootMu.Unlock()
	return nil
}

func (a *Authority) createRoot(ctx context.Context) (*Root, error) {
	key, err := a.keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate root key: %w", err)
	}

	now := a.now().UTC()
	subject := pkix.Name{CommonName: a.commonName}
	if a.organization != "" {
		subject.Organization = []string{a.organization}
	}
	template := &x509.Certificate{
		SerialNumber:          new(big.Int).Set(rootSerial),
		Subject:               subject,
		NotBefore:             now,
		NotAfter:              now.Add(a.rootValidity),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
		MaxPathLenZero:        true,
		SubjectKeyId:          keyID(&key.PublicKey),
		SignatureAlgorithm:    x509.SHA256WithRSA,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("create root certificate: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("parse root certificate: %w", err)
	}

	root := &Root{Certificate: cert, Key: key}
	if err := a.store.Create(ctx, root); err != nil {
		if !errors.Is(err, trusterrors.ErrRootExists) {
			return nil, fmt.Errorf("store root: %w", err)
		}
		// Another process won the race; use its root.
		existing, loadErr := a.store.Load(ctx)
		if loadErr != nil {
			return nil, fmt.Errorf("load root: %w", loadErr)
		}
		return existing, nil
	}

	a.log.Info("root created", logger.Serial(SerialString(cert.SerialNumber)))
	return root, nil
}

func keyID(pub *rsa.PublicKey) []byte {
	der, _ := x509.MarshalPKIXPublicKey(pub)
	sum := sha256.Sum256(der)
	return sum[:20]
}

func (a *Authority) anchor() *Root {
	a.rootMu.RLock()
	defer a.rootMu.RUnlock()
	return a.root
}

// Anchor returns the root certificate, or nil before Initialize.
func (a *Authority) Anchor() *x509.Certificate {
	if r := a.anchor(); r != nil {
		return r.Certificate
	}
	return nil
}

// AnchorPEM returns the root certificate as PEM.
func (a *Authority) AnchorPEM() []byte {
	if r := a.anchor(); r != nil {
		return encodeCertificate(r.Certificate)
	}
	return nil
}

// LeafValidity returns the lifetime of issued certificates.
func (a *Authority) LeafValidity() time.Duration {
	return a.leafValidity
}

// Issue signs a certificate binding pub to id.
func (a *Authority) Issue(ctx context.Context, pub any, id Identity) (*x509.Certificate, error) {
	root := a.anchor()
	if root == nil {
		return nil, ErrNotInitialized
	}
	if err := id.Validate(); err != nil {
		return nil, err
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: expected an RSA public key, got %T", trusterrors.ErrKeyFormat, pub)
	}
	if err := crypto.ValidatePublicKey(rsaPub); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	serial, err := a.allocateSerial()
	if err != nil {
		return nil, err
	}

	now := a.now().UTC()
	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               id.subject(a.organization),
		EmailAddresses:        id.emails(),
		NotBefore:             now,
		NotAfter:              now.Add(a.leafValidity),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		SubjectKeyId:          keyID(rsaPub),
		SignatureAlgorithm:    x509.SHA256WithRSA,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, root.Certificate, rsaPub, root.Key)
	if err != nil {
		a.releaseSerial(serial)
		return nil, fmt.Errorf("create certificate: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		a.releaseSerial(serial)
		return nil, fmt.Errorf("parse certificate: %w", err)
	}

	a.metrics.CertificateIssued()
	a.log.Info("certificate issued",
		logger.Serial(SerialString(serial)),
		logger.Username(id.Username))
	return cert, nil
}

func (a *Authority) allocateSerial() (*big.Int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for {
		serial, err := randomSerial()
		if err != nil {
			return nil, err
		}
		key := SerialString(serial)
		if _, taken := a.issued[key]; taken {
			continue
		}
		a.issued[key] = struct{}{}
		return serial, nil
	}
}

func (a *Authority) releaseSerial(serial *big.Int) {
	a.mu.Lock()
	delete(a.issued, SerialString(serial))
	a.mu.Unlock()
}

// Verify checks, in order, the CA signature, the validity window and the
// revocation state of cert.
func (a *Authority) Verify(ctx context.Context, cert *x509.Certificate) Verification {
	v := a.verify(ctx, cert)
	a.metrics.CertificateVerified(string(v.Status))
	return v
}

func (a *Authority) verify(ctx context.Context, cert *x509.Certificate) Verification {
	if cert == nil {
		return Verification{Status: StatusSignatureInvalid, Reason: "missing certificate"}
	}
	v := Verification{Serial: SerialString(cert.SerialNumber)}

	root := a.anchor()
	if root == nil {
		v.Status, v.Reason = StatusSignatureInvalid, ErrNotInitialized.Error()
		return v
	}
	if !bytes.Equal(cert.RawIssuer, root.Certificate.RawSubject) {
		v.Status, v.Reason = StatusSignatureInvalid, "issuer is not this authority"
		return v
	}
	if err := cert.CheckSignatureFrom(root.Certificate); err != nil {
		v.Status, v.Reason = StatusSignatureInvalid, err.Error()
		return v
	}

	now := a.now()
	if now.Before(cert.NotBefore) {
		v.Status = StatusNotYetValid
		v.Reason = "valid from " + cert.NotBefore.UTC().Format(time.RFC3339)
		return v
	}
	if now.After(cert.NotAfter) {
		v.Status = StatusExpired
		v.Reason = "expired at " + cert.NotAfter.UTC().Format(time.RFC3339)
		return v
	}

	entry, revoked, err := a.revocations.Lookup(ctx, v.Serial)
	if err != nil {
		a.log.Warn("revocation lookup failed", logger.Serial(v.Serial), logger.Err(err))
		v.Status, v.Reason = StatusIndeterminate, "revocation status unavailable"
		return v
	}
	if revoked {
		v.Status = StatusRevoked
		v.Reason = entry.Reason.String()
		v.Revocation = entry
		return v
	}

	v.Status = StatusActive
	return v
}

// Revoke adds serial to the revocation list. Revoking an already revoked
// serial is a no-op that keeps the original entry.
func (a *Authority) Revoke(ctx context.Context, serial string, reason revocation.Reason) error {
	n, err := ParseSerial(serial)
	if err != nil {
		return err
	}
	if !reason.Valid() {
		return fmt.Errorf("unsupported revocation reason %d", int(reason))
	}
	if n.Cmp(rootSerial) == 0 {
		return errors.New("the trust anchor cannot be revoked")
	}

	s := SerialString(n)
	added, err := a.revocations.Add(ctx, revocation.Entry{
		Serial:    s,
		Reason:    reason,
		RevokedAt: a.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("revoke %s: %w", s, err)
	}
	if added {
		a.metrics.Revoked()
		logger.From(ctx, a.log).Info("certificate revoked", logger.Serial(s), logger.Reason(reason.String()))
	}
	return nil
}
