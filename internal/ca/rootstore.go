package ca

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"sync"

	"github.com/vaultsandbox/trustcore/internal/crypto"
	"github.com/vaultsandbox/trustcore/internal/trusterrors"
)

// PEMTypeCertificate is the PEM block type of certificates.
const PEMTypeCertificate = "CERTIFICATE"

// Root is the CA key and its self-signed certificate.
type Root struct {
	Certificate *x509.Certificate
	Key         *rsa.PrivateKey
}

// RootStore persists the CA root.
type RootStore interface {
	// Load returns the stored root. It returns an error matching
	// trusterrors.ErrRootNotFound when nothing is stored and
	// trusterrors.ErrRootCorrupt when stored material cannot be used.
	Load(ctx context.Context) (*Root, error)
	// Create stores root. It returns an error matching
	// trusterrors.ErrRootExists if a root is already present.
	Create(ctx context.Context, root *Root) error
}

// MemoryRootStore keeps the root in process as PEM, parsing it on every Load
// the same way persistent stores do.
type MemoryRootStore struct {
	mu      sync.Mutex
	certPEM []byte
	keyPEM  []byte
}

// NewMemoryRootStore returns an empty store.
func NewMemoryRootStore() *MemoryRootStore {
	return &MemoryRootStore{}
}

func (m *MemoryRootStore) Load(_ context.Context) (*Root, error) {
	m.mu.Lock()
	certPEM, keyPEM := m.certPEM, m.keyPEM
	m.mu.Unlock()

	if certPEM == nil && keyPEM == nil {
		return nil, trusterrors.ErrRootNotFound
	}
	return parseRoot(certPEM, keyPEM)
}

func (m *MemoryRootStore) Create(_ context.Context, root *Root) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.certPEM != nil || m.keyPEM != nil {
		return trusterrors.ErrRootExists
	}
	m.certPEM = encodeCertificate(root.Certificate)
	m.keyPEM = crypto.MarshalPrivateKeyPEM(root.Key)
	return nil
}

func encodeCertificate(cert *x509.Certificate) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: PEMTypeCertificate, Bytes: cert.Raw})
}

// parseRoot decodes stored root material. Every failure is ErrRootCorrupt.
func parseRoot(certPEM, keyPEM []byte) (*Root, error) {
	if len(certPEM) == 0 || len(keyPEM) == 0 {
		return nil, fmt.Errorf("%w: certificate or key missing", trusterrors.ErrRootCorrupt)
	}

	block, _ := pem.Decode(certPEM)
	if block == nil || block.Type != PEMTypeCertificate {
		return nil, fmt.Errorf("%w: no certificate PEM block", trusterrors.ErrRootCorrupt)
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", trusterrors.ErrRootCorrupt, err)
	}

	key, err := crypto.ParsePrivateKeyPEM(keyPEM)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", trusterrors.ErrRootCorrupt, err)
	}

	if err := checkRoot(cert, key); err != nil {
		return nil, err
	}
	return &Root{Certificate: cert, Key: key}, nil
}

func checkRoot(cert *x509.Certificate, key *rsa.PrivateKey) error {
	if !cert.IsCA {
		return fmt.Errorf("%w: certificate is not a CA", trusterrors.ErrRootCorrupt)
	}
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok || !pub.Equal(&key.PublicKey) {
		return fmt.Errorf("%w: key does not match certificate", trusterrors.ErrRootCorrupt)
	}
	if err := cert.CheckSignatureFrom(cert); err != nil {
		return fmt.Errorf("%w: %v", trusterrors.ErrRootCorrupt, err)
	}
	return nil
}
