// Package directory maps usernames to their current certificate.
package directory

import (
	"context"
	"crypto/x509"
	"fmt"
	"sync"

	"github.com/vaultsandbox/trustcore/internal/trusterrors"
)

// Directory resolves the certificate on file for a username.
// Implementations must be safe for concurrent use.
type Directory interface {
	// Put records cert as the current certificate for username,
	// replacing any previous one.
	Put(ctx context.Context, username string, cert *x509.Certificate) error
	// Get returns the current certificate, or an error matching
	// trusterrors.ErrIdentityNotFound.
	Get(ctx context.Context, username string) (*x509.Certificate, error)
}

// Memory is an in-process Directory.
type Memory struct {
	mu    sync.RWMutex
	certs map[string]*x509.Certificate
}

// NewMemory returns an empty Memory directory.
func NewMemory() *Memory {
	return &Memory{certs: make(map[string]*x509.Certificate)}
}

func (m *Memory) Put(_ context.Context, username string, cert *x509.Certificate) error {
	if cert == nil {
		return fmt.Errorf("%w: nil certificate for %q", trusterrors.ErrInvalidIdentity, username)
	}
	m.mu.Lock()
	m.certs[username] = cert
	m.mu.Unlock()
	return nil
}

func (m *Memory) Get(_ context.Context, username string) (*x509.Certificate, error) {
	m.mu.RLock()
	cert, ok := m.certs[username]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", trusterrors.ErrIdentityNotFound, username)
	}
	return cert, nil
}

// Len returns the number of usernames on file.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.certs)
}
