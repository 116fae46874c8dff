package ca

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/vaultsandbox/trustcore/internal/crypto"
	"github.com/vaultsandbox/trustcore/internal/trusterrors"
	"github.com/vaultsandbox/trustcore/internal/util/atomicwrite"
)

// File names inside a FileRootStore directory.
const (
	CertFileName = "ca.crt"
	KeyFileName  = "ca.key"
)

// FileRootStore keeps the root as PEM files in a directory. The key file is
// written with 0600 permissions and, when a passphrase is set, encrypted.
type FileRootStore struct {
	dir        string
	passphrase []byte
}

// FileStoreOption configures a FileRootStore.
type FileStoreOption func(*FileRootStore)

// WithPassphrase encrypts the key file under passphrase.
func WithPassphrase(passphrase []byte) FileStoreOption {
	return func(s *FileRootStore) {
		s.passphrase = passphrase
	}
}

// NewFileRootStore returns a store rooted at dir.
func NewFileRootStore(dir string, opts ...FileStoreOption) *FileRootStore {
	s := &FileRootStore{dir: dir}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CertPath returns the certificate file path.
func (s *FileRootStore) CertPath() string { return filepath.Join(s.dir, CertFileName) }

// KeyPath returns the key file path.
func (s *FileRootStore) KeyPath() string { return filepath.Join(s.dir, KeyFileName) }

func (s *FileRootStore) Load(_ context.Context) (*Root, error) {
	certPEM, certErr := os.ReadFile(s.CertPath())
	keyPEM, keyErr := os.ReadFile(s.KeyPath())

	certMissing := errors.Is(certErr, fs.ErrNotExist)
	keyMissing := errors.Is(keyErr, fs.ErrNotExist)
	switch {
	case certMissing && keyMissing:
		return nil, trusterrors.ErrRootNotFound
	case certMissing || keyMissing:
		return nil, fmt.Errorf("%w: only one of %s and %s exists in %s",
			trusterrors.ErrRootCorrupt, CertFileName, KeyFileName, s.dir)
	case certErr != nil:
		return nil, fmt.Errorf("read %s: %w", s.CertPath(), certErr)
	case keyErr != nil:
		return nil, fmt.Errorf("read %s: %w", s.KeyPath(), keyErr)
	}

	if isSealedKey(keyPEM) {
		if len(s.passphrase) == 0 {
			return nil, fmt.Errorf("%w: key is passphrase protected", trusterrors.ErrRootCorrupt)
		}
		plain, err := openKey(keyPEM, s.passphrase)
		if err != nil {
			return nil, err
		}
		defer crypto.Wipe(plain)
		keyPEM = plain
	}

	return parseRoot(certPEM, keyPEM)
}

// Create writes both files into a staging directory next to dir and renames
// it into place, so readers see either no root or a complete one. dir must be
// absent or empty.
func (s *FileRootStore) Create(_ context.Context, root *Root) error {
	if err := s.checkAbsent(); err != nil {
		return err
	}

	keyPEM := crypto.MarshalPrivateKeyPEM(root.Key)
	if len(s.passphrase) > 0 {
		sealed, err := sealKey(keyPEM, s.passphrase)
		crypto.Wipe(keyPEM)
		if err != nil {
			return err
		}
		keyPEM = sealed
	}

	dir := filepath.Clean(s.dir)
	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", parent, err)
	}
	stage, err := os.MkdirTemp(parent, "."+filepath.Base(dir)+".staging-*")
	if err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}
	defer os.RemoveAll(stage)

	if err := atomicwrite.WriteFile(filepath.Join(stage, KeyFileName), keyPEM, 0o600); err != nil {
		return fmt.Errorf("write root key: %w", err)
	}
	if err := atomicwrite.WriteFile(filepath.Join(stage, CertFileName), encodeCertificate(root.Certificate), 0o644); err != nil {
		return fmt.Errorf("write root certificate: %w", err)
	}

	if err := os.Rename(stage, dir); err != nil {
		// Some platforms refuse to rename onto an existing empty directory.
		// os.Remove fails on a non-empty one, so a concurrent winner survives.
		if rmErr := os.Remove(dir); rmErr == nil || errors.Is(rmErr, fs.ErrNotExist) {
			err = os.Rename(stage, dir)
		}
		if err != nil {
			if existsErr := s.checkAbsent(); existsErr != nil {
				return existsErr
			}
			return fmt.Errorf("publish root into %s: %w", dir, err)
		}
	}
	return nil
}

// checkAbsent reports ErrRootExists when either root file is present.
func (s *FileRootStore) checkAbsent() error {
	for _, p := range []string{s.CertPath(), s.KeyPath()} {
		if _, err := os.Lstat(p); err == nil {
			return fmt.Errorf("%w: %s", trusterrors.ErrRootExists, p)
		}
	}
	return nil
}
