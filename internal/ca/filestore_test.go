package ca

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultsandbox/trustcore/internal/crypto"
	"github.com/vaultsandbox/trustcore/internal/revocation"
	"github.com/vaultsandbox/trustcore/internal/trusterrors"
)

func initFileAuthority(t *testing.T, store *FileRootStore) *Authority {
	t.Helper()
	a := New(store, revocation.NewMemoryList(), WithKeySource(fixedKey(testKeys(t)[0])))
	require.NoError(t, a.Initialize(context.Background()))
	return a
}

func TestFileRootStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewFileRootStore(dir)

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, trusterrors.ErrRootNotFound)

	a := initFileAuthority(t, store)

	keyPEM, err := os.ReadFile(store.KeyPath())
	require.NoError(t, err)
	assert.Contains(t, string(keyPEM), "RSA PRIVATE KEY")

	if runtime.GOOS != "windows" {
		info, err := os.Stat(store.KeyPath())
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}

	// Restart: the same root is loaded from disk.
	b := initFileAuthority(t, NewFileRootStore(dir))
	assert.Equal(t, a.Anchor().Raw, b.Anchor().Raw)

	// The store never overwrites an existing root.
	err = store.Create(context.Background(), &Root{Certificate: a.Anchor(), Key: testKeys(t)[0]})
	assert.ErrorIs(t, err, trusterrors.ErrRootExists)
}

func TestFileRootStore_Passphrase(t *testing.T) {
	dir := t.TempDir()
	pass := []byte("correct horse battery staple")
	a := initFileAuthority(t, NewFileRootStore(dir, WithPassphrase(pass)))

	keyPEM, err := os.ReadFile(filepath.Join(dir, KeyFileName))
	require.NoError(t, err)
	assert.NotContains(t, string(keyPEM), "RSA PRIVATE KEY")
	assert.True(t, strings.HasPrefix(string(keyPEM), "-----BEGIN "+pemTypeSealedKey))

	b := initFileAuthority(t, NewFileRootStore(dir, WithPassphrase(pass)))
	assert.Equal(t, a.Anchor().Raw, b.Anchor().Raw)

	tests := []struct {
		name string
		opts []FileStoreOption
	}{
		{"missing passphrase", nil},
		{"wrong passphrase", []FileStoreOption{WithPassphrase([]byte("tr0ub4dor"))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(NewFileRootStore(dir, tt.opts...), revocation.NewMemoryList())
			assert.ErrorIs(t, c.Initialize(context.Background()), trusterrors.ErrRootCorrupt)
			assert.Nil(t, c.Anchor())
		})
	}
}

func TestFileRootStore_Corrupt(t *testing.T) {
	otherKey := crypto.MarshalPrivateKeyPEM(testKeys(t)[3])

	tests := []struct {
		name  string
		setup func(t *testing.T, store *FileRootStore)
	}{
		{"garbage certificate", func(t *testing.T, s *FileRootStore) {
			require.NoError(t, os.WriteFile(s.CertPath(), []byte("-----BEGIN CERTIFICATE-----\nAAAA\n-----END CERTIFICATE-----\n"), 0o644))
		}},
		{"not pem", func(t *testing.T, s *FileRootStore) {
			require.NoError(t, os.WriteFile(s.KeyPath(), []byte("hello"), 0o600))
		}},
		{"key missing", func(t *testing.T, s *FileRootStore) {
			require.NoError(t, os.Remove(s.KeyPath()))
		}},
		{"certificate missing", func(t *testing.T, s *FileRootStore) {
			require.NoError(t, os.Remove(s.CertPath()))
		}},
		{"mismatched key", func(t *testing.T, s *FileRootStore) {
			require.NoError(t, os.WriteFile(s.KeyPath(), otherKey, 0o600))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewFileRootStore(t.TempDir())
			initFileAuthority(t, store)
			tt.setup(t, store)

			a := New(store, revocation.NewMemoryList(), WithKeySource(fixedKey(testKeys(t)[1])))
			err := a.Initialize(context.Background())
			assert.ErrorIs(t, err, trusterrors.ErrRootCorrupt)
			assert.Nil(t, a.Anchor(), "a corrupt root must abort initialization")
		})
	}
}

func TestFileRootStore_CreateIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	src := initFileAuthority(t, NewFileRootStore(t.TempDir()))
	root := &Root{Certificate: src.Anchor(), Key: testKeys(t)[0]}

	t.Run("missing directory is created", func(t *testing.T) {
		parent := t.TempDir()
		store := NewFileRootStore(filepath.Join(parent, "nested", "ca"))
		require.NoError(t, store.Create(ctx, root))

		loaded, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, root.Certificate.Raw, loaded.Certificate.Raw)

		entries, err := os.ReadDir(filepath.Join(parent, "nested"))
		require.NoError(t, err)
		require.Len(t, entries, 1, "staging directory must not be left behind")
		assert.Equal(t, "ca", entries[0].Name())
	})

	t.Run("failed publish leaves no partial root", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))
		store := NewFileRootStore(dir)

		require.Error(t, store.Create(ctx, root))
		assert.NoFileExists(t, store.KeyPath())
		assert.NoFileExists(t, store.CertPath())

		_, err := store.Load(ctx)
		assert.ErrorIs(t, err, trusterrors.ErrRootNotFound)
	})

	t.Run("concurrent creators", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "ca")
		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := NewFileRootStore(dir).Create(ctx, root)
				if err == nil {
					wins.Add(1)
					return
				}
				assert.ErrorIs(t, err, trusterrors.ErrRootExists)
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins.Load())

		_, err := NewFileRootStore(dir).Load(ctx)
		assert.NoError(t, err)
	})
}
