package ca

import (
	"encoding/pem"
	"fmt"
	"strconv"

	"golang.org/x/crypto/argon2"

	"github.com/vaultsandbox/trustcore/internal/crypto"
	"github.com/vaultsandbox/trustcore/internal/trusterrors"
)

// pemTypeSealedKey marks a root key encrypted under a passphrase.
const pemTypeSealedKey = "TRUSTCORE ENCRYPTED PRIVATE KEY"

// Argon2id parameters for passphrase-protected root keys.
const (
	argonTime    uint32 = 3
	argonMemory  uint32 = 64 * 1024
	argonThreads uint8  = 4
	argonSaltLen        = 16
)

func isSealedKey(data []byte) bool {
	block, _ := pem.Decode(data)
	return block != nil && block.Type == pemTypeSealedKey
}

// sealKey encrypts keyPEM with AES-256-GCM under an Argon2id key derived from
// passphrase. KDF parameters and salt travel as PEM headers.
func sealKey(keyPEM, passphrase []byte) ([]byte, error) {
	salt, err := crypto.RandomBytes(argonSaltLen)
	if err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	kek := argon2.IDKey(passphrase, salt, argonTime, argonMemory, argonThreads, crypto.AESKeySize)
	defer crypto.Wipe(kek)

	sealed, err := crypto.EncryptAES(kek, keyPEM, []byte(pemTypeSealedKey))
	if err != nil {
		return nil, fmt.Errorf("encrypt root key: %w", err)
	}

	return pem.EncodeToMemory(&pem.Block{
		Type: pemTypeSealedKey,
		Headers: map[string]string{
			"KDF":     "argon2id",
			"Salt":    crypto.ToBase64URL(salt),
			"Time":    strconv.FormatUint(uint64(argonTime), 10),
			"Memory":  strconv.FormatUint(uint64(argonMemory), 10),
			"Threads": strconv.FormatUint(uint64(argonThreads), 10),
		},
		Bytes: sealed,
	}), nil
}

// openKey reverses sealKey. A wrong passphrase is reported as a corrupt root.
func openKey(data, passphrase []byte) ([]byte, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != pemTypeSealedKey {
		return nil, fmt.Errorf("%w: no sealed key PEM block", trusterrors.ErrRootCorrupt)
	}
	if block.Headers["KDF"] != "argon2id" {
		return nil, fmt.Errorf("%w: unsupported KDF %q", trusterrors.ErrRootCorrupt, block.Headers["KDF"])
	}

	salt, err := crypto.FromBase64URL(block.Headers["Salt"])
	if err != nil {
		return nil, fmt.Errorf("%w: salt: %v", trusterrors.ErrRootCorrupt, err)
	}
	t, errT := strconv.ParseUint(block.Headers["Time"], 10, 32)
	m, errM := strconv.ParseUint(block.Headers["Memory"], 10, 32)
	p, errP := strconv.ParseUint(block.Headers["Threads"], 10, 8)
	if errT != nil || errM != nil || errP != nil || t == 0 || m == 0 || p == 0 {
		return nil, fmt.Errorf("%w: invalid KDF parameters", trusterrors.ErrRootCorrupt)
	}

	kek := argon2.IDKey(passphrase, salt, uint32(t), uint32(m), uint8(p), crypto.AESKeySize)
	defer crypto.Wipe(kek)

	plain, err := crypto.DecryptAES(kek, block.Bytes, []byte(pemTypeSealedKey))
	if err != nil {
		return nil, fmt.Errorf("%w: wrong passphrase or damaged key", trusterrors.ErrRootCorrupt)
	}
	return plain, nil
}
