package crypto

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/cloudflare/circl/kem/mlkem/mlkem768"
)

// KEMKeypair represents an ML-KEM-768 keypair used by post-quantum recipients.
type KEMKeypair struct {
	// PublicKey is the raw ML-KEM-768 public key bytes.
	PublicKey []byte
	// SecretKey is the raw ML-KEM-768 secret key bytes.
	SecretKey []byte
}

// GenerateKEMKeypair creates a new ML-KEM-768 keypair.
func GenerateKEMKeypair() (*KEMKeypair, error) {
	pub, priv, err := mlkem768.GenerateKeyPair(randReader)
	if err != nil {
		return nil, err
	}

	// MarshalBinary never fails for valid keys from GenerateKeyPair
	pubBytes, _ := pub.MarshalBinary()
	privBytes, _ := priv.MarshalBinary()

	return &KEMKeypair{
		PublicKey: pubBytes,
		SecretKey: privBytes,
	}, nil
}

// KEMKeypairFromSecretKey reconstructs a keypair from the secret key.
// The public key is embedded in the secret key at offset 1152.
func KEMKeypairFromSecretKey(secretKey []byte) (*KEMKeypair, error) {
	if len(secretKey) != MLKEMSecretKeySize {
		return nil, ErrInvalidSecretKeySize
	}

	var priv mlkem768.PrivateKey
	if err := priv.Unpack(secretKey); err != nil {
		return nil, fmt.Errorf("unpack secret key: %w", err)
	}

	publicKey := make([]byte, MLKEMPublicKeySize)
	copy(publicKey, secretKey[PublicKeyOffset:PublicKeyOffset+MLKEMPublicKeySize])

	return &KEMKeypair{
		PublicKey: publicKey,
		SecretKey: secretKey,
	}, nil
}

// KeyID returns the fingerprint of the public key.
func (k *KEMKeypair) KeyID() string {
	return FingerprintBytes(k.PublicKey)
}

// KEMWrapKey encapsulates to publicKey and wraps dek under the derived
// key-encryption key. The result is kem ciphertext || nonce || AES-GCM(dek).
func KEMWrapKey(publicKey, dek []byte) ([]byte, error) {
	if len(publicKey) != MLKEMPublicKeySize {
		return nil, ErrInvalidPublicKeySize
	}
	if len(dek) != AESKeySize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidKeySize, len(dek), AESKeySize)
	}

	var pub mlkem768.PublicKey
	if err := pub.Unpack(publicKey); err != nil {
		return nil, fmt.Errorf("unpack public key: %w", err)
	}

	seed, err := RandomBytes(mlkem768.EncapsulationSeedSize)
	if err != nil {
		return nil, fmt.Errorf("generate encapsulation seed: %w", err)
	}
	ctKem := make([]byte, MLKEMCiphertextSize)
	sharedSecret := make([]byte, MLKEMSharedKeySize)
	pub.EncapsulateTo(ctKem, sharedSecret, seed)
	defer Wipe(sharedSecret)

	kek, err := deriveKEK(sharedSecret, ctKem, publicKey)
	if err != nil {
		return nil, err
	}
	defer Wipe(kek)

	sealed, err := EncryptAES(kek, dek, ctKem)
	if err != nil {
		return nil, err
	}
	return append(ctKem, sealed...), nil
}

// KEMUnwrapKey recovers a key wrapped by [KEMWrapKey].
func (k *KEMKeypair) KEMUnwrapKey(wrapped []byte) ([]byte, error) {
	if len(wrapped) < MLKEMCiphertextSize+AESNonceSize+AESTagSize {
		return nil, ErrInvalidCiphertextSize
	}
	ctKem := wrapped[:MLKEMCiphertextSize]

	var priv mlkem768.PrivateKey
	if err := priv.Unpack(k.SecretKey); err != nil {
		return nil, fmt.Errorf("unpack secret key: %w", err)
	}

	sharedSecret := make([]byte, MLKEMSharedKeySize)
	priv.DecapsulateTo(sharedSecret, ctKem)
	defer Wipe(sharedSecret)

	kek, err := deriveKEK(sharedSecret, ctKem, k.PublicKey)
	if err != nil {
		return nil, err
	}
	defer Wipe(kek)

	dek, err := DecryptAES(kek, wrapped[MLKEMCiphertextSize:], ctKem)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnwrapFailed, err)
	}
	return dek, nil
}

// deriveKEK performs HKDF-SHA-512 key derivation for KEM key wrapping.
//
//   - IKM: the KEM shared secret
//   - Salt: SHA-256 hash of the KEM ciphertext
//   - Info: context || public key length (4 bytes BE) || public key
func deriveKEK(sharedSecret, ctKem, publicKey []byte) ([]byte, error) {
	salt := sha256.Sum256(ctKem)

	var info bytes.Buffer
	info.WriteString(KEMContext)
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(publicKey)))
	info.Write(n[:])
	info.Write(publicKey)

	return DeriveKey(sharedSecret, salt[:], info.Bytes(), AESKeySize)
}
