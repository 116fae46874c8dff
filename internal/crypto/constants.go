package crypto

import "crypto"

const (
	// DefaultRSABits is the key size used for new identity key pairs.
	DefaultRSABits = 2048
	// MinRSABits is the smallest RSA modulus accepted anywhere in the core.
	MinRSABits = 2048

	// AESKeySize is the size of an AES-256 key in bytes.
	AESKeySize = 32
	// AESNonceSize is the size of an AES-GCM nonce in bytes.
	AESNonceSize = 12
	// AESTagSize is the size of an AES-GCM authentication tag in bytes.
	AESTagSize = 16

	// DigestSize is the size of a SHA-256 integrity digest in bytes.
	DigestSize = 32

	// MLKEMPublicKeySize is the size of an ML-KEM-768 public key in bytes.
	MLKEMPublicKeySize = 1184
	// MLKEMSecretKeySize is the size of an ML-KEM-768 secret key in bytes.
	MLKEMSecretKeySize = 2400
	// MLKEMCiphertextSize is the size of an ML-KEM-768 ciphertext in bytes.
	MLKEMCiphertextSize = 1088
	// MLKEMSharedKeySize is the size of the shared secret from ML-KEM-768 in bytes.
	MLKEMSharedKeySize = 32

	// PublicKeyOffset is the byte offset where the public key is embedded
	// within an ML-KEM-768 secret key.
	PublicKeyOffset = 1152
)

// Algorithm identifiers recorded in sealed payloads.
const (
	AlgRSAOAEP256   = "RSA-OAEP-256"
	AlgMLKEM768     = "ML-KEM-768"
	AlgAES256GCM    = "AES-256-GCM"
	AlgRSAPSSSHA256 = "RSA-PSS-SHA256"
	AlgSHA256       = "SHA-256"
)

// Labels and contexts used for domain separation.
const (
	// OAEPLabel binds RSA-OAEP ciphertexts to their use as wrapped DEKs.
	OAEPLabel = "trustcore:dek:v1"
	// KEMContext is the HKDF info prefix for ML-KEM derived key-encryption keys.
	KEMContext = "trustcore:kem-wrap:v1"
)

// signatureHash is the digest used by RSA-PSS and RSA-OAEP.
const signatureHash = crypto.SHA256
