package crypto

import (
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"github.com/vaultsandbox/trustcore/internal/trusterrors"
)

// PEM block types produced by this package.
const (
	PEMTypePublicKey     = "PUBLIC KEY"
	PEMTypeRSAPrivateKey = "RSA PRIVATE KEY"
	PEMTypePrivateKey    = "PRIVATE KEY"
)

// GenerateRSA creates a new RSA key pair of the given size.
// bits below MinRSABits are rejected.
func GenerateRSA(bits int) (*rsa.PrivateKey, error) {
	if bits < MinRSABits {
		return nil, fmt.Errorf("%w: %d-bit RSA is below the %d-bit minimum", trusterrors.ErrKeyFormat, bits, MinRSABits)
	}
	key, err := rsa.GenerateKey(randReader, bits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate RSA key pair: %w", err)
	}
	return key, nil
}

// ValidatePublicKey checks that pub is usable by the trust core.
func ValidatePublicKey(pub *rsa.PublicKey) error {
	if pub == nil || pub.N == nil {
		return fmt.Errorf("%w: missing public key", trusterrors.ErrKeyFormat)
	}
	if pub.N.BitLen() < MinRSABits {
		return fmt.Errorf("%w: %d-bit RSA is below the %d-bit minimum", trusterrors.ErrKeyFormat, pub.N.BitLen(), MinRSABits)
	}
	if pub.E < 3 || pub.E%2 == 0 {
		return fmt.Errorf("%w: invalid public exponent", trusterrors.ErrKeyFormat)
	}
	return nil
}

// MarshalPublicKeyPEM encodes pub as a PKIX "PUBLIC KEY" PEM block.
func MarshalPublicKeyPEM(pub *rsa.PublicKey) ([]byte, error) {
	if err := ValidatePublicKey(pub); err != nil {
		return nil, err
	}
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: PEMTypePublicKey, Bytes: der}), nil
}

// MarshalPrivateKeyPEM encodes priv as a PKCS#1 "RSA PRIVATE KEY" PEM block.
func MarshalPrivateKeyPEM(priv *rsa.PrivateKey) []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  PEMTypeRSAPrivateKey,
		Bytes: x509.MarshalPKCS1PrivateKey(priv),
	})
}

// ParsePublicKeyPEM decodes a PKIX "PUBLIC KEY" PEM block holding an RSA key.
func ParsePublicKeyPEM(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != PEMTypePublicKey {
		return nil, fmt.Errorf("%w: no PEM block containing a public key", trusterrors.ErrKeyFormat)
	}
	return ParsePublicKeyDER(block.Bytes)
}

// ParsePublicKeyDER decodes a PKIX DER public key holding an RSA key.
func ParsePublicKeyDER(der []byte) (*rsa.PublicKey, error) {
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", trusterrors.ErrKeyFormat, err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA public key", trusterrors.ErrKeyFormat)
	}
	if err := ValidatePublicKey(rsaPub); err != nil {
		return nil, err
	}
	return rsaPub, nil
}

// ParsePrivateKeyPEM decodes a PKCS#1 or PKCS#8 PEM block holding an RSA key.
func ParsePrivateKeyPEM(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block containing a private key", trusterrors.ErrKeyFormat)
	}

	var priv *rsa.PrivateKey
	switch block.Type {
	case PEMTypeRSAPrivateKey:
		k, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", trusterrors.ErrKeyFormat, err)
		}
		priv = k
	case PEMTypePrivateKey:
		k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", trusterrors.ErrKeyFormat, err)
		}
		rsaKey, ok := k.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: not an RSA private key", trusterrors.ErrKeyFormat)
		}
		priv = rsaKey
	default:
		return nil, fmt.Errorf("%w: unsupported PEM block %q", trusterrors.ErrKeyFormat, block.Type)
	}

	if err := ValidatePublicKey(&priv.PublicKey); err != nil {
		return nil, err
	}
	return priv, nil
}

// Fingerprint returns the key id of pub: base64url(SHA-256(PKIX DER)).
func Fingerprint(pub *rsa.PublicKey) (string, error) {
	if pub == nil {
		return "", fmt.Errorf("%w: missing public key", trusterrors.ErrKeyFormat)
	}
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("%w: %v", trusterrors.ErrKeyFormat, err)
	}
	sum := sha256.Sum256(der)
	return ToBase64URL(sum[:]), nil
}

// FingerprintBytes returns base64url(SHA-256(raw)) for non-RSA key material.
func FingerprintBytes(raw []byte) string {
	sum := sha256.Sum256(raw)
	return ToBase64URL(sum[:])
}
