package trustcore

import (
	"crypto/rsa"

	"github.com/vaultsandbox/trustcore/internal/crypto"
)

// KeyPair is an RSA identity key pair.
type KeyPair struct {
	PublicKey  *rsa.PublicKey
	PrivateKey *rsa.PrivateKey
}

// PublicKeyPEM encodes the public key as PKIX "PUBLIC KEY" PEM.
func (k *KeyPair) PublicKeyPEM() ([]byte, error) {
	return crypto.MarshalPublicKeyPEM(k.PublicKey)
}

// PrivateKeyPEM encodes the private key as PKCS#1 "RSA PRIVATE KEY" PEM.
func (k *KeyPair) PrivateKeyPEM() []byte {
	return crypto.MarshalPrivateKeyPEM(k.PrivateKey)
}

// KeyID returns the fingerprint recipients and senders are addressed by.
func (k *KeyPair) KeyID() string {
	kid, _ := KeyID(k.PublicKey)
	return kid
}

// KeyID returns base64url(SHA-256(PKIX DER)) of pub.
func KeyID(pub *rsa.PublicKey) (string, error) {
	return crypto.Fingerprint(pub)
}

// ParsePublicKeyPEM decodes a PKIX "PUBLIC KEY" PEM block holding an RSA
// key of at least 2048 bits.
func ParsePublicKeyPEM(data []byte) (*rsa.PublicKey, error) {
	return crypto.ParsePublicKeyPEM(data)
}

// ParsePrivateKeyPEM decodes a PKCS#1 or PKCS#8 RSA private key.
func ParsePrivateKeyPEM(data []byte) (*KeyPair, error) {
	priv, err := crypto.ParsePrivateKeyPEM(data)
	if err != nil {
		return nil, err
	}
	return &KeyPair{PublicKey: &priv.PublicKey, PrivateKey: priv}, nil
}
