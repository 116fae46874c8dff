package hybrid

import (
	"crypto/rsa"
	"fmt"

	"github.com/vaultsandbox/trustcore/internal/crypto"
	"github.com/vaultsandbox/trustcore/internal/trusterrors"
)

// Recipient wraps a data-encryption key for one reader.
type Recipient interface {
	KeyID() string
	Algorithm() string
	Wrap(dek []byte) ([]byte, error)
}

// Opener recovers a data-encryption key wrapped for it.
type Opener interface {
	KeyID() string
	Unwrap(alg string, wrapped []byte) ([]byte, error)
}

// RSARecipient wraps keys with RSA-OAEP-SHA256.
type RSARecipient struct {
	pub *rsa.PublicKey
	kid string
}

// NewRSARecipient validates pub and computes its key id.
func NewRSARecipient(pub *rsa.PublicKey) (*RSARecipient, error) {
	if err := crypto.ValidatePublicKey(pub); err != nil {
		return nil, err
	}
	kid, err := crypto.Fingerprint(pub)
	if err != nil {
		return nil, err
	}
	return &RSARecipient{pub: pub, kid: kid}, nil
}

func (r *RSARecipient) KeyID() string     { return r.kid }
func (r *RSARecipient) Algorithm() string { return crypto.AlgRSAOAEP256 }

func (r *RSARecipient) Wrap(dek []byte) ([]byte, error) {
	return crypto.WrapKeyOAEP(r.pub, dek)
}

// RSAOpener unwraps RSA-OAEP-SHA256 wrapped keys.
type RSAOpener struct {
	priv *rsa.PrivateKey
	kid  string
}

// NewRSAOpener computes the key id of priv.
func NewRSAOpener(priv *rsa.PrivateKey) (*RSAOpener, error) {
	if priv == nil {
		return nil, fmt.Errorf("%w: missing private key", trusterrors.ErrKeyFormat)
	}
	if err := crypto.ValidatePublicKey(&priv.PublicKey); err != nil {
		return nil, err
	}
	kid, err := crypto.Fingerprint(&priv.PublicKey)
	if err != nil {
		return nil, err
	}
	return &RSAOpener{priv: priv, kid: kid}, nil
}

func (o *RSAOpener) KeyID() string { return o.kid }

func (o *RSAOpener) Unwrap(alg string, wrapped []byte) ([]byte, error) {
	if alg != crypto.AlgRSAOAEP256 {
		return nil, fmt.Errorf("%w: %s key cannot unwrap %s", crypto.ErrUnwrapFailed, crypto.AlgRSAOAEP256, alg)
	}
	return crypto.UnwrapKeyOAEP(o.priv, wrapped)
}

// KEMRecipient wraps keys for an ML-KEM-768 public key.
type KEMRecipient struct {
	pub []byte
	kid string
}

// NewKEMRecipient checks the public key size and computes its key id.
func NewKEMRecipient(publicKey []byte) (*KEMRecipient, error) {
	if len(publicKey) != crypto.MLKEMPublicKeySize {
		return nil, crypto.ErrInvalidPublicKeySize
	}
	return &KEMRecipient{pub: publicKey, kid: crypto.FingerprintBytes(publicKey)}, nil
}

func (r *KEMRecipient) KeyID() string     { return r.kid }
func (r *KEMRecipient) Algorithm() string { return crypto.AlgMLKEM768 }

func (r *KEMRecipient) Wrap(dek []byte) ([]byte, error) {
	return crypto.KEMWrapKey(r.pub, dek)
}

// KEMOpener unwraps keys with an ML-KEM-768 keypair.
type KEMOpener struct {
	kp *crypto.KEMKeypair
}

// NewKEMOpener wraps kp.
func NewKEMOpener(kp *crypto.KEMKeypair) *KEMOpener {
	return &KEMOpener{kp: kp}
}

func (o *KEMOpener) KeyID() string { return o.kp.KeyID() }

func (o *KEMOpener) Unwrap(alg string, wrapped []byte) ([]byte, error) {
	if alg != crypto.AlgMLKEM768 {
		return nil, fmt.Errorf("%w: %s key cannot unwrap %s", crypto.ErrUnwrapFailed, crypto.AlgMLKEM768, alg)
	}
	return o.kp.KEMUnwrapKey(wrapped)
}
