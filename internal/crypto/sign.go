package crypto

import (
	"crypto/rsa"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/vaultsandbox/trustcore/internal/trusterrors"
)

// pssOptions is shared by signing and verification so the two sides can
// never disagree on salt length or hash.
var pssOptions = &rsa.PSSOptions{
	SaltLength: rsa.PSSSaltLengthEqualsHash,
	Hash:       signatureHash,
}

// Sign produces an RSA-PSS-SHA256 signature over msg.
func Sign(priv *rsa.PrivateKey, msg []byte) ([]byte, error) {
	if priv == nil {
		return nil, fmt.Errorf("%w: missing private key", trusterrors.ErrKeyFormat)
	}
	digest := sha256.Sum256(msg)
	sig, err := rsa.SignPSS(randReader, priv, signatureHash, digest[:], pssOptions)
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	return sig, nil
}

// Verify checks an RSA-PSS-SHA256 signature over msg.
// Returns an error matching trusterrors.ErrSignatureInvalid on failure.
func Verify(pub *rsa.PublicKey, msg, sig []byte) error {
	if err := ValidatePublicKey(pub); err != nil {
		return err
	}
	digest := sha256.Sum256(msg)
	if err := rsa.VerifyPSS(pub, signatureHash, digest[:], sig, pssOptions); err != nil {
		kid, _ := Fingerprint(pub)
		return &trusterrors.SignatureVerificationError{Message: err.Error(), KeyID: kid}
	}
	return nil
}

// WrapKeyOAEP encrypts a data-encryption key for pub with RSA-OAEP-SHA256.
// Only small symmetric keys may be wrapped; bulk data never goes through RSA.
func WrapKeyOAEP(pub *rsa.PublicKey, dek []byte) ([]byte, error) {
	if err := ValidatePublicKey(pub); err != nil {
		return nil, err
	}
	if len(dek) != AESKeySize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidKeySize, len(dek), AESKeySize)
	}
	wrapped, err := rsa.EncryptOAEP(sha256.New(), randReader, pub, dek, []byte(OAEPLabel))
	if err != nil {
		return nil, fmt.Errorf("wrap key: %w", err)
	}
	return wrapped, nil
}

// UnwrapKeyOAEP recovers a data-encryption key wrapped by [WrapKeyOAEP].
func UnwrapKeyOAEP(priv *rsa.PrivateKey, wrapped []byte) ([]byte, error) {
	if priv == nil {
		return nil, fmt.Errorf("%w: missing private key", trusterrors.ErrKeyFormat)
	}
	dek, err := rsa.DecryptOAEP(sha256.New(), nil, priv, wrapped, []byte(OAEPLabel))
	if err != nil {
		return nil, errors.Join(ErrUnwrapFailed, err)
	}
	if len(dek) != AESKeySize {
		Wipe(dek)
		return nil, fmt.Errorf("%w: unexpected key length %d", ErrUnwrapFailed, len(dek))
	}
	return dek, nil
}
