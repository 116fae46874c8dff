package trustcore

import (
	"github.com/vaultsandbox/trustcore/internal/trusterrors"
)

// Sentinel errors for errors.Is() checks.
var (
	// ErrKeyFormat is returned when key material cannot be parsed or is
	// weaker than RSA-2048.
	ErrKeyFormat = trusterrors.ErrKeyFormat

	// ErrInvalidEncoding is returned when text is not canonical base64url.
	ErrInvalidEncoding = trusterrors.ErrInvalidEncoding

	// ErrCertificateExpired is returned when a certificate is past NotAfter.
	ErrCertificateExpired = trusterrors.ErrCertificateExpired

	// ErrCertificateNotYetValid is returned when a certificate is before NotBefore.
	ErrCertificateNotYetValid = trusterrors.ErrCertificateNotYetValid

	// ErrCertificateRevoked is returned when a certificate's serial is revoked.
	ErrCertificateRevoked = trusterrors.ErrCertificateRevoked

	// ErrCertificateInvalid is returned when a certificate was not signed by
	// this authority, is malformed, or its revocation state is unknown.
	ErrCertificateInvalid = trusterrors.ErrCertificateInvalid

	// ErrRootCorrupt is returned by New when the stored CA root cannot be loaded.
	ErrRootCorrupt = trusterrors.ErrRootCorrupt

	// ErrIdentityNotFound is returned when no certificate is on file for a user.
	ErrIdentityNotFound = trusterrors.ErrIdentityNotFound

	// ErrInvalidIdentity is returned when identity attributes are malformed.
	ErrInvalidIdentity = trusterrors.ErrInvalidIdentity

	// ErrSignatureInvalid is returned when a signature does not verify.
	ErrSignatureInvalid = trusterrors.ErrSignatureInvalid

	// ErrChallengeExpired is returned when a challenge is redeemed too late.
	ErrChallengeExpired = trusterrors.ErrChallengeExpired

	// ErrChallengeAlreadyConsumed is returned on any second use of a challenge.
	ErrChallengeAlreadyConsumed = trusterrors.ErrChallengeAlreadyConsumed

	// ErrChallengeNotFound is returned for nonces that were never issued.
	ErrChallengeNotFound = trusterrors.ErrChallengeNotFound

	// ErrEncryptionFailure is returned when a payload is not addressed to the
	// supplied key or its wrapped key is malformed.
	ErrEncryptionFailure = trusterrors.ErrEncryptionFailure

	// ErrIntegrityMismatch is returned when a payload was tampered with.
	ErrIntegrityMismatch = trusterrors.ErrIntegrityMismatch

	// ErrInvalidPayload is returned when a sealed payload is structurally invalid.
	ErrInvalidPayload = trusterrors.ErrInvalidPayload
)

// TrustError is implemented by all typed errors of this package.
type TrustError interface {
	error
	TrustError() // marker method
}

// CertificateError describes a certificate that failed verification.
// It matches ErrCertificateExpired, ErrCertificateNotYetValid,
// ErrCertificateRevoked or ErrCertificateInvalid.
type CertificateError = trusterrors.CertificateError

// DecryptionError reports the stage at which opening a payload failed.
// Stage "unwrap" matches ErrEncryptionFailure, "aead" and "digest" match
// ErrIntegrityMismatch, "signature" matches ErrSignatureInvalid and
// "decode" matches ErrInvalidPayload.
type DecryptionError = trusterrors.DecryptionError

// SignatureVerificationError indicates a signature did not verify.
type SignatureVerificationError = trusterrors.SignatureVerificationError

// ChallengeError describes a challenge that could not be redeemed.
type ChallengeError = trusterrors.ChallengeError

// Decryption stages reported by DecryptionError.
const (
	StageUnwrap    = trusterrors.StageUnwrap
	StageAEAD      = trusterrors.StageAEAD
	StageDigest    = trusterrors.StageDigest
	StageSignature = trusterrors.StageSignature
	StageDecode    = trusterrors.StageDecode
)

var (
	_ TrustError = (*CertificateError)(nil)
	_ TrustError = (*DecryptionError)(nil)
	_ TrustError = (*SignatureVerificationError)(nil)
	_ TrustError = (*ChallengeError)(nil)
)
