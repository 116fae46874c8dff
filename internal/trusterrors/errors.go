// Package trusterrors provides the shared error taxonomy for the trust core.
//
// Every internal package returns these sentinels (directly or wrapped in one
// of the typed errors below) so that the public trustcore package can
// re-export them and callers can rely on errors.Is.
package trusterrors

import (
	"errors"
	"fmt"
)

// Key material errors.
var (
	// ErrKeyFormat is returned when key material cannot be parsed or is
	// below the minimum supported strength.
	ErrKeyFormat = errors.New("malformed key material")

	// ErrInvalidEncoding is returned when a byte string crossing the trust
	// boundary is not canonical base64url.
	ErrInvalidEncoding = errors.New("invalid canonical encoding")
)

// Certificate errors.
var (
	// ErrCertificateExpired is returned when the current time is after NotAfter.
	ErrCertificateExpired = errors.New("certificate expired")

	// ErrCertificateNotYetValid is returned when the current time is before NotBefore.
	ErrCertificateNotYetValid = errors.New("certificate not yet valid")

	// ErrCertificateRevoked is returned when the certificate serial is revoked.
	ErrCertificateRevoked = errors.New("certificate revoked")

	// ErrCertificateInvalid is returned when the certificate was not signed
	// by this authority or cannot be parsed.
	ErrCertificateInvalid = errors.New("certificate signature invalid")

	// ErrRootCorrupt is returned when the stored CA root exists but cannot
	// be loaded. It is fatal for initialization.
	ErrRootCorrupt = errors.New("certificate authority root is corrupt")

	// ErrRootNotFound is returned by root stores that hold no root yet.
	ErrRootNotFound = errors.New("certificate authority root not found")

	// ErrRootExists is returned when a root store refuses to overwrite a root.
	ErrRootExists = errors.New("certificate authority root already exists")
)

// Identity errors.
var (
	// ErrIdentityNotFound is returned when no certificate is on file for a subject.
	ErrIdentityNotFound = errors.New("identity not found")

	// ErrInvalidIdentity is returned when identity attributes are malformed.
	ErrInvalidIdentity = errors.New("invalid identity")
)

// Signature and challenge errors.
var (
	// ErrSignatureInvalid is returned when a signature does not verify.
	ErrSignatureInvalid = errors.New("signature verification failed")

	// ErrChallengeExpired is returned when a challenge is used after its expiry.
	ErrChallengeExpired = errors.New("challenge expired")

	// ErrChallengeAlreadyConsumed is returned on any second use of a challenge.
	ErrChallengeAlreadyConsumed = errors.New("challenge already consumed")

	// ErrChallengeNotFound is returned for nonces this authenticator never
	// issued or has already garbage collected.
	ErrChallengeNotFound = errors.New("challenge not found")
)

// Payload errors.
var (
	// ErrEncryptionFailure is returned when a wrapped key or ciphertext is
	// malformed or was not addressed to the supplied private key.
	ErrEncryptionFailure = errors.New("encryption failure")

	// ErrIntegrityMismatch is returned when the AEAD tag or the plaintext
	// digest does not match.
	ErrIntegrityMismatch = errors.New("integrity mismatch")

	// ErrInvalidPayload is returned when a sealed payload is structurally invalid.
	ErrInvalidPayload = errors.New("invalid sealed payload")
)

// CertificateError describes a certificate that failed verification.
type CertificateError struct {
	Serial string
	Status string
	Reason string
	err    error
}

// NewCertificateError builds a CertificateError matching sentinel.
func NewCertificateError(serial, status, reason string, sentinel error) *CertificateError {
	return &CertificateError{Serial: serial, Status: status, Reason: reason, err: sentinel}
}

func (e *CertificateError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("certificate %s %s: %s", e.Serial, e.Status, e.Reason)
	}
	return fmt.Sprintf("certificate %s %s", e.Serial, e.Status)
}

// Unwrap returns the sentinel for errors.Is matching.
func (e *CertificateError) Unwrap() error {
	return e.err
}

// TrustError implements the trustcore.TrustError marker.
func (e *CertificateError) TrustError() {}

// Decryption stages reported by DecryptionError.
const (
	StageUnwrap    = "unwrap"
	StageAEAD      = "aead"
	StageDigest    = "digest"
	StageSignature = "signature"
	StageDecode    = "decode"
)

// DecryptionError represents a failure while opening a sealed payload.
type DecryptionError struct {
	Stage string
	Err   error
}

func (e *DecryptionError) Error() string {
	return fmt.Sprintf("open failed at %s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *DecryptionError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching by stage.
func (e *DecryptionError) Is(target error) bool {
	switch e.Stage {
	case StageUnwrap:
		return target == ErrEncryptionFailure
	case StageAEAD, StageDigest:
		return target == ErrIntegrityMismatch
	case StageSignature:
		return target == ErrSignatureInvalid
	case StageDecode:
		return target == ErrInvalidPayload || target == ErrEncryptionFailure
	}
	return false
}

// TrustError implements the trustcore.TrustError marker.
func (e *DecryptionError) TrustError() {}

// SignatureVerificationError indicates a signature did not verify against
// the expected public key.
type SignatureVerificationError struct {
	Message string
	KeyID   string
}

func (e *SignatureVerificationError) Error() string {
	if e.KeyID != "" {
		return fmt.Sprintf("signature verification failed for key %s: %s", e.KeyID, e.Message)
	}
	return fmt.Sprintf("signature verification failed: %s", e.Message)
}

// Is implements errors.Is for sentinel error matching.
func (e *SignatureVerificationError) Is(target error) bool {
	return target == ErrSignatureInvalid
}

// TrustError implements the trustcore.TrustError marker.
func (e *SignatureVerificationError) TrustError() {}

// ChallengeError describes a challenge that could not be redeemed.
type ChallengeError struct {
	ID    string
	State string
	err   error
}

// NewChallengeError builds a ChallengeError matching sentinel.
func NewChallengeError(id, state string, sentinel error) *ChallengeError {
	return &ChallengeError{ID: id, State: state, err: sentinel}
}

func (e *ChallengeError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("challenge %s", e.State)
	}
	return fmt.Sprintf("challenge %s %s", e.ID, e.State)
}

// Unwrap returns the sentinel for errors.Is matching.
func (e *ChallengeError) Unwrap() error {
	return e.err
}

// TrustError implements the trustcore.TrustError marker.
func (e *ChallengeError) TrustError() {}
