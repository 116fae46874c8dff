package ca

import (
	"github.com/vaultsandbox/trustcore/internal/revocation"
	"github.com/vaultsandbox/trustcore/internal/trusterrors"
)

// Status is the outcome of verifying a certificate.
type Status string

// Verification statuses. Only StatusActive means the certificate can be used.
const (
	StatusActive           Status = "active"
	StatusExpired          Status = "expired"
	StatusNotYetValid      Status = "not_yet_valid"
	StatusRevoked          Status = "revoked"
	StatusSignatureInvalid Status = "signature_invalid"
	// StatusIndeterminate means the revocation state could not be read.
	StatusIndeterminate Status = "indeterminate"
)

// Verification is the result of Authority.Verify.
type Verification struct {
	Status Status
	Serial string
	// Reason is a human readable explanation for non-active results.
	Reason string
	// Revocation is set when Status is StatusRevoked.
	Revocation *revocation.Entry
}

// OK reports whether the certificate is active.
func (v Verification) OK() bool {
	return v.Status == StatusActive
}

// Err converts a non-active verification into a typed error.
func (v Verification) Err() error {
	var sentinel error
	switch v.Status {
	case StatusActive:
		return nil
	case StatusExpired:
		sentinel = trusterrors.ErrCertificateExpired
	case StatusNotYetValid:
		sentinel = trusterrors.ErrCertificateNotYetValid
	case StatusRevoked:
		sentinel = trusterrors.ErrCertificateRevoked
	default:
		sentinel = trusterrors.ErrCertificateInvalid
	}
	return trusterrors.NewCertificateError(v.Serial, string(v.Status), v.Reason, sentinel)
}
