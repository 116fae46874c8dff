package ca

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"net/mail"
	"unicode"
	"unicode/utf8"

	"github.com/vaultsandbox/trustcore/internal/trusterrors"
)

// MaxUsernameLength is the longest accepted username, in bytes.
const MaxUsernameLength = 64

// Identity is the subject of a certificate.
type Identity struct {
	Username string
	Email    string
}

// Validate checks the identity attributes.
func (id Identity) Validate() error {
	switch {
	case id.Username == "":
		return fmt.Errorf("%w: username is required", trusterrors.ErrInvalidIdentity)
	case len(id.Username) > MaxUsernameLength:
		return fmt.Errorf("%w: username exceeds %d bytes", trusterrors.ErrInvalidIdentity, MaxUsernameLength)
	case !utf8.ValidString(id.Username):
		return fmt.Errorf("%w: username is not valid UTF-8", trusterrors.ErrInvalidIdentity)
	}
	for _, r := range id.Username {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: username contains control characters", trusterrors.ErrInvalidIdentity)
		}
	}

	if id.Email != "" {
		addr, err := mail.ParseAddress(id.Email)
		if err != nil || addr.Address != id.Email {
			return fmt.Errorf("%w: malformed email address", trusterrors.ErrInvalidIdentity)
		}
	}
	return nil
}

func (id Identity) subject(organization string) pkix.Name {
	name := pkix.Name{CommonName: id.Username}
	if organization != "" {
		name.Organization = []string{organization}
	}
	return name
}

func (id Identity) emails() []string {
	if id.Email == "" {
		return nil
	}
	return []string{id.Email}
}

// IdentityOf extracts the identity encoded in cert.
func IdentityOf(cert *x509.Certificate) Identity {
	id := Identity{Username: cert.Subject.CommonName}
	if len(cert.EmailAddresses) > 0 {
		id.Email = cert.EmailAddresses[0]
	}
	return id
}
