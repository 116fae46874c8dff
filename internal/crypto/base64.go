package crypto

import (
	"encoding/base64"
	"fmt"

	"github.com/vaultsandbox/trustcore/internal/trusterrors"
)

var canonical = base64.RawURLEncoding.Strict()

// ToBase64URL encodes bytes to URL-safe base64 without padding.
func ToBase64URL(data []byte) string {
	return canonical.EncodeToString(data)
}

// FromBase64URL decodes URL-safe base64 without padding. Any other
// alphabet, padding or non-canonical trailing bits are rejected.
func FromBase64URL(s string) ([]byte, error) {
	b, err := canonical.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", trusterrors.ErrInvalidEncoding, err)
	}
	return b, nil
}
