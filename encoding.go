package trustcore

import (
	"fmt"

	"github.com/vaultsandbox/trustcore/internal/challenge"
	"github.com/vaultsandbox/trustcore/internal/crypto"
)

// Signature is an RSA-PSS-SHA256 signature. Its text form is base64url
// without padding; build one with SignatureFromBytes or ParseSignature.
type Signature struct {
	b []byte
}

// SignatureFromBytes wraps raw signature bytes. The slice is copied.
func SignatureFromBytes(b []byte) Signature {
	return Signature{b: append([]byte(nil), b...)}
}

// ParseSignature decodes the canonical text form of a signature.
func ParseSignature(s string) (Signature, error) {
	b, err := crypto.FromBase64URL(s)
	if err != nil {
		return Signature{}, fmt.Errorf("signature: %w", err)
	}
	if len(b) == 0 {
		return Signature{}, fmt.Errorf("%w: empty signature", ErrInvalidEncoding)
	}
	return Signature{b: b}, nil
}

// Bytes returns a copy of the raw signature.
func (s Signature) Bytes() []byte {
	return append([]byte(nil), s.b...)
}

// IsZero reports whether s holds no signature.
func (s Signature) IsZero() bool {
	return len(s.b) == 0
}

// String returns the canonical text form.
func (s Signature) String() string {
	return crypto.ToBase64URL(s.b)
}

// MarshalText implements encoding.TextMarshaler.
func (s Signature) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Signature) UnmarshalText(text []byte) error {
	v, err := ParseSignature(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// NonceSize is the length of a challenge nonce in bytes.
const NonceSize = challenge.NonceSize

// Nonce is a challenge nonce. Its text form is base64url without padding.
type Nonce struct {
	b []byte
}

// NonceFromBytes wraps a raw nonce of NonceSize bytes. The slice is copied.
func NonceFromBytes(b []byte) (Nonce, error) {
	if len(b) != NonceSize {
		return Nonce{}, fmt.Errorf("%w: nonce must be %d bytes, got %d", ErrInvalidEncoding, NonceSize, len(b))
	}
	return Nonce{b: append([]byte(nil), b...)}, nil
}

// ParseNonce decodes the canonical text form of a nonce.
func ParseNonce(s string) (Nonce, error) {
	b, err := crypto.FromBase64URL(s)
	if err != nil {
		return Nonce{}, fmt.Errorf("nonce: %w", err)
	}
	return NonceFromBytes(b)
}

// Bytes returns a copy of the raw nonce. These are the bytes a client signs.
func (n Nonce) Bytes() []byte {
	return append([]byte(nil), n.b...)
}

// String returns the canonical text form.
func (n Nonce) String() string {
	return crypto.ToBase64URL(n.b)
}

// MarshalText implements encoding.TextMarshaler.
func (n Nonce) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (n *Nonce) UnmarshalText(text []byte) error {
	v, err := ParseNonce(string(text))
	if err != nil {
		return err
	}
	*n = v
	return nil
}
