package hybrid

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vaultsandbox/trustcore/internal/crypto"
	"github.com/vaultsandbox/trustcore/internal/trusterrors"
)

// Version is the only sealed payload format version.
const Version = 1

// Algorithms names the suite a payload was sealed with.
type Algorithms struct {
	Wrap   string `json:"wrap"`
	AEAD   string `json:"aead"`
	Sig    string `json:"sig"`
	Digest string `json:"digest"`
}

// Suite is the algorithm suite of every payload this package produces.
var Suite = Algorithms{
	Wrap:   crypto.AlgRSAOAEP256,
	AEAD:   crypto.AlgAES256GCM,
	Sig:    crypto.AlgRSAPSSSHA256,
	Digest: crypto.AlgSHA256,
}

// RecipientEntry carries the data-encryption key wrapped for one recipient.
type RecipientEntry struct {
	KeyID      string `json:"kid"`
	Alg        string `json:"alg"`
	WrappedKey string `json:"wrapped_key"`
}

// Payload is a sealed message. Every byte string is canonical base64url.
type Payload struct {
	Version    int              `json:"v"`
	Algs       Algorithms       `json:"algs"`
	Sender     string           `json:"sender"`
	Recipients []RecipientEntry `json:"recipients"`
	Nonce      string           `json:"nonce"`
	Ciphertext string           `json:"ciphertext"`
	Digest     string           `json:"digest"`
	Signature  string           `json:"sig"`
}

// Parse decodes and validates a JSON payload. Unknown fields are rejected.
func Parse(data []byte) (*Payload, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var p Payload
	if err := dec.Decode(&p); err != nil {
		return nil, decodeError(fmt.Errorf("parse payload: %w", err))
	}
	if dec.More() {
		return nil, decodeError(fmt.Errorf("trailing data after payload"))
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Marshal encodes the payload as JSON.
func (p *Payload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// Recipient returns the entry for kid.
func (p *Payload) Recipient(kid string) (RecipientEntry, bool) {
	for _, r := range p.Recipients {
		if r.KeyID == kid {
			return r, true
		}
	}
	return RecipientEntry{}, false
}

// KeyIDs lists the recipients' key ids in payload order.
func (p *Payload) KeyIDs() []string {
	ids := make([]string, len(p.Recipients))
	for i, r := range p.Recipients {
		ids[i] = r.KeyID
	}
	return ids
}

// Validate checks the payload structure without any key material.
func (p *Payload) Validate() error {
	if p == nil {
		return decodeError(fmt.Errorf("missing payload"))
	}
	if p.Version != Version {
		return decodeError(fmt.Errorf("unsupported version %d", p.Version))
	}
	if p.Algs != Suite {
		return decodeError(fmt.Errorf("unsupported algorithm suite %+v", p.Algs))
	}
	if p.Sender == "" {
		return decodeError(fmt.Errorf("missing sender"))
	}
	if len(p.Recipients) == 0 {
		return decodeError(fmt.Errorf("no recipients"))
	}

	seen := make(map[string]struct{}, len(p.Recipients))
	for _, r := range p.Recipients {
		if r.KeyID == "" {
			return decodeError(fmt.Errorf("recipient without key id"))
		}
		if _, dup := seen[r.KeyID]; dup {
			return decodeError(fmt.Errorf("duplicate recipient %s", r.KeyID))
		}
		seen[r.KeyID] = struct{}{}
		if r.Alg != crypto.AlgRSAOAEP256 && r.Alg != crypto.AlgMLKEM768 {
			return decodeError(fmt.Errorf("unsupported wrap algorithm %q", r.Alg))
		}
		if _, err := crypto.FromBase64URL(r.WrappedKey); err != nil {
			return decodeError(fmt.Errorf("recipient %s: %w", r.KeyID, err))
		}
	}

	if _, err := p.decode(); err != nil {
		return err
	}
	return nil
}

type decoded struct {
	nonce      []byte
	ciphertext []byte
	digest     []byte
	signature  []byte
}

func (p *Payload) decode() (*decoded, error) {
	var d decoded
	fields := []struct {
		name string
		in   string
		out  *[]byte
		size int
	}{
		{"nonce", p.Nonce, &d.nonce, crypto.AESNonceSize},
		{"ciphertext", p.Ciphertext, &d.ciphertext, -1},
		{"digest", p.Digest, &d.digest, crypto.DigestSize},
		{"sig", p.Signature, &d.signature, -1},
	}
	for _, f := range fields {
		b, err := crypto.FromBase64URL(f.in)
		if err != nil {
			return nil, decodeError(fmt.Errorf("%s: %w", f.name, err))
		}
		if f.size >= 0 && len(b) != f.size {
			return nil, decodeError(fmt.Errorf("%s: got %d bytes, want %d", f.name, len(b), f.size))
		}
		*f.out = b
	}
	if len(d.ciphertext) < crypto.AESTagSize {
		return nil, decodeError(fmt.Errorf("ciphertext shorter than the authentication tag"))
	}
	if len(d.signature) == 0 {
		return nil, decodeError(fmt.Errorf("missing signature"))
	}
	return &d, nil
}

// additionalData binds the header to the AEAD ciphertext.
func (p *Payload) additionalData() []byte {
	return []byte(fmt.Sprintf("trustcore/v%d|%s|%s|%s|%s|%s",
		p.Version, p.Algs.Wrap, p.Algs.AEAD, p.Algs.Sig, p.Algs.Digest, p.Sender))
}

func (p *Payload) clone() *Payload {
	c := *p
	c.Recipients = append([]RecipientEntry(nil), p.Recipients...)
	return &c
}

func decodeError(err error) error {
	return &trusterrors.DecryptionError{Stage: trusterrors.StageDecode, Err: err}
}
