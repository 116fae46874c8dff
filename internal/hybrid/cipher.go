// Package hybrid seals payloads for one or more recipients: the bulk data is
// encrypted once with AES-256-GCM under a fresh data-encryption key (DEK), and
// only the 32-byte DEK is wrapped per recipient with an asymmetric scheme.
// The sender signs the plaintext with RSA-PSS-SHA256 and a SHA-256 digest of
// the plaintext travels with the payload.
package hybrid

import (
	"crypto/rsa"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/vaultsandbox/trustcore/internal/crypto"
	"github.com/vaultsandbox/trustcore/internal/trusterrors"
)

// maxParallelWraps bounds concurrent key wraps in Seal.
const maxParallelWraps = 8

// ErrNoRecipientEntry is returned when a payload holds no wrapped key for the opener.
var ErrNoRecipientEntry = errors.New("payload is not addressed to this key")

// Seal encrypts plaintext for every recipient and signs it with sender.
func Seal(plaintext []byte, recipients []Recipient, sender *rsa.PrivateKey) (*Payload, error) {
	if len(recipients) == 0 {
		return nil, fmt.Errorf("%w: no recipients", trusterrors.ErrInvalidPayload)
	}
	if sender == nil {
		return nil, fmt.Errorf("%w: missing sender key", trusterrors.ErrKeyFormat)
	}
	senderID, err := crypto.Fingerprint(&sender.PublicKey)
	if err != nil {
		return nil, err
	}

	dek, err := crypto.RandomBytes(crypto.AESKeySize)
	if err != nil {
		return nil, fmt.Errorf("generate data key: %w", err)
	}
	defer crypto.Wipe(dek)
	nonce, err := crypto.RandomBytes(crypto.AESNonceSize)
	if err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	p := &Payload{
		Version: Version,
		Algs:    Suite,
		Sender:  senderID,
	}

	entries, err := wrapAll(dek, recipients)
	if err != nil {
		return nil, err
	}
	p.Recipients = entries

	ciphertext, err := crypto.SealAESGCM(dek, nonce, plaintext, p.additionalData())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", trusterrors.ErrEncryptionFailure, err)
	}
	sig, err := crypto.Sign(sender, plaintext)
	if err != nil {
		return nil, err
	}

	p.Nonce = crypto.ToBase64URL(nonce)
	p.Ciphertext = crypto.ToBase64URL(ciphertext)
	p.Digest = crypto.ToBase64URL(crypto.Digest(plaintext))
	p.Signature = crypto.ToBase64URL(sig)
	return p, nil
}

func wrapAll(dek []byte, recipients []Recipient) ([]RecipientEntry, error) {
	entries := make([]RecipientEntry, len(recipients))
	seen := make(map[string]struct{}, len(recipients))
	for _, r := range recipients {
		if _, dup := seen[r.KeyID()]; dup {
			return nil, fmt.Errorf("%w: duplicate recipient %s", trusterrors.ErrInvalidPayload, r.KeyID())
		}
		seen[r.KeyID()] = struct{}{}
	}

	var g errgroup.Group
	g.SetLimit(maxParallelWraps)
	for i, r := range recipients {
		i, r := i, r
		g.Go(func() error {
			entry, err := wrapFor(dek, r)
			if err != nil {
				return err
			}
			entries[i] = entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

func wrapFor(dek []byte, r Recipient) (RecipientEntry, error) {
	wrapped, err := r.Wrap(dek)
	if err != nil {
		return RecipientEntry{}, fmt.Errorf("%w: wrap for %s: %v", trusterrors.ErrEncryptionFailure, r.KeyID(), err)
	}
	return RecipientEntry{
		KeyID:      r.KeyID(),
		Alg:        r.Algorithm(),
		WrappedKey: crypto.ToBase64URL(wrapped),
	}, nil
}

// unwrap recovers the DEK for opener.
func unwrap(p *Payload, opener Opener) ([]byte, error) {
	if opener == nil {
		return nil, fmt.Errorf("%w: missing opener", trusterrors.ErrKeyFormat)
	}
	entry, ok := p.Recipient(opener.KeyID())
	if !ok {
		return nil, &trusterrors.DecryptionError{Stage: trusterrors.StageUnwrap, Err: ErrNoRecipientEntry}
	}
	wrapped, err := crypto.FromBase64URL(entry.WrappedKey)
	if err != nil {
		return nil, decodeError(err)
	}
	dek, err := opener.Unwrap(entry.Alg, wrapped)
	if err != nil {
		return nil, &trusterrors.DecryptionError{Stage: trusterrors.StageUnwrap, Err: err}
	}
	return dek, nil
}

// Open verifies and decrypts p for opener. sender is the public key the
// payload claims to be signed by. Open fails closed: on any error no
// plaintext is returned.
//
// Steps: unwrap the DEK, AES-GCM open, compare the plaintext digest, verify
// the signature.
func Open(p *Payload, opener Opener, sender *rsa.PublicKey) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	d, err := p.decode()
	if err != nil {
		return nil, err
	}

	dek, err := unwrap(p, opener)
	if err != nil {
		return nil, err
	}
	defer crypto.Wipe(dek)

	plaintext, err := crypto.OpenAESGCM(dek, d.nonce, d.ciphertext, p.additionalData())
	if err != nil {
		return nil, &trusterrors.DecryptionError{Stage: trusterrors.StageAEAD, Err: err}
	}

	if !crypto.EqualDigest(crypto.Digest(plaintext), d.digest) {
		crypto.Wipe(plaintext)
		return nil, &trusterrors.DecryptionError{Stage: trusterrors.StageDigest, Err: errors.New("plaintext digest mismatch")}
	}

	if err := verifySender(p, sender, plaintext, d.signature); err != nil {
		crypto.Wipe(plaintext)
		return nil, &trusterrors.DecryptionError{Stage: trusterrors.StageSignature, Err: err}
	}

	return plaintext, nil
}

func verifySender(p *Payload, sender *rsa.PublicKey, plaintext, sig []byte) error {
	kid, err := crypto.Fingerprint(sender)
	if err != nil {
		return err
	}
	if kid != p.Sender {
		return &trusterrors.SignatureVerificationError{
			Message: "payload was sealed by a different sender",
			KeyID:   kid,
		}
	}
	return crypto.Verify(sender, plaintext, sig)
}

// AddRecipient re-wraps the DEK of p, recovered through holder, for r.
// The ciphertext, digest and signature are unchanged. Adding a recipient
// that is already present returns p unchanged.
func AddRecipient(p *Payload, holder Opener, r Recipient) (*Payload, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if _, ok := p.Recipient(r.KeyID()); ok {
		return p, nil
	}

	dek, err := unwrap(p, holder)
	if err != nil {
		return nil, err
	}
	defer crypto.Wipe(dek)

	entry, err := wrapFor(dek, r)
	if err != nil {
		return nil, err
	}
	out := p.clone()
	out.Recipients = append(out.Recipients, entry)
	return out, nil
}

// RemoveRecipient drops the entry for kid. The DEK is not rotated: a
// removed recipient who kept the DEK can still decrypt this ciphertext, so
// callers re-seal to revoke access to future versions.
func RemoveRecipient(p *Payload, kid string) (*Payload, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if _, ok := p.Recipient(kid); !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoRecipientEntry, kid)
	}
	if len(p.Recipients) == 1 {
		return nil, fmt.Errorf("%w: cannot remove the last recipient", trusterrors.ErrInvalidPayload)
	}

	out := p.clone()
	out.Recipients = out.Recipients[:0]
	for _, r := range p.Recipients {
		if r.KeyID != kid {
			out.Recipients = append(out.Recipients, r)
		}
	}
	return out, nil
}
