package hybrid

import (
	"bytes"
	"crypto/rsa"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultsandbox/trustcore/internal/crypto"
	"github.com/vaultsandbox/trustcore/internal/trusterrors"
)

var (
	keysOnce sync.Once
	keys     []*rsa.PrivateKey
	keysErr  error
)

// testKeys returns alice, bob, carol and mallory.
func testKeys(t *testing.T) (alice, bob, carol, mallory *rsa.PrivateKey) {
	t.Helper()
	keysOnce.Do(func() {
		for i := 0; i < 4; i++ {
			k, err := crypto.GenerateRSA(crypto.DefaultRSABits)
			if err != nil {
				keysErr = err
				return
			}
			keys = append(keys, k)
		}
	})
	require.NoError(t, keysErr)
	return keys[0], keys[1], keys[2], keys[3]
}

func rsaRecipient(t *testing.T, k *rsa.PrivateKey) *RSARecipient {
	t.Helper()
	r, err := NewRSARecipient(&k.PublicKey)
	require.NoError(t, err)
	return r
}

func rsaOpener(t *testing.T, k *rsa.PrivateKey) *RSAOpener {
	t.Helper()
	o, err := NewRSAOpener(k)
	require.NoError(t, err)
	return o
}

func TestSealOpen_RoundTrip(t *testing.T) {
	alice, bob, _, _ := testKeys(t)

	tests := []struct {
		name      string
		plaintext []byte
	}{
		{"empty", []byte{}},
		{"hello", []byte("hello")},
		{"binary", []byte{0x00, 0xff, 0x10}},
		{"large", bytes.Repeat([]byte("file chunk "), 20000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Seal(tt.plaintext, []Recipient{rsaRecipient(t, bob)}, alice)
			require.NoError(t, err)

			got, err := Open(p, rsaOpener(t, bob), &alice.PublicKey)
			require.NoError(t, err)
			assert.Equal(t, tt.plaintext, got)
		})
	}
}

func TestSeal_FreshKeyAndNonce(t *testing.T) {
	alice, bob, _, _ := testKeys(t)
	r := rsaRecipient(t, bob)

	a, err := Seal([]byte("same"), []Recipient{r}, alice)
	require.NoError(t, err)
	b, err := Seal([]byte("same"), []Recipient{r}, alice)
	require.NoError(t, err)

	assert.NotEqual(t, a.Nonce, b.Nonce)
	assert.NotEqual(t, a.Ciphertext, b.Ciphertext)
	assert.NotEqual(t, a.Recipients[0].WrappedKey, b.Recipients[0].WrappedKey)
	assert.Equal(t, a.Digest, b.Digest)
}

func TestSeal_Format(t *testing.T) {
	alice, bob, _, _ := testKeys(t)
	p, err := Seal([]byte("hello"), []Recipient{rsaRecipient(t, bob)}, alice)
	require.NoError(t, err)

	assert.Equal(t, Version, p.Version)
	assert.Equal(t, Suite, p.Algs)
	senderID, _ := crypto.Fingerprint(&alice.PublicKey)
	assert.Equal(t, senderID, p.Sender)
	bobID, _ := crypto.Fingerprint(&bob.PublicKey)
	assert.Equal(t, []string{bobID}, p.KeyIDs())

	data, err := p.Marshal()
	require.NoError(t, err)
	for _, field := range []string{`"v":1`, `"algs"`, `"wrapped_key"`, `"nonce"`, `"ciphertext"`, `"digest"`, `"sig"`} {
		assert.Contains(t, string(data), field)
	}
	assert.NotContains(t, string(data), "=")
	assert.NotContains(t, string(data), "+")
	assert.NotContains(t, string(data), "/")

	parsed, err := Parse(data)
	require.NoError(t, err)
	got, err := Open(parsed, rsaOpener(t, bob), &alice.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}

func TestSeal_Errors(t *testing.T) {
	alice, bob, _, _ := testKeys(t)

	_, err := Seal([]byte("x"), nil, alice)
	assert.ErrorIs(t, err, trusterrors.ErrInvalidPayload)

	_, err = Seal([]byte("x"), []Recipient{rsaRecipient(t, bob)}, nil)
	assert.ErrorIs(t, err, trusterrors.ErrKeyFormat)

	_, err = Seal([]byte("x"), []Recipient{rsaRecipient(t, bob), rsaRecipient(t, bob)}, alice)
	assert.ErrorIs(t, err, trusterrors.ErrInvalidPayload)
}

func TestOpen_Failures(t *testing.T) {
	alice, bob, _, mallory := testKeys(t)

	p, err := Seal([]byte("hello"), []Recipient{rsaRecipient(t, bob)}, alice)
	require.NoError(t, err)
	d, err := p.decode()
	require.NoError(t, err)

	flip := func(b []byte, i int) string {
		c := bytes.Clone(b)
		c[i] ^= 0x01
		return crypto.ToBase64URL(c)
	}

	// A payload that decrypts and has a matching digest but is signed by mallory.
	forged, err := Seal([]byte("hello"), []Recipient{rsaRecipient(t, bob)}, mallory)
	require.NoError(t, err)
	forgedSigOnly := p.clone()
	forgedSigOnly.Signature = forged.Signature

	tests := []struct {
		name    string
		mutate  func(p *Payload)
		opener  *rsa.PrivateKey
		sender  *rsa.PublicKey
		wantErr error
	}{
		{"wrong recipient key", nil, mallory, &alice.PublicKey, trusterrors.ErrEncryptionFailure},
		{"ciphertext bit flip", func(p *Payload) { p.Ciphertext = flip(d.ciphertext, 0) }, bob, &alice.PublicKey, trusterrors.ErrIntegrityMismatch},
		{"tag bit flip", func(p *Payload) { p.Ciphertext = flip(d.ciphertext, len(d.ciphertext)-1) }, bob, &alice.PublicKey, trusterrors.ErrIntegrityMismatch},
		{"nonce bit flip", func(p *Payload) { p.Nonce = flip(d.nonce, 3) }, bob, &alice.PublicKey, trusterrors.ErrIntegrityMismatch},
		{"digest bit flip", func(p *Payload) { p.Digest = flip(d.digest, 0) }, bob, &alice.PublicKey, trusterrors.ErrIntegrityMismatch},
		{"sender swapped", func(p *Payload) { p.Sender = forged.Sender }, bob, &alice.PublicKey, trusterrors.ErrIntegrityMismatch},
		{"signature bit flip", func(p *Payload) { p.Signature = flip(d.signature, 5) }, bob, &alice.PublicKey, trusterrors.ErrSignatureInvalid},
		{"foreign signature", func(p *Payload) { p.Signature = forgedSigOnly.Signature }, bob, &alice.PublicKey, trusterrors.ErrSignatureInvalid},
		{"wrong sender key", nil, bob, &mallory.PublicKey, trusterrors.ErrSignatureInvalid},
		{"wrapped key bit flip", func(p *Payload) {
			w, _ := crypto.FromBase64URL(p.Recipients[0].WrappedKey)
			p.Recipients[0].WrappedKey = flip(w, 7)
		}, bob, &alice.PublicKey, trusterrors.ErrEncryptionFailure},
		{"padded encoding", func(p *Payload) { p.Ciphertext += "=" }, bob, &alice.PublicKey, trusterrors.ErrInvalidPayload},
		{"unknown version", func(p *Payload) { p.Version = 2 }, bob, &alice.PublicKey, trusterrors.ErrInvalidPayload},
		{"weak suite", func(p *Payload) { p.Algs.Wrap = "RSA1_5" }, bob, &alice.PublicKey, trusterrors.ErrInvalidPayload},
		{"truncated ciphertext", func(p *Payload) { p.Ciphertext = crypto.ToBase64URL(d.ciphertext[:4]) }, bob, &alice.PublicKey, trusterrors.ErrEncryptionFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := p.clone()
			if tt.mutate != nil {
				tt.mutate(c)
			}
			got, err := Open(c, rsaOpener(t, tt.opener), tt.sender)
			assert.Nil(t, got, "no plaintext may be returned on failure")
			assert.ErrorIs(t, err, tt.wantErr)

			var decErr *trusterrors.DecryptionError
			assert.True(t, errors.As(err, &decErr), "expected DecryptionError, got %T", err)
		})
	}
}

func TestMultiRecipient(t *testing.T) {
	alice, bob, carol, mallory := testKeys(t)

	p, err := Seal([]byte("shared"), []Recipient{rsaRecipient(t, bob), rsaRecipient(t, carol)}, alice)
	require.NoError(t, err)
	require.Len(t, p.Recipients, 2)

	for _, k := range []*rsa.PrivateKey{bob, carol} {
		got, err := Open(p, rsaOpener(t, k), &alice.PublicKey)
		require.NoError(t, err)
		assert.Equal(t, "shared", string(got))
	}
	_, err = Open(p, rsaOpener(t, mallory), &alice.PublicKey)
	assert.ErrorIs(t, err, trusterrors.ErrEncryptionFailure)
}

func TestAddRemoveRecipient(t *testing.T) {
	alice, bob, carol, mallory := testKeys(t)

	p, err := Seal([]byte("share me"), []Recipient{rsaRecipient(t, bob)}, alice)
	require.NoError(t, err)

	shared, err := AddRecipient(p, rsaOpener(t, bob), rsaRecipient(t, carol))
	require.NoError(t, err)
	assert.Len(t, p.Recipients, 1, "AddRecipient must not mutate its input")
	require.Len(t, shared.Recipients, 2)
	assert.Equal(t, p.Ciphertext, shared.Ciphertext, "re-wrap must not re-encrypt the payload")
	assert.Equal(t, p.Nonce, shared.Nonce)
	assert.Equal(t, p.Signature, shared.Signature)

	got, err := Open(shared, rsaOpener(t, carol), &alice.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, "share me", string(got))

	// Idempotent.
	again, err := AddRecipient(shared, rsaOpener(t, bob), rsaRecipient(t, carol))
	require.NoError(t, err)
	assert.Len(t, again.Recipients, 2)

	// A holder that is not a recipient cannot share.
	_, err = AddRecipient(p, rsaOpener(t, mallory), rsaRecipient(t, mallory))
	assert.ErrorIs(t, err, trusterrors.ErrEncryptionFailure)

	bobID := rsaRecipient(t, bob).KeyID()
	removed, err := RemoveRecipient(shared, bobID)
	require.NoError(t, err)
	assert.Len(t, removed.Recipients, 1)
	_, err = Open(removed, rsaOpener(t, bob), &alice.PublicKey)
	assert.ErrorIs(t, err, trusterrors.ErrEncryptionFailure)

	_, err = RemoveRecipient(removed, bobID)
	assert.ErrorIs(t, err, ErrNoRecipientEntry)
	_, err = RemoveRecipient(removed, rsaRecipient(t, carol).KeyID())
	assert.ErrorIs(t, err, trusterrors.ErrInvalidPayload)
}

func TestOpen_NilOpener(t *testing.T) {
	alice, bob, carol, _ := testKeys(t)
	p, err := Seal([]byte("x"), []Recipient{rsaRecipient(t, bob)}, alice)
	require.NoError(t, err)

	got, err := Open(p, nil, &alice.PublicKey)
	assert.ErrorIs(t, err, trusterrors.ErrKeyFormat)
	assert.Nil(t, got)

	_, err = AddRecipient(p, nil, rsaRecipient(t, carol))
	assert.ErrorIs(t, err, trusterrors.ErrKeyFormat)
}

func TestKEMRecipient(t *testing.T) {
	alice, bob, _, _ := testKeys(t)

	kp, err := crypto.GenerateKEMKeypair()
	require.NoError(t, err)
	kemR, err := NewKEMRecipient(kp.PublicKey)
	require.NoError(t, err)

	p, err := Seal([]byte("post-quantum"), []Recipient{kemR, rsaRecipient(t, bob)}, alice)
	require.NoError(t, err)

	entry, ok := p.Recipient(kemR.KeyID())
	require.True(t, ok)
	assert.Equal(t, crypto.AlgMLKEM768, entry.Alg)

	got, err := Open(p, NewKEMOpener(kp), &alice.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, "post-quantum", string(got))

	got, err = Open(p, rsaOpener(t, bob), &alice.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, "post-quantum", string(got))

	other, err := crypto.GenerateKEMKeypair()
	require.NoError(t, err)
	_, err = Open(p, NewKEMOpener(other), &alice.PublicKey)
	assert.ErrorIs(t, err, trusterrors.ErrEncryptionFailure)

	_, err = NewKEMRecipient([]byte("short"))
	assert.ErrorIs(t, err, crypto.ErrInvalidPublicKeySize)
}

func TestParse_Rejects(t *testing.T) {
	alice, bob, _, _ := testKeys(t)
	p, err := Seal([]byte("x"), []Recipient{rsaRecipient(t, bob)}, alice)
	require.NoError(t, err)
	data, err := p.Marshal()
	require.NoError(t, err)

	tests := []struct {
		name string
		data string
	}{
		{"not json", "nope"},
		{"unknown field", strings.Replace(string(data), `"v":1`, `"v":1,"extra":true`, 1)},
		{"trailing data", string(data) + "{}"},
		{"no recipients", strings.Replace(string(data), string(mustJSON(t, p.Recipients)), "[]", 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			assert.ErrorIs(t, err, trusterrors.ErrInvalidPayload)
		})
	}
}
