package trustcore

import (
	"crypto/rsa"
	"fmt"

	"go.uber.org/zap"

	"github.com/vaultsandbox/trustcore/internal/crypto"
	"github.com/vaultsandbox/trustcore/internal/hybrid"
	"github.com/vaultsandbox/trustcore/internal/observability/logger"
)

// SealedPayload is a payload encrypted for one or more recipients and
// signed by its sender. Its JSON form is the wire format.
type SealedPayload = hybrid.Payload

// Recipient wraps a payload's data key for one reader.
type Recipient = hybrid.Recipient

// Opener recovers a payload's data key.
type Opener = hybrid.Opener

// KEMKeyPair is an ML-KEM-768 key pair for post-quantum recipients.
type KEMKeyPair = crypto.KEMKeypair

// Payload operation names used in metrics.
const (
	opSeal    = "seal"
	opOpen    = "open"
	opShare   = "share"
	opUnshare = "unshare"
)

// ParseSealedPayload decodes and structurally validates a payload.
func ParseSealedPayload(data []byte) (*SealedPayload, error) {
	return hybrid.Parse(data)
}

// RSARecipient addresses a payload to an RSA public key.
func RSARecipient(pub *rsa.PublicKey) (Recipient, error) {
	return hybrid.NewRSARecipient(pub)
}

// KEMRecipient addresses a payload to an ML-KEM-768 public key.
func KEMRecipient(publicKey []byte) (Recipient, error) {
	return hybrid.NewKEMRecipient(publicKey)
}

// RSAOpener opens payloads addressed to priv.
func RSAOpener(priv *rsa.PrivateKey) (Opener, error) {
	return hybrid.NewRSAOpener(priv)
}

// KEMOpener opens payloads addressed to kp.
// A nil kp yields a nil Opener, which Open rejects.
func KEMOpener(kp *KEMKeyPair) Opener {
	if kp == nil {
		return nil
	}
	return hybrid.NewKEMOpener(kp)
}

// GenerateKEMKeyPair creates an ML-KEM-768 key pair.
func GenerateKEMKeyPair() (*KEMKeyPair, error) {
	return crypto.GenerateKEMKeypair()
}

// ParseKEMKeyPair rebuilds a key pair from a stored ML-KEM-768 secret key.
func ParseKEMKeyPair(secretKey []byte) (*KEMKeyPair, error) {
	kp, err := crypto.KEMKeypairFromSecretKey(secretKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyFormat, err)
	}
	return kp, nil
}

// SealForRecipient encrypts plaintext for recipientPub and signs it with
// senderPriv.
func (t *Trust) SealForRecipient(plaintext []byte, recipientPub *rsa.PublicKey, senderPriv *rsa.PrivateKey) (*SealedPayload, error) {
	return t.SealForRecipients(plaintext, []*rsa.PublicKey{recipientPub}, senderPriv)
}

// SealForRecipients encrypts plaintext once and wraps its data key for
// every recipient.
func (t *Trust) SealForRecipients(plaintext []byte, recipientPubs []*rsa.PublicKey, senderPriv *rsa.PrivateKey) (*SealedPayload, error) {
	recipients, err := rsaRecipients(recipientPubs)
	if err != nil {
		t.metrics.PayloadOperation(opSeal, err)
		return nil, err
	}
	return t.Seal(plaintext, recipients, senderPriv)
}

// SealForRecipients is the CA-free form of (*Trust).SealForRecipients,
// without logging or metrics.
func SealForRecipients(plaintext []byte, recipientPubs []*rsa.PublicKey, senderPriv *rsa.PrivateKey) (*SealedPayload, error) {
	recipients, err := rsaRecipients(recipientPubs)
	if err != nil {
		return nil, err
	}
	return hybrid.Seal(plaintext, recipients, senderPriv)
}

// OpenAsRecipient is the CA-free form of (*Trust).OpenAsRecipient, without
// logging or metrics.
func OpenAsRecipient(p *SealedPayload, recipientPriv *rsa.PrivateKey, senderPub *rsa.PublicKey) ([]byte, error) {
	opener, err := hybrid.NewRSAOpener(recipientPriv)
	if err != nil {
		return nil, err
	}
	return hybrid.Open(p, opener, senderPub)
}

func rsaRecipients(pubs []*rsa.PublicKey) ([]Recipient, error) {
	recipients := make([]Recipient, 0, len(pubs))
	for _, pub := range pubs {
		r, err := hybrid.NewRSARecipient(pub)
		if err != nil {
			return nil, err
		}
		recipients = append(recipients, r)
	}
	return recipients, nil
}

// Seal encrypts plaintext for any mix of RSA and ML-KEM recipients.
func (t *Trust) Seal(plaintext []byte, recipients []Recipient, senderPriv *rsa.PrivateKey) (*SealedPayload, error) {
	p, err := hybrid.Seal(plaintext, recipients, senderPriv)
	t.metrics.PayloadOperation(opSeal, err)
	if err != nil {
		return nil, err
	}
	t.log.Debug("payload sealed", logger.Op(opSeal), logger.KeyID(p.Sender), logger.Count(len(p.Recipients)))
	return p, nil
}

// OpenAsRecipient decrypts p with recipientPriv and checks that it was
// signed by senderPub. No plaintext is returned on any failure.
func (t *Trust) OpenAsRecipient(p *SealedPayload, recipientPriv *rsa.PrivateKey, senderPub *rsa.PublicKey) ([]byte, error) {
	opener, err := hybrid.NewRSAOpener(recipientPriv)
	if err != nil {
		t.metrics.PayloadOperation(opOpen, err)
		return nil, err
	}
	return t.Open(p, opener, senderPub)
}

// Open decrypts p with any opener and checks that it was signed by senderPub.
func (t *Trust) Open(p *SealedPayload, opener Opener, senderPub *rsa.PublicKey) ([]byte, error) {
	plaintext, err := hybrid.Open(p, opener, senderPub)
	t.metrics.PayloadOperation(opOpen, err)
	if err != nil {
		fields := []zap.Field{logger.Op(opOpen), logger.Err(err)}
		if opener != nil {
			fields = append(fields, logger.KeyID(opener.KeyID()))
		}
		t.log.Info("payload rejected", fields...)
		return nil, err
	}
	return plaintext, nil
}

// ShareWith grants recipientPub access to p. holderPriv must belong to an
// existing recipient. The ciphertext and signature are unchanged.
func (t *Trust) ShareWith(p *SealedPayload, holderPriv *rsa.PrivateKey, recipientPub *rsa.PublicKey) (*SealedPayload, error) {
	holder, err := hybrid.NewRSAOpener(holderPriv)
	if err != nil {
		t.metrics.PayloadOperation(opShare, err)
		return nil, err
	}
	r, err := hybrid.NewRSARecipient(recipientPub)
	if err != nil {
		t.metrics.PayloadOperation(opShare, err)
		return nil, err
	}
	out, err := hybrid.AddRecipient(p, holder, r)
	t.metrics.PayloadOperation(opShare, err)
	return out, err
}

// Unshare removes the recipient entry for kid. The data key is not
// rotated; seal a new payload to cut off a reader who kept it.
func (t *Trust) Unshare(p *SealedPayload, kid string) (*SealedPayload, error) {
	out, err := hybrid.RemoveRecipient(p, kid)
	t.metrics.PayloadOperation(opUnshare, err)
	return out, err
}
