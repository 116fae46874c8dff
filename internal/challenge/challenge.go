// Package challenge implements challenge-response authentication: the server
// hands out single-use random nonces and a client proves possession of its
// private key by signing one.
package challenge

import (
	"context"
	"time"

	"github.com/vaultsandbox/trustcore/internal/crypto"
)

// NonceSize is the length of a challenge nonce in bytes.
const NonceSize = 32

// DefaultTTL is how long an issued challenge can be redeemed.
const DefaultTTL = 2 * time.Minute

// DefaultRetention is how long stores remember a challenge after its expiry.
const DefaultRetention = 5 * time.Minute

// Challenge is a single-use nonce.
type Challenge struct {
	ID        string    `json:"id"`
	Nonce     []byte    `json:"nonce"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the challenge is past its expiry at now.
func (c *Challenge) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Store keeps issued challenges until they are consumed.
//
// Take must be atomic: for a given nonce exactly one caller ever gets the
// challenge back, every later caller gets an error matching
// trusterrors.ErrChallengeAlreadyConsumed. Nonces a store never saw, or has
// forgotten, yield trusterrors.ErrChallengeNotFound.
type Store interface {
	Put(ctx context.Context, c *Challenge) error
	Take(ctx context.Context, nonce []byte) (*Challenge, error)
}

func storeKey(nonce []byte) string {
	return crypto.ToBase64URL(nonce)
}

// keepFor returns how long a store should hold c: its lifetime plus
// retention. Only c's own timestamps are used, never the store's clock.
func keepFor(c *Challenge, retention time.Duration) time.Duration {
	d := c.ExpiresAt.Sub(c.IssuedAt) + retention
	if d < time.Second {
		d = time.Second
	}
	return d
}
