// Package keygen runs RSA key generation on a bounded pool so that bursts
// of enrollments cannot saturate every core.
package keygen

import (
	"context"
	"crypto/rsa"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/vaultsandbox/trustcore/internal/crypto"
	"github.com/vaultsandbox/trustcore/internal/trusterrors"
)

// Pool generates RSA key pairs with at most Workers generations in flight.
type Pool struct {
	sem     *semaphore.Weighted
	bits    int
	workers int
	observe func(time.Duration)
}

// Option configures a Pool.
type Option func(*Pool)

// WithWorkers sets the maximum number of concurrent generations.
// Values below one are ignored.
func WithWorkers(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithBits sets the RSA modulus size.
func WithBits(bits int) Option {
	return func(p *Pool) {
		p.bits = bits
	}
}

// WithObserver registers a callback receiving the duration of every
// successful generation.
func WithObserver(fn func(time.Duration)) Option {
	return func(p *Pool) {
		p.observe = fn
	}
}

// New creates a pool. By default it allows GOMAXPROCS concurrent
// generations of crypto.DefaultRSABits keys.
func New(opts ...Option) (*Pool, error) {
	p := &Pool{
		bits:    crypto.DefaultRSABits,
		workers: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bits < crypto.MinRSABits {
		return nil, fmt.Errorf("%w: %d-bit keys are below the %d-bit minimum", trusterrors.ErrKeyFormat, p.bits, crypto.MinRSABits)
	}
	p.sem = semaphore.NewWeighted(int64(p.workers))
	return p, nil
}

// Bits returns the modulus size of generated keys.
func (p *Pool) Bits() int {
	return p.bits
}

// Workers returns the concurrency limit.
func (p *Pool) Workers() int {
	return p.workers
}

// Generate waits for a free slot and generates a key pair. It returns
// ctx.Err() if ctx is done before a slot frees up; a generation already
// running is not interrupted.
func (p *Pool) Generate(ctx context.Context) (*rsa.PrivateKey, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer p.sem.Release(1)

	start := time.Now()
	key, err := crypto.GenerateRSA(p.bits)
	if err != nil {
		return nil, err
	}
	if p.observe != nil {
		p.observe(time.Since(start))
	}
	return key, nil
}
