package crypto

import (
	"crypto/rand"
	"io"
)

// randReader is the random source used for nonces, keys and KEM operations.
var randReader io.Reader = rand.Reader

// SetRandReaderForTesting sets the random reader used by this package.
// This is intended for testing only. Returns a function to restore the original reader.
func SetRandReaderForTesting(r io.Reader) func() {
	original := randReader
	randReader = r
	return func() { randReader = original }
}

// RandomBytes returns n bytes from the package random source.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(randReader, b); err != nil {
		return nil, err
	}
	return b, nil
}
