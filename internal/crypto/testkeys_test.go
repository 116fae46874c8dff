package crypto

import (
	"crypto/rsa"
	"sync"
	"testing"
)

var (
	testKeyOnce sync.Once
	testKeys    [2]*rsa.PrivateKey
	testKeyErr  error
)

// testRSAKeys returns two 2048-bit keys shared across the package tests.
func testRSAKeys(t *testing.T) (*rsa.PrivateKey, *rsa.PrivateKey) {
	t.Helper()
	testKeyOnce.Do(func() {
		for i := range testKeys {
			testKeys[i], testKeyErr = GenerateRSA(DefaultRSABits)
			if testKeyErr != nil {
				return
			}
		}
	})
	if testKeyErr != nil {
		t.Fatalf("GenerateRSA() error = %v", testKeyErr)
	}
	return testKeys[0], testKeys[1]
}
