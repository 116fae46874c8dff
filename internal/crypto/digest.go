package crypto

import (
	"crypto/sha256"
	"crypto/subtle"
)

// Digest returns the SHA-256 integrity digest of data.
func Digest(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

// EqualDigest compares two digests in constant time.
func EqualDigest(a, b []byte) bool {
	return len(a) == DigestSize && subtle.ConstantTimeCompare(a, b) == 1
}
