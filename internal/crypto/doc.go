// Package crypto provides the cryptographic primitives used by the trust core.
// Nothing in this package holds state; every function is safe for concurrent use.
//
// # Algorithm Suite
//
//   - RSA-2048 (minimum) key pairs for identities. Public keys are PKIX
//     "PUBLIC KEY" PEM, private keys PKCS#1 "RSA PRIVATE KEY" PEM. PKCS#8
//     private keys are accepted on input.
//
//   - RSA-PSS with SHA-256 for every signature: challenge responses and
//     payload signatures use the same scheme and the same salt length, so
//     there is exactly one verification path.
//
//   - RSA-OAEP with SHA-256 for wrapping symmetric keys. PKCS#1 v1.5
//     encryption is never used.
//
//   - AES-256-GCM for bulk data. Nonces are 96 bits and drawn fresh for every
//     encryption.
//
//   - ML-KEM-768 (NIST FIPS 203) with HKDF-SHA-512 for post-quantum
//     recipients of a data-encryption key.
//
//   - SHA-256 for integrity digests and key fingerprints.
//
// # Canonical Encoding
//
// Every byte string that crosses the trust boundary is encoded with
// [ToBase64URL]: URL-safe base64 without padding (RFC 4648 §5). [FromBase64URL]
// is strict and rejects padding, the standard alphabet and stray whitespace.
// There is deliberately no lenient decoder.
//
// # Key Management
//
// Private keys returned by [GenerateRSA] are handed to the caller once. Use
// [Wipe] on buffers holding secret material when they are no longer needed.
package crypto
