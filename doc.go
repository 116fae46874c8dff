// Package trustcore is the public-key trust and hybrid-encryption core of a
// file-sharing and messaging application.
//
// It bundles three services behind one handle:
//
//   - a self-signed certificate authority that issues, verifies and revokes
//     per-user X.509 certificates,
//   - challenge-response authentication proving possession of a private key
//     without transmitting it,
//   - hybrid encryption: AES-256-GCM for the payload, RSA-OAEP (or ML-KEM-768)
//     for the per-recipient data key, RSA-PSS signatures over the plaintext.
//
// Basic usage:
//
//	trust, err := trustcore.New(ctx, trustcore.WithRootStore(trustcore.NewFileRootStore("ca")))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Register a user; the private key is returned exactly once.
//	enr, err := trust.Enroll(ctx, trustcore.Identity{Username: "alice", Email: "alice@example.com"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Log in by signing a fresh challenge.
//	ch, _ := trust.IssueChallenge(ctx)
//	sig, _ := trust.Sign(enr.KeyPair.PrivateKey, ch.Nonce.Bytes())
//	res, err := trust.Authenticate(ctx, "alice", ch.Nonce, sig)
//
// Every byte string that crosses the package boundary as text uses
// base64url without padding. [Signature] and [Nonce] can only be built from
// raw bytes or parsed by a single function, so no other encoding slips in.
package trustcore
