package ca

import (
	"context"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"math/big"
	"time"
)

// PEMTypeCRL is the PEM block type of revocation lists.
const PEMTypeCRL = "X509 CRL"

// RevocationList returns a freshly signed CRL listing every revoked serial.
// CRL numbers increase monotonically across calls and restarts.
func (a *Authority) RevocationList(ctx context.Context) ([]byte, error) {
	root := a.anchor()
	if root == nil {
		return nil, ErrNotInitialized
	}

	entries, err := a.revocations.Entries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list revocations: %w", err)
	}

	revoked := make([]x509.RevocationListEntry, 0, len(entries))
	for _, e := range entries {
		serial, err := ParseSerial(e.Serial)
		if err != nil {
			a.log.Warn("skipping malformed revocation entry")
			continue
		}
		revoked = append(revoked, x509.RevocationListEntry{
			SerialNumber:   serial,
			RevocationTime: e.RevokedAt,
			ReasonCode:     int(e.Reason),
		})
	}

	now := a.now().UTC()
	template := &x509.RevocationList{
		Number:                    big.NewInt(a.nextCRLNumber(now)),
		ThisUpdate:                now,
		NextUpdate:                now.Add(DefaultCRLValidity),
		RevokedCertificateEntries: revoked,
		SignatureAlgorithm:        x509.SHA256WithRSA,
	}

	der, err := x509.CreateRevocationList(rand.Reader, template, root.Certificate, root.Key)
	if err != nil {
		return nil, fmt.Errorf("create CRL: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: PEMTypeCRL, Bytes: der}), nil
}

// nextCRLNumber is seeded from the clock so numbers keep increasing after a
// restart without persisted state.
func (a *Authority) nextCRLNumber(now time.Time) int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := now.Unix()
	if n <= a.crlNumber {
		n = a.crlNumber + 1
	}
	a.crlNumber = n
	return n
}
