package ca

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultsandbox/trustcore/internal/revocation"
)

func parseCRL(t *testing.T, data []byte) *x509.RevocationList {
	t.Helper()
	block, _ := pem.Decode(data)
	require.NotNil(t, block)
	require.Equal(t, PEMTypeCRL, block.Type)
	crl, err := x509.ParseRevocationList(block.Bytes)
	require.NoError(t, err)
	return crl
}

func TestRevocationList(t *testing.T) {
	ctx := context.Background()
	a, clock, _ := newTestAuthority(t)
	pub := &testKeys(t)[1].PublicKey

	first, err := a.RevocationList(ctx)
	require.NoError(t, err)
	empty := parseCRL(t, first)
	assert.Empty(t, empty.RevokedCertificateEntries)
	assert.NoError(t, empty.CheckSignatureFrom(a.Anchor()))

	alice, err := a.Issue(ctx, pub, Identity{Username: "alice"})
	require.NoError(t, err)
	bob, err := a.Issue(ctx, pub, Identity{Username: "bob"})
	require.NoError(t, err)
	_, err = a.Issue(ctx, pub, Identity{Username: "carol"})
	require.NoError(t, err)

	require.NoError(t, a.Revoke(ctx, SerialString(alice.SerialNumber), revocation.ReasonKeyCompromise))
	clock.Advance(time.Minute)
	require.NoError(t, a.Revoke(ctx, SerialString(bob.SerialNumber), revocation.ReasonCessationOfOperation))

	data, err := a.RevocationList(ctx)
	require.NoError(t, err)
	crl := parseCRL(t, data)

	assert.NoError(t, crl.CheckSignatureFrom(a.Anchor()))
	assert.Equal(t, 1, crl.Number.Cmp(empty.Number), "CRL numbers must increase")
	assert.True(t, crl.ThisUpdate.Equal(clock.Now()))
	assert.True(t, crl.NextUpdate.Equal(clock.Now().Add(DefaultCRLValidity)))

	require.Len(t, crl.RevokedCertificateEntries, 2)
	got := map[string]int{}
	for _, e := range crl.RevokedCertificateEntries {
		got[SerialString(e.SerialNumber)] = e.ReasonCode
	}
	assert.Equal(t, map[string]int{
		SerialString(alice.SerialNumber): int(revocation.ReasonKeyCompromise),
		SerialString(bob.SerialNumber):   int(revocation.ReasonCessationOfOperation),
	}, got)
}
