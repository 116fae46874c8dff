package ca

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/vaultsandbox/trustcore/internal/revocation"
)

// rootSerial is reserved for the self-signed root.
var rootSerial = big.NewInt(1)

// serialLimit bounds leaf serials to 128 bits.
var serialLimit = new(big.Int).Lsh(big.NewInt(1), 128)

// SerialString renders a serial in canonical lowercase hex.
func SerialString(n *big.Int) string {
	if n == nil {
		return ""
	}
	return n.Text(16)
}

// ParseSerial parses a hex serial as produced by SerialString.
func ParseSerial(s string) (*big.Int, error) {
	norm := revocation.NormalizeSerial(s)
	n, ok := new(big.Int).SetString(norm, 16)
	if !ok || n.Sign() <= 0 {
		return nil, fmt.Errorf("invalid certificate serial %q", strings.TrimSpace(s))
	}
	return n, nil
}

// randomSerial returns a random positive serial that is not the root serial.
func randomSerial() (*big.Int, error) {
	for {
		n, err := rand.Int(rand.Reader, serialLimit)
		if err != nil {
			return nil, fmt.Errorf("generate serial: %w", err)
		}
		if n.Cmp(rootSerial) > 0 {
			return n, nil
		}
	}
}
