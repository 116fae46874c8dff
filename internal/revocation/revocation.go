// Package revocation stores the append-only set of revoked certificate
// serials. Entries are never removed: revocation is terminal.
package revocation

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Reason is an RFC 5280 CRL reason code.
type Reason int

// Supported reason codes.
const (
	ReasonUnspecified          Reason = 0
	ReasonKeyCompromise        Reason = 1
	ReasonCACompromise         Reason = 2
	ReasonAffiliationChanged   Reason = 3
	ReasonSuperseded           Reason = 4
	ReasonCessationOfOperation Reason = 5
)

var reasonNames = map[Reason]string{
	ReasonUnspecified:          "unspecified",
	ReasonKeyCompromise:        "keyCompromise",
	ReasonCACompromise:         "cACompromise",
	ReasonAffiliationChanged:   "affiliationChanged",
	ReasonSuperseded:           "superseded",
	ReasonCessationOfOperation: "cessationOfOperation",
}

func (r Reason) String() string {
	if s, ok := reasonNames[r]; ok {
		return s
	}
	return fmt.Sprintf("reason(%d)", int(r))
}

// Valid reports whether r is a supported reason code.
func (r Reason) Valid() bool {
	_, ok := reasonNames[r]
	return ok
}

// ParseReason parses a reason name, case-insensitively.
func ParseReason(s string) (Reason, error) {
	for r, name := range reasonNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown revocation reason %q", s)
}

// Entry records one revoked certificate.
type Entry struct {
	Serial    string    `json:"serial"`
	Reason    Reason    `json:"reason"`
	RevokedAt time.Time `json:"revoked_at"`
}

// List is the revocation backing store.
//
// Implementations must be safe for concurrent use. Add is idempotent: the
// first entry for a serial wins and later calls report added == false.
type List interface {
	Add(ctx context.Context, e Entry) (added bool, err error)
	Lookup(ctx context.Context, serial string) (*Entry, bool, error)
	Entries(ctx context.Context) ([]Entry, error)
}

// NormalizeSerial returns the canonical lowercase hex form of a serial.
func NormalizeSerial(serial string) string {
	s := strings.ToLower(strings.TrimSpace(serial))
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimLeft(s, "0")
	if s == "" {
		return "0"
	}
	return s
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].RevokedAt.Equal(entries[j].RevokedAt) {
			return entries[i].Serial < entries[j].Serial
		}
		return entries[i].RevokedAt.Before(entries[j].RevokedAt)
	})
}
