package ca

import (
	"errors"
	"strings"
	"testing"

	"github.com/vaultsandbox/trustcore/internal/trusterrors"
)

func TestIdentity_Validate(t *testing.T) {
	tests := []struct {
		name    string
		id      Identity
		wantErr bool
	}{
		{"username only", Identity{Username: "alice"}, false},
		{"with email", Identity{Username: "alice", Email: "alice@example.com"}, false},
		{"unicode", Identity{Username: "zoë"}, false},
		{"max length", Identity{Username: strings.Repeat("a", MaxUsernameLength)}, false},
		{"empty", Identity{}, true},
		{"too long", Identity{Username: strings.Repeat("a", MaxUsernameLength+1)}, true},
		{"newline", Identity{Username: "alice\nadmin"}, true},
		{"nul", Identity{Username: "alice\x00"}, true},
		{"invalid utf8", Identity{Username: "\xff\xfe"}, true},
		{"bad email", Identity{Username: "alice", Email: "not an email"}, true},
		{"display name email", Identity{Username: "alice", Email: "Alice <alice@example.com>"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.id.Validate()
			if tt.wantErr {
				if !errors.Is(err, trusterrors.ErrInvalidIdentity) {
					t.Errorf("Validate() error = %v, want ErrInvalidIdentity", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() unexpected error = %v", err)
			}
		})
	}
}

func TestParseSerial(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"0A1B", "a1b", false},
		{"0xff", "ff", false},
		{"1", "1", false},
		{"0", "", true},
		{"zz", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			n, err := ParseSerial(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseSerial(%q) expected error", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSerial(%q) error = %v", tt.in, err)
			}
			if got := SerialString(n); got != tt.want {
				t.Errorf("SerialString() = %q, want %q", got, tt.want)
			}
		})
	}
}
