package crypto

import (
	"bytes"
	"errors"
	"testing"

	"github.com/vaultsandbox/trustcore/internal/trusterrors"
)

func TestBase64URL_RoundTrip(t *testing.T) {
	tests := [][]byte{
		{},
		{0x00},
		{0xfb, 0xff},
		[]byte("hello world"),
		bytes.Repeat([]byte{0xfe}, 33),
	}
	for _, in := range tests {
		enc := ToBase64URL(in)
		dec, err := FromBase64URL(enc)
		if err != nil {
			t.Fatalf("FromBase64URL(%q) error = %v", enc, err)
		}
		if !bytes.Equal(dec, in) {
			t.Errorf("round trip of %x = %x", in, dec)
		}
	}
}

func TestToBase64URL_Alphabet(t *testing.T) {
	got := ToBase64URL([]byte{0xfb, 0xff})
	if got != "-_8" {
		t.Errorf("ToBase64URL() = %q, want %q", got, "-_8")
	}
}

func TestFromBase64URL_RejectsNonCanonical(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"padding", "aGk="},
		{"standard alphabet plus", "+_8"},
		{"standard alphabet slash", "-/8"},
		{"whitespace", "aG k"},
		{"non-zero trailing bits", "aGl"},
		{"impossible length", "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromBase64URL(tt.input)
			if !errors.Is(err, trusterrors.ErrInvalidEncoding) {
				t.Errorf("FromBase64URL(%q) error = %v, want ErrInvalidEncoding", tt.input, err)
			}
		})
	}
}
