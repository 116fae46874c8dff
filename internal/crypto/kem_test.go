package crypto

import (
	"bytes"
	"errors"
	"testing"
)

func TestGenerateKEMKeypair(t *testing.T) {
	kp, err := GenerateKEMKeypair()
	if err != nil {
		t.Fatalf("GenerateKEMKeypair() error = %v", err)
	}
	if len(kp.PublicKey) != MLKEMPublicKeySize {
		t.Errorf("PublicKey length = %d, want %d", len(kp.PublicKey), MLKEMPublicKeySize)
	}
	if len(kp.SecretKey) != MLKEMSecretKeySize {
		t.Errorf("SecretKey length = %d, want %d", len(kp.SecretKey), MLKEMSecretKeySize)
	}
	if kp.KeyID() == "" {
		t.Error("KeyID() is empty")
	}
}

func TestKEMKeypairFromSecretKey(t *testing.T) {
	kp, err := GenerateKEMKeypair()
	if err != nil {
		t.Fatal(err)
	}

	restored, err := KEMKeypairFromSecretKey(kp.SecretKey)
	if err != nil {
		t.Fatalf("KEMKeypairFromSecretKey() error = %v", err)
	}
	if !bytes.Equal(restored.PublicKey, kp.PublicKey) {
		t.Error("restored public key differs from original")
	}

	if _, err := KEMKeypairFromSecretKey(make([]byte, 100)); !errors.Is(err, ErrInvalidSecretKeySize) {
		t.Errorf("KEMKeypairFromSecretKey() error = %v, want ErrInvalidSecretKeySize", err)
	}
}

func TestKEMWrapUnwrap(t *testing.T) {
	kp, err := GenerateKEMKeypair()
	if err != nil {
		t.Fatal(err)
	}
	other, err := GenerateKEMKeypair()
	if err != nil {
		t.Fatal(err)
	}

	dek, err := RandomBytes(AESKeySize)
	if err != nil {
		t.Fatal(err)
	}

	wrapped, err := KEMWrapKey(kp.PublicKey, dek)
	if err != nil {
		t.Fatalf("KEMWrapKey() error = %v", err)
	}
	if want := MLKEMCiphertextSize + AESNonceSize + AESKeySize + AESTagSize; len(wrapped) != want {
		t.Errorf("wrapped length = %d, want %d", len(wrapped), want)
	}

	got, err := kp.KEMUnwrapKey(wrapped)
	if err != nil {
		t.Fatalf("KEMUnwrapKey() error = %v", err)
	}
	if !bytes.Equal(got, dek) {
		t.Error("unwrapped key differs from original")
	}

	tests := []struct {
		name    string
		kp      *KEMKeypair
		data    []byte
		wantErr error
	}{
		{"wrong recipient", other, wrapped, ErrUnwrapFailed},
		{"truncated", kp, wrapped[:MLKEMCiphertextSize], ErrInvalidCiphertextSize},
		{"tampered", kp, func() []byte {
			b := bytes.Clone(wrapped)
			b[len(b)-1] ^= 1
			return b
		}(), ErrUnwrapFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.kp.KEMUnwrapKey(tt.data); !errors.Is(err, tt.wantErr) {
				t.Errorf("KEMUnwrapKey() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestKEMWrapKey_Errors(t *testing.T) {
	kp, err := GenerateKEMKeypair()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := KEMWrapKey(make([]byte, 10), make([]byte, AESKeySize)); !errors.Is(err, ErrInvalidPublicKeySize) {
		t.Errorf("KEMWrapKey() error = %v, want ErrInvalidPublicKeySize", err)
	}
	if _, err := KEMWrapKey(kp.PublicKey, make([]byte, 16)); !errors.Is(err, ErrInvalidKeySize) {
		t.Errorf("KEMWrapKey() error = %v, want ErrInvalidKeySize", err)
	}
}
