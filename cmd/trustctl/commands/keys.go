package commands

import (
	"crypto/rsa"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/vaultsandbox/trustcore"
)

// loadPublicKey reads an RSA public key from a PUBLIC KEY or CERTIFICATE
// PEM file.
func loadPublicKey(path string) (*rsa.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if block, _ := pem.Decode(data); block != nil && block.Type == "CERTIFICATE" {
		cert, err := trustcore.ParseCertificatePEM(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		pub, ok := cert.PublicKey.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("%s: %w: certificate key is %T", path, trustcore.ErrKeyFormat, cert.PublicKey)
		}
		return pub, nil
	}
	pub, err := trustcore.ParsePublicKeyPEM(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pub, nil
}

func loadKeyPair(path string) (*trustcore.KeyPair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	kp, err := trustcore.ParsePrivateKeyPEM(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return kp, nil
}
