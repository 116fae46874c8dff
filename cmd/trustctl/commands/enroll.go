package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/vaultsandbox/trustcore"
)

func enrollCmd(a *app) *cobra.Command {
	var (
		email  string
		outDir string
	)
	cmd := &cobra.Command{
		Use:   "enroll <username>",
		Short: "Generate a key pair and issue a certificate for a user",
		Long: `Enroll generates an RSA key pair, issues a certificate for it and writes
<username>.crt, <username>.pub and <username>.key to the output directory.

The private key is written once with 0600 permissions and is not kept by
the CA. Existing key files are never overwritten.`,
		Args: cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			id := trustcore.Identity{Username: args[0], Email: email}
			if err := id.Validate(); err != nil {
				return err
			}

			trust, cl, err := a.openTrust(ctx)
			if err != nil {
				return err
			}
			defer cl.Close()

			enr, err := trust.Enroll(ctx, id)
			if err != nil {
				return err
			}
			pubPEM, err := enr.KeyPair.PublicKeyPEM()
			if err != nil {
				return err
			}

			base := filepath.Join(outDir, id.Username)
			if err := writeSecret(base+".key", enr.PrivateKeyPEM); err != nil {
				return fmt.Errorf("write private key: %w", err)
			}
			if err := writeOutput(nil, base+".crt", enr.CertificatePEM, 0o644); err != nil {
				return err
			}
			if err := writeOutput(nil, base+".pub", pubPEM, 0o644); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			printOK(w, "enrolled %s", id.Username)
			printField(w, "serial", trustcore.SerialString(enr.Certificate))
			printField(w, "key id", enr.KeyPair.KeyID())
			printField(w, "not after", enr.Certificate.NotAfter.UTC().Format(time.RFC3339))
			printField(w, "private key", base+".key")
			return nil
		}),
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "email address recorded in the certificate")
	cmd.Flags().StringVarP(&outDir, "out-dir", "o", ".", "directory for the key and certificate files")
	return cmd
}
