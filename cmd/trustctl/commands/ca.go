package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vaultsandbox/trustcore"
	"github.com/vaultsandbox/trustcore/internal/config"
)

func initCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the CA root, or load it if it already exists",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			trust, cl, err := a.openTrust(ctx)
			if err != nil {
				return err
			}
			defer cl.Close()

			anchor := trust.TrustAnchor()
			w := cmd.OutOrStdout()
			printOK(w, "CA root ready")
			printField(w, "subject", anchor.Subject.String())
			printField(w, "serial", trustcore.SerialString(anchor))
			printField(w, "not after", anchor.NotAfter.UTC().Format(time.RFC3339))
			if a.cfg.CA.Store == config.StoreFile {
				printField(w, "directory", a.cfg.CA.Dir)
			}
			if a.cfg.CA.Store == config.StoreFile && len(a.cfg.Passphrase()) == 0 {
				printWarn(w, "root key is stored unencrypted; set ca.passphrase_env to protect it")
			}
			return nil
		}),
	}
}

func anchorCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "anchor",
		Short: "Print the CA root certificate (trust anchor) as PEM",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			trust, cl, err := a.openTrust(ctx)
			if err != nil {
				return err
			}
			defer cl.Close()
			return writeOutput(cmd.OutOrStdout(), out, trust.TrustAnchorPEM(), 0o644)
		}),
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to file instead of stdout")
	return cmd
}

func verifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <cert.pem>",
		Short: "Verify a certificate's CA signature, validity window and revocation state",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			cert, err := trustcore.ParseCertificatePEM(data)
			if err != nil {
				return err
			}

			trust, cl, err := a.openTrust(ctx)
			if err != nil {
				return err
			}
			defer cl.Close()

			v := trust.VerifyCertificate(ctx, cert)
			w := cmd.OutOrStdout()
			if err := v.Err(); err != nil {
				return err
			}
			printOK(w, "certificate is %s", v.Status)
			id := trustcore.IdentityOf(cert)
			printField(w, "subject", id.Username)
			if id.Email != "" {
				printField(w, "email", id.Email)
			}
			printField(w, "serial", v.Serial)
			printField(w, "not after", cert.NotAfter.UTC().Format(time.RFC3339))
			return nil
		}),
	}
}

func revokeCmd(a *app) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "revoke <serial>",
		Short: "Permanently revoke a certificate",
		Long: `Revoke adds a certificate serial (hex, as printed by enroll and verify)
to the revocation list. Revocation is terminal and idempotent.

Reasons: unspecified, keyCompromise, cACompromise, affiliationChanged,
superseded, cessationOfOperation.`,
		Args: cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			r, err := trustcore.ParseRevocationReason(reason)
			if err != nil {
				return err
			}
			trust, cl, err := a.openTrust(ctx)
			if err != nil {
				return err
			}
			defer cl.Close()

			if err := trust.Revoke(ctx, args[0], r); err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			printOK(w, "revoked %s (%s)", args[0], r)
			if a.cfg.Revocation.Store == config.StoreMemory {
				printWarn(w, "revocation.store is memory; this revocation is not persisted")
			}
			return nil
		}),
	}
	cmd.Flags().StringVarP(&reason, "reason", "r", "unspecified", "RFC 5280 revocation reason")
	return cmd
}

func crlCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "crl",
		Short: "Print the CA-signed certificate revocation list as PEM",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			trust, cl, err := a.openTrust(ctx)
			if err != nil {
				return err
			}
			defer cl.Close()

			crl, err := trust.RevocationListPEM(ctx)
			if err != nil {
				return fmt.Errorf("build revocation list: %w", err)
			}
			return writeOutput(cmd.OutOrStdout(), out, crl, 0o644)
		}),
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to file instead of stdout")
	return cmd
}
