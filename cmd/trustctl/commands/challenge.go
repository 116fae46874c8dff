package commands

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vaultsandbox/trustcore"
)

func challengeCmd(a *app) *cobra.Command {
	var (
		certPath string
		keyPath  string
	)
	cmd := &cobra.Command{
		Use:   "challenge --cert <user.crt> --key <user.key>",
		Short: "Run a challenge-response login for an enrolled user",
		Long: `Challenge issues a nonce, signs it with the user's private key and
authenticates the signature against the certificate, the way a login
would. It then replays the same response to show it is rejected.`,
		Args: cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(certPath)
			if err != nil {
				return err
			}
			cert, err := trustcore.ParseCertificatePEM(data)
			if err != nil {
				return err
			}
			kp, err := loadKeyPair(keyPath)
			if err != nil {
				return err
			}
			username := trustcore.IdentityOf(cert).Username

			dir := trustcore.NewMemoryDirectory()
			if err := dir.Put(ctx, username, cert); err != nil {
				return err
			}
			trust, cl, err := a.openTrust(ctx, trustcore.WithDirectory(dir))
			if err != nil {
				return err
			}
			defer cl.Close()

			return runChallenge(ctx, cmd, trust, username, kp)
		}),
	}
	cmd.Flags().StringVar(&certPath, "cert", "", "user certificate")
	cmd.Flags().StringVarP(&keyPath, "key", "k", "", "user private key")
	_ = cmd.MarkFlagRequired("cert")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func runChallenge(ctx context.Context, cmd *cobra.Command, trust *trustcore.Trust, username string, kp *trustcore.KeyPair) error {
	w := cmd.OutOrStdout()

	ch, err := trust.IssueChallenge(ctx)
	if err != nil {
		return err
	}
	printOK(w, "challenge issued")
	printField(w, "id", ch.ID)
	printField(w, "nonce", ch.Nonce)
	printField(w, "expires", ch.ExpiresAt.Format(time.RFC3339))

	sig, err := trust.Sign(kp.PrivateKey, ch.Nonce.Bytes())
	if err != nil {
		return err
	}
	res, err := trust.Authenticate(ctx, username, ch.Nonce, sig)
	if err != nil {
		return err
	}
	printOK(w, "authenticated %s", res.Username)
	printField(w, "serial", res.Serial)

	_, err = trust.Authenticate(ctx, username, ch.Nonce, sig)
	if !errors.Is(err, trustcore.ErrChallengeAlreadyConsumed) {
		return errors.New("replayed response was not rejected as consumed")
	}
	printOK(w, "replay rejected: %v", err)
	return nil
}
