package commands

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vaultsandbox/trustcore"
)

func signCmd(a *app) *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "sign --key <key.pem> <file>",
		Short: "Print an RSA-PSS-SHA256 signature of a file as base64url",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(_ context.Context, cmd *cobra.Command, args []string) error {
			kp, err := loadKeyPair(key)
			if err != nil {
				return err
			}
			msg, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			sig, err := trustcore.Sign(kp.PrivateKey, msg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write([]byte(sig.String() + "\n"))
			return err
		}),
	}
	cmd.Flags().StringVarP(&key, "key", "k", "", "signer private key")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func verifySigCmd(a *app) *cobra.Command {
	var (
		pubPath string
		sigText string
	)
	cmd := &cobra.Command{
		Use:   "verify-sig --pub <pub.pem> --sig <signature> <file>",
		Short: "Check a base64url RSA-PSS-SHA256 signature of a file",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(_ context.Context, cmd *cobra.Command, args []string) error {
			pub, err := loadPublicKey(pubPath)
			if err != nil {
				return err
			}
			sig, err := trustcore.ParseSignature(strings.TrimSpace(sigText))
			if err != nil {
				return err
			}
			msg, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			if err := trustcore.Verify(pub, msg, sig); err != nil {
				return err
			}
			printOK(cmd.OutOrStdout(), "signature is valid")
			return nil
		}),
	}
	cmd.Flags().StringVarP(&pubPath, "pub", "p", "", "signer public key or certificate")
	cmd.Flags().StringVarP(&sigText, "sig", "s", "", "signature as printed by sign")
	_ = cmd.MarkFlagRequired("pub")
	_ = cmd.MarkFlagRequired("sig")
	return cmd
}
