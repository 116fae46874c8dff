package commands

import (
	"context"
	"crypto/rsa"
	"errors"

	"github.com/spf13/cobra"

	"github.com/vaultsandbox/trustcore"
)

func sealCmd(a *app) *cobra.Command {
	var (
		to   []string
		from string
		out  string
	)
	cmd := &cobra.Command{
		Use:   "seal --to <pub.pem>... --from <key.pem> <file>",
		Short: "Encrypt a file for one or more recipients and sign it",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(_ context.Context, cmd *cobra.Command, args []string) error {
			if len(to) == 0 {
				return errors.New("at least one --to recipient is required")
			}
			recipients := make([]*rsa.PublicKey, 0, len(to))
			for _, p := range to {
				pub, err := loadPublicKey(p)
				if err != nil {
					return err
				}
				recipients = append(recipients, pub)
			}
			sender, err := loadKeyPair(from)
			if err != nil {
				return err
			}
			plaintext, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			p, err := trustcore.SealForRecipients(plaintext, recipients, sender.PrivateKey)
			if err != nil {
				return err
			}
			data, err := p.Marshal()
			if err != nil {
				return err
			}
			if err := writeOutput(cmd.OutOrStdout(), out, append(data, '\n'), 0o644); err != nil {
				return err
			}
			if out != "" && out != "-" {
				w := cmd.OutOrStdout()
				printOK(w, "sealed for %d recipient(s) into %s", len(recipients), out)
				for _, kid := range p.KeyIDs() {
					printField(w, "recipient", kid)
				}
			}
			return nil
		}),
	}
	cmd.Flags().StringArrayVarP(&to, "to", "t", nil, "recipient public key or certificate (repeatable)")
	cmd.Flags().StringVarP(&from, "from", "f", "", "sender private key")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the sealed payload to file instead of stdout")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func openCmd(a *app) *cobra.Command {
	var (
		key  string
		from string
		out  string
	)
	cmd := &cobra.Command{
		Use:   "open --key <key.pem> --from <pub.pem> <sealed.json>",
		Short: "Decrypt a sealed file and check the sender's signature",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(_ context.Context, cmd *cobra.Command, args []string) error {
			recipient, err := loadKeyPair(key)
			if err != nil {
				return err
			}
			sender, err := loadPublicKey(from)
			if err != nil {
				return err
			}
			data, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			p, err := trustcore.ParseSealedPayload(data)
			if err != nil {
				return err
			}

			plaintext, err := trustcore.OpenAsRecipient(p, recipient.PrivateKey, sender)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), out, plaintext, 0o600)
		}),
	}
	cmd.Flags().StringVarP(&key, "key", "k", "", "recipient private key")
	cmd.Flags().StringVarP(&from, "from", "f", "", "sender public key or certificate")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the plaintext to file instead of stdout")
	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}
