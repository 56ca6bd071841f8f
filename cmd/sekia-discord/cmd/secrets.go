package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"filippo.io/age"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sekia-ai/sekia-discord/internal/secrets"
)

func newSecretsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secrets",
		Short: "Encrypt the bot token and public key for config files",
	}

	cmd.AddCommand(newSecretsKeygenCmd())
	cmd.AddCommand(newSecretsEncryptCmd())
	cmd.AddCommand(newSecretsDecryptCmd())

	return cmd
}

func newSecretsKeygenCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an age identity for config encryption",
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = secrets.DefaultKeyPath()
			}
			if _, err := os.Stat(output); err == nil {
				return fmt.Errorf("key file already exists: %s (remove it first to regenerate)", output)
			}

			id, err := secrets.GenerateKeyPair()
			if err != nil {
				return fmt.Errorf("generate identity: %w", err)
			}
			if err := os.MkdirAll(filepath.Dir(output), 0700); err != nil {
				return fmt.Errorf("create directory: %w", err)
			}

			content := fmt.Sprintf("# created: %s\n# public key: %s\n%s\n",
				time.Now().Format(time.RFC3339), id.Recipient(), id)
			if err := os.WriteFile(output, []byte(content), 0600); err != nil {
				return fmt.Errorf("write key file: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Key file written to: %s\nPublic key: %s\n", output, id.Recipient())
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output path (default: ~/.config/sekia/age.key)")
	return cmd
}

func newSecretsEncryptCmd() *cobra.Command {
	var recipientKey string

	cmd := &cobra.Command{
		Use:   "encrypt <value>",
		Short: "Encrypt a value into an ENC[...] string for sekia-discord.toml",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recipient, err := resolveRecipient(recipientKey)
			if err != nil {
				return err
			}
			enc, err := secrets.Encrypt(args[0], recipient)
			if err != nil {
				return fmt.Errorf("encrypt: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), enc)
			return nil
		},
	}

	cmd.Flags().StringVar(&recipientKey, "recipient", "", "age public key (default: derived from the local identity)")
	return cmd
}

func newSecretsDecryptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decrypt <ENC[...]>",
		Short: "Decrypt an ENC[...] value (for debugging)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := secrets.ResolveIdentity(viper.New())
			if err != nil {
				return fmt.Errorf("resolve identity: %w", err)
			}
			if ids == nil {
				return errors.New("no age identity found; set " + secrets.EnvAgeKey + ", " + secrets.EnvAgeKeyFile + ", or run 'sekia-discord secrets keygen'")
			}
			plaintext, err := secrets.Decrypt(args[0], ids...)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), plaintext)
			return nil
		},
	}
}

func resolveRecipient(recipientKey string) (age.Recipient, error) {
	if recipientKey != "" {
		r, err := age.ParseX25519Recipient(recipientKey)
		if err != nil {
			return nil, fmt.Errorf("parse recipient: %w", err)
		}
		return r, nil
	}

	ids, err := secrets.ResolveIdentity(viper.New())
	if err != nil {
		return nil, fmt.Errorf("resolve identity: %w", err)
	}
	if ids == nil {
		return nil, errors.New("no age identity found; run 'sekia-discord secrets keygen' first or pass --recipient")
	}
	x25519, ok := ids[0].(*age.X25519Identity)
	if !ok {
		return nil, errors.New("local identity is not X25519; pass --recipient")
	}
	return x25519.Recipient(), nil
}
