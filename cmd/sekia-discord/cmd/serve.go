package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sekia-ai/sekia-discord/internal/config"
	"github.com/sekia-ai/sekia-discord/internal/webhook"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the signed interactions webhook endpoint",
		Long: `Starts the HTTP interactions endpoint. Every request must carry a valid
X-Signature-Ed25519 / X-Signature-Timestamp pair for the configured
discord.public_key; without a public key the server runs but rejects
every request.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger()
			if err != nil {
				return err
			}

			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			return webhook.NewServer(cfg, logger).Run()
		},
	}
}
