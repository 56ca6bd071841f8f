package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sekia-ai/sekia-discord/internal/config"
	"github.com/sekia-ai/sekia-discord/internal/gateway"
)

func newListenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "listen",
		Short: "Connect to the Discord gateway and answer " + gateway.TriggerPrefix,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger()
			if err != nil {
				return err
			}

			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.RequireBotToken(); err != nil {
				logger.Warn().Msg("bot token not configured; gateway listener cannot start")
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return gateway.NewListener(cfg.Discord.BotToken, logger).Run(ctx)
		},
	}
}
