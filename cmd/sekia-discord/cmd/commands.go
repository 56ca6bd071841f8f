package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/cobra"

	"github.com/sekia-ai/sekia-discord/internal/config"
	"github.com/sekia-ai/sekia-discord/internal/gateway"
)

func newCommandsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commands",
		Short: "Manage the bot's slash commands",
	}

	cmd.AddCommand(newCommandsRegisterCmd())

	return cmd
}

func newCommandsRegisterCmd() *cobra.Command {
	var guildID string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Publish the /hello and /ping slash commands",
		Long: `Overwrites the application's slash commands with the set the interactions
endpoint answers. Commands are registered globally unless --guild (or
discord.guild_id) is set; guild commands appear immediately.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.RequireBotToken(); err != nil {
				return err
			}
			if err := cfg.RequireApplicationID(); err != nil {
				return err
			}
			if guildID == "" {
				guildID = cfg.Discord.GuildID
			}

			session, err := discordgo.New("Bot " + cfg.Discord.BotToken)
			if err != nil {
				return fmt.Errorf("create session: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			registered, err := gateway.RegisterCommands(ctx, gateway.NewSessionClient(session), cfg.Discord.ApplicationID, guildID)
			if err != nil {
				return err
			}

			scope := "global"
			if guildID != "" {
				scope = "guild " + guildID
			}
			for _, c := range registered {
				fmt.Printf("registered /%s (%s, id %s)\n", c.Name, scope, c.ID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&guildID, "guild", "", "register to a single guild instead of globally")
	return cmd
}
