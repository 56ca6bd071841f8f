package gateway

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/sekia-ai/sekia-discord/pkg/interactions"
)

// MessageSender abstracts the Discord API call the listener replies with.
type MessageSender interface {
	SendMessage(ctx context.Context, channelID, content string) error
}

// CommandRegistrar abstracts the Discord API call that publishes slash commands.
type CommandRegistrar interface {
	OverwriteCommands(ctx context.Context, appID, guildID string, cmds []*discordgo.ApplicationCommand) ([]*discordgo.ApplicationCommand, error)
}

// sessionClient wraps a discordgo session.
type sessionClient struct {
	session *discordgo.Session
}

// NewSessionClient returns a MessageSender and CommandRegistrar backed by s.
func NewSessionClient(s *discordgo.Session) interface {
	MessageSender
	CommandRegistrar
} {
	return &sessionClient{session: s}
}

func (c *sessionClient) SendMessage(ctx context.Context, channelID, content string) error {
	_, err := c.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	return err
}

func (c *sessionClient) OverwriteCommands(ctx context.Context, appID, guildID string, cmds []*discordgo.ApplicationCommand) ([]*discordgo.ApplicationCommand, error) {
	return c.session.ApplicationCommandBulkOverwrite(appID, guildID, cmds, discordgo.WithContext(ctx))
}

// ApplicationCommands converts the dispatcher's command table into Discord
// chat-input command definitions.
func ApplicationCommands() []*discordgo.ApplicationCommand {
	cmds := make([]*discordgo.ApplicationCommand, 0, len(interactions.Commands))
	for _, c := range interactions.Commands {
		cmds = append(cmds, &discordgo.ApplicationCommand{
			Name:        c.Name,
			Description: c.Description,
			Type:        discordgo.ChatApplicationCommand,
		})
	}
	return cmds
}

// RegisterCommands publishes the slash commands Dispatch answers. An empty
// guildID registers them globally.
func RegisterCommands(ctx context.Context, r CommandRegistrar, appID, guildID string) ([]*discordgo.ApplicationCommand, error) {
	registered, err := r.OverwriteCommands(ctx, appID, guildID, ApplicationCommands())
	if err != nil {
		return nil, fmt.Errorf("overwrite application commands: %w", err)
	}
	return registered, nil
}
