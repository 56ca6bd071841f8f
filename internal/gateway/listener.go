// Package gateway runs the bot's persistent Discord gateway connection.
package gateway

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

const (
	// TriggerPrefix is the message prefix the listener answers.
	TriggerPrefix = "!hello"

	// TriggerReply is sent back to the channel the trigger arrived on.
	TriggerReply = "Hello!"

	sendTimeout = 10 * time.Second

	intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent
)

// Listener connects to the Discord gateway and answers the trigger phrase.
type Listener struct {
	token     string
	sender    MessageSender
	botUserID atomic.Value // string
	logger    zerolog.Logger
}

// NewListener creates a listener for the given bot token. Call Run to connect.
func NewListener(token string, logger zerolog.Logger) *Listener {
	l := &Listener{
		token:  token,
		logger: logger.With().Str("component", "gateway").Logger(),
	}
	l.botUserID.Store("")
	return l
}

// Run opens the gateway session and blocks until ctx is cancelled.
// Reconnects after connection loss are handled by discordgo.
func (l *Listener) Run(ctx context.Context) error {
	session, err := discordgo.New("Bot " + l.token)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	session.Identify.Intents = intents
	// Handlers run on the event loop so replies go out in receive order.
	// A slow send holds the loop, and every later event, for up to
	// sendTimeout per reply.
	session.SyncEvents = true

	if l.sender == nil {
		l.sender = NewSessionClient(session)
	}

	session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		l.handleReady(r.User)
	})
	session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		l.handleMessage(ctx, m.Message)
	})

	if err := session.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	l.logger.Info().Msg("gateway connection opened")

	<-ctx.Done()

	if err := session.Close(); err != nil {
		l.logger.Warn().Err(err).Msg("close gateway")
	}
	l.logger.Info().Msg("gateway connection closed")
	return nil
}

func (l *Listener) handleReady(user *discordgo.User) {
	if user == nil {
		l.logger.Warn().Msg("ready event without user")
		return
	}
	l.botUserID.Store(user.ID)
	l.logger.Info().
		Str("bot_user_id", user.ID).
		Str("username", user.Username).
		Msg("logged in")
}

func (l *Listener) handleMessage(ctx context.Context, m *discordgo.Message) {
	if m == nil || m.Author == nil {
		return
	}
	// Skip our own messages, or the reply would trigger itself.
	if m.Author.ID == l.botUserID.Load().(string) {
		return
	}
	if !strings.HasPrefix(m.Content, TriggerPrefix) {
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if err := l.sender.SendMessage(sendCtx, m.ChannelID, TriggerReply); err != nil {
		l.logger.Error().Err(err).
			Str("channel_id", m.ChannelID).
			Msg("send reply failed")
		return
	}
	l.logger.Info().
		Str("channel_id", m.ChannelID).
		Str("author_id", m.Author.ID).
		Msg("replied to trigger")
}
