package interactions

import "github.com/bwmarrin/discordgo"

// Slash command names handled by Dispatch.
const (
	CommandHello = "hello"
	CommandPing  = "ping"
)

// Reply texts.
const (
	HelloText          = "Hello from the sekia Discord bot!"
	PingText           = "Pong! The interactions endpoint is up."
	UnknownCommandText = "Unknown command."
)

// Command describes a slash command for registration with the platform.
type Command struct {
	Name        string
	Description string
}

// Commands lists the slash commands Dispatch answers, in registration order.
var Commands = []Command{
	{Name: CommandHello, Description: "Say hello"},
	{Name: CommandPing, Description: "Check that the bot is responding"},
}

// Dispatch maps an interaction to its canned response. It never fails:
// unsupported types get a deferred acknowledgement, and callers use
// Interaction.Supported to decide the transport status.
func Dispatch(in Interaction) Response {
	t, ok := in.InteractionType()
	if !ok {
		return defaultResponse()
	}
	switch t {
	case discordgo.InteractionPing:
		return Response{Type: discordgo.InteractionResponsePong}
	case discordgo.InteractionApplicationCommand:
		return dispatchCommand(in.Data.Name)
	default:
		return defaultResponse()
	}
}

func defaultResponse() Response {
	return Response{Type: discordgo.InteractionResponseDeferredChannelMessageWithSource}
}

// dispatchCommand matches the command name exactly; no case folding or trimming.
func dispatchCommand(name string) Response {
	switch name {
	case CommandHello:
		return channelMessage(HelloText, false)
	case CommandPing:
		return channelMessage(PingText, true)
	default:
		return channelMessage(UnknownCommandText, true)
	}
}

func channelMessage(content string, ephemeral bool) Response {
	data := &ResponseData{Content: content}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return Response{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	}
}
