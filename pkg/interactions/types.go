// Package interactions holds the wire types for Discord interaction webhooks,
// the Ed25519 request signature check, and the slash-command dispatch table.
package interactions

import (
	"encoding/json"
	"math"

	"github.com/bwmarrin/discordgo"
)

// Interaction is the inbound record POSTed to the interactions endpoint.
// Type is kept as a plain int so out-of-range values still reach Dispatch.
type Interaction struct {
	ID   string      `json:"id,omitempty"`
	Type int         `json:"type"`
	Data CommandData `json:"data"`
}

// CommandData is the data block of an application command interaction.
type CommandData struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// UnmarshalJSON only requires an integer type. id and data are decoded
// best-effort, and data only for application commands, so unexpected shapes
// in other fields never turn a ping into a parse error.
func (in *Interaction) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID   json.RawMessage `json:"id"`
		Type int             `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	*in = Interaction{Type: raw.Type}
	if len(raw.ID) > 0 {
		_ = json.Unmarshal(raw.ID, &in.ID)
	}
	if in.Type == int(discordgo.InteractionApplicationCommand) && len(raw.Data) > 0 {
		var data CommandData
		if err := json.Unmarshal(raw.Data, &data); err == nil {
			in.Data = data
		}
	}
	return nil
}

// InteractionType returns the platform enum for Type, or false when Type
// does not fit the enum's range.
func (in Interaction) InteractionType() (discordgo.InteractionType, bool) {
	if in.Type < 0 || in.Type > math.MaxUint8 {
		return 0, false
	}
	return discordgo.InteractionType(in.Type), true
}

// Supported reports whether the dispatcher handles this interaction type.
// Unsupported types still get a default response, but the HTTP boundary
// answers them with 400.
func (in Interaction) Supported() bool {
	t, ok := in.InteractionType()
	if !ok {
		return false
	}
	switch t {
	case discordgo.InteractionPing, discordgo.InteractionApplicationCommand:
		return true
	default:
		return false
	}
}

// Response is the JSON body returned to the platform.
type Response struct {
	Type discordgo.InteractionResponseType `json:"type"`
	Data *ResponseData                     `json:"data,omitempty"`
}

// ResponseData carries the message posted back into the channel.
type ResponseData struct {
	Content string                 `json:"content"`
	Flags   discordgo.MessageFlags `json:"flags,omitempty"`
}

// Ephemeral reports whether the reply is only visible to the invoking user.
func (d *ResponseData) Ephemeral() bool {
	return d != nil && d.Flags&discordgo.MessageFlagsEphemeral != 0
}
