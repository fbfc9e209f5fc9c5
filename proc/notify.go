package proc

import (
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/radiobox/sys"
)

// ChannelNotifier posts operator notices to a text channel. A zero channel
// only logs.
type ChannelNotifier struct {
	Client    *bot.Client
	ChannelID snowflake.ID
}

func (n *ChannelNotifier) Notify(msg string) {
	sys.LogWarn("Operator notice: %s", msg)
	if n.Client == nil || n.ChannelID == 0 {
		return
	}
	sys.SafeGo(func() {
		_, err := n.Client.Rest.CreateMessage(n.ChannelID, discord.NewMessageCreate().WithContent(msg))
		if err != nil {
			sys.LogError("Failed to post operator notice: %v", err)
		}
	})
}
