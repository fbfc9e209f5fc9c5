package home

import (
	"github.com/leeineian/radiobox/sys"
	"github.com/samber/lo"
)

func handleMemberCurse(c *Context) error {
	users := lo.Uniq(c.Msg.Mentions)
	if len(users) == 0 {
		c.Reply(sys.ErrCurseNoMention)
		return nil
	}

	c.Warden.Set.Add(users...)
	for _, id := range users {
		// members already in voice elsewhere are pulled in right away
		if ch, ok := c.Guild.VoiceChannelOf(id); ok {
			c.Warden.Enforce(id, &ch)
		}
	}

	if len(users) == 1 {
		c.Reply(sys.MsgCurseOne)
	} else {
		c.Replyf(sys.MsgCurseMany, len(users))
	}
	return nil
}

func handleMemberUncurse(c *Context) error {
	if len(c.Msg.Mentions) == 0 {
		c.Reply(sys.ErrUncurseNoMention)
		return nil
	}

	switch n := c.Warden.Set.Remove(c.Msg.Mentions...); n {
	case 0:
		c.Reply(sys.MsgUncurseNone)
	case 1:
		c.Reply(sys.MsgUncurseOne)
	default:
		c.Replyf(sys.MsgUncurseMany, n)
	}
	return nil
}
