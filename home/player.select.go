package home

import (
	"fmt"
	"strings"

	"github.com/leeineian/radiobox/proc"
	"github.com/leeineian/radiobox/sys"
	"github.com/samber/lo"
)

const selectNameLimit = 50

func handlePlayerSelect(c *Context) error {
	if c.forbidPlayerCommand() {
		c.Reply(sys.ErrPlayerForbidSelect)
		return nil
	}
	if len(c.Args) < 2 {
		c.Reply(sys.ErrSelectNoQuery)
		return nil
	}

	top := proc.TopMatches(proc.Rank(c.Player.AllTrackNames(), c.Args[1:]))
	switch len(top) {
	case 0:
		c.Reply(sys.ErrSelectNothingFound)
		return nil
	case 1:
		name, err := c.Player.Advance(top[0].Name)
		if err != nil {
			return err
		}
		c.Replyf(sys.MsgPlayingTrack, sys.RemoveExtension(name))
		return nil
	}

	candidates := lo.Map(top[:min(len(top), proc.MaxSelectionCandidates)], func(t proc.ScoredTrack, _ int) string {
		return t.Name
	})
	lines := lo.Map(candidates, func(name string, i int) string {
		return fmt.Sprintf("%d: %s", i+1, sys.Truncate(sys.RemoveExtension(name), selectNameLimit))
	})

	msgID, err := c.Chat.Send(c.Msg.ChannelID, codeBlock(strings.Join(lines, "\n")))
	if err != nil {
		return fmt.Errorf("post selection: %w", err)
	}
	c.Selector.Open(proc.Prompt{
		ChannelID:  c.Msg.ChannelID,
		MessageID:  msgID,
		Candidates: candidates,
	})
	for i := range candidates {
		if err := c.Chat.React(c.Msg.ChannelID, msgID, proc.NumberEmojis[i]); err != nil {
			sys.LogCommand(sys.MsgSelectionFailed, err)
			break
		}
	}
	return nil
}

func codeBlock(body string) string {
	return "```\n" + body + "```"
}
