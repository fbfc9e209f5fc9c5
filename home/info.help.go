package home

import (
	"strings"

	"github.com/leeineian/radiobox/sys"
	"github.com/samber/lo"
)

func handleInfoHelp(c *Context) error {
	lines := lo.Map(c.dispatcher.Visible(c.Admin), func(cmd *Command, _ int) string {
		return cmd.Names[0] + " - " + cmd.Help
	})
	c.Reply(codeBlock(strings.Join(lines, "\n")))
	return nil
}

func handleInfoAbout(c *Context) error {
	c.Replyf(sys.MsgInfoAbout, c.Guild.BotName())
	return nil
}
