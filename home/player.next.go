package home

import (
	"github.com/leeineian/radiobox/sys"
)

func handlePlayerNext(c *Context) error {
	if c.forbidPlayerCommand() {
		c.Reply(sys.ErrPlayerForbidSkip)
		return nil
	}
	name, err := c.Player.Advance("")
	if err != nil {
		return err
	}
	c.Replyf(sys.MsgPlayingTrack, sys.RemoveExtension(name))
	return nil
}

func handlePlayerBack(c *Context) error {
	if c.forbidPlayerCommand() {
		c.Reply(sys.ErrPlayerForbidBack)
		return nil
	}
	name, err := c.Player.SkipBack()
	if err != nil {
		return err
	}
	c.Replyf(sys.MsgPlayingTrack, sys.RemoveExtension(name))
	return nil
}

func handlePlayerLoop(c *Context) error {
	if c.Player.ToggleLoop() {
		c.Reply(sys.MsgLoopEnabled)
	} else {
		c.Reply(sys.MsgLoopDisabled)
	}
	return nil
}
