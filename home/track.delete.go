package home

import (
	"errors"

	"github.com/leeineian/radiobox/proc"
	"github.com/leeineian/radiobox/sys"
)

func handleTrackDelete(c *Context) error {
	name, ok := proc.FindByName(c.Player.AllTrackNames(), c.Rest())
	if !ok {
		c.Reply(sys.ErrTrackNotFound)
		return nil
	}

	if err := proc.DeleteTrack(c.Config.TrackDirectory, name); err != nil {
		sys.LogCatalog("Failed to delete %s: %v", name, err)
		c.Reply(sys.ErrTrackDeleteFailed)
		return nil
	}
	if err := c.Player.RemoveTrack(name); err != nil && !errors.Is(err, proc.ErrTrackNotFound) {
		sys.LogCatalog("Failed to delete %s: %v", name, err)
		c.Reply(sys.ErrTrackDeleteFailed)
		return nil
	}

	sys.LogCatalog(sys.MsgTrackDeleteLog, name)
	c.Replyf(sys.MsgTrackDeleted, sys.RemoveExtension(name))
	return nil
}
