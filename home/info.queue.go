package home

import (
	"fmt"
	"strings"

	"github.com/leeineian/radiobox/sys"
)

const queueWindow = 10

// queueLines renders the tracks around index, marking the current one.
func queueLines(tracks []string, index int) []string {
	var lines []string
	for i := index - queueWindow/2; i < index+queueWindow/2; i++ {
		if i < 0 || i >= len(tracks) {
			continue
		}
		name := sys.RemoveExtension(tracks[i])
		if i == index {
			lines = append(lines, fmt.Sprintf("==> %d: %s <==", i, name))
		} else {
			lines = append(lines, fmt.Sprintf("%d: %s", i, name))
		}
	}
	return lines
}

func handleInfoQueue(c *Context) error {
	snap := c.Player.Snapshot()
	c.Reply("```\n" + strings.Join(queueLines(snap.Tracks, snap.Index), "\n") + "\n```")
	return nil
}

func handleInfoNowPlaying(c *Context) error {
	snap := c.Player.Snapshot()
	if snap.Current == "" || snap.StartedAt.IsZero() {
		c.Reply(sys.ErrPlayerIdle)
		return nil
	}
	c.Replyf(sys.MsgPlayingDuration, sys.RemoveExtension(snap.Current), sys.FormatClock(c.Now().Sub(snap.StartedAt)))
	return nil
}
