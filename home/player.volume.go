package home

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/leeineian/radiobox/proc"
	"github.com/leeineian/radiobox/sys"
	"github.com/samber/lo"
)

// leading integer, the rest of the argument is ignored ("50%" is 50)
var volumeNumberPattern = regexp.MustCompile(`^[+-]?\d+`)

func handlePlayerVolume(c *Context) error {
	if len(c.Args) < 2 {
		c.Reply(sys.ErrVolumeMissing)
		return nil
	}
	arg := strings.ToLower(c.Args[1])

	if arg == "max" {
		c.Player.SetVolumeMode(proc.VolumeDefault)
		c.Player.SetVolumeLevel(proc.MaxLevel)
		c.Reply(sys.MsgVolumeMaximum)
		return nil
	}

	digits := volumeNumberPattern.FindString(arg)
	if digits == "" {
		mode, ok := proc.ParseVolumeMode(arg)
		if !ok {
			modes := lo.Map(proc.VolumeModes, func(m proc.VolumeMode, _ int) string { return "`" + string(m) + "`" })
			c.Replyf(sys.ErrVolumeUnknown, strings.Join(modes, ", "))
			return nil
		}
		c.Player.SetVolumeMode(mode)
		c.Replyf(sys.MsgVolumeMode, mode)
		return nil
	}

	percent, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		// more digits than a float holds
		percent = proc.MaxLevel
	}
	percent = proc.ClampLevel(percent)

	c.Player.SetVolumeMode(proc.VolumeDefault)
	if percent >= proc.MaxLevel {
		c.Player.SetVolumeLevel(proc.MaxLevel)
		c.Reply(sys.MsgVolumeMaximum)
		return nil
	}
	c.Player.SetVolumeLevel(percent / 100)

	text := strconv.FormatFloat(percent, 'f', -1, 64)
	if percent > 100 {
		c.Replyf(sys.MsgVolumeLoud, text)
	} else {
		c.Replyf(sys.MsgVolumePercent, text)
	}
	return nil
}
