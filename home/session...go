package home

import (
	"context"
	"time"

	"github.com/leeineian/radiobox/sys"
)

const killLeaveTimeout = 5 * time.Second

func init() {
	RegisterCommand(&Command{
		Names:      []string{"kill"},
		Help:       "Kills player",
		Permission: PermAdmin,
		Enabled: func(env *Env) bool {
			return env.Config.DestroyOnError
		},
		Run: handleSessionKill,
	})
}

func handleSessionKill(c *Context) error {
	sys.LogWarn(sys.MsgKillLog, c.Msg.AuthorID)
	c.Reply(sys.MsgKillReply)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Ctx), killLeaveTimeout)
	defer cancel()
	c.Player.Stop(ctx)
	c.Exit(1)
	return nil
}
