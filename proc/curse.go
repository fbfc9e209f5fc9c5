package proc

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/radiobox/sys"
	"github.com/samber/lo"
)

const CurseRecheckDelay = 5 * time.Second

// CurseSet is the set of members locked to the bot's voice channel.
type CurseSet struct {
	mu  sync.RWMutex
	ids map[snowflake.ID]struct{}
}

func NewCurseSet() *CurseSet {
	return &CurseSet{ids: make(map[snowflake.ID]struct{})}
}

func (c *CurseSet) Add(ids ...snowflake.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		c.ids[id] = struct{}{}
	}
}

// Remove releases ids and returns how many of them were cursed.
func (c *CurseSet) Remove(ids ...snowflake.ID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, id := range lo.Uniq(ids) {
		if _, ok := c.ids[id]; ok {
			delete(c.ids, id)
			n++
		}
	}
	return n
}

func (c *CurseSet) Has(id snowflake.ID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.ids[id]
	return ok
}

func (c *CurseSet) List() []snowflake.ID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := lo.Keys(c.ids)
	slices.Sort(ids)
	return ids
}

// Warden moves cursed members back into the bot's channel.
type Warden struct {
	Set   *CurseSet
	sched Scheduler
	// BotChannel reports the channel the bot is connected to.
	BotChannel func() (snowflake.ID, bool)
	// Locate reports the voice channel a member is in.
	Locate func(userID snowflake.ID) (snowflake.ID, bool)
	Move   func(ctx context.Context, userID, channelID snowflake.ID) error

	mu      sync.Mutex
	pending map[snowflake.ID]Stopper
}

func NewWarden(set *CurseSet, sched Scheduler) *Warden {
	if sched == nil {
		sched = SystemScheduler
	}
	return &Warden{Set: set, sched: sched, pending: make(map[snowflake.ID]Stopper)}
}

// Enforce moves userID back when cursed and away from the bot, then checks
// again after CurseRecheckDelay. It reports whether a move was attempted.
func (w *Warden) Enforce(userID snowflake.ID, current *snowflake.ID) bool {
	if !w.enforce(userID, current) {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if stop, ok := w.pending[userID]; ok {
		stop.Stop()
	}
	w.pending[userID] = w.sched.AfterFunc(CurseRecheckDelay, func() {
		w.mu.Lock()
		delete(w.pending, userID)
		w.mu.Unlock()
		if ch, ok := w.Locate(userID); ok {
			w.enforce(userID, &ch)
		}
	})
	return true
}

func (w *Warden) enforce(userID snowflake.ID, current *snowflake.ID) bool {
	if !w.Set.Has(userID) || current == nil {
		return false
	}
	botChannel, ok := w.BotChannel()
	if !ok || botChannel == *current {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := w.Move(ctx, userID, botChannel); err != nil {
		sys.LogVoice("Failed to move cursed member %s: %v", userID, err)
		return true
	}
	sys.LogVoice("Moved cursed member %s back", userID)
	return true
}
