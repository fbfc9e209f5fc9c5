package proc

import (
	"context"
	"sync"
	"time"

	"github.com/leeineian/radiobox/sys"
	"golang.org/x/time/rate"
)

const (
	PresenceDebounce  = 2 * time.Second
	PresenceNameLimit = 50
)

// Presence shows the playing track as the bot's activity. Updates are
// debounced and then rate limited so skipping through tracks does not flood
// the gateway.
type Presence struct {
	mu      sync.Mutex
	sched   Scheduler
	limiter *rate.Limiter
	set     func(ctx context.Context, text string) error
	timer   Stopper
	gen     uint64
}

func NewPresence(sched Scheduler, set func(ctx context.Context, text string) error) *Presence {
	if sched == nil {
		sched = SystemScheduler
	}
	return &Presence{
		sched:   sched,
		limiter: rate.NewLimiter(rate.Every(4*time.Second), 2),
		set:     set,
	}
}

// SetTrack schedules the activity update for name, replacing any update that
// has not fired yet.
func (p *Presence) SetTrack(name string) {
	text := PresenceText(name)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.timer != nil {
		p.timer.Stop()
	}
	p.gen++
	gen := p.gen
	p.timer = p.sched.AfterFunc(PresenceDebounce, func() { p.flush(gen, text) })
}

func (p *Presence) flush(gen uint64, text string) {
	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		return
	}
	p.timer = nil
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := p.limiter.Wait(ctx); err != nil {
		return
	}
	if err := p.set(ctx, text); err != nil {
		sys.LogPlayer("Failed to update presence: %v", err)
	}
}

// PresenceText is the activity label for a track file name.
func PresenceText(name string) string {
	return sys.Truncate(sys.RemoveExtension(name), PresenceNameLimit)
}
