package proc

import (
	"slices"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

const (
	SelectionTTL           = 5 * time.Minute
	MaxSelectionCandidates = 5
)

// NumberEmojis are the reactions offered on a selection prompt, in candidate
// order.
var NumberEmojis = []string{"1️⃣", "2️⃣", "3️⃣", "4️⃣", "5️⃣"}

// Prompt is a posted disambiguation message and the tracks it offers.
type Prompt struct {
	ChannelID  snowflake.ID
	MessageID  snowflake.ID
	Candidates []string
}

// Selector keeps at most one live prompt. Opening a new prompt, resolving
// it, or letting it expire removes the previous message through remove.
type Selector struct {
	mu      sync.Mutex
	sched   Scheduler
	ttl     time.Duration
	remove  func(Prompt)
	current *pendingPrompt
	gen     uint64
}

type pendingPrompt struct {
	prompt Prompt
	gen    uint64
	stop   Stopper
}

func NewSelector(sched Scheduler, remove func(Prompt)) *Selector {
	if sched == nil {
		sched = SystemScheduler
	}
	if remove == nil {
		remove = func(Prompt) {}
	}
	return &Selector{sched: sched, ttl: SelectionTTL, remove: remove}
}

// Open makes p the live prompt, superseding any previous one.
func (s *Selector) Open(p Prompt) {
	p.Candidates = slices.Clone(p.Candidates)

	s.mu.Lock()
	old := s.current
	s.gen++
	gen := s.gen
	pending := &pendingPrompt{prompt: p, gen: gen}
	s.current = pending
	pending.stop = s.sched.AfterFunc(s.ttl, func() { s.expire(gen) })
	s.mu.Unlock()

	if old != nil {
		old.stop.Stop()
		s.remove(old.prompt)
	}
}

// Current returns the live prompt, if any.
func (s *Selector) Current() (Prompt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Prompt{}, false
	}
	return s.current.prompt, true
}

// Resolve consumes the live prompt when messageID matches it and emoji picks
// an existing candidate. It returns the chosen track.
func (s *Selector) Resolve(messageID snowflake.ID, emoji string) (string, bool) {
	idx := slices.Index(NumberEmojis, emoji)
	if idx < 0 {
		return "", false
	}

	s.mu.Lock()
	cur := s.current
	if cur == nil || cur.prompt.MessageID != messageID || idx >= len(cur.prompt.Candidates) {
		s.mu.Unlock()
		return "", false
	}
	s.current = nil
	s.mu.Unlock()

	cur.stop.Stop()
	s.remove(cur.prompt)
	return cur.prompt.Candidates[idx], true
}

// Cancel drops the live prompt without a selection.
func (s *Selector) Cancel() {
	s.mu.Lock()
	cur := s.current
	s.current = nil
	s.mu.Unlock()

	if cur != nil {
		cur.stop.Stop()
		s.remove(cur.prompt)
	}
}

func (s *Selector) expire(gen uint64) {
	s.mu.Lock()
	cur := s.current
	if cur == nil || cur.gen != gen {
		s.mu.Unlock()
		return
	}
	s.current = nil
	s.mu.Unlock()

	s.remove(cur.prompt)
}
