package proc

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leeineian/radiobox/sys"
)

var (
	// ErrConfiguration marks join failures that retrying cannot fix
	// (missing guild or channel). They are reported, never retried.
	ErrConfiguration = errors.New("configuration error")
	ErrStreamStuck   = errors.New("stream produced no terminal event in time")
	ErrEngineStopped = errors.New("engine stopped")
)

const (
	DefaultMaxTrackDuration = 600 * time.Second
	WatchdogGrace           = 10 * time.Second
	RetryDelay              = 15 * time.Second
	StartupTrackName        = "Startup"
)

type State int

const (
	StateIdle State = iota
	StateJoining
	StatePlaying
	StateAdvancing
	StateFaulted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateJoining:
		return "joining"
	case StatePlaying:
		return "playing"
	case StateAdvancing:
		return "advancing"
	case StateFaulted:
		return "faulted"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type EventKind int

const (
	EventStart EventKind = iota
	EventFinish
	EventError
)

// Event is a terminal or start notification from the transport for the
// stream with the given ID.
type Event struct {
	Kind     EventKind
	StreamID uint64
	Err      error
}

// Stream is one playback request handed to the transport.
type Stream struct {
	ID     uint64
	Name   string
	Path   string
	Volume float64
}

// Transport is the voice connection. Play must return once the stream is
// scheduled; progress is reported through Engine.Dispatch.
type Transport interface {
	Join(ctx context.Context) error
	Play(ctx context.Context, s Stream) error
	SetVolume(v float64)
	Leave(ctx context.Context)
}

// StatusSink receives the name of every track that starts streaming.
type StatusSink interface {
	SetTrack(name string)
}

// Notifier reaches the operator channel.
type Notifier interface {
	Notify(msg string)
}

type EngineConfig struct {
	Catalog          *Catalog
	Transport        Transport
	Scheduler        Scheduler
	Rand             *rand.Rand
	Status           StatusSink
	Notifier         Notifier
	StartupFile      string
	MaxTrackDuration time.Duration
	// OnStuck takes over when the watchdog fires. Nil keeps recovery local:
	// leave, back off, retry.
	OnStuck func()
	Now     func() time.Time
}

// Snapshot is an immutable copy of the engine state, published after every
// transition.
type Snapshot struct {
	State     State
	Index     int
	Tracks    []string
	Current   string
	Override  bool
	StartedAt time.Time
	Volume    float64
	Mode      VolumeMode
	SoundBomb int
	Loop      bool
	Joined    bool
}

type nowPlaying struct {
	name     string
	path     string
	explicit bool
	// removed is set when the track left the catalog mid-stream; loop
	// must not replay it.
	removed bool
}

// timerSlot holds one armed task. gen guards against a superseded task that
// fires late.
type timerSlot struct {
	gen  uint64
	stop Stopper
}

// Engine serializes every playback mutation on a single goroutine (Run).
// Commands, transport events and timer callbacks are all closures queued on
// the same inbox.
type Engine struct {
	catalog   *Catalog
	transport Transport
	sched     Scheduler
	status    StatusSink
	notifier  Notifier
	startup   string
	maxTrack  time.Duration
	onStuck   func()
	now       func() time.Time

	inbox   chan func()
	done    chan struct{}
	stopped sync.Once
	snap    atomic.Pointer[Snapshot]

	// owned by the Run goroutine
	state     State
	started   bool
	joined    bool
	nextID    uint64
	liveID    uint64
	current   nowPlaying
	startedAt time.Time
	volume    *VolumePolicy
	loop      bool
	timerGen  uint64
	watchdog  timerSlot
	retry     timerSlot
	spike     timerSlot
}

func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Scheduler == nil {
		cfg.Scheduler = SystemScheduler
	}
	if cfg.MaxTrackDuration <= 0 {
		cfg.MaxTrackDuration = DefaultMaxTrackDuration
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	e := &Engine{
		catalog:   cfg.Catalog,
		transport: cfg.Transport,
		sched:     cfg.Scheduler,
		status:    cfg.Status,
		notifier:  cfg.Notifier,
		startup:   cfg.StartupFile,
		maxTrack:  cfg.MaxTrackDuration,
		onStuck:   cfg.OnStuck,
		now:       cfg.Now,
		inbox:     make(chan func(), 64),
		done:      make(chan struct{}),
		volume:    NewVolumePolicy(cfg.Rand),
	}
	e.publish()
	return e
}

// Run drains the inbox until ctx is canceled.
func (e *Engine) Run(ctx context.Context) error {
	defer e.stopped.Do(func() { close(e.done) })
	for {
		select {
		case f := <-e.inbox:
			e.exec(f)
		case <-ctx.Done():
			e.cancel(&e.watchdog)
			e.cancel(&e.retry)
			e.cancel(&e.spike)
			return ctx.Err()
		}
	}
}

func (e *Engine) exec(f func()) {
	prev := e.state
	defer func() {
		if r := recover(); r != nil {
			sys.LogError(sys.MsgLoaderPanicRecovered, r)
		}
		if e.state != prev {
			sys.LogDebug("Player %s -> %s", prev, e.state)
		}
		e.publish()
	}()
	f()
}

func (e *Engine) post(f func()) {
	select {
	case e.inbox <- f:
	case <-e.done:
	}
}

// do runs f on the engine goroutine and waits for its result.
func (e *Engine) do(f func() error) error {
	reply := make(chan error, 1)
	e.post(func() { reply <- f() })
	select {
	case err := <-reply:
		return err
	case <-e.done:
		return ErrEngineStopped
	}
}

// Sync returns once every previously queued closure has run.
func (e *Engine) Sync() {
	_ = e.do(func() error { return nil })
}

// --- Public API ---

// Start begins playback, opening with the startup jingle when present.
func (e *Engine) Start() {
	e.post(func() {
		e.started = true
		if e.startup != "" {
			if info, err := os.Stat(e.startup); err == nil && !info.IsDir() {
				_ = e.playNext(StartupTrackName, e.startup)
				return
			}
		}
		_ = e.playNext("", "")
	})
}

// Advance starts track (which must be in the catalog) or, when track is
// empty, the next catalog entry. It returns the name that was started.
func (e *Engine) Advance(track string) (string, error) {
	var name string
	err := e.do(func() error {
		if track != "" && !e.catalog.Contains(track) {
			return fmt.Errorf("%w: %s", ErrTrackNotFound, track)
		}
		e.started = true
		path := ""
		if track != "" {
			path = e.catalog.Path(track)
		}
		if err := e.playNext(track, path); err != nil {
			return err
		}
		name = e.current.name
		return nil
	})
	return name, err
}

// SkipBack moves the cursor one track back and plays it.
func (e *Engine) SkipBack() (string, error) {
	var name string
	err := e.do(func() error {
		e.started = true
		e.catalog.Back()
		if err := e.playNext("", ""); err != nil {
			return err
		}
		name = e.current.name
		return nil
	})
	return name, err
}

// SetVolumeLevel stores a clamped level and applies it to the live stream.
func (e *Engine) SetVolumeLevel(level float64) float64 {
	var stored float64
	_ = e.do(func() error {
		stored = e.volume.SetLevel(level)
		if e.joined {
			e.transport.SetVolume(TransportVolume(stored))
		}
		return nil
	})
	return stored
}

func (e *Engine) SetVolumeMode(mode VolumeMode) {
	_ = e.do(func() error {
		e.volume.SetMode(mode)
		e.cancel(&e.spike)
		return nil
	})
}

// AddTrack inserts name after the cursor. A playback stalled on an empty
// catalog resumes.
func (e *Engine) AddTrack(name string) error {
	return e.do(func() error {
		if err := e.catalog.Add(name); err != nil {
			return err
		}
		sys.LogCatalog("Added %s", name)
		if e.started && e.state == StateIdle {
			_ = e.playNext("", "")
		}
		return nil
	})
}

func (e *Engine) RemoveTrack(name string) error {
	return e.do(func() error {
		if err := e.catalog.Remove(name); err != nil {
			return err
		}
		if e.current.name == name {
			e.current.removed = true
		}
		sys.LogCatalog("Removed %s", name)
		return nil
	})
}

// ToggleLoop flips the replay flag and returns the new value.
func (e *Engine) ToggleLoop() bool {
	var loop bool
	_ = e.do(func() error {
		e.loop = !e.loop
		loop = e.loop
		return nil
	})
	return loop
}

// Stop leaves voice and halts playback for good. Transport events,
// disconnects and timers that arrive afterwards are ignored.
func (e *Engine) Stop(ctx context.Context) {
	_ = e.do(func() error {
		e.started = false
		e.state = StateIdle
		e.liveID = 0
		e.cancel(&e.watchdog)
		e.cancel(&e.retry)
		e.cancel(&e.spike)
		if e.joined {
			e.transport.Leave(ctx)
			e.joined = false
		}
		e.current = nowPlaying{}
		e.startedAt = time.Time{}
		sys.LogPlayer("Playback stopped")
		return nil
	})
}

// Dispatch queues a transport event.
func (e *Engine) Dispatch(ev Event) {
	e.post(func() { e.onEvent(ev) })
}

// Disconnected reports that the bot was dropped from voice. Only a playing
// engine reacts; during a fault the drop is the engine's own leave.
func (e *Engine) Disconnected() {
	e.post(func() {
		if e.state != StatePlaying {
			return
		}
		sys.LogVoice("Disconnect detected, rejoining")
		e.joined = false
		e.liveID = 0
		_ = e.playNext("", "")
	})
}

func (e *Engine) Snapshot() Snapshot {
	return *e.snap.Load()
}

func (e *Engine) CurrentTrackName() string {
	return e.Snapshot().Current
}

func (e *Engine) CurrentIndex() int {
	return e.Snapshot().Index
}

func (e *Engine) AllTrackNames() []string {
	return slices.Clone(e.Snapshot().Tracks)
}

// --- State machine ---

func (e *Engine) playNext(track, path string) error {
	e.cancel(&e.watchdog)
	e.cancel(&e.retry)

	if !e.joined {
		e.state = StateJoining
		if err := e.transport.Join(context.Background()); err != nil {
			if errors.Is(err, ErrConfiguration) {
				e.state = StateFaulted
				sys.LogError("Cannot join voice: %v", err)
				e.notify(fmt.Sprintf("Unable to join voice: %v", err))
				return err
			}
			e.fault(err)
			return err
		}
		e.joined = true
	}

	explicit := track != ""
	if !explicit {
		name, err := e.catalog.Next()
		if err != nil {
			// stalls until AddTrack
			e.state = StateIdle
			e.liveID = 0
			e.current = nowPlaying{}
			e.startedAt = time.Time{}
			sys.LogPlayer("Nothing to play: %v", err)
			return err
		}
		track, path = name, e.catalog.Path(name)
	}

	level, spike := e.volume.NextTrack()
	if spike {
		sys.LogPlayer("Sound bomb armed")
		e.arm(&e.spike, SpikeDelay, e.detonate)
	}

	e.nextID++
	stream := Stream{ID: e.nextID, Name: track, Path: path, Volume: TransportVolume(level)}
	if err := e.transport.Play(context.Background(), stream); err != nil {
		e.fault(err)
		return err
	}

	e.liveID = stream.ID
	e.current = nowPlaying{name: track, path: path, explicit: explicit}
	e.state = StatePlaying
	sys.LogPlayer("%d: Playing %s V: %d M: %s", e.catalog.Index(), track, int(level*100+0.5), e.volume.Mode)
	return nil
}

func (e *Engine) onEvent(ev Event) {
	if ev.StreamID == 0 || ev.StreamID != e.liveID {
		return
	}
	switch ev.Kind {
	case EventStart:
		e.startedAt = e.now()
		e.arm(&e.watchdog, e.maxTrack+WatchdogGrace, e.stuck)
		e.volume.OnTrackStart()
		if e.status != nil {
			e.status.SetTrack(e.current.name)
		}
	case EventFinish:
		e.state = StateAdvancing
		if e.loop && !e.current.removed {
			_ = e.playNext(e.current.name, e.current.path)
		} else {
			_ = e.playNext("", "")
		}
	case EventError:
		e.fault(ev.Err)
	}
}

// fault drops the connection and retries a fresh selection after RetryDelay.
func (e *Engine) fault(err error) {
	sys.LogError("Playback failed: %v", err)
	e.state = StateFaulted
	e.liveID = 0
	e.cancel(&e.watchdog)
	if e.joined {
		e.transport.Leave(context.Background())
		e.joined = false
	}
	e.arm(&e.retry, RetryDelay, func() {
		_ = e.playNext("", "")
	})
}

func (e *Engine) stuck() {
	sys.LogWarn("Stream stuck on %s", e.current.name)
	if e.onStuck != nil {
		e.liveID = 0
		if e.joined {
			e.transport.Leave(context.Background())
			e.joined = false
		}
		e.state = StateFaulted
		e.onStuck()
		return
	}
	e.fault(ErrStreamStuck)
}

func (e *Engine) detonate() {
	e.volume.Detonate()
	if e.joined && e.liveID != 0 {
		sys.LogPlayer("Sound bomb!")
		e.transport.SetVolume(SpikeGain)
	}
}

func (e *Engine) notify(msg string) {
	if e.notifier != nil {
		e.notifier.Notify(msg)
	}
}

// --- Timers ---

func (e *Engine) arm(slot *timerSlot, d time.Duration, f func()) {
	e.cancel(slot)
	e.timerGen++
	gen := e.timerGen
	slot.gen = gen
	slot.stop = e.sched.AfterFunc(d, func() {
		e.post(func() {
			if slot.gen != gen {
				return
			}
			slot.gen, slot.stop = 0, nil
			f()
		})
	})
}

func (e *Engine) cancel(slot *timerSlot) {
	if slot.stop != nil {
		slot.stop.Stop()
	}
	slot.gen, slot.stop = 0, nil
}

func (e *Engine) publish() {
	current := e.current.name
	if current == "" {
		current, _ = e.catalog.Current()
	}
	e.snap.Store(&Snapshot{
		State:     e.state,
		Index:     e.catalog.Index(),
		Tracks:    e.catalog.Names(),
		Current:   current,
		Override:  e.current.explicit,
		StartedAt: e.startedAt,
		Volume:    e.volume.Level,
		Mode:      e.volume.Mode,
		SoundBomb: e.volume.SoundBomb,
		Loop:      e.loop,
		Joined:    e.joined,
	})
}
