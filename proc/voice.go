package proc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/voice"
	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/radiobox/sys"
)

// VoiceTransport plays catalog files into the configured voice channel. It
// implements Transport; playback progress goes to OnEvent.
type VoiceTransport struct {
	client    *bot.Client
	guildID   snowflake.ID
	channelID snowflake.ID

	// OnEvent receives Start/Finish/Error for each stream.
	OnEvent func(Event)
	// OnDisconnect fires when the bot is removed from voice by someone else.
	OnDisconnect func()

	mu           sync.Mutex
	conn         voice.Conn
	streamCancel context.CancelFunc
	gain         atomic.Uint64
}

func NewVoiceTransport(client *bot.Client, guildID, channelID snowflake.ID) *VoiceTransport {
	t := &VoiceTransport{client: client, guildID: guildID, channelID: channelID}
	t.gain.Store(math.Float64bits(TransportVolume(DefaultLevel)))
	return t
}

// Join connects self-deafened. Missing guild or channel is reported as
// ErrConfiguration.
func (t *VoiceTransport) Join(ctx context.Context) error {
	if _, ok := t.client.Caches.Guild(t.guildID); !ok {
		return fmt.Errorf("%w: guild %s not found", ErrConfiguration, t.guildID)
	}
	ch, ok := t.client.Caches.Channel(t.channelID)
	if !ok {
		return fmt.Errorf("%w: channel %s not found", ErrConfiguration, t.channelID)
	}
	if ch.Type() != discord.ChannelTypeGuildVoice && ch.Type() != discord.ChannelTypeGuildStageVoice {
		return fmt.Errorf("%w: channel %s is not a voice channel", ErrConfiguration, t.channelID)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeLocked(ctx)

	sys.LogVoice("Joining channel %s in guild %s", t.channelID, t.guildID)
	conn := t.client.VoiceManager.CreateConn(t.guildID)
	openCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := conn.Open(openCtx, t.channelID, false, true); err != nil {
		conn.Close(ctx)
		return err
	}
	t.conn = conn
	return nil
}

// Play replaces the current stream. The file is decoded on its own goroutine.
func (t *VoiceTransport) Play(ctx context.Context, s Stream) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return errors.New("voice connection not open")
	}
	if t.streamCancel != nil {
		t.streamCancel()
	}
	t.gain.Store(math.Float64bits(s.Volume))

	streamCtx, cancel := context.WithCancel(context.Background())
	t.streamCancel = cancel

	p := NewStreamProvider(streamCtx)
	p.OnFinish = func() { t.emit(Event{Kind: EventFinish, StreamID: s.ID}) }

	t.conn.SetOpusFrameProvider(p)
	_ = t.conn.SetSpeaking(ctx, voice.SpeakingFlagMicrophone)

	sys.SafeGo(func() { t.stream(streamCtx, s, p) })
	return nil
}

func (t *VoiceTransport) stream(ctx context.Context, s Stream, p *StreamProvider) {
	tr := NewTranscoder(t.Gain)
	defer tr.Close()

	err := tr.OpenInput(s.Path)
	if err == nil {
		err = tr.SetupDecoder()
	}
	if err == nil {
		err = tr.SetupEncoder()
	}
	if err != nil {
		sys.LogVoice("Cannot open %s: %v", s.Name, err)
		t.emit(Event{Kind: EventError, StreamID: s.ID, Err: err})
		return
	}

	t.emit(Event{Kind: EventStart, StreamID: s.ID})
	err = tr.Transcode(ctx, p.PushFrame)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		sys.LogVoice("Transcoder failed for %s: %v", s.Name, err)
		t.emit(Event{Kind: EventError, StreamID: s.ID, Err: err})
		return
	}
	// end of input; Finish fires once the buffered frames are sent
	p.PushFrame(nil)
}

func (t *VoiceTransport) emit(ev Event) {
	if t.OnEvent != nil {
		t.OnEvent(ev)
	}
}

// SetVolume changes the gain of the live stream.
func (t *VoiceTransport) SetVolume(v float64) {
	t.gain.Store(math.Float64bits(v))
}

func (t *VoiceTransport) Gain() float64 {
	return math.Float64frombits(t.gain.Load())
}

func (t *VoiceTransport) Leave(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sys.LogVoice("Leaving channel %s", t.channelID)
	t.closeLocked(ctx)
}

func (t *VoiceTransport) closeLocked(ctx context.Context) {
	if t.streamCancel != nil {
		t.streamCancel()
		t.streamCancel = nil
	}
	if t.conn != nil {
		t.conn.SetOpusFrameProvider(nil)
		t.conn.Close(ctx)
		t.conn = nil
	}
}

// OnVoiceStateUpdate watches for the bot itself leaving voice.
func (t *VoiceTransport) OnVoiceStateUpdate(event *events.GuildVoiceStateUpdate) {
	vs := event.VoiceState
	if vs.GuildID != t.guildID || vs.UserID != event.Client().ID() || vs.ChannelID != nil {
		return
	}
	if t.OnDisconnect != nil {
		t.OnDisconnect()
	}
}

// StreamProvider hands encoded frames to the voice connection. A nil frame
// marks the end of the stream.
type StreamProvider struct {
	frames   chan []byte
	ctx      context.Context
	OnFinish func()
	once     sync.Once
}

func NewStreamProvider(ctx context.Context) *StreamProvider {
	return &StreamProvider{frames: make(chan []byte, 100), ctx: ctx}
}

func (p *StreamProvider) PushFrame(f []byte) {
	select {
	case p.frames <- f:
	case <-p.ctx.Done():
	}
}

func (p *StreamProvider) finish() {
	p.once.Do(func() {
		if p.OnFinish != nil {
			p.OnFinish()
		}
	})
}

func (p *StreamProvider) ProvideOpusFrame() ([]byte, error) {
	select {
	case f := <-p.frames:
		if f == nil {
			p.finish()
			return nil, io.EOF
		}
		return f, nil
	case <-p.ctx.Done():
		return nil, io.EOF
	case <-time.After(100 * time.Millisecond):
		return nil, nil // silence
	}
}

func (p *StreamProvider) Close() {}
