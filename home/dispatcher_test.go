package home

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/radiobox/proc"
	"github.com/leeineian/radiobox/sys"
)

const (
	adminID    snowflake.ID = 1
	userID     snowflake.ID = 2
	otherID    snowflake.ID = 3
	textID     snowflake.ID = 50
	botVoiceID snowflake.ID = 100
	elseVoice  snowflake.ID = 200
)

// --- fakes ---

type fakePlayer struct {
	tracks   []string
	index    int
	current  string
	started  time.Time
	advanced []string
	backs    int
	levels   []float64
	modes    []proc.VolumeMode
	removed  []string
	loop     bool
	stopped  bool
	err      error
}

func (p *fakePlayer) CurrentTrackName() string { return p.current }
func (p *fakePlayer) CurrentIndex() int        { return p.index }
func (p *fakePlayer) AllTrackNames() []string  { return slices.Clone(p.tracks) }

func (p *fakePlayer) Advance(track string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.advanced = append(p.advanced, track)
	if track == "" {
		p.index = (p.index + 1) % len(p.tracks)
		track = p.tracks[p.index]
	}
	p.current = track
	return track, nil
}

func (p *fakePlayer) SkipBack() (string, error) {
	p.backs++
	p.index = (p.index - 1 + len(p.tracks)) % len(p.tracks)
	p.current = p.tracks[p.index]
	return p.current, nil
}

func (p *fakePlayer) SetVolumeLevel(level float64) float64 {
	p.levels = append(p.levels, level)
	return level
}

func (p *fakePlayer) SetVolumeMode(mode proc.VolumeMode) { p.modes = append(p.modes, mode) }
func (p *fakePlayer) AddTrack(name string) error         { p.tracks = append(p.tracks, name); return nil }

func (p *fakePlayer) RemoveTrack(name string) error {
	i := slices.Index(p.tracks, name)
	if i < 0 {
		return proc.ErrTrackNotFound
	}
	p.tracks = slices.Delete(p.tracks, i, i+1)
	p.removed = append(p.removed, name)
	return nil
}

func (p *fakePlayer) ToggleLoop() bool { p.loop = !p.loop; return p.loop }

func (p *fakePlayer) Stop(context.Context) { p.stopped = true }

func (p *fakePlayer) Snapshot() proc.Snapshot {
	return proc.Snapshot{
		Index:     p.index,
		Tracks:    slices.Clone(p.tracks),
		Current:   p.current,
		StartedAt: p.started,
	}
}

type sentMessage struct {
	channel, id snowflake.ID
	content     string
}

type fakeChat struct {
	nextID    snowflake.ID
	sent      []sentMessage
	edits     map[snowflake.ID][]string
	deleted   []snowflake.ID
	reactions map[snowflake.ID][]string
}

func newFakeChat() *fakeChat {
	return &fakeChat{nextID: 1000, edits: map[snowflake.ID][]string{}, reactions: map[snowflake.ID][]string{}}
}

func (c *fakeChat) Send(channelID snowflake.ID, content string) (snowflake.ID, error) {
	c.nextID++
	c.sent = append(c.sent, sentMessage{channelID, c.nextID, content})
	return c.nextID, nil
}

func (c *fakeChat) Edit(_, messageID snowflake.ID, content string) error {
	c.edits[messageID] = append(c.edits[messageID], content)
	return nil
}

func (c *fakeChat) Delete(_, messageID snowflake.ID) error {
	c.deleted = append(c.deleted, messageID)
	return nil
}

func (c *fakeChat) React(_, messageID snowflake.ID, emoji string) error {
	c.reactions[messageID] = append(c.reactions[messageID], emoji)
	return nil
}

func (c *fakeChat) replies() []string {
	out := make([]string, len(c.sent))
	for i, m := range c.sent {
		out[i] = m.content
	}
	return out
}

func (c *fakeChat) last() string {
	if len(c.sent) == 0 {
		return ""
	}
	return c.sent[len(c.sent)-1].content
}

type fakeGuild struct {
	admins map[snowflake.ID]bool
	voice  map[snowflake.ID]snowflake.ID
	moves  map[snowflake.ID]snowflake.ID
}

func (g *fakeGuild) IsAdmin(id snowflake.ID) bool { return g.admins[id] }
func (g *fakeGuild) BotName() string              { return "Radio#0001" }

func (g *fakeGuild) BotVoiceChannel() (snowflake.ID, bool) { return botVoiceID, true }

func (g *fakeGuild) VoiceChannelOf(id snowflake.ID) (snowflake.ID, bool) {
	ch, ok := g.voice[id]
	return ch, ok
}

func (g *fakeGuild) Listeners(channelID snowflake.ID) int {
	n := 0
	for _, ch := range g.voice {
		if ch == channelID {
			n++
		}
	}
	return n
}

func (g *fakeGuild) MoveMember(_ context.Context, id, channelID snowflake.ID) error {
	g.moves[id] = channelID
	g.voice[id] = channelID
	return nil
}

type fakeDownloader struct {
	info       proc.VideoInfo
	inspectErr error
	fetchErr   error
	progress   []int
	attached   map[string]error
	fetched    []string
}

func (d *fakeDownloader) Inspect(_ context.Context, url string) (proc.VideoInfo, string, error) {
	if err := proc.ValidateYouTubeURL(url); err != nil {
		return proc.VideoInfo{}, "", err
	}
	return d.info, proc.TrackFileName(d.info.Title), d.inspectErr
}

func (d *fakeDownloader) YouTube(_ context.Context, url, name string, progress func(int)) error {
	for _, p := range d.progress {
		progress(p)
	}
	d.fetched = append(d.fetched, name)
	return d.fetchErr
}

func (d *fakeDownloader) Attachment(_ context.Context, _ string, fileName string) (string, error) {
	name := proc.AttachmentTrackName(fileName)
	if err := d.attached[fileName]; err != nil {
		return name, err
	}
	d.fetched = append(d.fetched, name)
	return name, nil
}

// manualScheduler never fires on its own.
type manualScheduler struct{}

type noopStopper struct{}

func (noopStopper) Stop() bool { return true }

func (manualScheduler) AfterFunc(time.Duration, func()) proc.Stopper { return noopStopper{} }

// --- harness ---

type harness struct {
	d          *Dispatcher
	env        *Env
	player     *fakePlayer
	chat       *fakeChat
	guild      *fakeGuild
	downloader *fakeDownloader
	exitCode   int
}

func newHarness(t *testing.T, mutate func(*Env)) *harness {
	t.Helper()
	h := &harness{
		player: &fakePlayer{tracks: []string{"alpha.mp3", "beta song.mp3", "gamma.mp3"}, current: "alpha.mp3"},
		chat:   newFakeChat(),
		guild: &fakeGuild{
			admins: map[snowflake.ID]bool{adminID: true},
			voice:  map[snowflake.ID]snowflake.ID{},
			moves:  map[snowflake.ID]snowflake.ID{},
		},
		downloader: &fakeDownloader{attached: map[string]error{}},
		exitCode:   -1,
	}
	warden := proc.NewWarden(proc.NewCurseSet(), manualScheduler{})
	warden.BotChannel = h.guild.BotVoiceChannel
	warden.Locate = h.guild.VoiceChannelOf
	warden.Move = h.guild.MoveMember

	h.env = &Env{
		Config:     &sys.Config{Prefix: "!", TrackDirectory: t.TempDir(), MaxTrackSeconds: 600},
		Player:     h.player,
		Chat:       h.chat,
		Guild:      h.guild,
		Selector:   proc.NewSelector(manualScheduler{}, func(p proc.Prompt) { _ = h.chat.Delete(p.ChannelID, p.MessageID) }),
		Downloader: h.downloader,
		Warden:     warden,
		Exit:       func(code int) { h.exitCode = code },
		Now:        func() time.Time { return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC) },
	}
	if mutate != nil {
		mutate(h.env)
	}
	h.d = NewDispatcher(h.env)
	return h
}

func (h *harness) run(t *testing.T, author snowflake.ID, content string) bool {
	t.Helper()
	return h.d.Handle(t.Context(), Message{ID: 9, ChannelID: textID, AuthorID: author, Content: content})
}

// --- dispatcher ---

func TestHandleIgnoresForeignMessages(t *testing.T) {
	h := newHarness(t, nil)
	for _, content := range []string{"hello", "!", "!nosuchcommand", "?next", ""} {
		if h.run(t, adminID, content) {
			t.Errorf("Handle(%q) matched", content)
		}
	}
	if len(h.chat.sent) != 0 {
		t.Errorf("unexpected replies: %v", h.chat.replies())
	}
}

func TestHandleIsCaseInsensitive(t *testing.T) {
	h := newHarness(t, func(env *Env) { env.Config.Prefix = "rb!" })
	if !h.run(t, userID, "RB!NeXt") {
		t.Fatal("command not matched")
	}
	if got := h.chat.last(); got != "Playing `beta song`" {
		t.Errorf("reply = %q", got)
	}
}

func TestHandleAliases(t *testing.T) {
	h := newHarness(t, nil)
	h.run(t, userID, "!>>")
	h.run(t, userID, "!forward")
	if got := len(h.player.advanced); got != 2 {
		t.Errorf("advanced %d times", got)
	}
}

func TestHandleDeniesAdminCommands(t *testing.T) {
	h := newHarness(t, nil)
	h.run(t, userID, "!volume 50")
	if got := h.chat.last(); got != sys.ErrNoPermission {
		t.Errorf("reply = %q", got)
	}
	if len(h.player.levels) != 0 {
		t.Error("volume changed")
	}
}

func TestHandleReportsCommandErrors(t *testing.T) {
	h := newHarness(t, nil)
	h.player.err = errors.New("boom")
	h.run(t, userID, "!next")
	if got := h.chat.last(); got != sys.ErrSomethingWrong {
		t.Errorf("reply = %q", got)
	}
}

// --- player commands ---

func TestNextAndBack(t *testing.T) {
	h := newHarness(t, nil)
	h.run(t, userID, "!next")
	h.run(t, userID, "!back")
	want := []string{"Playing `beta song`", "Playing `alpha`"}
	if got := h.chat.replies(); !slices.Equal(got, want) {
		t.Errorf("replies = %v, want %v", got, want)
	}
}

func TestPlayerCommandsForbiddenWithListeners(t *testing.T) {
	h := newHarness(t, nil)
	h.guild.voice[userID] = botVoiceID
	h.guild.voice[otherID] = botVoiceID

	h.run(t, userID, "!next")
	h.run(t, userID, "!back")
	h.run(t, userID, "!select beta")
	want := []string{sys.ErrPlayerForbidSkip, sys.ErrPlayerForbidBack, sys.ErrPlayerForbidSelect}
	if got := h.chat.replies(); !slices.Equal(got, want) {
		t.Errorf("replies = %v", got)
	}
	if len(h.player.advanced) != 0 || h.player.backs != 0 {
		t.Error("player changed")
	}

	// alone in the channel, or elsewhere, or an admin: allowed
	h.guild.voice[otherID] = elseVoice
	h.run(t, userID, "!next")
	h.guild.voice[otherID] = botVoiceID
	h.guild.voice[adminID] = botVoiceID
	h.run(t, adminID, "!next")
	if got := len(h.player.advanced); got != 2 {
		t.Errorf("advanced %d times, want 2", got)
	}
}

func TestSelect(t *testing.T) {
	h := newHarness(t, nil)

	h.run(t, userID, "!select")
	h.run(t, userID, "!select zzz")
	h.run(t, userID, "!play BETA")
	want := []string{sys.ErrSelectNoQuery, sys.ErrSelectNothingFound, "Playing `beta song`"}
	if got := h.chat.replies(); !slices.Equal(got, want) {
		t.Errorf("replies = %v", got)
	}
	if !slices.Equal(h.player.advanced, []string{"beta song.mp3"}) {
		t.Errorf("advanced = %v", h.player.advanced)
	}
}

func TestSelectPromptAndReaction(t *testing.T) {
	h := newHarness(t, nil)
	h.player.tracks = []string{"rock a.mp3", "rock b.mp3", "jazz.mp3", "rock c.mp3"}

	h.run(t, userID, "!select rock")
	prompt := h.chat.sent[len(h.chat.sent)-1]
	if prompt.content != "```\n1: rock a\n2: rock b\n3: rock c```" {
		t.Errorf("prompt = %q", prompt.content)
	}
	if got := h.chat.reactions[prompt.id]; !slices.Equal(got, proc.NumberEmojis[:3]) {
		t.Errorf("reactions = %v", got)
	}

	// only admins pick
	if h.d.HandleReaction(t.Context(), textID, prompt.id, userID, proc.NumberEmojis[1]) {
		t.Error("non-admin reaction accepted")
	}
	if !h.d.HandleReaction(t.Context(), textID, prompt.id, adminID, proc.NumberEmojis[1]) {
		t.Fatal("admin reaction ignored")
	}
	if !slices.Equal(h.player.advanced, []string{"rock b.mp3"}) {
		t.Errorf("advanced = %v", h.player.advanced)
	}
	if got := h.chat.last(); got != "Playing `rock b`" {
		t.Errorf("reply = %q", got)
	}
	if !slices.Contains(h.chat.deleted, prompt.id) {
		t.Error("prompt not removed")
	}
	if h.d.HandleReaction(t.Context(), textID, prompt.id, adminID, proc.NumberEmojis[0]) {
		t.Error("prompt resolved twice")
	}
}

func TestSelectPromptCapsCandidates(t *testing.T) {
	h := newHarness(t, nil)
	h.player.tracks = nil
	for _, c := range "abcdefg" {
		h.player.tracks = append(h.player.tracks, "mix "+string(c)+".mp3")
	}
	h.run(t, userID, "!select mix")
	prompt, ok := h.env.Selector.Current()
	if !ok || len(prompt.Candidates) != proc.MaxSelectionCandidates {
		t.Errorf("prompt = %+v, %v", prompt, ok)
	}
}

func TestVolume(t *testing.T) {
	tests := []struct {
		arg   string
		reply string
		level float64
		mode  proc.VolumeMode
	}{
		{"50", "Volume set to 50%", 0.5, proc.VolumeDefault},
		{"0", "Volume set to 0%", 0, proc.VolumeDefault},
		{"150", "**!!! Volume set to 150% !!!**", 1.5, proc.VolumeDefault},
		{"250", "**!!! Volume set to 250% !!!**", 2.5, proc.VolumeDefault},
		{"-20", "Volume set to 0%", 0, proc.VolumeDefault},
		{"max", sys.MsgVolumeMaximum, proc.MaxLevel, proc.VolumeDefault},
		{"MAX", sys.MsgVolumeMaximum, proc.MaxLevel, proc.VolumeDefault},
		{"99999999999999999999", sys.MsgVolumeMaximum, proc.MaxLevel, proc.VolumeDefault},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			h := newHarness(t, nil)
			h.run(t, adminID, "!vol "+tt.arg)
			if got := h.chat.last(); got != tt.reply {
				t.Errorf("reply = %q, want %q", got, tt.reply)
			}
			if !slices.Equal(h.player.levels, []float64{tt.level}) {
				t.Errorf("levels = %v", h.player.levels)
			}
			if !slices.Equal(h.player.modes, []proc.VolumeMode{tt.mode}) {
				t.Errorf("modes = %v", h.player.modes)
			}
		})
	}
}

func TestVolumeModes(t *testing.T) {
	h := newHarness(t, nil)
	h.run(t, adminID, "!volume Surprise")
	h.run(t, adminID, "!volume loud")
	h.run(t, adminID, "!volume")
	want := []string{
		"Volume set to `surprise`",
		"Unknown volume type! You can use `default`, `surprise`, `random`",
		sys.ErrVolumeMissing,
	}
	if got := h.chat.replies(); !slices.Equal(got, want) {
		t.Errorf("replies = %v", got)
	}
	if !slices.Equal(h.player.modes, []proc.VolumeMode{proc.VolumeSurprise}) || len(h.player.levels) != 0 {
		t.Errorf("modes = %v, levels = %v", h.player.modes, h.player.levels)
	}
}

func TestLoop(t *testing.T) {
	h := newHarness(t, nil)
	h.run(t, adminID, "!loop")
	h.run(t, adminID, "!repeat")
	if got := h.chat.replies(); !slices.Equal(got, []string{sys.MsgLoopEnabled, sys.MsgLoopDisabled}) {
		t.Errorf("replies = %v", got)
	}
}

// --- info commands ---

func TestHelpFiltersByPermission(t *testing.T) {
	h := newHarness(t, nil)
	h.run(t, userID, "!help")
	h.run(t, adminID, "!?")
	user, admin := h.chat.sent[0].content, h.chat.sent[1].content

	for _, want := range []string{"next - Switches to next track", "select - Plays specified track", "help - Shows help"} {
		if !strings.Contains(user, want) {
			t.Errorf("user help missing %q", want)
		}
	}
	for _, hidden := range []string{"volume", "sysinfo", "np -", "kill", ">>"} {
		if strings.Contains(user, hidden) {
			t.Errorf("user help shows %q", hidden)
		}
	}
	if !strings.Contains(admin, "volume - Set volume") || !strings.Contains(admin, "delete - Deletes track from the bot") {
		t.Errorf("admin help = %q", admin)
	}
	if strings.Contains(admin, "kill") {
		t.Error("kill listed while disabled")
	}
	if !strings.HasPrefix(user, "```\n") || !strings.HasSuffix(user, "```") {
		t.Errorf("help not fenced: %q", user)
	}
}

func TestQueueLines(t *testing.T) {
	tracks := make([]string, 20)
	for i := range tracks {
		tracks[i] = string(rune('a'+i)) + ".mp3"
	}

	got := queueLines(tracks, 10)
	if len(got) != 10 || got[0] != "5: f" || got[9] != "14: o" || got[5] != "==> 10: k <==" {
		t.Errorf("middle window = %v", got)
	}

	got = queueLines(tracks, 0)
	if len(got) != 5 || got[0] != "==> 0: a <==" || got[4] != "4: e" {
		t.Errorf("head window = %v", got)
	}

	got = queueLines(tracks, 19)
	if len(got) != 6 || got[0] != "14: o" || got[5] != "==> 19: t <==" {
		t.Errorf("tail window = %v", got)
	}

	if got := queueLines(nil, 0); len(got) != 0 {
		t.Errorf("empty = %v", got)
	}
}

func TestQueueCommand(t *testing.T) {
	h := newHarness(t, nil)
	h.player.index = 1
	h.run(t, userID, "!queue")
	want := "```\n0: alpha\n==> 1: beta song <==\n2: gamma\n```"
	if got := h.chat.last(); got != want {
		t.Errorf("queue = %q", got)
	}
}

func TestNowPlaying(t *testing.T) {
	h := newHarness(t, nil)
	h.player.current = ""
	h.run(t, userID, "!np")
	if got := h.chat.last(); got != sys.ErrPlayerIdle {
		t.Errorf("idle reply = %q", got)
	}

	h.player.current = "beta song.mp3"
	h.player.started = h.env.Now().Add(-95 * time.Second)
	h.run(t, userID, "!nowplaying")
	if got := h.chat.last(); got != "Playing: `beta song` for `01:35`" {
		t.Errorf("reply = %q", got)
	}
}

func TestInfo(t *testing.T) {
	h := newHarness(t, nil)
	h.run(t, userID, "!info")
	if got := h.chat.last(); got != "Radio#0001 is a 24/7 player with build in ear-rape feature" {
		t.Errorf("reply = %q", got)
	}
}

// --- track commands ---

func TestYouTubeDownload(t *testing.T) {
	h := newHarness(t, nil)
	h.downloader.info = proc.VideoInfo{ID: "dQw4w9WgXcQ", Title: "Never Gonna", Duration: time.Minute}
	h.downloader.progress = []int{12, 80}

	h.run(t, adminID, "!yt https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	status := h.chat.sent[0]
	if status.content != sys.MsgTrackPreparing {
		t.Errorf("status = %q", status.content)
	}
	want := []string{"Downloading 12%", "Downloading 80%", "Downloaded Never Gonna"}
	if got := h.chat.edits[status.id]; !slices.Equal(got, want) {
		t.Errorf("edits = %v", got)
	}
	if !slices.Equal(h.downloader.fetched, []string{"Never Gonna.mp3"}) {
		t.Errorf("fetched = %v", h.downloader.fetched)
	}
}

func TestYouTubeDownloadRejections(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"exists", proc.ErrTrackExists, sys.ErrTrackExists},
		{"live", proc.ErrLiveContent, sys.ErrTrackLive},
		{"too long", proc.ErrTooLong, "Video should not be longer than 600 seconds!"},
		{"metadata", proc.ErrBadMetadata, sys.ErrTrackMetadata},
		{"other", errors.New("network"), sys.ErrTrackDownloadFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			h.downloader.info = proc.VideoInfo{Title: "x"}
			h.downloader.inspectErr = tt.err
			h.run(t, adminID, "!add https://youtu.be/dQw4w9WgXcQ")
			if got := h.chat.edits[h.chat.sent[0].id]; !slices.Equal(got, []string{tt.want}) {
				t.Errorf("edits = %v", got)
			}
			if len(h.downloader.fetched) != 0 {
				t.Error("download started")
			}
		})
	}
}

func TestYouTubeDownloadQuery(t *testing.T) {
	var looked string
	h := newHarness(t, func(env *Env) {
		env.Lookup = func(_ context.Context, q string) (string, error) {
			looked = q
			if q == "nothing here" {
				return "", proc.ErrNoResults
			}
			return "https://www.youtube.com/watch?v=dQw4w9WgXcQ", nil
		}
	})
	h.downloader.info = proc.VideoInfo{Title: "Found"}

	h.run(t, adminID, "!yt rick astley   never")
	if looked != "rick astley   never" {
		t.Errorf("lookup query = %q", looked)
	}
	if !slices.Equal(h.downloader.fetched, []string{"Found.mp3"}) {
		t.Errorf("fetched = %v", h.downloader.fetched)
	}

	h.run(t, adminID, "!yt nothing here")
	if got := h.chat.last(); got != sys.ErrTrackQueryNotFound {
		t.Errorf("reply = %q", got)
	}

	h.run(t, adminID, "!yt")
	if got := h.chat.last(); got != sys.ErrTrackInvalidURL {
		t.Errorf("reply = %q", got)
	}
}

func TestAttachmentDownload(t *testing.T) {
	h := newHarness(t, nil)
	h.run(t, adminID, "!download")
	if got := h.chat.last(); got != sys.ErrTrackNoAttachment {
		t.Errorf("reply = %q", got)
	}

	h = newHarness(t, nil)
	h.downloader.attached["dup.mp3"] = proc.ErrTrackExists
	h.downloader.attached["broken.wav"] = errors.New("ffmpeg")
	h.d.Handle(t.Context(), Message{
		ChannelID: textID,
		AuthorID:  adminID,
		Content:   "!atdownload",
		Attachments: []Attachment{
			{URL: "https://cdn/1", Filename: "my_song.ogg"},
			{URL: "https://cdn/2", Filename: "dup.mp3"},
			{URL: "https://cdn/3", Filename: "broken.wav"},
		},
	})
	want := []string{
		sys.MsgAttachmentPreparing,
		"Downloaded `my song.mp3`",
		"Track `dup.mp3` already exist!",
		sys.ErrTrackAttachmentFail,
	}
	if got := h.chat.replies(); !slices.Equal(got, want) {
		t.Errorf("replies = %v", got)
	}
	if got := h.chat.edits[h.chat.sent[0].id]; !slices.Equal(got, []string{sys.MsgAttachmentWithErrors}) {
		t.Errorf("final edit = %v", got)
	}
}

func TestAttachmentDownloadAllGood(t *testing.T) {
	h := newHarness(t, nil)
	h.d.Handle(t.Context(), Message{
		ChannelID:   textID,
		AuthorID:    adminID,
		Content:     "!download",
		Attachments: []Attachment{{URL: "https://cdn/1", Filename: "a.flac"}},
	})
	if got := h.chat.edits[h.chat.sent[0].id]; !slices.Equal(got, []string{sys.MsgAttachmentAllDone}) {
		t.Errorf("final edit = %v", got)
	}
}

func TestDelete(t *testing.T) {
	h := newHarness(t, nil)
	dir := h.env.Config.TrackDirectory
	if err := os.WriteFile(filepath.Join(dir, "beta song.mp3"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	h.run(t, adminID, "!delete   BETA  song ")
	if got := h.chat.last(); got != "Track `beta song` has been deleted" {
		t.Errorf("reply = %q", got)
	}
	if !slices.Equal(h.player.removed, []string{"beta song.mp3"}) {
		t.Errorf("removed = %v", h.player.removed)
	}
	if _, err := os.Stat(filepath.Join(dir, "beta song.mp3")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("file still present: %v", err)
	}

	h.run(t, adminID, "!remove beta song")
	if got := h.chat.last(); got != sys.ErrTrackNotFound {
		t.Errorf("reply = %q", got)
	}
}

// --- member commands ---

func TestCurse(t *testing.T) {
	h := newHarness(t, nil)
	h.guild.voice[userID] = elseVoice

	h.d.Handle(t.Context(), Message{ChannelID: textID, AuthorID: adminID, Content: "!curse"})
	h.d.Handle(t.Context(), Message{ChannelID: textID, AuthorID: adminID, Content: "!curse @u", Mentions: []snowflake.ID{userID}})
	h.d.Handle(t.Context(), Message{ChannelID: textID, AuthorID: adminID, Content: "!lock @u @o", Mentions: []snowflake.ID{userID, otherID, otherID}})

	want := []string{sys.ErrCurseNoMention, sys.MsgCurseOne, "2 members have been cursed!"}
	if got := h.chat.replies(); !slices.Equal(got, want) {
		t.Errorf("replies = %v", got)
	}
	if h.guild.moves[userID] != botVoiceID {
		t.Errorf("cursed member not moved: %v", h.guild.moves)
	}
	if _, moved := h.guild.moves[otherID]; moved {
		t.Error("member outside voice was moved")
	}
	if !h.env.Warden.Set.Has(otherID) {
		t.Error("otherID not cursed")
	}
}

func TestUncurse(t *testing.T) {
	h := newHarness(t, nil)
	h.env.Warden.Set.Add(userID, otherID, adminID)

	send := func(ids ...snowflake.ID) {
		h.d.Handle(t.Context(), Message{ChannelID: textID, AuthorID: adminID, Content: "!uncurse", Mentions: ids})
	}
	send()
	send(userID)
	send(userID)
	send(otherID, adminID)
	want := []string{sys.ErrUncurseNoMention, sys.MsgUncurseOne, sys.MsgUncurseNone, "2 members uncursed"}
	if got := h.chat.replies(); !slices.Equal(got, want) {
		t.Errorf("replies = %v", got)
	}
}

// --- session commands ---

func TestKill(t *testing.T) {
	h := newHarness(t, nil)
	if h.run(t, adminID, "!kill") {
		t.Error("kill available without DestroyOnError")
	}

	h = newHarness(t, func(env *Env) { env.Config.DestroyOnError = true })
	h.run(t, userID, "!kill")
	if h.exitCode != -1 {
		t.Fatal("non-admin killed the bot")
	}
	h.run(t, adminID, "!kill")
	if h.chat.last() != sys.MsgKillReply || !h.player.stopped || h.exitCode != 1 {
		t.Errorf("reply = %q, stopped = %v, exit = %d", h.chat.last(), h.player.stopped, h.exitCode)
	}
}

func TestRest(t *testing.T) {
	c := &Context{Env: &Env{Config: &sys.Config{Prefix: "!"}}, Msg: Message{Content: "!delete  some   track "}}
	if got := c.Rest(); got != "some   track" {
		t.Errorf("Rest = %q", got)
	}
	c.Msg.Content = "!delete"
	if got := c.Rest(); got != "" {
		t.Errorf("Rest = %q", got)
	}
}
