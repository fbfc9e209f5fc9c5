package home

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/radiobox/proc"
	"github.com/leeineian/radiobox/sys"
)

type Permission int

const (
	PermEveryone Permission = iota
	PermAdmin
)

// Player is the playback surface the commands drive.
type Player interface {
	CurrentTrackName() string
	CurrentIndex() int
	AllTrackNames() []string
	Advance(track string) (string, error)
	SkipBack() (string, error)
	SetVolumeLevel(level float64) float64
	SetVolumeMode(mode proc.VolumeMode)
	AddTrack(name string) error
	RemoveTrack(name string) error
	ToggleLoop() bool
	Snapshot() proc.Snapshot
	Stop(ctx context.Context)
}

// Chat sends and manages text messages.
type Chat interface {
	Send(channelID snowflake.ID, content string) (snowflake.ID, error)
	Edit(channelID, messageID snowflake.ID, content string) error
	Delete(channelID, messageID snowflake.ID) error
	React(channelID, messageID snowflake.ID, emoji string) error
}

// Guild answers membership and voice questions about the configured guild.
type Guild interface {
	IsAdmin(userID snowflake.ID) bool
	BotName() string
	BotVoiceChannel() (snowflake.ID, bool)
	VoiceChannelOf(userID snowflake.ID) (snowflake.ID, bool)
	// Listeners counts the non-bot members in a voice channel.
	Listeners(channelID snowflake.ID) int
	MoveMember(ctx context.Context, userID, channelID snowflake.ID) error
}

// Downloader fetches new tracks into the catalog.
type Downloader interface {
	Inspect(ctx context.Context, url string) (proc.VideoInfo, string, error)
	YouTube(ctx context.Context, url, name string, progress func(percent int)) error
	Attachment(ctx context.Context, url, fileName string) (string, error)
}

// Env holds everything a command may touch.
type Env struct {
	Config     *sys.Config
	Player     Player
	Chat       Chat
	Guild      Guild
	Selector   *proc.Selector
	Downloader Downloader
	Lookup     func(ctx context.Context, query string) (string, error)
	Warden     *proc.Warden
	Exit       func(code int)
	Now        func() time.Time
}

type Attachment struct {
	URL      string
	Filename string
}

// Message is an incoming text message in the configured guild.
type Message struct {
	ID          snowflake.ID
	ChannelID   snowflake.ID
	AuthorID    snowflake.ID
	Content     string
	Mentions    []snowflake.ID
	Attachments []Attachment
}

type Command struct {
	Names      []string
	Help       string
	Permission Permission
	Hidden     bool
	// Enabled gates registration; nil means always available.
	Enabled func(env *Env) bool
	Run     func(c *Context) error
}

var registry []*Command

// RegisterCommand adds a command to every dispatcher built afterwards.
func RegisterCommand(cmd *Command) {
	registry = append(registry, cmd)
}

// Context is one command invocation.
type Context struct {
	*Env
	Ctx   context.Context
	Msg   Message
	Args  []string
	Admin bool

	dispatcher *Dispatcher
}

// Reply posts content in the invoking channel and returns the new message.
func (c *Context) Reply(content string) snowflake.ID {
	id, err := c.Chat.Send(c.Msg.ChannelID, content)
	if err != nil {
		sys.LogCommand(sys.MsgCommandReplyFail, c.Msg.ChannelID, err)
	}
	return id
}

func (c *Context) Replyf(format string, v ...any) snowflake.ID {
	return c.Reply(fmt.Sprintf(format, v...))
}

// Rest is the raw text after the command word.
func (c *Context) Rest() string {
	content := strings.TrimSpace(c.Msg.Content[len(c.Config.Prefix):])
	if i := strings.IndexFunc(content, isSpace); i >= 0 {
		return strings.TrimSpace(content[i:])
	}
	return ""
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n'
}

// Dispatcher routes prefixed messages to registered commands.
type Dispatcher struct {
	env      *Env
	commands []*Command
	byName   map[string]*Command
}

func NewDispatcher(env *Env) *Dispatcher {
	if env.Now == nil {
		env.Now = time.Now
	}
	d := &Dispatcher{env: env, byName: make(map[string]*Command)}
	for _, cmd := range registry {
		if cmd.Enabled != nil && !cmd.Enabled(env) {
			continue
		}
		d.commands = append(d.commands, cmd)
		for _, name := range cmd.Names {
			d.byName[name] = cmd
		}
	}
	return d
}

// Lookup finds a command by any of its names.
func (d *Dispatcher) Lookup(name string) (*Command, bool) {
	cmd, ok := d.byName[strings.ToLower(name)]
	return cmd, ok
}

// Handle runs the command in msg, if any, and reports whether one matched.
func (d *Dispatcher) Handle(ctx context.Context, msg Message) bool {
	prefix := d.env.Config.Prefix
	if len(msg.Content) < len(prefix) || !strings.EqualFold(msg.Content[:len(prefix)], prefix) {
		return false
	}
	args := strings.Fields(msg.Content[len(prefix):])
	if len(args) == 0 {
		return false
	}
	cmd, ok := d.Lookup(args[0])
	if !ok {
		return false
	}

	c := &Context{
		Env:        d.env,
		Ctx:        ctx,
		Msg:        msg,
		Args:       args,
		Admin:      d.env.Guild.IsAdmin(msg.AuthorID),
		dispatcher: d,
	}
	if cmd.Permission == PermAdmin && !c.Admin {
		c.Reply(sys.ErrNoPermission)
		return true
	}

	sys.LogCommand("%s ran %s", msg.AuthorID, strings.ToLower(args[0]))
	if err := cmd.Run(c); err != nil {
		sys.LogCommand(sys.MsgCommandFailed, args[0], err)
		c.Reply(sys.ErrSomethingWrong)
	}
	return true
}

// HandleReaction resolves a reaction on the live selection prompt. Only
// admins may pick.
func (d *Dispatcher) HandleReaction(ctx context.Context, channelID, messageID, userID snowflake.ID, emoji string) bool {
	if d.env.Selector == nil || !d.env.Guild.IsAdmin(userID) {
		return false
	}
	track, ok := d.env.Selector.Resolve(messageID, emoji)
	if !ok {
		return false
	}
	name, err := d.env.Player.Advance(track)
	if err != nil {
		sys.LogCommand(sys.MsgCommandFailed, "select", err)
		return true
	}
	if _, err := d.env.Chat.Send(channelID, fmt.Sprintf(sys.MsgPlayingTrack, sys.RemoveExtension(name))); err != nil {
		sys.LogCommand(sys.MsgCommandReplyFail, channelID, err)
	}
	return true
}

// Visible lists the commands a caller may see in help, once each.
func (d *Dispatcher) Visible(admin bool) []*Command {
	var out []*Command
	for _, cmd := range d.commands {
		if cmd.Hidden || (cmd.Permission == PermAdmin && !admin) {
			continue
		}
		out = append(out, cmd)
	}
	return out
}

// forbidPlayerCommand blocks non-admins in the bot's channel while someone
// else is listening.
func (c *Context) forbidPlayerCommand() bool {
	if c.Admin {
		return false
	}
	botChannel, ok := c.Guild.BotVoiceChannel()
	if !ok {
		return false
	}
	userChannel, ok := c.Guild.VoiceChannelOf(c.Msg.AuthorID)
	if !ok || userChannel != botChannel {
		return false
	}
	return c.Guild.Listeners(botChannel) > 1
}
