package home

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/radiobox/proc"
	"github.com/leeineian/radiobox/sys"
	"github.com/samber/lo"
)

// Discord is the Chat and Guild of the configured guild, backed by the
// client's REST API and caches.
type Discord struct {
	Client  *bot.Client
	Config  *sys.Config
	GuildID snowflake.ID
}

func NewDiscord(client *bot.Client, cfg *sys.Config) *Discord {
	return &Discord{Client: client, Config: cfg, GuildID: cfg.GuildID}
}

func (d *Discord) Send(channelID snowflake.ID, content string) (snowflake.ID, error) {
	msg, err := d.Client.Rest.CreateMessage(channelID, discord.NewMessageCreate().WithContent(content))
	if err != nil {
		return 0, err
	}
	return msg.ID, nil
}

func (d *Discord) Edit(channelID, messageID snowflake.ID, content string) error {
	_, err := d.Client.Rest.UpdateMessage(channelID, messageID, discord.NewMessageUpdate().WithContent(content))
	return err
}

func (d *Discord) Delete(channelID, messageID snowflake.ID) error {
	return d.Client.Rest.DeleteMessage(channelID, messageID)
}

func (d *Discord) React(channelID, messageID snowflake.ID, emoji string) error {
	return d.Client.Rest.AddReaction(channelID, messageID, emoji)
}

// IsAdmin reports configured owners, the guild owner and members whose roles
// grant Administrator.
func (d *Discord) IsAdmin(userID snowflake.ID) bool {
	if d.Config.IsOwner(userID) {
		return true
	}
	guild, ok := d.Client.Caches.Guild(d.GuildID)
	if !ok {
		return false
	}
	if guild.OwnerID == userID {
		return true
	}
	member, ok := d.Client.Caches.Member(d.GuildID, userID)
	if !ok {
		return false
	}

	var perms discord.Permissions
	if everyoneRole, ok := d.Client.Caches.Role(guild.ID, snowflake.ID(guild.ID)); ok {
		perms |= everyoneRole.Permissions
	}
	for _, roleID := range member.RoleIDs {
		if role, ok := d.Client.Caches.Role(guild.ID, roleID); ok {
			perms |= role.Permissions
		}
	}
	return perms.Has(discord.PermissionAdministrator)
}

func (d *Discord) BotName() string {
	if self, ok := d.Client.Caches.SelfUser(); ok {
		return self.Tag()
	}
	return sys.GetProjectName()
}

func (d *Discord) BotVoiceChannel() (snowflake.ID, bool) {
	return d.VoiceChannelOf(d.Client.ID())
}

func (d *Discord) VoiceChannelOf(userID snowflake.ID) (snowflake.ID, bool) {
	state, ok := d.Client.Caches.VoiceState(d.GuildID, userID)
	if !ok || state.ChannelID == nil {
		return 0, false
	}
	return *state.ChannelID, true
}

func (d *Discord) Listeners(channelID snowflake.ID) int {
	count := 0
	for state := range d.Client.Caches.VoiceStates(d.GuildID) {
		if state.ChannelID == nil || *state.ChannelID != channelID {
			continue
		}
		if m, ok := d.Client.Caches.Member(d.GuildID, state.UserID); ok && m.User.Bot {
			continue
		}
		count++
	}
	return count
}

func (d *Discord) MoveMember(ctx context.Context, userID, channelID snowflake.ID) error {
	_, err := d.Client.Rest.UpdateMember(d.GuildID, userID, discord.MemberUpdate{
		ChannelID: &channelID,
	}, rest.WithCtx(ctx))
	if err != nil {
		return fmt.Errorf("move %s: %w", userID, err)
	}
	return nil
}

// Install routes gateway events for the configured guild into the
// dispatcher and the warden.
func Install(dispatcher *Dispatcher, guildID snowflake.ID, warden *proc.Warden) {
	sys.RegisterMessageHandler(func(event *events.MessageCreate) {
		if event.GuildID == nil || *event.GuildID != guildID {
			return
		}
		dispatcher.Handle(sys.AppContext, messageFromEvent(event.Message))
	})

	sys.RegisterReactionHandler(func(event *events.MessageReactionAdd) {
		if event.GuildID == nil || *event.GuildID != guildID || event.Emoji.Name == nil {
			return
		}
		if event.UserID == event.Client().ID() {
			return
		}
		dispatcher.HandleReaction(sys.AppContext, event.ChannelID, event.MessageID, event.UserID, *event.Emoji.Name)
	})

	if warden != nil {
		sys.RegisterVoiceStateUpdateHandler(func(event *events.GuildVoiceStateUpdate) {
			if event.VoiceState.GuildID != guildID {
				return
			}
			warden.Enforce(event.VoiceState.UserID, event.VoiceState.ChannelID)
		})
	}
}

func messageFromEvent(m discord.Message) Message {
	return Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		AuthorID:  m.Author.ID,
		Content:   m.Content,
		Mentions: lo.Map(m.Mentions, func(u discord.User, _ int) snowflake.ID {
			return u.ID
		}),
		Attachments: lo.Map(m.Attachments, func(a discord.Attachment, _ int) Attachment {
			return Attachment{URL: a.URL, Filename: a.Filename}
		}),
	}
}
