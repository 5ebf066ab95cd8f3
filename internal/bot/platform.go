package bot

import (
	"time"

	"github.com/bwmarrin/discordgo"
)

// Discord adapts a gateway session to the narrow interfaces the modules and the dashboard depend on.
type Discord struct {
	session *discordgo.Session
}

func NewDiscord(session *discordgo.Session) *Discord {
	return &Discord{session: session}
}

// Channel prefers the state cache and falls back to the REST API.
func (d *Discord) Channel(channelID string) (*discordgo.Channel, error) {
	if state := d.session.State; state != nil {
		if channel, err := state.Channel(channelID); err == nil {
			state.RLock()
			defer state.RUnlock()
			return copyChannel(channel), nil
		}
	}
	return d.session.Channel(channelID)
}

func (d *Discord) CanManageMessages(channelID string) bool {
	state := d.session.State
	if state == nil || state.User == nil {
		return false
	}
	perms, err := state.UserChannelPermissions(state.User.ID, channelID)
	if err != nil {
		return false
	}
	return perms&discordgo.PermissionManageMessages != 0
}

func (d *Discord) DeleteMessage(channelID, messageID string) error {
	return d.session.ChannelMessageDelete(channelID, messageID)
}

func (d *Discord) Ban(guildID, userID, reason string) error {
	return d.session.GuildBanCreateWithReason(guildID, userID, reason, 0)
}

func (d *Discord) Timeout(guildID, userID string, until time.Time, reason string) error {
	var options []discordgo.RequestOption
	if reason != "" {
		options = append(options, discordgo.WithAuditLogReason(reason))
	}
	return d.session.GuildMemberTimeout(guildID, userID, &until, options...)
}

func (d *Discord) Respond(interaction *discordgo.Interaction, content string, ephemeral bool) error {
	return d.session.InteractionRespond(interaction, messageResponse(content, ephemeral))
}

// Guild returns a copy of a cached guild's name and channels, taken under the state lock.
// Guilds the bot has not joined are reported as absent.
func (d *Discord) Guild(guildID string) (*discordgo.Guild, bool) {
	state := d.session.State
	if state == nil {
		return nil, false
	}
	guild, err := state.Guild(guildID)
	if err != nil || guild == nil {
		return nil, false
	}

	state.RLock()
	defer state.RUnlock()
	snapshot := &discordgo.Guild{
		ID:       guild.ID,
		Name:     guild.Name,
		Channels: make([]*discordgo.Channel, 0, len(guild.Channels)),
	}
	for _, channel := range guild.Channels {
		if channel == nil {
			continue
		}
		snapshot.Channels = append(snapshot.Channels, copyChannel(channel))
	}
	return snapshot, true
}

// copyChannel keeps the fields the modules and dashboard read. Callers hold the state read lock.
func copyChannel(channel *discordgo.Channel) *discordgo.Channel {
	return &discordgo.Channel{
		ID:       channel.ID,
		GuildID:  channel.GuildID,
		Name:     channel.Name,
		Type:     channel.Type,
		Position: channel.Position,
		ParentID: channel.ParentID,
	}
}

func messageResponse(content string, ephemeral bool) *discordgo.InteractionResponse {
	data := &discordgo.InteractionResponseData{Content: content}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	}
}
