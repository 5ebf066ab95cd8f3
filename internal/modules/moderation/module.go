// Package moderation implements the /ban and /timeout slash commands.
package moderation

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	CommandBan     = "ban"
	CommandTimeout = "timeout"

	DefaultBanReason = "No reason"

	// MaxTimeoutMinutes is the platform's 28 day ceiling for communication timeouts.
	MaxTimeoutMinutes = 28 * 24 * 60

	msgNotAdmin   = "You need the Administrator permission to use this command."
	msgNotFound   = "That user is not a member of this server."
	msgBadCommand = "Unknown command."
)

// Platform is the slice of the Discord API the commands act on.
type Platform interface {
	Ban(guildID, userID, reason string) error
	Timeout(guildID, userID string, until time.Time, reason string) error
	Respond(interaction *discordgo.Interaction, content string, ephemeral bool) error
}

type Module struct {
	platform Platform
	logger   *zap.Logger
	now      func() time.Time
}

func New(platform Platform, logger *zap.Logger) *Module {
	return &Module{platform: platform, logger: logger, now: time.Now}
}

func (m *Module) WithNow(now func() time.Time) {
	m.now = now
}

// Handles reports whether name is one of the module's commands.
func Handles(name string) bool {
	return name == CommandBan || name == CommandTimeout
}

// HandleCommand runs a ban or timeout invocation. Errors from the platform are returned untouched so the
// interaction fails instead of being retried.
func (m *Module) HandleCommand(ctx context.Context, interaction *discordgo.Interaction) error {
	_ = ctx
	if !isAdmin(interaction.Member) {
		return m.platform.Respond(interaction, msgNotAdmin, true)
	}

	data := interaction.ApplicationCommandData()
	options := optionMap(data.Options)

	userID := ""
	if opt, ok := options["user"]; ok {
		userID = opt.UserValue(nil).ID
	}
	member, user := resolveMember(data.Resolved, userID)
	if member == nil {
		return m.platform.Respond(interaction, msgNotFound, true)
	}

	switch data.Name {
	case CommandBan:
		reason := DefaultBanReason
		if opt, ok := options["reason"]; ok && opt.StringValue() != "" {
			reason = opt.StringValue()
		}
		if err := m.platform.Ban(interaction.GuildID, user.ID, reason); err != nil {
			return fmt.Errorf("ban %s: %w", user.ID, err)
		}
		m.logger.Info("member banned", zap.String("guild_id", interaction.GuildID), zap.String("user_id", user.ID), zap.String("reason", reason))
		return m.platform.Respond(interaction, fmt.Sprintf("Banned **%s**. Reason: %s", user.String(), reason), false)
	case CommandTimeout:
		var minutes int64
		if opt, ok := options["minutes"]; ok {
			minutes = opt.IntValue()
		}
		reason := ""
		if opt, ok := options["reason"]; ok {
			reason = opt.StringValue()
		}
		until := m.now().Add(TimeoutDuration(minutes))
		if err := m.platform.Timeout(interaction.GuildID, user.ID, until, reason); err != nil {
			return fmt.Errorf("timeout %s: %w", user.ID, err)
		}
		m.logger.Info("member timed out", zap.String("guild_id", interaction.GuildID), zap.String("user_id", user.ID), zap.Int64("minutes", minutes))
		return m.platform.Respond(interaction, fmt.Sprintf("Timed out **%s** for %d minute(s).", user.String(), minutes), false)
	default:
		return m.platform.Respond(interaction, msgBadCommand, true)
	}
}

// TimeoutDuration converts the minutes option into the restriction length (minutes x 60000 ms).
func TimeoutDuration(minutes int64) time.Duration {
	return time.Duration(minutes*60000) * time.Millisecond
}

func isAdmin(member *discordgo.Member) bool {
	if member == nil {
		return false
	}
	return member.Permissions&discordgo.PermissionAdministrator != 0
}

func optionMap(options []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	out := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options))
	for _, opt := range options {
		if opt == nil {
			continue
		}
		out[opt.Name] = opt
	}
	return out
}

func resolveMember(resolved *discordgo.ApplicationCommandInteractionDataResolved, userID string) (*discordgo.Member, *discordgo.User) {
	if resolved == nil || userID == "" {
		return nil, nil
	}
	member := resolved.Members[userID]
	if member == nil {
		return nil, nil
	}
	user := member.User
	if user == nil {
		user = resolved.Users[userID]
	}
	if user == nil {
		user = &discordgo.User{ID: userID}
	}
	return member, user
}
