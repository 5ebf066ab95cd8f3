package bot

import (
	"modpanel/internal/modules/moderation"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

func commandDefinitions() []*discordgo.ApplicationCommand {
	adminOnly := int64(discordgo.PermissionAdministrator)
	dmAllowed := false
	minMinutes := float64(1)

	return []*discordgo.ApplicationCommand{
		{
			Name:                     moderation.CommandBan,
			Description:              "Ban a member",
			DefaultMemberPermissions: &adminOnly,
			DMPermission:             &dmAllowed,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "Member to ban",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "reason",
					Description: "Reason for the ban",
				},
			},
		},
		{
			Name:                     moderation.CommandTimeout,
			Description:              "Timeout a member",
			DefaultMemberPermissions: &adminOnly,
			DMPermission:             &dmAllowed,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "Member to timeout",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "minutes",
					Description: "Timeout length in minutes",
					Required:    true,
					MinValue:    &minMinutes,
					MaxValue:    moderation.MaxTimeoutMinutes,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "reason",
					Description: "Reason for the timeout",
				},
			},
		},
	}
}

// registerCommands reconciles the global command set with commandDefinitions and clears stale guild overrides.
func (b *Bot) registerCommands() error {
	commands := commandDefinitions()
	appID := b.session.State.User.ID

	existing, err := b.session.ApplicationCommands(appID, "")
	if err != nil {
		for _, cmd := range commands {
			if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
				return err
			}
		}
		return nil
	}

	existingByName := make(map[string]*discordgo.ApplicationCommand, len(existing))
	for _, cmd := range existing {
		existingByName[cmd.Name] = cmd
	}

	desired := make(map[string]struct{}, len(commands))
	for _, cmd := range commands {
		desired[cmd.Name] = struct{}{}
		if current, ok := existingByName[cmd.Name]; ok {
			if _, err := b.session.ApplicationCommandEdit(appID, "", current.ID, cmd); err != nil {
				return err
			}
			continue
		}
		if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
			return err
		}
	}

	for _, cmd := range existing {
		if _, ok := desired[cmd.Name]; ok {
			continue
		}
		if err := b.session.ApplicationCommandDelete(appID, "", cmd.ID); err != nil {
			b.logger.Warn("stale command delete failed", zap.String("command", cmd.Name), zap.Error(err))
		}
	}

	for _, guild := range b.session.State.Guilds {
		if guild == nil {
			continue
		}
		guildCmds, err := b.session.ApplicationCommands(appID, guild.ID)
		if err != nil {
			continue
		}
		for _, cmd := range guildCmds {
			if _, ok := desired[cmd.Name]; ok {
				continue
			}
			_ = b.session.ApplicationCommandDelete(appID, guild.ID, cmd.ID)
		}
	}

	b.logger.Info("slash commands registered", zap.Int("count", len(commands)))
	return nil
}
