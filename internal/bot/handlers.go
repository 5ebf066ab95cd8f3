package bot

import (
	"context"

	"modpanel/internal/modules/moderation"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("discord ready",
		zap.String("user", event.User.Username),
		zap.Int("guilds", len(event.Guilds)),
	)
}

func (b *Bot) onMessageCreate(session *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Message == nil || msg.GuildID == "" {
		return
	}

	outcome := b.autodelete.HandleMessage(context.Background(), msg.Message, b.selfID())
	if ce := b.logger.Check(zap.DebugLevel, "message evaluated"); ce != nil {
		ce.Write(
			zap.String("guild_id", msg.GuildID),
			zap.String("channel_id", msg.ChannelID),
			zap.String("message_id", msg.ID),
			zap.String("outcome", string(outcome)),
		)
	}
}

func (b *Bot) onMessageDelete(session *discordgo.Session, event *discordgo.MessageDelete) {
	if event.Message == nil {
		return
	}
	b.autodelete.Forget(event.ID)
}

func (b *Bot) onMessageDeleteBulk(session *discordgo.Session, event *discordgo.MessageDeleteBulk) {
	for _, id := range event.Messages {
		b.autodelete.Forget(id)
	}
}

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.Type != discordgo.InteractionApplicationCommand {
		return
	}

	data := interaction.ApplicationCommandData()
	if !moderation.Handles(data.Name) {
		return
	}

	if err := b.moderation.HandleCommand(context.Background(), interaction.Interaction); err != nil {
		b.logger.Error("command failed",
			zap.String("command", data.Name),
			zap.String("guild_id", interaction.GuildID),
			zap.Error(err),
		)
	}
}
