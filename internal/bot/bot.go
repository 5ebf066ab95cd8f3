// Package bot connects the gateway session to the auto-delete and moderation modules.
package bot

import (
	"context"

	"modpanel/internal/config"
	"modpanel/internal/modules/autodelete"
	"modpanel/internal/modules/moderation"
	"modpanel/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type Bot struct {
	cfg        config.Config
	logger     *zap.Logger
	store      *storage.Store
	session    *discordgo.Session
	discord    *Discord
	autodelete *autodelete.Module
	moderation *moderation.Module
}

func New(cfg config.Config, logger *zap.Logger, store *storage.Store) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages

	discord := NewDiscord(session)
	b := &Bot{
		cfg:        cfg,
		logger:     logger,
		store:      store,
		session:    session,
		discord:    discord,
		autodelete: autodelete.New(store, discord, cfg.DeleteDelay(), logger.Named("autodelete")),
		moderation: moderation.New(discord, logger.Named("moderation")),
	}
	return b, nil
}

// Discord returns the platform adapter, which also serves as the dashboard's guild directory.
func (b *Bot) Discord() *Discord {
	return b.discord
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onMessageDelete)
	b.session.AddHandler(b.onMessageDeleteBulk)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return err
	}

	if err := b.registerCommands(); err != nil {
		return err
	}

	return nil
}

func (b *Bot) Close(ctx context.Context) {
	_ = ctx
	b.autodelete.Close()
	if b.session != nil {
		if err := b.session.Close(); err != nil {
			b.logger.Warn("gateway close failed", zap.Error(err))
		}
	}
}

func (b *Bot) selfID() string {
	if b.session.State == nil || b.session.State.User == nil {
		return ""
	}
	return b.session.State.User.ID
}
