package bot

import (
	"testing"

	"modpanel/internal/config"
	"modpanel/internal/modules/moderation"
	"modpanel/internal/storage"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testBot(t *testing.T) (*Bot, *storage.Store) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DiscordToken = "test-token"
	cfg.AutoDelete.DelayMilliseconds = 3600000

	store := storage.New()
	b, err := New(cfg, zap.NewNop(), store)
	require.NoError(t, err)
	b.session.State.User = &discordgo.User{ID: "bot"}
	t.Cleanup(b.autodelete.Close)
	return b, store
}

func messageCreate(id, guildID, channelID, authorID string) *discordgo.MessageCreate {
	return &discordgo.MessageCreate{Message: &discordgo.Message{
		ID:        id,
		GuildID:   guildID,
		ChannelID: channelID,
		Author:    &discordgo.User{ID: authorID},
	}}
}

func TestIntents(t *testing.T) {
	b, _ := testBot(t)
	assert.Equal(t, discordgo.IntentsGuilds|discordgo.IntentsGuildMessages, b.session.Identify.Intents)
}

func TestMessageCreateSchedulesAndDeleteForgets(t *testing.T) {
	b, store := testBot(t)
	store.Replace("g1", storage.Update{Channels: []string{"c1"}})

	b.onMessageCreate(b.session, messageCreate("m1", "g1", "c1", "u1"))
	b.onMessageCreate(b.session, messageCreate("m2", "g1", "c2", "u1"))
	assert.Equal(t, 1, b.autodelete.Pending())

	b.onMessageDelete(b.session, &discordgo.MessageDelete{Message: &discordgo.Message{ID: "m1", ChannelID: "c1"}})
	assert.Equal(t, 0, b.autodelete.Pending())
}

func TestMessageDeleteBulkForgets(t *testing.T) {
	b, store := testBot(t)
	store.Replace("g1", storage.Update{Channels: []string{"c1"}})

	b.onMessageCreate(b.session, messageCreate("m1", "g1", "c1", "u1"))
	b.onMessageCreate(b.session, messageCreate("m2", "g1", "c1", "u2"))
	require.Equal(t, 2, b.autodelete.Pending())

	b.onMessageDeleteBulk(b.session, &discordgo.MessageDeleteBulk{Messages: []string{"m1", "m2"}, ChannelID: "c1"})
	assert.Equal(t, 0, b.autodelete.Pending())
}

func TestMessageCreateSkipsDirectAndOwnMessages(t *testing.T) {
	b, store := testBot(t)
	store.Replace("g1", storage.Update{Channels: []string{"c1"}})

	b.onMessageCreate(b.session, messageCreate("m1", "", "c1", "u1"))
	b.onMessageCreate(b.session, messageCreate("m2", "g1", "c1", "bot"))
	assert.Equal(t, 0, b.autodelete.Pending())
}

func TestCommandDefinitions(t *testing.T) {
	commands := commandDefinitions()
	require.Len(t, commands, 2)

	byName := make(map[string]*discordgo.ApplicationCommand)
	for _, cmd := range commands {
		byName[cmd.Name] = cmd
		require.NotNil(t, cmd.DefaultMemberPermissions)
		assert.Equal(t, int64(discordgo.PermissionAdministrator), *cmd.DefaultMemberPermissions)
		assert.True(t, moderation.Handles(cmd.Name))
	}

	ban := byName[moderation.CommandBan]
	require.NotNil(t, ban)
	require.Len(t, ban.Options, 2)
	assert.Equal(t, discordgo.ApplicationCommandOptionUser, ban.Options[0].Type)
	assert.True(t, ban.Options[0].Required)
	assert.False(t, ban.Options[1].Required)

	timeout := byName[moderation.CommandTimeout]
	require.NotNil(t, timeout)
	require.Len(t, timeout.Options, 3)
	minutes := timeout.Options[1]
	assert.Equal(t, "minutes", minutes.Name)
	assert.Equal(t, discordgo.ApplicationCommandOptionInteger, minutes.Type)
	assert.True(t, minutes.Required)
	require.NotNil(t, minutes.MinValue)
	assert.Equal(t, float64(1), *minutes.MinValue)
	assert.Equal(t, float64(moderation.MaxTimeoutMinutes), minutes.MaxValue)
}
