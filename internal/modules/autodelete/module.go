// Package autodelete removes messages posted in channels a guild has marked for auto-cleaning.
package autodelete

import (
	"context"
	"sync"
	"time"

	"modpanel/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Platform is the slice of the Discord API the module needs.
type Platform interface {
	Channel(channelID string) (*discordgo.Channel, error)
	CanManageMessages(channelID string) bool
	DeleteMessage(channelID, messageID string) error
}

// Outcome describes what HandleMessage decided for a message.
type Outcome string

const (
	OutcomeScheduled     Outcome = "scheduled"
	OutcomeSelf          Outcome = "self"
	OutcomeNotWatched    Outcome = "not_watched"
	OutcomeIgnoredUser   Outcome = "ignored_user"
	OutcomeIgnoredBot    Outcome = "ignored_bot"
	OutcomeIgnoredThread Outcome = "ignored_thread"
)

type Module struct {
	mu       sync.Mutex
	store    *storage.Store
	platform Platform
	logger   *zap.Logger
	clock    Clock
	delay    time.Duration
	pending  map[string]Timer
	closed   bool
}

func New(store *storage.Store, platform Platform, delay time.Duration, logger *zap.Logger) *Module {
	return &Module{
		store:    store,
		platform: platform,
		logger:   logger,
		clock:    realClock{},
		delay:    delay,
		pending:  make(map[string]Timer),
	}
}

func (m *Module) WithClock(clock Clock) {
	m.clock = clock
}

// HandleMessage applies the guild's auto-delete rules to msg and schedules its removal after the grace delay.
func (m *Module) HandleMessage(ctx context.Context, msg *discordgo.Message, selfID string) Outcome {
	_ = ctx
	if msg.Author != nil && msg.Author.ID == selfID {
		return OutcomeSelf
	}

	settings := m.store.Get(msg.GuildID)
	if !settings.AutoDeletes(msg.ChannelID) {
		return OutcomeNotWatched
	}

	if msg.Author != nil {
		if settings.IgnoresUser(msg.Author.ID) {
			return OutcomeIgnoredUser
		}
		if settings.IgnoreBots && msg.Author.Bot {
			return OutcomeIgnoredBot
		}
	}
	if settings.IgnoreThreads && m.isThread(msg.ChannelID) {
		return OutcomeIgnoredThread
	}

	m.schedule(msg.ChannelID, msg.ID)
	return OutcomeScheduled
}

// Forget drops a pending deletion, typically because the message is already gone.
func (m *Module) Forget(messageID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if timer, ok := m.pending[messageID]; ok {
		timer.Stop()
		delete(m.pending, messageID)
	}
}

func (m *Module) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Close stops every pending deletion timer.
func (m *Module) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, timer := range m.pending {
		timer.Stop()
		delete(m.pending, id)
	}
	m.closed = true
}

func (m *Module) schedule(channelID, messageID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	if _, exists := m.pending[messageID]; exists {
		return
	}
	m.pending[messageID] = m.clock.AfterFunc(m.delay, func() {
		m.fire(channelID, messageID)
	})
}

func (m *Module) fire(channelID, messageID string) {
	m.mu.Lock()
	_, stillPending := m.pending[messageID]
	delete(m.pending, messageID)
	m.mu.Unlock()

	if !stillPending || !m.platform.CanManageMessages(channelID) {
		return
	}
	if err := m.platform.DeleteMessage(channelID, messageID); err != nil {
		m.logger.Debug("auto delete failed", zap.String("channel_id", channelID), zap.String("message_id", messageID), zap.Error(err))
	}
}

func (m *Module) isThread(channelID string) bool {
	channel, err := m.platform.Channel(channelID)
	if err != nil || channel == nil {
		return false
	}
	return channel.IsThread()
}
