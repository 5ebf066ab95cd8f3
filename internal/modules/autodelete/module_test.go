package autodelete

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"modpanel/internal/storage"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeTimer struct {
	stopped bool
	delay   time.Duration
	fn      func()
}

func (t *fakeTimer) Stop() bool {
	t.stopped = true
	return true
}

type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
	delays []time.Duration
}

func (f *fakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{delay: d, fn: fn}
	f.timers = append(f.timers, t)
	f.delays = append(f.delays, d)
	return t
}

// Advance fires every live timer whose delay is at most d.
func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	var due, later []*fakeTimer
	for _, timer := range f.timers {
		if timer.delay <= d {
			due = append(due, timer)
		} else {
			later = append(later, timer)
		}
	}
	f.timers = later
	f.mu.Unlock()
	for _, timer := range due {
		if !timer.stopped {
			timer.fn()
		}
	}
}

type deletion struct {
	channelID string
	messageID string
}

type fakePlatform struct {
	mu        sync.Mutex
	channels  map[string]*discordgo.Channel
	noManage  map[string]bool
	deleteErr error
	deleted   []deletion
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{channels: make(map[string]*discordgo.Channel), noManage: make(map[string]bool)}
}

func (p *fakePlatform) Channel(channelID string) (*discordgo.Channel, error) {
	channel, ok := p.channels[channelID]
	if !ok {
		return nil, errors.New("unknown channel")
	}
	return channel, nil
}

func (p *fakePlatform) CanManageMessages(channelID string) bool {
	return !p.noManage[channelID]
}

func (p *fakePlatform) DeleteMessage(channelID, messageID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, deletion{channelID: channelID, messageID: messageID})
	return p.deleteErr
}

func setup(t *testing.T) (*Module, *storage.Store, *fakePlatform, *fakeClock) {
	t.Helper()
	store := storage.New()
	platform := newFakePlatform()
	clock := &fakeClock{}
	module := New(store, platform, time.Second, zap.NewNop())
	module.WithClock(clock)
	return module, store, platform, clock
}

func message(id, channelID, authorID string, bot bool) *discordgo.Message {
	return &discordgo.Message{
		ID:        id,
		ChannelID: channelID,
		GuildID:   "g1",
		Author:    &discordgo.User{ID: authorID, Bot: bot},
	}
}

func TestDeletesAfterGraceDelay(t *testing.T) {
	module, store, platform, clock := setup(t)
	store.Replace("g1", storage.Update{Channels: []string{"c1"}})

	outcome := module.HandleMessage(context.Background(), message("m1", "c1", "u1", false), "self")
	require.Equal(t, OutcomeScheduled, outcome)
	require.Equal(t, []time.Duration{time.Second}, clock.delays)
	assert.Empty(t, platform.deleted, "deletion must wait for the grace delay")

	clock.Advance(500 * time.Millisecond)
	assert.Empty(t, platform.deleted)
	assert.Equal(t, 1, module.Pending())

	clock.Advance(time.Second)
	assert.Equal(t, []deletion{{channelID: "c1", messageID: "m1"}}, platform.deleted)
	assert.Equal(t, 0, module.Pending())
}

func TestUnwatchedChannelNeverDeleted(t *testing.T) {
	module, store, platform, clock := setup(t)
	store.Replace("g1", storage.Update{Channels: []string{"c1"}})

	outcome := module.HandleMessage(context.Background(), message("m1", "c2", "u1", false), "self")
	assert.Equal(t, OutcomeNotWatched, outcome)
	clock.Advance(time.Minute)
	assert.Empty(t, platform.deleted)
}

func TestOwnMessagesIgnored(t *testing.T) {
	module, store, _, _ := setup(t)
	store.Replace("g1", storage.Update{Channels: []string{"c1"}})

	outcome := module.HandleMessage(context.Background(), message("m1", "c1", "self", true), "self")
	assert.Equal(t, OutcomeSelf, outcome)
}

func TestExemptions(t *testing.T) {
	tests := []struct {
		name   string
		update storage.Update
		msg    *discordgo.Message
		want   Outcome
	}{
		{
			name:   "ignored user",
			update: storage.Update{Channels: []string{"c1"}, IgnoredUsers: "u1"},
			msg:    message("m1", "c1", "u1", false),
			want:   OutcomeIgnoredUser,
		},
		{
			name:   "ignored user beats thread rule",
			update: storage.Update{Channels: []string{"t1"}, IgnoreThreads: true, IgnoreBots: true, IgnoredUsers: "u1"},
			msg:    message("m1", "t1", "u1", true),
			want:   OutcomeIgnoredUser,
		},
		{
			name:   "bot ignored",
			update: storage.Update{Channels: []string{"c1"}, IgnoreBots: true},
			msg:    message("m1", "c1", "b1", true),
			want:   OutcomeIgnoredBot,
		},
		{
			name:   "bot deleted when not ignored",
			update: storage.Update{Channels: []string{"c1"}},
			msg:    message("m1", "c1", "b1", true),
			want:   OutcomeScheduled,
		},
		{
			name:   "thread ignored",
			update: storage.Update{Channels: []string{"t1"}, IgnoreThreads: true},
			msg:    message("m1", "t1", "u1", false),
			want:   OutcomeIgnoredThread,
		},
		{
			name:   "thread deleted when not ignored",
			update: storage.Update{Channels: []string{"t1"}},
			msg:    message("m1", "t1", "u1", false),
			want:   OutcomeScheduled,
		},
		{
			name:   "ignore threads on a regular channel",
			update: storage.Update{Channels: []string{"c1"}, IgnoreThreads: true},
			msg:    message("m1", "c1", "u1", false),
			want:   OutcomeScheduled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			module, store, platform, _ := setup(t)
			platform.channels["t1"] = &discordgo.Channel{ID: "t1", Type: discordgo.ChannelTypeGuildPublicThread}
			platform.channels["c1"] = &discordgo.Channel{ID: "c1", Type: discordgo.ChannelTypeGuildText}
			store.Replace("g1", tt.update)

			assert.Equal(t, tt.want, module.HandleMessage(context.Background(), tt.msg, "self"))
		})
	}
}

func TestBotAndHumanScenario(t *testing.T) {
	module, store, platform, clock := setup(t)
	store.Replace("g1", storage.Update{Channels: []string{"C1"}, IgnoreBots: true})

	module.HandleMessage(context.Background(), message("bot-msg", "C1", "b1", true), "self")
	module.HandleMessage(context.Background(), message("human-msg", "C1", "u1", false), "self")
	clock.Advance(time.Second)

	assert.Equal(t, []deletion{{channelID: "C1", messageID: "human-msg"}}, platform.deleted)
}

func TestForgetSkipsRemovedMessage(t *testing.T) {
	module, store, platform, clock := setup(t)
	store.Replace("g1", storage.Update{Channels: []string{"c1"}})

	module.HandleMessage(context.Background(), message("m1", "c1", "u1", false), "self")
	module.Forget("m1")
	clock.Advance(time.Second)
	assert.Empty(t, platform.deleted)
}

func TestSkipsWithoutManageMessages(t *testing.T) {
	module, store, platform, clock := setup(t)
	platform.noManage["c1"] = true
	store.Replace("g1", storage.Update{Channels: []string{"c1"}})

	module.HandleMessage(context.Background(), message("m1", "c1", "u1", false), "self")
	clock.Advance(time.Second)
	assert.Empty(t, platform.deleted)
}

func TestDeleteErrorSwallowed(t *testing.T) {
	module, store, platform, clock := setup(t)
	platform.deleteErr = errors.New("unknown message")
	store.Replace("g1", storage.Update{Channels: []string{"c1"}})

	module.HandleMessage(context.Background(), message("m1", "c1", "u1", false), "self")
	assert.NotPanics(t, func() { clock.Advance(time.Second) })
	assert.Len(t, platform.deleted, 1)
	assert.Equal(t, 0, module.Pending())
}

func TestCloseStopsPending(t *testing.T) {
	module, store, platform, clock := setup(t)
	store.Replace("g1", storage.Update{Channels: []string{"c1"}})

	module.HandleMessage(context.Background(), message("m1", "c1", "u1", false), "self")
	module.Close()
	clock.Advance(time.Second)
	assert.Empty(t, platform.deleted)

	module.HandleMessage(context.Background(), message("m2", "c1", "u1", false), "self")
	assert.Equal(t, 0, module.Pending())
}
