package storage

import (
	"sort"
	"strings"
	"sync"
)

// Store keeps per-guild settings in memory for the lifetime of the process.
type Store struct {
	mu     sync.RWMutex
	guilds map[string]*GuildSettings
}

type GuildSettings struct {
	GuildID            string
	AutoDeleteChannels map[string]struct{}
	IgnoreBots         bool
	IgnoreThreads      bool
	IgnoredUsers       map[string]struct{}
}

// Update is the full replacement posted by the dashboard.
type Update struct {
	Channels      []string
	IgnoreBots    bool
	IgnoreThreads bool
	IgnoredUsers  string
}

func New() *Store {
	return &Store{guilds: make(map[string]*GuildSettings)}
}

func defaultSettings(guildID string) *GuildSettings {
	return &GuildSettings{
		GuildID:            guildID,
		AutoDeleteChannels: make(map[string]struct{}),
		IgnoredUsers:       make(map[string]struct{}),
	}
}

// Get returns a copy of the guild's settings, creating the default record on first access.
func (s *Store) Get(guildID string) GuildSettings {
	s.mu.RLock()
	if settings := s.guilds[guildID]; settings != nil {
		out := settings.Clone()
		s.mu.RUnlock()
		return out
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(guildID).Clone()
}

// Update applies fn to the live record while holding the store lock.
func (s *Store) Update(guildID string, fn func(*GuildSettings)) GuildSettings {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings := s.getLocked(guildID)
	fn(settings)
	settings.GuildID = guildID
	if settings.AutoDeleteChannels == nil {
		settings.AutoDeleteChannels = make(map[string]struct{})
	}
	if settings.IgnoredUsers == nil {
		settings.IgnoredUsers = make(map[string]struct{})
	}
	return settings.Clone()
}

// Replace overwrites every field of the guild's settings. Nothing is merged with the previous record.
func (s *Store) Replace(guildID string, update Update) GuildSettings {
	channels := NormalizeChannels(update.Channels)
	users := ParseIDList(update.IgnoredUsers)
	return s.Update(guildID, func(settings *GuildSettings) {
		settings.AutoDeleteChannels = channels
		settings.IgnoreBots = update.IgnoreBots
		settings.IgnoreThreads = update.IgnoreThreads
		settings.IgnoredUsers = users
	})
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.guilds)
}

func (s *Store) getLocked(guildID string) *GuildSettings {
	settings := s.guilds[guildID]
	if settings == nil {
		settings = defaultSettings(guildID)
		s.guilds[guildID] = settings
	}
	return settings
}

func (g GuildSettings) Clone() GuildSettings {
	out := g
	out.AutoDeleteChannels = cloneSet(g.AutoDeleteChannels)
	out.IgnoredUsers = cloneSet(g.IgnoredUsers)
	return out
}

func (g GuildSettings) AutoDeletes(channelID string) bool {
	_, ok := g.AutoDeleteChannels[channelID]
	return ok
}

func (g GuildSettings) IgnoresUser(userID string) bool {
	_, ok := g.IgnoredUsers[userID]
	return ok
}

func (g GuildSettings) ChannelIDs() []string {
	return sortedKeys(g.AutoDeleteChannels)
}

func (g GuildSettings) IgnoredUserIDs() []string {
	return sortedKeys(g.IgnoredUsers)
}

// ParseIDList splits comma separated text into a set of trimmed, non-empty tokens.
func ParseIDList(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, token := range strings.Split(text, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		set[token] = struct{}{}
	}
	return set
}

func NormalizeChannels(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		set[value] = struct{}{}
	}
	return set
}

func cloneSet(in map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for key := range in {
		out[key] = struct{}{}
	}
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
