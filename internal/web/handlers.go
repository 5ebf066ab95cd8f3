package web

import (
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"modpanel/internal/storage"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	stateCookie = "modpanel_oauth_state"
	stateMaxAge = 10 * time.Minute
)

type pageData struct {
	Title    string
	User     *discordgo.User
	Message  string
	Link     string
	LinkText string

	Guilds []*discordgo.UserGuild

	GuildID       string
	Channels      []channelOption
	IgnoreBots    bool
	IgnoreThreads bool
	IgnoredUsers  string
}

type channelOption struct {
	ID      string
	Name    string
	Checked bool
}

func (s *Server) render(w http.ResponseWriter, status int, page string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pages[page].ExecuteTemplate(w, "layout", data); err != nil {
		s.logger.Warn("render failed", zap.String("page", page), zap.Error(err))
	}
}

func (s *Server) renderMessage(w http.ResponseWriter, status int, title, message string) {
	s.render(w, status, "message", pageData{Title: title, Message: message, Link: "/", LinkText: "Back"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.sessions.Load(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	s.render(w, http.StatusOK, "login", pageData{Title: "Moderation dashboard"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.auth.Configured() {
		s.renderMessage(w, http.StatusInternalServerError, "Configuration error", "DISCORD_REDIRECT_URI is not set. Configure it to match the redirect registered with Discord.")
		return
	}

	state := uuid.NewString()
	http.SetCookie(w, s.newStateCookie(state, int(stateMaxAge/time.Second)))
	http.Redirect(w, r, s.auth.AuthCodeURL(state), http.StatusFound)
}

func (s *Server) newStateCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     stateCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.sessions.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	cookie, err := r.Cookie(stateCookie)
	http.SetCookie(w, s.newStateCookie("", -1))

	if code == "" || err != nil || cookie.Value == "" || cookie.Value != state {
		s.logger.Warn("oauth callback rejected", zap.Bool("has_code", code != ""), zap.Bool("state_match", err == nil && cookie.Value == state))
		s.renderMessage(w, http.StatusBadRequest, "Login failed", "Login failed. Please try again.")
		return
	}

	identity, err := s.auth.Exchange(r.Context(), code)
	if err != nil {
		s.logger.Warn("oauth exchange failed", zap.Error(err))
		s.renderMessage(w, http.StatusBadGateway, "Login failed", "Login failed. Please try again.")
		return
	}

	// Only admin guilds are kept so the cookie stays under browser size limits.
	session := Session{User: identity.User, Guilds: adminGuilds(identity.Guilds)}
	if err := s.sessions.Issue(w, session); err != nil {
		s.logger.Error("session issue failed", zap.Error(err))
		s.renderMessage(w, http.StatusInternalServerError, "Login failed", "Login failed. Please try again.")
		return
	}
	s.logger.Info("dashboard login", zap.String("user_id", identity.User.ID), zap.Int("admin_guilds", len(session.Guilds)))
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.Clear(w)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())
	guildID := r.URL.Query().Get("guild_id")
	if guildID == "" {
		s.render(w, http.StatusOK, "guilds", pageData{
			Title:  "Your servers",
			User:   session.User,
			Guilds: session.AdminGuilds(),
		})
		return
	}

	userGuild := session.AdminGuild(guildID)
	if userGuild == nil {
		s.renderMessage(w, http.StatusForbidden, "Forbidden", "You are not an administrator of this server.")
		return
	}

	guild, ok := s.guilds.Guild(guildID)
	if !ok {
		s.render(w, http.StatusOK, "message", pageData{
			Title:    userGuild.Name,
			User:     session.User,
			Message:  "The bot is not in this server.",
			Link:     "/dashboard",
			LinkText: "Back to servers",
		})
		return
	}

	settings := s.store.Get(guildID)
	s.render(w, http.StatusOK, "settings", pageData{
		Title:         guild.Name,
		User:          session.User,
		GuildID:       guildID,
		Channels:      channelOptions(guild.Channels, settings),
		IgnoreBots:    settings.IgnoreBots,
		IgnoreThreads: settings.IgnoreThreads,
		IgnoredUsers:  strings.Join(settings.IgnoredUserIDs(), ", "),
	})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())
	if err := r.ParseForm(); err != nil {
		s.renderMessage(w, http.StatusBadRequest, "Bad request", "The form could not be read.")
		return
	}

	guildID := r.PostForm.Get("guild_id")
	if guildID == "" {
		s.renderMessage(w, http.StatusBadRequest, "Bad request", "No server was selected.")
		return
	}
	if session.AdminGuild(guildID) == nil {
		s.renderMessage(w, http.StatusForbidden, "Forbidden", "You are not an administrator of this server.")
		return
	}

	settings := s.store.Replace(guildID, storage.Update{
		Channels:      r.PostForm["channels"],
		IgnoreBots:    formBool(r.PostForm.Get("ignoreBots")),
		IgnoreThreads: formBool(r.PostForm.Get("ignoreThreads")),
		IgnoredUsers:  r.PostForm.Get("ignoredUsers"),
	})
	s.logger.Info("guild settings saved",
		zap.String("guild_id", guildID),
		zap.String("user_id", session.User.ID),
		zap.Strings("channels", settings.ChannelIDs()),
		zap.Bool("ignore_bots", settings.IgnoreBots),
		zap.Bool("ignore_threads", settings.IgnoreThreads),
	)
	http.Redirect(w, r, "/dashboard?guild_id="+url.QueryEscape(guildID), http.StatusFound)
}

// formBool coerces a checkbox value. Browsers send "on" for a checked box and nothing otherwise.
func formBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "on", "true", "1", "yes":
		return true
	default:
		return false
	}
}

func channelOptions(channels []*discordgo.Channel, settings storage.GuildSettings) []channelOption {
	var text []*discordgo.Channel
	for _, channel := range channels {
		if channel == nil {
			continue
		}
		if channel.Type != discordgo.ChannelTypeGuildText && channel.Type != discordgo.ChannelTypeGuildNews {
			continue
		}
		text = append(text, channel)
	}
	sort.SliceStable(text, func(i, j int) bool {
		return text[i].Position < text[j].Position
	})

	options := make([]channelOption, 0, len(text))
	for _, channel := range text {
		options = append(options, channelOption{
			ID:      channel.ID,
			Name:    channel.Name,
			Checked: settings.AutoDeletes(channel.ID),
		})
	}
	return options
}
