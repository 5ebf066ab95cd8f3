package web

import (
	"crypto/sha256"
	"fmt"
	"net/http"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/bwmarrin/discordgo"
)

const (
	sessionCookie   = "modpanel_session"
	sessionIssuer   = "modpanel"
	sessionAudience = "modpanel-dashboard"
)

// Session is the dashboard login state carried in the cookie. Guild permissions are a snapshot taken at
// login and are not refreshed until the user logs in again.
type Session struct {
	User   *discordgo.User
	Guilds []*discordgo.UserGuild
}

// sessionUser and sessionGuild hold only what the dashboard reads, with short keys to keep the cookie
// under the browser's 4 KB limit.
type sessionUser struct {
	ID       string `json:"i"`
	Username string `json:"u"`
}

type sessionGuild struct {
	ID          string `json:"i"`
	Name        string `json:"n"`
	Permissions int64  `json:"p"`
}

func (s Session) AdminGuilds() []*discordgo.UserGuild {
	return adminGuilds(s.Guilds)
}

func adminGuilds(guilds []*discordgo.UserGuild) []*discordgo.UserGuild {
	var out []*discordgo.UserGuild
	for _, guild := range guilds {
		if isAdminGuild(guild) {
			out = append(out, guild)
		}
	}
	return out
}

func (s Session) AdminGuild(guildID string) *discordgo.UserGuild {
	for _, guild := range s.Guilds {
		if guild.ID == guildID && isAdminGuild(guild) {
			return guild
		}
	}
	return nil
}

func isAdminGuild(guild *discordgo.UserGuild) bool {
	return guild != nil && guild.Permissions&discordgo.PermissionAdministrator != 0
}

// SessionManager seals sessions into PASETO v4.local cookies.
type SessionManager struct {
	key    paseto.V4SymmetricKey
	maxAge time.Duration
	secure bool
	now    func() time.Time
}

func NewSessionManager(secret string, maxAge time.Duration, secure bool) (*SessionManager, error) {
	sum := sha256.Sum256([]byte(secret))
	key, err := paseto.V4SymmetricKeyFromBytes(sum[:])
	if err != nil {
		return nil, fmt.Errorf("session key: %w", err)
	}
	return &SessionManager{key: key, maxAge: maxAge, secure: secure, now: time.Now}, nil
}

func (m *SessionManager) Encode(session Session) (string, error) {
	now := m.now()
	token := paseto.NewToken()
	token.SetIssuer(sessionIssuer)
	token.SetAudience(sessionAudience)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(now.Add(m.maxAge))
	if session.User == nil {
		return "", fmt.Errorf("encode user: session has no user")
	}
	if err := token.Set("user", sessionUser{ID: session.User.ID, Username: session.User.Username}); err != nil {
		return "", fmt.Errorf("encode user: %w", err)
	}
	guilds := make([]sessionGuild, 0, len(session.Guilds))
	for _, guild := range session.Guilds {
		if guild == nil {
			continue
		}
		guilds = append(guilds, sessionGuild{ID: guild.ID, Name: guild.Name, Permissions: guild.Permissions})
	}
	if err := token.Set("guilds", guilds); err != nil {
		return "", fmt.Errorf("encode guilds: %w", err)
	}
	return token.V4Encrypt(m.key, nil), nil
}

func (m *SessionManager) Decode(value string) (Session, error) {
	parser := paseto.NewParser()
	parser.AddRule(paseto.ForAudience(sessionAudience))
	parser.AddRule(paseto.IssuedBy(sessionIssuer))
	parser.AddRule(paseto.NotExpired())
	parser.AddRule(paseto.ValidAt(m.now()))

	token, err := parser.ParseV4Local(m.key, value, nil)
	if err != nil {
		return Session{}, fmt.Errorf("invalid session: %w", err)
	}

	var user sessionUser
	if err := token.Get("user", &user); err != nil {
		return Session{}, fmt.Errorf("decode user: %w", err)
	}
	if user.ID == "" {
		return Session{}, fmt.Errorf("session has no user")
	}
	var guilds []sessionGuild
	if err := token.Get("guilds", &guilds); err != nil {
		return Session{}, fmt.Errorf("decode guilds: %w", err)
	}

	session := Session{
		User:   &discordgo.User{ID: user.ID, Username: user.Username},
		Guilds: make([]*discordgo.UserGuild, 0, len(guilds)),
	}
	for _, guild := range guilds {
		session.Guilds = append(session.Guilds, &discordgo.UserGuild{ID: guild.ID, Name: guild.Name, Permissions: guild.Permissions})
	}
	return session, nil
}

func (m *SessionManager) Issue(w http.ResponseWriter, session Session) error {
	value, err := m.Encode(session)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   int(m.maxAge / time.Second),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (m *SessionManager) Load(r *http.Request) (Session, bool) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil || cookie.Value == "" {
		return Session{}, false
	}
	session, err := m.Decode(cookie.Value)
	if err != nil {
		return Session{}, false
	}
	return session, true
}

func (m *SessionManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
