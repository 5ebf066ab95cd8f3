package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"modpanel/internal/config"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/oauth2"
)

const (
	discordAuthURL  = "https://discord.com/oauth2/authorize"
	discordTokenURL = "https://discord.com/api/oauth2/token"
)

// Identity is what the platform tells us about a user who completed the OAuth flow.
type Identity struct {
	User   *discordgo.User
	Guilds []*discordgo.UserGuild
}

type Authenticator interface {
	Configured() bool
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (Identity, error)
}

// DiscordAuthenticator runs the authorization code flow with the identify and guilds scopes.
type DiscordAuthenticator struct {
	oauth   *oauth2.Config
	apiBase string
}

func NewDiscordAuthenticator(cfg config.OAuthConfig) *DiscordAuthenticator {
	return newDiscordAuthenticator(cfg, oauth2.Endpoint{
		AuthURL:   discordAuthURL,
		TokenURL:  discordTokenURL,
		AuthStyle: oauth2.AuthStyleInParams,
	}, discordgo.EndpointAPI)
}

func newDiscordAuthenticator(cfg config.OAuthConfig, endpoint oauth2.Endpoint, apiBase string) *DiscordAuthenticator {
	return &DiscordAuthenticator{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       []string{"identify", "guilds"},
			Endpoint:     endpoint,
		},
		apiBase: strings.TrimSuffix(apiBase, "/") + "/",
	}
}

func (a *DiscordAuthenticator) Configured() bool {
	return a.oauth.RedirectURL != ""
}

func (a *DiscordAuthenticator) AuthCodeURL(state string) string {
	return a.oauth.AuthCodeURL(state)
}

func (a *DiscordAuthenticator) Exchange(ctx context.Context, code string) (Identity, error) {
	token, err := a.oauth.Exchange(ctx, code)
	if err != nil {
		return Identity{}, fmt.Errorf("exchange code: %w", err)
	}
	client := a.oauth.Client(ctx, token)

	var identity Identity
	if err := a.getJSON(ctx, client, "users/@me", &identity.User); err != nil {
		return Identity{}, err
	}
	if err := a.getJSON(ctx, client, "users/@me/guilds", &identity.Guilds); err != nil {
		return Identity{}, err
	}
	if identity.User == nil || identity.User.ID == "" {
		return Identity{}, fmt.Errorf("identity response has no user id")
	}
	return identity, nil
}

func (a *DiscordAuthenticator) getJSON(ctx context.Context, client *http.Client, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.apiBase+path, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("get %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
