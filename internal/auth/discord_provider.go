package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"golang.org/x/oauth2"
)

const (
	discordAPIBase = "https://discord.com/api"
	discordCDNBase = "https://cdn.discordapp.com"
)

// OAuthProviderConfig contains configuration for the Discord OAuth provider
type OAuthProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// OAuthUserInfo contains user information from the OAuth provider
type OAuthUserInfo struct {
	ProviderUserID string // Discord snowflake ID
	Username       string // Discord username
	GlobalName     string // Display name, may be empty
	Discriminator  string // "0" for migrated accounts
	AvatarURL      string // Resolved CDN avatar URL
}

// Tag returns the display handle: global name when present, otherwise
// username#discriminator for legacy accounts, bare username otherwise.
func (u *OAuthUserInfo) Tag() string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	if u.Discriminator != "" && u.Discriminator != "0" {
		return u.Username + "#" + u.Discriminator
	}
	return u.Username
}

// OAuthProvider handles Discord OAuth authentication
type OAuthProvider struct {
	config  *oauth2.Config
	apiBase string
}

// NewDiscordProvider creates a new Discord OAuth provider.
// Discord is not covered by the oauth2 endpoint catalog, so the endpoint
// is declared manually.
func NewDiscordProvider(cfg OAuthProviderConfig) *OAuthProvider {
	return &OAuthProvider{
		apiBase: discordAPIBase,
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   discordAPIBase + "/oauth2/authorize",
				TokenURL:  discordAPIBase + "/oauth2/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
	}
}

// SetAPIBase overrides the Discord API base URL (used in tests)
func (p *OAuthProvider) SetAPIBase(base string) {
	p.apiBase = base
	p.config.Endpoint.AuthURL = base + "/oauth2/authorize"
	p.config.Endpoint.TokenURL = base + "/oauth2/token"
}

// GetAuthURL returns the OAuth authorization URL
func (p *OAuthProvider) GetAuthURL(state string) string {
	return p.config.AuthCodeURL(state)
}

// ExchangeCode exchanges authorization code for access token
func (p *OAuthProvider) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	return p.config.Exchange(ctx, code)
}

// discordUser mirrors the /users/@me response
type discordUser struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	GlobalName    string `json:"global_name"`
	Discriminator string `json:"discriminator"`
	Avatar        string `json:"avatar"`
}

// GetUserInfo retrieves the authenticated user's identity from Discord
func (p *OAuthProvider) GetUserInfo(
	ctx context.Context,
	token *oauth2.Token,
) (*OAuthUserInfo, error) {
	client := p.config.Client(ctx, token)

	req, err := http.NewRequestWithContext(ctx, "GET", p.apiBase+"/users/@me", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Discord API error: %s - %s", resp.Status, string(body))
	}

	var user discordUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}

	return &OAuthUserInfo{
		ProviderUserID: user.ID,
		Username:       user.Username,
		GlobalName:     user.GlobalName,
		Discriminator:  user.Discriminator,
		AvatarURL:      AvatarURL(user.ID, user.Avatar, user.Discriminator),
	}, nil
}

// AvatarURL resolves the CDN URL for a user avatar. Users without a custom
// avatar get one of the default embed avatars, selected the way the Discord
// client does: discriminator mod 5 for legacy accounts, (id >> 22) mod 6 for
// accounts migrated to the new username system.
func AvatarURL(userID, avatarHash, discriminator string) string {
	if avatarHash != "" {
		return fmt.Sprintf("%s/avatars/%s/%s.png", discordCDNBase, userID, avatarHash)
	}

	var index uint64
	if discriminator != "" && discriminator != "0" {
		if d, err := strconv.ParseUint(discriminator, 10, 32); err == nil {
			index = d % 5
		}
	} else if id, err := strconv.ParseUint(userID, 10, 64); err == nil {
		index = (id >> 22) % 6
	}
	return fmt.Sprintf("%s/embed/avatars/%d.png", discordCDNBase, index)
}
