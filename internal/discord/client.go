package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// Member is the subset of the guild member payload used by the portal
type Member struct {
	Nick  string   `json:"nick"`
	Roles []string `json:"roles"`
}

// Client reads guild membership from the Discord REST API using the
// signed-in user's own provider token.
type Client struct {
	apiBase string
	timeout time.Duration
}

// NewClient creates a Discord API client
func NewClient(apiBase string, timeout time.Duration) *Client {
	return &Client{
		apiBase: apiBase,
		timeout: timeout,
	}
}

// GuildMember fetches the current user's membership in one guild via
// GET /users/@me/guilds/{guildID}/member. The user's OAuth token must carry
// the guilds.members.read scope.
func (c *Client) GuildMember(ctx context.Context, accessToken, guildID string) (*Member, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	// oauth2 transport attaches the Bearer header
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
	}))

	url := fmt.Sprintf("%s/users/@me/guilds/%s/member", c.apiBase, guildID)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach Discord API: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// fall through to decode
	case http.StatusNotFound:
		return nil, ErrNotMember
	case http.StatusForbidden:
		return nil, ErrMissingScope
	case http.StatusUnauthorized:
		return nil, ErrTokenExpired
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	default:
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Discord API error: %s - %s", resp.Status, string(body))
	}

	var member Member
	if err := json.NewDecoder(resp.Body).Decode(&member); err != nil {
		return nil, fmt.Errorf("failed to decode member payload: %w", err)
	}
	return &member, nil
}
