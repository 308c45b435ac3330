package roblox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	retry "github.com/appleboy/go-httpretry"

	"github.com/vonssyb/nacionmx-postulaciones/internal/util"
)

var (
	// ErrUserNotFound indicates the Roblox username does not exist
	ErrUserNotFound = errors.New("roblox: user not found")

	// ErrUserBanned indicates the Roblox account is banned
	ErrUserBanned = errors.New("roblox: account is banned")

	// ErrCodeMissing indicates the verification code is not in the profile description
	ErrCodeMissing = errors.New("roblox: verification code not found in profile")

	// ErrAccountTooNew indicates the account is younger than the minimum age
	ErrAccountTooNew = errors.New("roblox: account too new")
)

// User is the verified Roblox identity attached to an application
type User struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Created     time.Time `json:"created"`
	Description string    `json:"-"`
}

// AccountAgeDays returns the account age in whole days
func (u *User) AccountAgeDays(now time.Time) int {
	return int(now.Sub(u.Created).Hours() / 24)
}

// Client talks to the Roblox users API through the shared retry client
type Client struct {
	usersAPI      string
	retryClient   *retry.Client
	minAccountAge int // days
}

// NewClient creates a Roblox API client
func NewClient(usersAPI string, retryClient *retry.Client, minAccountAgeDays int) *Client {
	return &Client{
		usersAPI:      usersAPI,
		retryClient:   retryClient,
		minAccountAge: minAccountAgeDays,
	}
}

// usernameLookupRequest is the POST /v1/usernames/users payload
type usernameLookupRequest struct {
	Usernames          []string `json:"usernames"`
	ExcludeBannedUsers bool     `json:"excludeBannedUsers"`
}

type usernameLookupResponse struct {
	Data []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"data"`
}

// userDetailsResponse is the GET /v1/users/{id} payload
type userDetailsResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
	Created     string `json:"created"`
	IsBanned    bool   `json:"isBanned"`
}

// LookupUser resolves a username to its Roblox user ID.
// Banned users are included so the ban can be reported explicitly.
func (c *Client) LookupUser(ctx context.Context, username string) (int64, error) {
	payload, err := json.Marshal(usernameLookupRequest{
		Usernames:          []string{username},
		ExcludeBannedUsers: false,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal lookup request: %w", err)
	}

	resp, err := c.retryClient.Post(
		ctx,
		c.usersAPI+"/v1/usernames/users",
		retry.WithBody("application/json", bytes.NewBuffer(payload)),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to reach Roblox API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("Roblox API error: %s - %s", resp.Status, string(body))
	}

	var lookup usernameLookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&lookup); err != nil {
		return 0, fmt.Errorf("failed to decode lookup response: %w", err)
	}
	if len(lookup.Data) == 0 {
		return 0, ErrUserNotFound
	}
	return lookup.Data[0].ID, nil
}

// GetUser fetches the account details for a Roblox user ID
func (c *Client) GetUser(ctx context.Context, userID int64) (*User, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		"GET",
		fmt.Sprintf("%s/v1/users/%d", c.usersAPI, userID),
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.retryClient.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach Roblox API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrUserNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Roblox API error: %s - %s", resp.Status, string(body))
	}

	var details userDetailsResponse
	if err := json.NewDecoder(resp.Body).Decode(&details); err != nil {
		return nil, fmt.Errorf("failed to decode user response: %w", err)
	}
	if details.IsBanned {
		return nil, ErrUserBanned
	}

	created, err := time.Parse(time.RFC3339, details.Created)
	if err != nil {
		return nil, fmt.Errorf("failed to parse account creation date: %w", err)
	}

	return &User{
		ID:          details.ID,
		Username:    details.Name,
		DisplayName: details.DisplayName,
		Created:     created,
		Description: details.Description,
	}, nil
}

// Verify confirms that the given username owns the account the applicant
// claims: the account must exist, not be banned, be old enough, and carry
// the one-time verification code in its profile description.
func (c *Client) Verify(ctx context.Context, username, code string) (*User, error) {
	userID, err := c.LookupUser(ctx, username)
	if err != nil {
		return nil, err
	}

	user, err := c.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !strings.Contains(user.Description, code) {
		return nil, ErrCodeMissing
	}
	if user.AccountAgeDays(time.Now()) < c.minAccountAge {
		return nil, ErrAccountTooNew
	}

	return user, nil
}

// GenerateVerificationCode creates the one-time code the applicant must
// paste into their profile description before verification.
func GenerateVerificationCode() (string, error) {
	token, err := util.CryptoRandomString(8)
	if err != nil {
		return "", err
	}
	return "NACION-" + strings.ToUpper(token), nil
}

// AvatarURL returns the headshot thumbnail for a Roblox account, falling
// back to a generated initials avatar when no account is known.
func AvatarURL(userID int64, username string) string {
	if userID > 0 {
		return fmt.Sprintf(
			"https://www.roblox.com/headshot-thumbnail/image?userId=%d&width=150&height=150&format=png",
			userID,
		)
	}
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(username)
}
