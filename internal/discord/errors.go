package discord

import "errors"

var (
	// ErrNotMember indicates the user does not belong to the guild (HTTP 404)
	ErrNotMember = errors.New("discord: not a guild member")

	// ErrMissingScope indicates the token cannot read guild membership (HTTP 403)
	ErrMissingScope = errors.New("discord: token missing guilds.members.read scope")

	// ErrTokenExpired indicates the provider token was rejected (HTTP 401)
	ErrTokenExpired = errors.New("discord: provider token expired or revoked")

	// ErrRateLimited indicates Discord throttled the request (HTTP 429)
	ErrRateLimited = errors.New("discord: rate limited")
)
