package discord

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/vonssyb/nacionmx-postulaciones/internal/core"
)

// Membership is the cached result of a guild membership lookup. Negative
// results are cached too, so a non-member does not hammer the Discord API
// on every page load.
type Membership struct {
	Member  bool     `json:"member"`
	GuildID string   `json:"guild_id,omitempty"`
	RoleIDs []string `json:"role_ids,omitempty"`
}

// Resolver answers "which staff roles does this user hold" with a
// cache-aside layer in front of the Discord API. Lookups walk the primary
// guild first and fall back to the secondary guild when one is configured.
type Resolver struct {
	client         *Client
	cache          core.Cache[Membership]
	metrics        core.Recorder
	ttl            time.Duration
	schema         string
	primaryGuild   string
	secondaryGuild string
}

// NewResolver creates a membership resolver
func NewResolver(
	client *Client,
	cache core.Cache[Membership],
	metrics core.Recorder,
	ttl time.Duration,
	schema string,
	primaryGuild, secondaryGuild string,
) *Resolver {
	return &Resolver{
		client:         client,
		cache:          cache,
		metrics:        metrics,
		ttl:            ttl,
		schema:         schema,
		primaryGuild:   primaryGuild,
		secondaryGuild: secondaryGuild,
	}
}

// cacheKey derives the per-user cache key. The schema segment lets a config
// bump invalidate every previously cached entry at once.
func (r *Resolver) cacheKey(userID string) string {
	return "member:" + r.schema + ":" + userID
}

// Resolve returns the user's membership, from cache when fresh. A lookup
// that cannot be answered (rate limit, expired token) is returned as an
// error and never cached.
func (r *Resolver) Resolve(ctx context.Context, userID, accessToken string) (Membership, error) {
	key := r.cacheKey(userID)

	if cached, err := r.cache.Get(ctx, key); err == nil {
		r.metrics.RecordMemberLookup(cached.GuildID, true)
		return cached, nil
	}

	membership, err := r.lookup(ctx, accessToken)
	if err != nil {
		return Membership{}, err
	}

	r.metrics.RecordMemberLookup(membership.GuildID, false)
	if err := r.cache.Set(ctx, key, membership, r.ttl); err != nil {
		log.Printf("[Discord] failed to cache membership for %s: %v", userID, err)
	}
	return membership, nil
}

// lookup walks the configured guilds in order. A 404 (not a member) or 403
// (membership unreadable) on one guild moves on to the next; both guilds
// missing yields a cacheable negative result.
func (r *Resolver) lookup(ctx context.Context, accessToken string) (Membership, error) {
	guilds := []string{r.primaryGuild}
	if r.secondaryGuild != "" {
		guilds = append(guilds, r.secondaryGuild)
	}

	for _, guildID := range guilds {
		start := time.Now()
		member, err := r.client.GuildMember(ctx, accessToken, guildID)
		r.metrics.RecordExternalAPICall("discord", time.Since(start))

		if err == nil {
			return Membership{
				Member:  true,
				GuildID: guildID,
				RoleIDs: member.Roles,
			}, nil
		}
		if errors.Is(err, ErrNotMember) || errors.Is(err, ErrMissingScope) {
			continue
		}
		return Membership{}, err
	}

	return Membership{Member: false}, nil
}

// Invalidate drops the cached membership for one user, forcing the next
// check to hit the API. Used after the allow-list changes.
func (r *Resolver) Invalidate(ctx context.Context, userID string) {
	if err := r.cache.Delete(ctx, r.cacheKey(userID)); err != nil {
		log.Printf("[Discord] failed to invalidate membership for %s: %v", userID, err)
	}
}

// RoleIntersection returns the subset of held roles that appear in the
// allow-list, preserving allow-list order.
func RoleIntersection(held, allowed []string) []string {
	heldSet := make(map[string]struct{}, len(held))
	for _, id := range held {
		heldSet[id] = struct{}{}
	}

	var matched []string
	for _, id := range allowed {
		if _, ok := heldSet[id]; ok {
			matched = append(matched, id)
		}
	}
	return matched
}

// StaffRoles resolves the user's membership and intersects their roles with
// the allow-list. An empty result means the user is not staff.
func (r *Resolver) StaffRoles(
	ctx context.Context,
	userID, accessToken string,
	allowedRoles []string,
) ([]string, error) {
	membership, err := r.Resolve(ctx, userID, accessToken)
	if err != nil {
		return nil, err
	}
	if !membership.Member {
		return nil, nil
	}
	return RoleIntersection(membership.RoleIDs, allowedRoles), nil
}
