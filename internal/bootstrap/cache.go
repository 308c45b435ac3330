package bootstrap

import (
	"context"
	"fmt"
	"log"

	"github.com/vonssyb/nacionmx-postulaciones/internal/cache"
	"github.com/vonssyb/nacionmx-postulaciones/internal/config"
	"github.com/vonssyb/nacionmx-postulaciones/internal/core"
	"github.com/vonssyb/nacionmx-postulaciones/internal/discord"
	"github.com/vonssyb/nacionmx-postulaciones/internal/metrics"
)

// initializeMetrics initializes Prometheus metrics
func initializeMetrics(cfg *config.Config) core.Recorder {
	recorder := metrics.Init(cfg.MetricsEnabled)
	if cfg.MetricsEnabled {
		log.Println("Prometheus metrics initialized")
	} else {
		log.Println("Metrics disabled (using noop implementation)")
	}
	return recorder
}

// initializeMemberCache builds the cache backing resolved guild memberships.
// A Redis backend keeps the Discord request budget shared across instances.
func initializeMemberCache(
	cfg *config.Config,
) (core.Cache[discord.Membership], func() error, error) {
	switch cfg.CacheType {
	case config.CacheTypeRedis:
		c, err := cache.NewRueidisCache[discord.Membership](
			context.Background(),
			cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
			"postulaciones:members:",
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize redis member cache: %w", err)
		}
		log.Printf("Member cache: redis (addr=%s, db=%d)", cfg.RedisAddr, cfg.RedisDB)
		return c, c.Close, nil

	default: // memory
		c := cache.NewMemoryCache[discord.Membership]()
		log.Println("Member cache: memory (single instance only)")
		return c, c.Close, nil
	}
}

// initializeRolesCache builds the cache for the staff role allow-list
func initializeRolesCache(cfg *config.Config) (core.Cache[[]string], func() error, error) {
	switch cfg.CacheType {
	case config.CacheTypeRedis:
		c, err := cache.NewRueidisCache[[]string](
			context.Background(),
			cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
			"postulaciones:roles:",
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize redis roles cache: %w", err)
		}
		log.Printf("Roles cache: redis (addr=%s, db=%d)", cfg.RedisAddr, cfg.RedisDB)
		return c, c.Close, nil

	default: // memory
		c := cache.NewMemoryCache[[]string]()
		log.Println("Roles cache: memory (single instance only)")
		return c, c.Close, nil
	}
}

// initializeResolver builds the guild membership resolver
func initializeResolver(
	cfg *config.Config,
	memberCache core.Cache[discord.Membership],
	recorder core.Recorder,
) *discord.Resolver {
	client := discord.NewClient(cfg.DiscordAPIURL, cfg.DiscordAPITimeout)
	return discord.NewResolver(
		client,
		memberCache,
		recorder,
		cfg.MemberCacheTTL,
		cfg.MemberCacheSchema,
		cfg.PrimaryGuildID,
		cfg.SecondaryGuildID,
	)
}
