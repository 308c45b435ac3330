package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	limiterRedis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// RateLimitStoreType selects where counters live.
type RateLimitStoreType string

const (
	// RateLimitStoreMemory keeps counters in-process. Enough for one
	// instance; a second instance gets its own budget.
	RateLimitStoreMemory RateLimitStoreType = "memory"
	// RateLimitStoreRedis shares counters across instances.
	RateLimitStoreRedis RateLimitStoreType = "redis"
)

// RateLimitConfig configures one per-IP limiter. The window is always one
// minute; endpoints differ only in how many requests fit in it.
type RateLimitConfig struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration

	StoreType RateLimitStoreType

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// NewRateLimiter builds a gin middleware limiting each client IP to the
// configured requests per minute. Submission and verification endpoints are
// the hot targets: an applicant hammering POST /api/apply must never starve
// the review queue.
func NewRateLimiter(config RateLimitConfig) (gin.HandlerFunc, error) {
	store, err := newLimiterStore(config)
	if err != nil {
		return nil, err
	}

	instance := limiter.New(store, limiter.Rate{
		Period: time.Minute,
		Limit:  int64(config.RequestsPerMinute),
	})

	return mgin.NewMiddleware(instance, mgin.WithLimitReachedHandler(func(c *gin.Context) {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":   "rate_limit_exceeded",
			"message": "Demasiadas solicitudes. Intenta de nuevo en unos minutos.",
		})
		c.Abort()
	})), nil
}

func newLimiterStore(config RateLimitConfig) (limiter.Store, error) {
	if config.StoreType != RateLimitStoreRedis {
		return memory.NewStore(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", config.RedisAddr, err)
	}

	store, err := limiterRedis.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix:          "ratelimit",
		CleanUpInterval: config.CleanupInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis store: %w", err)
	}
	return store, nil
}

// NewMemoryRateLimiter is the in-process variant used directly by tests.
func NewMemoryRateLimiter(requestsPerMinute int) (gin.HandlerFunc, error) {
	return NewRateLimiter(RateLimitConfig{
		RequestsPerMinute: requestsPerMinute,
		StoreType:         RateLimitStoreMemory,
		CleanupInterval:   5 * time.Minute,
	})
}
