package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Cache backend constants
const (
	CacheTypeMemory = "memory"
	CacheTypeRedis  = "redis"
)

// Rate limit store constants
const (
	RateLimitStoreMemory = "memory"
	RateLimitStoreRedis  = "redis"
)

type Config struct {
	// Server settings
	ServerAddr   string
	BaseURL      string
	IsProduction bool

	// Session settings
	SessionSecret      string
	SessionMaxAge      int           // seconds
	SessionIdleTimeout time.Duration // 0 disables the idle check

	// Database
	DatabaseDriver string // "sqlite" or "postgres"
	DatabaseDSN    string
	DBInitTimeout  time.Duration

	// Discord OAuth
	DiscordClientID     string
	DiscordClientSecret string
	DiscordRedirectURL  string
	DiscordScopes       []string

	// Staff authorization
	PrimaryGuildID   string
	SecondaryGuildID string   // optional second guild scope, empty disables it
	StaffRoleIDs     []string // allow-listed role IDs, refreshable from settings

	// Member lookup cache
	MemberCacheTTL    time.Duration // each resolved membership is reused this long
	MemberCacheSchema string        // bump to invalidate all prior entries
	CacheType         string        // "memory" or "redis"

	// Redis (shared cache / rate limiting)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Discord API client
	DiscordAPIURL     string
	DiscordAPITimeout time.Duration
	DiscordMaxRetries int
	DiscordRetryDelay time.Duration

	// Roblox verification
	RobloxAPIURL        string
	RobloxThumbAPIURL   string
	RobloxTimeout       time.Duration
	RobloxMaxRetries    int
	RobloxRetryDelay    time.Duration
	RobloxMinAccountAge int // days

	// Intake rules
	CooldownDays int // re-application block after a rejection

	// Decision side effects
	AutomationWebhookURL string
	AutomationToken      string
	AutomationTimeout    time.Duration
	AutomationMaxRetries int
	AutomationRetryDelay time.Duration
	NotifyWebhookURL     string
	NotifyTimeout        time.Duration

	// Audit logging
	EnableAuditLogging bool
	AuditLogBufferSize int
	AuditLogRetention  time.Duration

	// Metrics
	MetricsEnabled             bool
	MetricsToken               string
	MetricsGaugeUpdateInterval time.Duration

	// Rate limiting
	EnableRateLimit          bool
	RateLimitStore           string
	RateLimitCleanupInterval time.Duration
	LoginRateLimit           int // requests per minute
	SubmitRateLimit          int
	VerifyRateLimit          int
	DecisionRateLimit        int
}

func Load() *Config {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	driver := getEnv("DATABASE_DRIVER", "sqlite")
	var dsn string
	if driver == "sqlite" {
		dsn = getEnv("DATABASE_DSN", getEnv("DATABASE_PATH", "portal.db"))
	} else {
		dsn = getEnv("DATABASE_DSN", "")
	}

	return &Config{
		ServerAddr:   getEnv("SERVER_ADDR", ":8080"),
		BaseURL:      getEnv("BASE_URL", "http://localhost:8080"),
		IsProduction: getEnvBool("PRODUCTION", false),

		SessionSecret:      getEnv("SESSION_SECRET", "session-secret-change-in-production"),
		SessionMaxAge:      getEnvInt("SESSION_MAX_AGE", 3600),
		SessionIdleTimeout: getEnvDuration("SESSION_IDLE_TIMEOUT", 0),

		DatabaseDriver: driver,
		DatabaseDSN:    dsn,
		DBInitTimeout:  getEnvDuration("DB_INIT_TIMEOUT", 30*time.Second),

		DiscordClientID:     getEnv("DISCORD_CLIENT_ID", ""),
		DiscordClientSecret: getEnv("DISCORD_CLIENT_SECRET", ""),
		DiscordRedirectURL:  getEnv("DISCORD_REDIRECT_URL", ""),
		DiscordScopes: getEnvSlice(
			"DISCORD_SCOPES",
			[]string{"identify", "guilds", "guilds.members.read"},
		),

		PrimaryGuildID:   getEnv("PRIMARY_GUILD_ID", ""),
		SecondaryGuildID: getEnv("SECONDARY_GUILD_ID", ""),
		StaffRoleIDs:     getEnvSlice("STAFF_ROLE_IDS", nil),

		MemberCacheTTL:    getEnvDuration("MEMBER_CACHE_TTL", 30*time.Minute),
		MemberCacheSchema: getEnv("MEMBER_CACHE_SCHEMA", "v2"),
		CacheType:         getEnv("CACHE_TYPE", CacheTypeMemory),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		DiscordAPIURL:     getEnv("DISCORD_API_URL", "https://discord.com/api"),
		DiscordAPITimeout: getEnvDuration("DISCORD_API_TIMEOUT", 10*time.Second),
		DiscordMaxRetries: getEnvInt("DISCORD_MAX_RETRIES", 2),
		DiscordRetryDelay: getEnvDuration("DISCORD_RETRY_DELAY", 1*time.Second),

		RobloxAPIURL:        getEnv("ROBLOX_API_URL", "https://users.roblox.com"),
		RobloxThumbAPIURL:   getEnv("ROBLOX_THUMB_API_URL", "https://thumbnails.roblox.com"),
		RobloxTimeout:       getEnvDuration("ROBLOX_TIMEOUT", 10*time.Second),
		RobloxMaxRetries:    getEnvInt("ROBLOX_MAX_RETRIES", 3),
		RobloxRetryDelay:    getEnvDuration("ROBLOX_RETRY_DELAY", 1*time.Second),
		RobloxMinAccountAge: getEnvInt("ROBLOX_MIN_ACCOUNT_AGE_DAYS", 30),

		CooldownDays: getEnvInt("REJECTION_COOLDOWN_DAYS", 30),

		AutomationWebhookURL: getEnv("AUTOMATION_WEBHOOK_URL", ""),
		AutomationToken:      getEnv("AUTOMATION_WEBHOOK_TOKEN", ""),
		AutomationTimeout:    getEnvDuration("AUTOMATION_TIMEOUT", 10*time.Second),
		AutomationMaxRetries: getEnvInt("AUTOMATION_MAX_RETRIES", 3),
		AutomationRetryDelay: getEnvDuration("AUTOMATION_RETRY_DELAY", 1*time.Second),
		NotifyWebhookURL:     getEnv("NOTIFY_WEBHOOK_URL", ""),
		NotifyTimeout:        getEnvDuration("NOTIFY_TIMEOUT", 10*time.Second),

		EnableAuditLogging: getEnvBool("ENABLE_AUDIT_LOGGING", true),
		AuditLogBufferSize: getEnvInt("AUDIT_LOG_BUFFER_SIZE", 1000),
		AuditLogRetention:  getEnvDuration("AUDIT_LOG_RETENTION", 90*24*time.Hour),

		MetricsEnabled:             getEnvBool("METRICS_ENABLED", false),
		MetricsToken:               getEnv("METRICS_TOKEN", ""),
		MetricsGaugeUpdateInterval: getEnvDuration("METRICS_GAUGE_UPDATE_INTERVAL", 30*time.Second),

		EnableRateLimit:          getEnvBool("ENABLE_RATE_LIMIT", true),
		RateLimitStore:           getEnv("RATE_LIMIT_STORE", RateLimitStoreMemory),
		RateLimitCleanupInterval: getEnvDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		LoginRateLimit:           getEnvInt("LOGIN_RATE_LIMIT", 10),
		SubmitRateLimit:          getEnvInt("SUBMIT_RATE_LIMIT", 5),
		VerifyRateLimit:          getEnvInt("VERIFY_RATE_LIMIT", 10),
		DecisionRateLimit:        getEnvInt("DECISION_RATE_LIMIT", 30),
	}
}

// Validate checks invariants that would otherwise surface as runtime failures.
func (c *Config) Validate() error {
	if c.DiscordClientID == "" || c.DiscordClientSecret == "" {
		return errors.New("DISCORD_CLIENT_ID and DISCORD_CLIENT_SECRET are required")
	}
	if c.DiscordRedirectURL == "" {
		return errors.New("DISCORD_REDIRECT_URL is required")
	}
	if c.PrimaryGuildID == "" {
		return errors.New("PRIMARY_GUILD_ID is required")
	}
	if c.DatabaseDriver == "postgres" && c.DatabaseDSN == "" {
		return errors.New("DATABASE_DSN is required when DATABASE_DRIVER=postgres")
	}
	if c.IsProduction {
		if c.SessionSecret == "session-secret-change-in-production" {
			return errors.New("SESSION_SECRET must be changed in production")
		}
		if c.AutomationWebhookURL != "" && c.AutomationToken == "" {
			return errors.New("AUTOMATION_WEBHOOK_TOKEN is required when the automation webhook is set")
		}
	}
	switch c.CacheType {
	case CacheTypeMemory, CacheTypeRedis:
	default:
		return fmt.Errorf("invalid CACHE_TYPE: %s (must be: memory, redis)", c.CacheType)
	}
	switch c.RateLimitStore {
	case RateLimitStoreMemory, RateLimitStoreRedis:
	default:
		return fmt.Errorf(
			"invalid RATE_LIMIT_STORE: %s (must be: memory, redis)",
			c.RateLimitStore,
		)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := splitAndTrim(value, ",")
		if len(parts) > 0 {
			return parts
		}
	}
	return defaultValue
}

func splitAndTrim(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
