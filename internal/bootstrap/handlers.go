package bootstrap

import (
	"github.com/vonssyb/nacionmx-postulaciones/internal/auth"
	"github.com/vonssyb/nacionmx-postulaciones/internal/config"
	"github.com/vonssyb/nacionmx-postulaciones/internal/core"
	"github.com/vonssyb/nacionmx-postulaciones/internal/discord"
	"github.com/vonssyb/nacionmx-postulaciones/internal/handlers"
	"github.com/vonssyb/nacionmx-postulaciones/internal/services"
	"github.com/vonssyb/nacionmx-postulaciones/internal/store"
)

// handlerSet groups all HTTP handlers
type handlerSet struct {
	auth    *handlers.AuthHandler
	session *handlers.SessionHandler
	apply   *handlers.ApplyHandler
	admin   *handlers.AdminHandler
	health  *handlers.HealthHandler
}

// initializeOAuthProvider builds the Discord OAuth provider
func initializeOAuthProvider(cfg *config.Config) *auth.OAuthProvider {
	return auth.NewDiscordProvider(auth.OAuthProviderConfig{
		ClientID:     cfg.DiscordClientID,
		ClientSecret: cfg.DiscordClientSecret,
		RedirectURL:  cfg.DiscordRedirectURL,
		Scopes:       cfg.DiscordScopes,
	})
}

// initializeHandlers creates all HTTP handlers
func initializeHandlers(
	cfg *config.Config,
	db *store.Store,
	provider *auth.OAuthProvider,
	resolver *discord.Resolver,
	settingsService *services.SettingsService,
	intakeService *services.IntakeService,
	reviewService *services.ReviewService,
	auditService *services.AuditService,
	recorder core.Recorder,
) handlerSet {
	return handlerSet{
		auth: handlers.NewAuthHandler(
			provider,
			resolver,
			auditService,
			recorder,
			cfg.BaseURL,
		),
		session: handlers.NewSessionHandler(resolver, settingsService),
		apply:   handlers.NewApplyHandler(intakeService),
		admin: handlers.NewAdminHandler(
			reviewService,
			settingsService,
			auditService,
			db,
		),
		health: handlers.NewHealthHandler(db),
	}
}
