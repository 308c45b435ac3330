package bootstrap

import (
	"log"
	"net/http"

	"github.com/vonssyb/nacionmx-postulaciones/internal/config"
	"github.com/vonssyb/nacionmx-postulaciones/internal/core"
	"github.com/vonssyb/nacionmx-postulaciones/internal/discord"
	"github.com/vonssyb/nacionmx-postulaciones/internal/metrics"
	"github.com/vonssyb/nacionmx-postulaciones/internal/middleware"
	"github.com/vonssyb/nacionmx-postulaciones/internal/services"
	"github.com/vonssyb/nacionmx-postulaciones/internal/util"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRouter configures the Gin router with all routes and middleware
func setupRouter(
	cfg *config.Config,
	h handlerSet,
	resolver *discord.Resolver,
	settingsService *services.SettingsService,
	auditService *services.AuditService,
	recorder core.Recorder,
) *gin.Engine {
	setupGinMode(cfg)
	r := gin.New()

	r.Use(metrics.HTTPMetricsMiddleware(recorder))
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(util.IPMiddleware())

	setupSessionMiddleware(r, cfg)

	r.GET("/health", h.health.Check)
	setupMetricsEndpoint(r, cfg)

	rateLimiters := setupRateLimiting(cfg)
	setupAllRoutes(r, h, resolver, settingsService, auditService, recorder, rateLimiters)

	logServerStartup(cfg)
	return r
}

// setupSessionMiddleware configures session handling middleware
func setupSessionMiddleware(r *gin.Engine, cfg *config.Config) {
	sessionStore := cookie.NewStore([]byte(cfg.SessionSecret))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   cfg.SessionMaxAge,
		HttpOnly: true,
		Secure:   cfg.IsProduction,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions("portal_session", sessionStore))
	r.Use(middleware.SessionIdleTimeout(cfg.SessionIdleTimeout))
}

// setupMetricsEndpoint configures the Prometheus metrics endpoint
func setupMetricsEndpoint(r *gin.Engine, cfg *config.Config) {
	switch {
	case !cfg.MetricsEnabled:
		log.Printf("Prometheus metrics disabled")
	case cfg.MetricsToken != "":
		log.Printf("Prometheus metrics enabled at /metrics with Bearer token authentication")
		r.GET(
			"/metrics",
			middleware.MetricsAuthMiddleware(cfg.MetricsToken),
			gin.WrapH(promhttp.Handler()),
		)
	default:
		log.Printf("Prometheus metrics enabled at /metrics (no authentication)")
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
}

// setupAllRoutes configures all application routes
func setupAllRoutes(
	r *gin.Engine,
	h handlerSet,
	resolver *discord.Resolver,
	settingsService *services.SettingsService,
	auditService *services.AuditService,
	recorder core.Recorder,
	rateLimiters rateLimitMiddlewares,
) {
	// OAuth sign-in (public)
	authGroup := r.Group("/auth")
	{
		authGroup.GET("/login", rateLimiters.login, h.auth.Login)
		authGroup.GET("/callback", h.auth.Callback)
		authGroup.POST("/logout", h.auth.Logout)
	}

	// Session probe: answers for anonymous visitors too, so the frontend
	// can decide what to render without triggering a login.
	r.GET("/api/session", middleware.CSRFMiddleware(), h.session.Current)

	// Applicant wizard (requires login)
	apply := r.Group("/api/apply")
	apply.Use(middleware.RequireAuth(), middleware.CSRFMiddleware())
	{
		apply.GET("/eligibility", h.apply.Eligibility)
		apply.GET("/questions", h.apply.Questions)
		apply.POST("/validate-step", h.apply.ValidateStep)
		apply.POST("/verification-code", h.apply.VerificationCode)
		apply.POST("/verify-roblox", rateLimiters.verify, h.apply.VerifyRoblox)
		apply.POST("", rateLimiters.submit, h.apply.Submit)
		apply.GET("/mine", h.apply.Mine)
	}

	// Staff review area (requires login + allow-listed guild role)
	admin := r.Group("/api/admin")
	admin.Use(
		middleware.RequireAuth(),
		middleware.RequireStaff(resolver, settingsService, auditService, recorder),
		middleware.CSRFMiddleware(),
	)
	{
		admin.GET("/applications", h.admin.ListApplications)
		admin.GET("/applications/:id", h.admin.GetApplication)
		admin.POST("/applications/:id/claim", h.admin.ClaimApplication)
		admin.POST("/applications/:id/grade", h.admin.GradeAnswer)
		admin.PUT("/applications/:id/notes", h.admin.UpdateNotes)
		admin.POST("/applications/:id/decision", rateLimiters.decision, h.admin.Decide)

		admin.GET("/settings", h.admin.GetSettings)
		admin.PUT("/settings/staff-roles", h.admin.UpdateStaffRoles)

		admin.GET("/questions", h.admin.ListQuestions)
		admin.POST("/questions", h.admin.CreateQuestion)
		admin.PUT("/questions/:id", h.admin.UpdateQuestion)
		admin.DELETE("/questions/:id", h.admin.DeactivateQuestion)

		admin.GET("/audit", h.admin.ListAudit)
		admin.GET("/stats", h.admin.Stats)
	}
}

// setupGinMode sets Gin mode based on environment configuration
func setupGinMode(cfg *config.Config) {
	mode := ginModeMap[cfg.IsProduction]
	gin.SetMode(mode)
	log.Printf("Gin mode: %s", ginModeLogMessage[cfg.IsProduction])
}

var ginModeMap = map[bool]string{
	true:  gin.ReleaseMode,
	false: gin.DebugMode,
}

var ginModeLogMessage = map[bool]string{
	true:  "Release (production)",
	false: "Debug (development)",
}

// logServerStartup logs server startup information
func logServerStartup(cfg *config.Config) {
	log.Printf("Recruitment portal starting on %s", cfg.ServerAddr)
	log.Printf("OAuth callback URL: %s", cfg.DiscordRedirectURL)
	log.Printf("Primary guild: %s", cfg.PrimaryGuildID)
	if cfg.SecondaryGuildID != "" {
		log.Printf("Secondary guild: %s", cfg.SecondaryGuildID)
	}
}
