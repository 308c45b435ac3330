package bootstrap

import (
	"net/http"

	"github.com/vonssyb/nacionmx-postulaciones/internal/config"
	"github.com/vonssyb/nacionmx-postulaciones/internal/core"
	"github.com/vonssyb/nacionmx-postulaciones/internal/discord"
	"github.com/vonssyb/nacionmx-postulaciones/internal/services"
	"github.com/vonssyb/nacionmx-postulaciones/internal/store"

	"github.com/appleboy/graceful"
	"github.com/gin-gonic/gin"
)

// Application holds all initialized components
type Application struct {
	Config *config.Config

	// Core infrastructure
	DB              *store.Store
	MetricsRecorder core.Recorder
	MemberCache     core.Cache[discord.Membership]
	RolesCache      core.Cache[[]string]
	cacheClosers    []func() error

	// Discord / Roblox plumbing
	Resolver *discord.Resolver

	// Services
	AuditService    *services.AuditService
	SettingsService *services.SettingsService
	IntakeService   *services.IntakeService
	ReviewService   *services.ReviewService

	// HTTP
	HandlerSet handlerSet
	Router     *gin.Engine
	Server     *http.Server
}

// Run initializes and starts the application
func Run(cfg *config.Config) error {
	app := &Application{Config: cfg}

	// Phase 1: Validate configuration
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Phase 2: Initialize infrastructure
	if err := app.initializeInfrastructure(); err != nil {
		return err
	}

	// Phase 3: Initialize business layer
	if err := app.initializeBusinessLayer(); err != nil {
		return err
	}

	// Phase 4: Initialize HTTP layer
	app.initializeHTTPLayer()

	// Phase 5: Start server with graceful shutdown
	app.startWithGracefulShutdown()

	return nil
}

// initializeInfrastructure sets up database, metrics, and caches
func (app *Application) initializeInfrastructure() error {
	var err error

	// Database
	app.DB, err = initializeDatabase(app.Config)
	if err != nil {
		return err
	}

	// Metrics
	app.MetricsRecorder = initializeMetrics(app.Config)

	// Member and allow-list caches
	var memberCloser, rolesCloser func() error
	app.MemberCache, memberCloser, err = initializeMemberCache(app.Config)
	if err != nil {
		return err
	}
	app.RolesCache, rolesCloser, err = initializeRolesCache(app.Config)
	if err != nil {
		return err
	}
	app.cacheClosers = append(app.cacheClosers, memberCloser, rolesCloser)

	return nil
}

// initializeBusinessLayer sets up the membership resolver and services
func (app *Application) initializeBusinessLayer() error {
	app.Resolver = initializeResolver(app.Config, app.MemberCache, app.MetricsRecorder)

	// Audit service (required by other services)
	app.AuditService = services.NewAuditService(
		app.DB,
		app.Config.EnableAuditLogging,
		app.Config.AuditLogBufferSize,
	)

	var err error
	app.SettingsService,
		app.IntakeService,
		app.ReviewService, err = initializeServices(
		app.Config,
		app.DB,
		app.RolesCache,
		app.AuditService,
		app.MetricsRecorder,
	)
	return err
}

// initializeHTTPLayer sets up handlers, router, and server
func (app *Application) initializeHTTPLayer() {
	provider := initializeOAuthProvider(app.Config)

	app.HandlerSet = initializeHandlers(
		app.Config,
		app.DB,
		provider,
		app.Resolver,
		app.SettingsService,
		app.IntakeService,
		app.ReviewService,
		app.AuditService,
		app.MetricsRecorder,
	)

	app.Router = setupRouter(
		app.Config,
		app.HandlerSet,
		app.Resolver,
		app.SettingsService,
		app.AuditService,
		app.MetricsRecorder,
	)

	app.Server = createHTTPServer(app.Config, app.Router)
}

// startWithGracefulShutdown starts the server and handles graceful shutdown
func (app *Application) startWithGracefulShutdown() {
	m := graceful.NewManager()

	addServerRunningJob(m, app.Server)
	addServerShutdownJob(m, app.Server)
	addAuditServiceShutdownJob(m, app.AuditService)
	addAuditLogCleanupJob(m, app.Config, app.AuditService)
	addMetricsGaugeUpdateJob(m, app.Config, app.DB, app.MetricsRecorder)
	addCacheCleanupJob(m, app.cacheClosers)

	<-m.Done()
}
