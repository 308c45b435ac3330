package bootstrap

import (
	"fmt"
	"log"

	"github.com/vonssyb/nacionmx-postulaciones/internal/client"
	"github.com/vonssyb/nacionmx-postulaciones/internal/config"
	"github.com/vonssyb/nacionmx-postulaciones/internal/core"
	"github.com/vonssyb/nacionmx-postulaciones/internal/notify"
	"github.com/vonssyb/nacionmx-postulaciones/internal/roblox"
	"github.com/vonssyb/nacionmx-postulaciones/internal/services"
	"github.com/vonssyb/nacionmx-postulaciones/internal/store"
)

// initializeServices wires the settings, intake, and review services with
// their outbound HTTP clients.
func initializeServices(
	cfg *config.Config,
	db *store.Store,
	rolesCache core.Cache[[]string],
	audit *services.AuditService,
	recorder core.Recorder,
) (*services.SettingsService, *services.IntakeService, *services.ReviewService, error) {
	settingsService := services.NewSettingsService(db, cfg, rolesCache, audit)

	robloxClient, err := createRobloxClient(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	intakeService := services.NewIntakeService(
		db,
		robloxClient,
		audit,
		recorder,
		cfg.CooldownDays,
	)

	notifier, err := createNotifier(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	automation, err := createAutomation(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	reviewService := services.NewReviewService(db, notifier, automation, audit, recorder)

	return settingsService, intakeService, reviewService, nil
}

// createRobloxClient builds the Roblox users API client with retries
func createRobloxClient(cfg *config.Config) (*roblox.Client, error) {
	retryClient, err := client.NewRetry(client.Options{
		AuthMode:      "none",
		Timeout:       cfg.RobloxTimeout,
		MaxRetries:    cfg.RobloxMaxRetries,
		RetryDelay:    cfg.RobloxRetryDelay,
		MaxRetryDelay: cfg.RobloxTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Roblox HTTP client: %w", err)
	}
	return roblox.NewClient(cfg.RobloxAPIURL, retryClient, cfg.RobloxMinAccountAge), nil
}

// createNotifier builds the decision notice webhook client. An empty URL
// disables notices without touching the review flow.
func createNotifier(cfg *config.Config) (*notify.Notifier, error) {
	retryClient, err := client.NewRetry(client.Options{
		AuthMode:      "none",
		Timeout:       cfg.NotifyTimeout,
		MaxRetryDelay: cfg.NotifyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create notify HTTP client: %w", err)
	}
	if cfg.NotifyWebhookURL == "" {
		log.Println("Decision notices disabled (NOTIFY_WEBHOOK_URL not set)")
	}
	return notify.NewNotifier(cfg.NotifyWebhookURL, retryClient), nil
}

// createAutomation builds the role-automation webhook client. The shared
// secret rides on every request as X-Automation-Token when configured.
func createAutomation(cfg *config.Config) (*notify.Automation, error) {
	authMode := "none"
	if cfg.AutomationToken != "" {
		authMode = "simple"
	}

	retryClient, err := client.NewRetry(client.Options{
		AuthMode:      authMode,
		AuthSecret:    cfg.AutomationToken,
		AuthHeader:    "X-Automation-Token",
		Timeout:       cfg.AutomationTimeout,
		MaxRetries:    cfg.AutomationMaxRetries,
		RetryDelay:    cfg.AutomationRetryDelay,
		MaxRetryDelay: cfg.AutomationTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create automation HTTP client: %w", err)
	}
	if cfg.AutomationWebhookURL == "" {
		log.Println("Role automation disabled (AUTOMATION_WEBHOOK_URL not set)")
	}
	return notify.NewAutomation(cfg.AutomationWebhookURL, retryClient), nil
}
