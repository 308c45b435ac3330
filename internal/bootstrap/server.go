package bootstrap

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/vonssyb/nacionmx-postulaciones/internal/config"
	"github.com/vonssyb/nacionmx-postulaciones/internal/core"
	"github.com/vonssyb/nacionmx-postulaciones/internal/services"

	"github.com/appleboy/graceful"
)

func createHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// addPeriodicJob registers a running job that fires fn once at startup and
// then on every tick until shutdown.
func addPeriodicJob(m *graceful.Manager, interval time.Duration, fn func()) {
	m.AddRunningJob(func(ctx context.Context) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		fn()
		for {
			select {
			case <-ticker.C:
				fn()
			case <-ctx.Done():
				return nil
			}
		}
	})
}

func addServerRunningJob(m *graceful.Manager, srv *http.Server) {
	m.AddRunningJob(func(ctx context.Context) error {
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start server: %v", err)
			}
		}()
		<-ctx.Done()
		return nil
	})
}

func addServerShutdownJob(m *graceful.Manager, srv *http.Server) {
	m.AddShutdownJob(func() error {
		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server forced to shutdown: %v", err)
			return err
		}
		log.Println("Server exited")
		return nil
	})
}

// addAuditServiceShutdownJob drains the buffered audit writer so records
// accepted before the signal still reach the database.
func addAuditServiceShutdownJob(m *graceful.Manager, auditService *services.AuditService) {
	m.AddShutdownJob(func() error {
		log.Println("Shutting down audit service...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := auditService.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down audit service: %v", err)
			return err
		}
		return nil
	})
}

// addAuditLogCleanupJob prunes audit records past the retention window,
// once at startup and then daily.
func addAuditLogCleanupJob(
	m *graceful.Manager,
	cfg *config.Config,
	auditService *services.AuditService,
) {
	if !cfg.EnableAuditLogging || cfg.AuditLogRetention <= 0 {
		return
	}

	addPeriodicJob(m, 24*time.Hour, func() {
		deleted, err := auditService.CleanupOldRecords(cfg.AuditLogRetention)
		switch {
		case err != nil:
			log.Printf("Failed to cleanup old audit records: %v", err)
		case deleted > 0:
			log.Printf("Cleaned up %d old audit records", deleted)
		}
	})
}

// addMetricsGaugeUpdateJob keeps the per-status application gauges close to
// the database truth between decision events.
func addMetricsGaugeUpdateJob(
	m *graceful.Manager,
	cfg *config.Config,
	db core.MetricsStore,
	recorder core.Recorder,
) {
	if !cfg.MetricsEnabled || cfg.MetricsGaugeUpdateInterval <= 0 {
		return
	}

	addPeriodicJob(m, cfg.MetricsGaugeUpdateInterval, func() {
		updateGaugeMetrics(db, recorder)
	})
}

func addCacheCleanupJob(m *graceful.Manager, closers []func() error) {
	if len(closers) == 0 {
		return
	}

	m.AddShutdownJob(func() error {
		for _, closeCache := range closers {
			if closeCache == nil {
				continue
			}
			if err := closeCache(); err != nil {
				log.Printf("Error closing cache: %v", err)
			}
		}
		log.Println("Caches closed")
		return nil
	})
}

// suppressedLogger keeps a failing gauge query from flooding the log: each
// operation is reported at most once per window.
type suppressedLogger struct {
	lastLogged map[string]time.Time
	window     time.Duration
}

func (s *suppressedLogger) logIfNeeded(operation string, err error) {
	now := time.Now()
	if last, ok := s.lastLogged[operation]; ok && now.Sub(last) < s.window {
		return
	}
	s.lastLogged[operation] = now
	log.Printf("Database query failed for %s: %v (further errors will be suppressed for %v)",
		operation, err, s.window)
}

var gaugeErrorLogger = &suppressedLogger{
	lastLogged: make(map[string]time.Time),
	window:     5 * time.Minute,
}

// updateGaugeMetrics refreshes the per-status application count gauges
func updateGaugeMetrics(db core.MetricsStore, recorder core.Recorder) {
	counts, err := db.CountApplicationsByStatus()
	if err != nil {
		recorder.RecordDatabaseQueryError("count_applications_by_status")
		gaugeErrorLogger.logIfNeeded("count_applications_by_status", err)
		return
	}

	for status, count := range counts {
		recorder.SetApplicationsCount(status, int(count))
	}
}
