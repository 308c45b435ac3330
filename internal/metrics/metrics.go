package metrics

import (
	"sync"

	"github.com/vonssyb/nacionmx-postulaciones/internal/core"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder is the metrics interface consumed by handlers and services.
type Recorder = core.Recorder

// Ensure Metrics implements Recorder interface at compile time
var _ Recorder = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Authentication Metrics
	AuthLoginTotal         *prometheus.CounterVec
	AuthLogoutTotal        prometheus.Counter
	AuthOAuthCallbackTotal *prometheus.CounterVec

	// Staff Authorization Metrics
	StaffCheckTotal         *prometheus.CounterVec
	StaffCheckDuration      prometheus.Histogram
	MemberLookupTotal       *prometheus.CounterVec
	AuthExternalAPIDuration *prometheus.HistogramVec

	// Intake Metrics
	ApplicationsSubmittedTotal *prometheus.CounterVec
	RobloxVerificationTotal    *prometheus.CounterVec

	// Review Metrics
	DecisionsTotal     *prometheus.CounterVec
	DecisionDuration   prometheus.Histogram
	AnswersGradedTotal prometheus.Counter

	// Application Gauges
	ApplicationsByStatus *prometheus.GaugeVec

	// HTTP Request Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Database Query Metrics
	DatabaseQueryErrorsTotal *prometheus.CounterVec
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Init initializes metrics based on enabled flag
// If enabled=true, returns Prometheus-based Metrics
// If enabled=false, returns NoopMetrics (zero overhead)
// Uses sync.Once to ensure Prometheus metrics are only registered once
func Init(enabled bool) Recorder {
	if !enabled {
		return NewNoopMetrics()
	}

	once.Do(func() {
		defaultMetrics = initMetrics()
	})
	return defaultMetrics
}

// initMetrics creates and registers all Prometheus metrics
func initMetrics() *Metrics {
	return &Metrics{
		AuthLoginTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_logins_total",
				Help: "Total number of login attempts",
			},
			[]string{"result"}, // success, failure
		),
		AuthLogoutTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "portal_logouts_total",
				Help: "Total number of logouts",
			},
		),
		AuthOAuthCallbackTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_oauth_callbacks_total",
				Help: "Total number of OAuth callback completions",
			},
			[]string{"result"}, // success, error
		),

		StaffCheckTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_staff_checks_total",
				Help: "Total number of staff authorization checks",
			},
			[]string{"result"}, // allowed, denied, error
		),
		StaffCheckDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "portal_staff_check_duration_seconds",
				Help:    "Time taken to resolve a staff authorization check",
				Buckets: prometheus.DefBuckets,
			},
		),
		MemberLookupTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_member_lookups_total",
				Help: "Total number of guild member lookups",
			},
			[]string{"guild", "source"}, // source: cache, api
		),
		AuthExternalAPIDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "portal_external_api_duration_seconds",
				Help:    "Duration of external API calls",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"}, // discord, roblox, automation
		),

		ApplicationsSubmittedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_applications_submitted_total",
				Help: "Total number of application submissions",
			},
			[]string{"result"}, // success, error
		),
		RobloxVerificationTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_roblox_verifications_total",
				Help: "Total number of Roblox account verification attempts",
			},
			[]string{"result"}, // verified, code_missing, banned, too_new, not_found, error
		),

		DecisionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_decisions_total",
				Help: "Total number of application decisions",
			},
			[]string{"status"}, // approved, rejected
		),
		DecisionDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "portal_decision_duration_seconds",
				Help:    "Time taken to finalize a decision including side effects",
				Buckets: prometheus.DefBuckets,
			},
		),
		AnswersGradedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "portal_answers_graded_total",
				Help: "Total number of answer grades recorded",
			},
		),

		ApplicationsByStatus: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "portal_applications",
				Help: "Current number of applications per status",
			},
			[]string{"status"},
		),

		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "portal_http_request_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "portal_http_requests_in_flight",
				Help: "Current number of in-flight HTTP requests",
			},
		),

		DatabaseQueryErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_database_query_errors_total",
				Help: "Total number of database query errors",
			},
			[]string{"operation"},
		),
	}
}
