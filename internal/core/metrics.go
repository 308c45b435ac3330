package core

import "time"

// Recorder defines the interface for recording application metrics.
// Implementations include Metrics (Prometheus-based) and NoopMetrics (no-op).
type Recorder interface {
	// Authentication
	RecordLogin(success bool)
	RecordLogout()
	RecordOAuthCallback(success bool)

	// Staff authorization
	RecordStaffCheck(result string, duration time.Duration)
	RecordMemberLookup(guild string, cacheHit bool)
	RecordExternalAPICall(provider string, duration time.Duration)

	// Intake
	RecordApplicationSubmitted(success bool)
	RecordRobloxVerification(result string)

	// Review
	RecordDecision(status string, duration time.Duration)
	RecordAnswerGraded()

	// Gauge Setters (for periodic updates)
	SetApplicationsCount(status string, count int)

	// Database Operations
	RecordDatabaseQueryError(operation string)
}

// MetricsStore defines the DB operations needed by the gauge refresher.
type MetricsStore interface {
	CountApplicationsByStatus() (map[string]int64, error)
}
