package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	resultSuccess = "success"
	resultError   = "error"
	resultFailure = "failure"
)

// HTTPMetricsMiddleware creates a Gin middleware that records HTTP metrics
func HTTPMetricsMiddleware(m Recorder) gin.HandlerFunc {
	// If NoopMetrics, return a lightweight middleware that does nothing
	if _, ok := m.(*NoopMetrics); ok {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	// Type assert to concrete Metrics for Prometheus access
	metrics, ok := m.(*Metrics)
	if !ok {
		// Fallback if unknown implementation
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		// Skip metrics endpoint to avoid self-recording
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()

		// Increment in-flight counter
		metrics.HTTPRequestsInFlight.Inc()
		defer metrics.HTTPRequestsInFlight.Dec()

		// Process request
		c.Next()

		// Record metrics after request completes
		duration := time.Since(start).Seconds()
		method := c.Request.Method
		path := normalizePath(c.FullPath()) // Use route pattern, not actual path
		status := strconv.Itoa(c.Writer.Status())

		// Record request count
		metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()

		// Record request duration
		metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// normalizePath converts the actual request path to route pattern
// Returns the route pattern (e.g., "/api/admin/applications/:id") or "unknown"
func normalizePath(fullPath string) string {
	if fullPath == "" {
		return "unknown"
	}
	return fullPath
}

// RecordLogin records login attempt
func (m *Metrics) RecordLogin(success bool) {
	result := resultSuccess
	if !success {
		result = resultFailure
	}
	m.AuthLoginTotal.WithLabelValues(result).Inc()
}

// RecordLogout records logout
func (m *Metrics) RecordLogout() {
	m.AuthLogoutTotal.Inc()
}

// RecordOAuthCallback records OAuth callback completion
func (m *Metrics) RecordOAuthCallback(success bool) {
	result := resultSuccess
	if !success {
		result = resultError
	}
	m.AuthOAuthCallbackTotal.WithLabelValues(result).Inc()
}

// RecordStaffCheck records a staff authorization check
func (m *Metrics) RecordStaffCheck(result string, duration time.Duration) {
	// result: allowed, denied, error
	m.StaffCheckTotal.WithLabelValues(result).Inc()
	m.StaffCheckDuration.Observe(duration.Seconds())
}

// RecordMemberLookup records one guild member lookup and where it was served from
func (m *Metrics) RecordMemberLookup(guild string, cacheHit bool) {
	source := "api"
	if cacheHit {
		source = "cache"
	}
	m.MemberLookupTotal.WithLabelValues(guild, source).Inc()
}

// RecordExternalAPICall records external API call duration
func (m *Metrics) RecordExternalAPICall(provider string, duration time.Duration) {
	m.AuthExternalAPIDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordApplicationSubmitted records an intake submission
func (m *Metrics) RecordApplicationSubmitted(success bool) {
	result := resultSuccess
	if !success {
		result = resultError
	}
	m.ApplicationsSubmittedTotal.WithLabelValues(result).Inc()
}

// RecordRobloxVerification records a Roblox verification outcome
func (m *Metrics) RecordRobloxVerification(result string) {
	m.RobloxVerificationTotal.WithLabelValues(result).Inc()
}

// RecordDecision records a finalized application decision
func (m *Metrics) RecordDecision(status string, duration time.Duration) {
	m.DecisionsTotal.WithLabelValues(status).Inc()
	m.DecisionDuration.Observe(duration.Seconds())
}

// RecordAnswerGraded records one answer grade
func (m *Metrics) RecordAnswerGraded() {
	m.AnswersGradedTotal.Inc()
}

// SetApplicationsCount sets the current count of applications per status
func (m *Metrics) SetApplicationsCount(status string, count int) {
	m.ApplicationsByStatus.WithLabelValues(status).Set(float64(count))
}

// RecordDatabaseQueryError records a database query error during metric collection
func (m *Metrics) RecordDatabaseQueryError(operation string) {
	m.DatabaseQueryErrorsTotal.WithLabelValues(operation).Inc()
}
