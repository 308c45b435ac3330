package metrics

import "time"

// NoopMetrics is a no-operation implementation of Recorder
// All methods are empty and do nothing, providing zero overhead when metrics are disabled
type NoopMetrics struct{}

// Ensure NoopMetrics implements Recorder interface at compile time
var _ Recorder = (*NoopMetrics)(nil)

// NewNoopMetrics creates a new no-operation metrics recorder
func NewNoopMetrics() Recorder {
	return &NoopMetrics{}
}

// Authentication - noop implementations
func (n *NoopMetrics) RecordLogin(success bool)         {}
func (n *NoopMetrics) RecordLogout()                    {}
func (n *NoopMetrics) RecordOAuthCallback(success bool) {}

// Staff authorization - noop implementations
func (n *NoopMetrics) RecordStaffCheck(result string, duration time.Duration)        {}
func (n *NoopMetrics) RecordMemberLookup(guild string, cacheHit bool)                {}
func (n *NoopMetrics) RecordExternalAPICall(provider string, duration time.Duration) {}

// Intake - noop implementations
func (n *NoopMetrics) RecordApplicationSubmitted(success bool) {}
func (n *NoopMetrics) RecordRobloxVerification(result string)  {}

// Review - noop implementations
func (n *NoopMetrics) RecordDecision(status string, duration time.Duration) {}
func (n *NoopMetrics) RecordAnswerGraded()                                  {}

// Gauge Setters - noop implementations
func (n *NoopMetrics) SetApplicationsCount(status string, count int) {}

// Database Operations - noop implementations
func (n *NoopMetrics) RecordDatabaseQueryError(operation string) {}
