package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents the type of audit event
type EventType string

const (
	// Authentication events
	EventLoginSuccess EventType = "LOGIN_SUCCESS"
	EventLoginDenied  EventType = "LOGIN_DENIED"
	EventLogout       EventType = "LOGOUT"

	// Intake events
	EventApplicationSubmitted EventType = "APPLICATION_SUBMITTED"
	EventSubmissionRejected   EventType = "SUBMISSION_REJECTED"
	EventRobloxVerified       EventType = "ROBLOX_VERIFIED"
	EventRobloxVerifyFailed   EventType = "ROBLOX_VERIFY_FAILED"

	// Review events
	EventApplicationClaimed  EventType = "APPLICATION_CLAIMED"
	EventApplicationApproved EventType = "APPLICATION_APPROVED"
	EventApplicationRejected EventType = "APPLICATION_REJECTED"
	EventAnswerGraded        EventType = "ANSWER_GRADED"
	EventNotesUpdated        EventType = "NOTES_UPDATED"

	// Admin events
	EventSettingsUpdated EventType = "SETTINGS_UPDATED"
	EventQuestionChanged EventType = "QUESTION_CHANGED"

	// Security events
	EventRateLimitExceeded EventType = "RATE_LIMIT_EXCEEDED"
	EventStaffCheckFailed  EventType = "STAFF_CHECK_FAILED"
)

// EventSeverity represents the severity level of an audit event
type EventSeverity string

const (
	SeverityInfo     EventSeverity = "INFO"
	SeverityWarning  EventSeverity = "WARNING"
	SeverityError    EventSeverity = "ERROR"
	SeverityCritical EventSeverity = "CRITICAL"
)

// AuditDetails stores additional event-specific information as JSON
type AuditDetails map[string]any

// Value implements the driver.Valuer interface for database storage
func (a AuditDetails) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil //nolint:nilnil // nil driver.Value represents SQL NULL, which is valid here
	}
	return json.Marshal(a)
}

// Scan implements the sql.Scanner interface for database retrieval
func (a *AuditDetails) Scan(value any) error {
	if value == nil {
		*a = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to unmarshal AuditDetails value: %v", value)
	}

	result := make(AuditDetails)
	if err := json.Unmarshal(bytes, &result); err != nil {
		return err
	}

	*a = result
	return nil
}

// ReviewAudit is an immutable record of one portal event
type ReviewAudit struct {
	ID string `gorm:"primaryKey;type:varchar(36)" json:"id"`

	EventType EventType     `gorm:"type:varchar(50);index;not null" json:"event_type"`
	EventTime time.Time     `gorm:"index;not null"                  json:"event_time"`
	Severity  EventSeverity `gorm:"type:varchar(20);not null"       json:"severity"`

	// Actor: the Discord user who performed the action
	ActorID   string `gorm:"index" json:"actor_id,omitempty"`
	ActorName string `           json:"actor_name,omitempty"`

	// Target application, if any
	ApplicationID string `gorm:"index" json:"application_id,omitempty"`

	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`

	Success      bool         `gorm:"index"     json:"success"`
	ErrorMessage string       `gorm:"type:text" json:"error_message,omitempty"`
	Details      AuditDetails `gorm:"type:text" json:"details,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
