package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ApplicationStatus represents the lifecycle state of an application
type ApplicationStatus string

const (
	StatusPending     ApplicationStatus = "pending"
	StatusUnderReview ApplicationStatus = "under_review"
	StatusApproved    ApplicationStatus = "approved"
	StatusRejected    ApplicationStatus = "rejected"
)

// IsOpen returns true while the application can still receive a decision
func (s ApplicationStatus) IsOpen() bool {
	return s == StatusPending || s == StatusUnderReview
}

// IsValid returns true for known status values
func (s ApplicationStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusUnderReview, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// FormData stores the raw wizard answers keyed by question slot as JSON
type FormData map[string]string

// Value implements the driver.Valuer interface for database storage
func (f FormData) Value() (driver.Value, error) {
	if f == nil {
		return nil, nil //nolint:nilnil // nil driver.Value represents SQL NULL, which is valid here
	}
	return json.Marshal(f)
}

// Scan implements the sql.Scanner interface for database retrieval
func (f *FormData) Scan(value any) error {
	if value == nil {
		*f = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("failed to unmarshal FormData value: %v", value)
	}

	result := make(FormData)
	if err := json.Unmarshal(bytes, &result); err != nil {
		return err
	}

	*f = result
	return nil
}

// Application represents one staff application submitted through the intake wizard
type Application struct {
	ID string `gorm:"primaryKey;type:varchar(36)" json:"id"`

	// Applicant identity (from the Discord session)
	ApplicantID   string `gorm:"index;not null" json:"applicant_id"`
	DiscordTag    string `gorm:"not null"       json:"discord_tag"`
	DiscordAvatar string `                      json:"discord_avatar"`

	// Verified game identity
	RobloxID       int64  `gorm:"index" json:"roblox_id"`
	RobloxUsername string `           json:"roblox_username"`

	// Answers: rendered Q/A transcript plus the raw structured form
	Content  string   `gorm:"type:text" json:"content"`
	FormData FormData `gorm:"type:text" json:"form_data,omitempty"`

	Status ApplicationStatus `gorm:"type:varchar(20);index;not null;default:'pending'" json:"status"`

	// Review outcome
	InternalNotes   string     `gorm:"type:text" json:"internal_notes,omitempty"`
	RejectionReason string     `gorm:"type:text" json:"rejection_reason,omitempty"`
	ProcessedBy     string     `           json:"processed_by,omitempty"`
	ProcessedAt     *time.Time `           json:"processed_at,omitempty"`

	// Duplicate-submit protection: one row per client-generated key
	IdempotencyKey string `gorm:"uniqueIndex;type:varchar(64)" json:"-"`

	// Optimistic lock: decisions compare-and-swap on this counter
	Version int `gorm:"not null;default:0" json:"version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CanDecide returns true while an approve/reject decision is still allowed
func (a *Application) CanDecide() bool {
	return a.Status.IsOpen()
}
