package models

import (
	"time"
)

// QuestionType controls how the wizard renders and validates an answer field
type QuestionType string

const (
	QuestionTypeText     QuestionType = "text"
	QuestionTypeTextarea QuestionType = "textarea"
	QuestionTypeSelect   QuestionType = "select"
)

// Question is one configurable entry of the intake form
type Question struct {
	ID       string       `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Step     int          `gorm:"index;not null"              json:"step"`
	Position int          `gorm:"not null"                    json:"position"`
	Prompt   string       `gorm:"type:text;not null"          json:"prompt"`
	Type     QuestionType `gorm:"type:varchar(20);not null;default:'textarea'" json:"type"`

	// Pipe-separated choices for select questions, empty otherwise
	Options string `gorm:"type:text" json:"options,omitempty"`

	Required  bool `gorm:"not null;default:true" json:"required"`
	MinLength int  `gorm:"not null;default:0"    json:"min_length"`
	Active    bool `gorm:"index;not null;default:true" json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
