package models

import (
	"time"
)

// GradeValue is the score assigned to a single answer
type GradeValue float64

const (
	GradeIncorrect GradeValue = 0
	GradePartial   GradeValue = 0.5
	GradeCorrect   GradeValue = 1
)

// IsValid returns true for the three recognized grade values
func (g GradeValue) IsValid() bool {
	return g == GradeIncorrect || g == GradePartial || g == GradeCorrect
}

// GradeRecord stores one reviewer grade for one answer of an application
type GradeRecord struct {
	ID            string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ApplicationID string `gorm:"not null;uniqueIndex:idx_grade_app_question,priority:1;index" json:"application_id"`
	QuestionIndex int    `gorm:"not null;uniqueIndex:idx_grade_app_question,priority:2"       json:"question_index"`

	Value     GradeValue `gorm:"not null" json:"value"`
	GradedBy  string     `gorm:"not null" json:"graded_by"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
