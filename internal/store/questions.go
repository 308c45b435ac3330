package store

import (
	"errors"

	"github.com/vonssyb/nacionmx-postulaciones/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListActiveQuestions returns the live intake form in wizard order
func (s *Store) ListActiveQuestions() ([]models.Question, error) {
	var questions []models.Question
	err := s.db.Where("active = ?", true).
		Order("step ASC, position ASC").
		Find(&questions).Error
	if err != nil {
		return nil, err
	}
	return questions, nil
}

// ListQuestions returns every question, inactive included, for the admin UI
func (s *Store) ListQuestions() ([]models.Question, error) {
	var questions []models.Question
	err := s.db.Order("step ASC, position ASC").Find(&questions).Error
	if err != nil {
		return nil, err
	}
	return questions, nil
}

// CreateQuestion adds a question to the intake form
func (s *Store) CreateQuestion(q *models.Question) error {
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	return s.db.Create(q).Error
}

// UpdateQuestion replaces an existing question's editable fields
func (s *Store) UpdateQuestion(q *models.Question) error {
	result := s.db.Model(&models.Question{}).
		Where("id = ?", q.ID).
		Updates(map[string]any{
			"step":       q.Step,
			"position":   q.Position,
			"prompt":     q.Prompt,
			"type":       q.Type,
			"options":    q.Options,
			"required":   q.Required,
			"min_length": q.MinLength,
			"active":     q.Active,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// DeactivateQuestion retires a question without losing submitted answers
func (s *Store) DeactivateQuestion(id string) error {
	result := s.db.Model(&models.Question{}).
		Where("id = ?", id).
		Update("active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// GetQuestion fetches one question by ID
func (s *Store) GetQuestion(id string) (*models.Question, error) {
	var q models.Question
	if err := s.db.Where("id = ?", id).First(&q).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &q, nil
}
