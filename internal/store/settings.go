package store

import (
	"errors"
	"time"

	"github.com/vonssyb/nacionmx-postulaciones/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetSetting fetches one setting by key
func (s *Store) GetSetting(key string) (*models.Setting, error) {
	var setting models.Setting
	if err := s.db.Where("key = ?", key).First(&setting).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &setting, nil
}

// UpsertSetting creates or replaces a setting value
func (s *Store) UpsertSetting(key, value, updatedBy string) error {
	setting := models.Setting{
		Key:       key,
		Value:     value,
		UpdatedBy: updatedBy,
		UpdatedAt: time.Now(),
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_by", "updated_at"}),
	}).Create(&setting).Error
}

// ListSettings returns all settings ordered by key
func (s *Store) ListSettings() ([]models.Setting, error) {
	var settings []models.Setting
	if err := s.db.Order("key ASC").Find(&settings).Error; err != nil {
		return nil, err
	}
	return settings, nil
}
