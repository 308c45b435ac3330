package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/vonssyb/nacionmx-postulaciones/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateApplication inserts a new submission. A reused idempotency key maps
// onto the unique index and comes back as ErrDuplicateSubmission.
func (s *Store) CreateApplication(app *models.Application) error {
	if app.ID == "" {
		app.ID = uuid.New().String()
	}
	if app.Status == "" {
		app.Status = models.StatusPending
	}
	if err := s.db.Create(app).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateSubmission
		}
		return fmt.Errorf("failed to create application: %w", err)
	}
	return nil
}

// GetApplication fetches one application by ID
func (s *Store) GetApplication(id string) (*models.Application, error) {
	var app models.Application
	if err := s.db.Where("id = ?", id).First(&app).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &app, nil
}

// GetApplicationByIdempotencyKey returns the application a retried submit
// already created, so the handler can answer with the original row.
func (s *Store) GetApplicationByIdempotencyKey(key string) (*models.Application, error) {
	var app models.Application
	if err := s.db.Where("idempotency_key = ?", key).First(&app).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &app, nil
}

// ApplicationFilters narrows ListApplications results
type ApplicationFilters struct {
	Status      models.ApplicationStatus
	ApplicantID string
}

// ListApplications returns a page of applications, newest first. Search
// matches the Discord tag and Roblox username.
func (s *Store) ListApplications(
	filters ApplicationFilters,
	params PaginationParams,
) ([]models.Application, PaginationResult, error) {
	query := s.db.Model(&models.Application{})

	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	if filters.ApplicantID != "" {
		query = query.Where("applicant_id = ?", filters.ApplicantID)
	}
	if params.Search != "" {
		pattern := "%" + params.Search + "%"
		query = query.Where("discord_tag LIKE ? OR roblox_username LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, PaginationResult{}, err
	}

	pagination := CalculatePagination(total, params.Page, params.PageSize)

	var apps []models.Application
	err := query.
		Order("created_at DESC").
		Offset((pagination.CurrentPage - 1) * pagination.PageSize).
		Limit(pagination.PageSize).
		Find(&apps).Error
	if err != nil {
		return nil, PaginationResult{}, err
	}

	return apps, pagination, nil
}

// ListApplicationsByApplicant returns the applicant's own history, newest
// first, optionally excluding one application (the one being viewed).
func (s *Store) ListApplicationsByApplicant(
	applicantID, excludeID string,
) ([]models.Application, error) {
	query := s.db.Where("applicant_id = ?", applicantID)
	if excludeID != "" {
		query = query.Where("id != ?", excludeID)
	}

	var apps []models.Application
	if err := query.Order("created_at DESC").Find(&apps).Error; err != nil {
		return nil, err
	}
	return apps, nil
}

// HasActiveApplication reports whether the applicant already has an open
// (pending or under review) application.
func (s *Store) HasActiveApplication(applicantID string) (bool, error) {
	var count int64
	err := s.db.Model(&models.Application{}).
		Where("applicant_id = ? AND status IN ?",
			applicantID,
			[]models.ApplicationStatus{models.StatusPending, models.StatusUnderReview}).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// LastRejection returns the applicant's most recent rejected application,
// or ErrRecordNotFound if they were never rejected.
func (s *Store) LastRejection(applicantID string) (*models.Application, error) {
	var app models.Application
	err := s.db.Where("applicant_id = ? AND status = ?", applicantID, models.StatusRejected).
		Order("processed_at DESC").
		First(&app).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &app, nil
}

// ClaimApplication moves a pending application to under_review. Claiming an
// already-claimed row is a no-op so two reviewers can open the same item.
func (s *Store) ClaimApplication(id string) error {
	result := s.db.Model(&models.Application{}).
		Where("id = ? AND status = ?", id, models.StatusPending).
		Updates(map[string]any{
			"status":  models.StatusUnderReview,
			"version": gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	return nil
}

// Decision carries the final outcome written by DecideApplication
type Decision struct {
	Status          models.ApplicationStatus
	RejectionReason string
	InternalNotes   string
	ProcessedBy     string
}

// DecideApplication finalizes an application with a single guarded UPDATE.
// The row must still be open and carry the version the reviewer loaded;
// otherwise a concurrent decision won the race and ErrAlreadyProcessed is
// returned.
func (s *Store) DecideApplication(id string, version int, decision Decision) error {
	now := time.Now()
	result := s.db.Model(&models.Application{}).
		Where("id = ? AND status IN ? AND version = ?",
			id,
			[]models.ApplicationStatus{models.StatusPending, models.StatusUnderReview},
			version).
		Updates(map[string]any{
			"status":           decision.Status,
			"rejection_reason": decision.RejectionReason,
			"internal_notes":   decision.InternalNotes,
			"processed_by":     decision.ProcessedBy,
			"processed_at":     now,
			"version":          gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// Distinguish a lost race from a bogus ID
		var count int64
		if err := s.db.Model(&models.Application{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrRecordNotFound
		}
		return ErrAlreadyProcessed
	}
	return nil
}

// UpdateInternalNotes replaces the reviewer notes on an application
func (s *Store) UpdateInternalNotes(id, notes string) error {
	result := s.db.Model(&models.Application{}).
		Where("id = ?", id).
		Update("internal_notes", notes)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// SaveGrade upserts one reviewer grade for one answer. Toggling the same
// value off is handled by the caller deleting the record.
func (s *Store) SaveGrade(grade *models.GradeRecord) error {
	var existing models.GradeRecord
	err := s.db.Where("application_id = ? AND question_index = ?",
		grade.ApplicationID, grade.QuestionIndex).
		First(&existing).Error

	if err == nil {
		return s.db.Model(&existing).
			Updates(map[string]any{"value": grade.Value, "graded_by": grade.GradedBy}).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if grade.ID == "" {
		grade.ID = uuid.New().String()
	}
	return s.db.Create(grade).Error
}

// DeleteGrade removes a grade (the reviewer toggled it back to ungraded)
func (s *Store) DeleteGrade(applicationID string, questionIndex int) error {
	return s.db.Where("application_id = ? AND question_index = ?",
		applicationID, questionIndex).
		Delete(&models.GradeRecord{}).Error
}

// ListGrades returns all grades recorded for an application, in answer order
func (s *Store) ListGrades(applicationID string) ([]models.GradeRecord, error) {
	var grades []models.GradeRecord
	err := s.db.Where("application_id = ?", applicationID).
		Order("question_index ASC").
		Find(&grades).Error
	if err != nil {
		return nil, err
	}
	return grades, nil
}

// CountByStatus returns application totals per status for the dashboard
func (s *Store) CountByStatus() (map[models.ApplicationStatus]int64, error) {
	type row struct {
		Status models.ApplicationStatus
		Count  int64
	}
	var rows []row
	err := s.db.Model(&models.Application{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[models.ApplicationStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

// CountApplicationsByStatus is the string-keyed view of CountByStatus used
// by the metrics gauge refresher. Statuses with no rows report zero so a
// drained queue moves the gauge back down.
func (s *Store) CountApplicationsByStatus() (map[string]int64, error) {
	byStatus, err := s.CountByStatus()
	if err != nil {
		return nil, err
	}

	counts := map[string]int64{
		string(models.StatusPending):     0,
		string(models.StatusUnderReview): 0,
		string(models.StatusApproved):    0,
		string(models.StatusRejected):    0,
	}
	for status, count := range byStatus {
		counts[string(status)] = count
	}
	return counts, nil
}
