package store

import (
	"time"

	"github.com/vonssyb/nacionmx-postulaciones/internal/models"
)

// AuditFilters contains filter criteria for querying audit records
type AuditFilters struct {
	EventType     models.EventType     `json:"event_type,omitempty"`
	ActorID       string               `json:"actor_id,omitempty"`
	ApplicationID string               `json:"application_id,omitempty"`
	Severity      models.EventSeverity `json:"severity,omitempty"`
	Success       *bool                `json:"success,omitempty"`
	StartTime     time.Time            `json:"start_time,omitzero"`
	EndTime       time.Time            `json:"end_time,omitzero"`
}

// CreateAuditRecord writes a single audit record
func (s *Store) CreateAuditRecord(record *models.ReviewAudit) error {
	return s.db.Create(record).Error
}

// CreateAuditRecordBatch writes a buffered batch of audit records at once
func (s *Store) CreateAuditRecordBatch(records []*models.ReviewAudit) error {
	if len(records) == 0 {
		return nil
	}
	return s.db.Create(records).Error
}

// ListAuditRecords returns a filtered page of audit records, newest first
func (s *Store) ListAuditRecords(
	filters AuditFilters,
	params PaginationParams,
) ([]models.ReviewAudit, PaginationResult, error) {
	query := s.db.Model(&models.ReviewAudit{})

	if filters.EventType != "" {
		query = query.Where("event_type = ?", filters.EventType)
	}
	if filters.ActorID != "" {
		query = query.Where("actor_id = ?", filters.ActorID)
	}
	if filters.ApplicationID != "" {
		query = query.Where("application_id = ?", filters.ApplicationID)
	}
	if filters.Severity != "" {
		query = query.Where("severity = ?", filters.Severity)
	}
	if filters.Success != nil {
		query = query.Where("success = ?", *filters.Success)
	}
	if !filters.StartTime.IsZero() {
		query = query.Where("event_time >= ?", filters.StartTime)
	}
	if !filters.EndTime.IsZero() {
		query = query.Where("event_time <= ?", filters.EndTime)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, PaginationResult{}, err
	}

	pagination := CalculatePagination(total, params.Page, params.PageSize)

	var records []models.ReviewAudit
	err := query.
		Order("event_time DESC").
		Offset((pagination.CurrentPage - 1) * pagination.PageSize).
		Limit(pagination.PageSize).
		Find(&records).Error
	if err != nil {
		return nil, PaginationResult{}, err
	}

	return records, pagination, nil
}

// DeleteAuditRecordsBefore purges records older than the cutoff, returning
// the number deleted.
func (s *Store) DeleteAuditRecordsBefore(cutoff time.Time) (int64, error) {
	result := s.db.Where("event_time < ?", cutoff).Delete(&models.ReviewAudit{})
	return result.RowsAffected, result.Error
}

// Health checks the database connection
func (s *Store) Health() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
