package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/vonssyb/nacionmx-postulaciones/internal/models"
	"github.com/vonssyb/nacionmx-postulaciones/internal/store"
	"github.com/vonssyb/nacionmx-postulaciones/internal/util"

	"github.com/google/uuid"
)

// Batch writes are capped at this many records and flushed at least once
// per flushInterval.
const (
	batchLimit    = 100
	flushInterval = time.Second
)

// AuditEntry represents the data needed to create an audit record
type AuditEntry struct {
	EventType     models.EventType
	Severity      models.EventSeverity
	ActorID       string
	ActorName     string
	ActorIP       string
	ApplicationID string
	Details       models.AuditDetails
	Success       bool
	ErrorMessage  string
	UserAgent     string
}

// AuditService records review and sign-in events without blocking the
// request path: Log hands the record to a worker goroutine that batches
// inserts. When disabled every call is a no-op.
type AuditService struct {
	store   *store.Store
	enabled bool

	logChan    chan *models.ReviewAudit
	shutdownCh chan struct{}
	wg         sync.WaitGroup
}

// NewAuditService creates a new audit service
func NewAuditService(s *store.Store, enabled bool, bufferSize int) *AuditService {
	if bufferSize <= 0 {
		bufferSize = 1000
	}

	service := &AuditService{
		store:      s,
		enabled:    enabled,
		logChan:    make(chan *models.ReviewAudit, bufferSize),
		shutdownCh: make(chan struct{}),
	}

	if enabled {
		service.wg.Add(1)
		go service.worker()
		log.Printf("[Audit] service started with buffer size %d", bufferSize)
	} else {
		log.Println("[Audit] service is disabled")
	}

	return service
}

// worker owns the pending batch: records accumulate until the batch is full
// or the flush tick fires, whichever comes first. Shutdown flushes whatever
// is left.
func (s *AuditService) worker() {
	defer s.wg.Done()

	pending := make([]*models.ReviewAudit, 0, batchLimit)
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(pending) == 0 {
			return
		}
		if err := s.store.CreateAuditRecordBatch(pending); err != nil {
			log.Printf("[Audit] failed to write batch: %v", err)
		}
		pending = pending[:0]
	}

	for {
		select {
		case record := <-s.logChan:
			pending = append(pending, record)
			if len(pending) >= batchLimit {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-s.shutdownCh:
			// Drain whatever Log managed to enqueue before the signal.
			for {
				select {
				case record := <-s.logChan:
					pending = append(pending, record)
				default:
					flush()
					return
				}
			}
		}
	}
}

// buildRecord converts an entry into a storable record, filling actor
// identity from the request context and masking sensitive details.
func buildRecord(ctx context.Context, entry AuditEntry) *models.ReviewAudit {
	if entry.ActorIP == "" {
		entry.ActorIP = util.GetIPFromContext(ctx)
	}
	if entry.ActorName == "" {
		entry.ActorName = util.GetUsernameFromContext(ctx)
	}
	if entry.ActorID == "" {
		entry.ActorID = util.GetUserIDFromContext(ctx)
	}

	return &models.ReviewAudit{
		ID:            uuid.New().String(),
		EventType:     entry.EventType,
		EventTime:     time.Now(),
		Severity:      entry.Severity,
		ActorID:       entry.ActorID,
		ActorName:     entry.ActorName,
		ApplicationID: entry.ApplicationID,
		IPAddress:     entry.ActorIP,
		UserAgent:     entry.UserAgent,
		Success:       entry.Success,
		ErrorMessage:  entry.ErrorMessage,
		Details:       maskSensitiveDetails(entry.Details),
		CreatedAt:     time.Now(),
	}
}

// Log records an audit entry asynchronously. A full buffer drops the event
// rather than stall the request.
func (s *AuditService) Log(ctx context.Context, entry AuditEntry) {
	if !s.enabled {
		return
	}

	select {
	case s.logChan <- buildRecord(ctx, entry):
	default:
		log.Printf("WARNING: audit buffer full, dropping event: %s", entry.EventType)
	}
}

// LogSync records an audit entry synchronously (for critical events)
func (s *AuditService) LogSync(ctx context.Context, entry AuditEntry) error {
	if !s.enabled {
		return nil
	}
	return s.store.CreateAuditRecord(buildRecord(ctx, entry))
}

// GetAuditRecords retrieves audit records with pagination and filtering
func (s *AuditService) GetAuditRecords(
	params store.PaginationParams,
	filters store.AuditFilters,
) ([]models.ReviewAudit, store.PaginationResult, error) {
	return s.store.ListAuditRecords(filters, params)
}

// CleanupOldRecords deletes audit records older than the retention period
func (s *AuditService) CleanupOldRecords(retention time.Duration) (int64, error) {
	cutoffTime := time.Now().Add(-retention)
	return s.store.DeleteAuditRecordsBefore(cutoffTime)
}

// Shutdown stops the worker and waits for the final flush, bounded by ctx.
func (s *AuditService) Shutdown(ctx context.Context) error {
	if !s.enabled {
		return nil
	}

	close(s.shutdownCh)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("[Audit] service shut down gracefully")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("audit service shutdown timeout: %w", ctx.Err())
	}
}

// Fields matching these substrings never reach the audit table in the
// clear. Verification codes and idempotency keys keep head and tail so a
// record can still be correlated.
var (
	redactedFields = []string{
		"password", "client_secret", "token",
		"access_token", "refresh_token", "secret", "session",
	}
	truncatedFields = []string{"verification_code", "idempotency_key"}
)

func maskSensitiveDetails(details models.AuditDetails) models.AuditDetails {
	if details == nil {
		return details
	}

	masked := make(models.AuditDetails, len(details))
	for key, value := range details {
		lower := strings.ToLower(key)
		switch {
		case matchesAny(lower, redactedFields):
			masked[key] = "***REDACTED***"
		case matchesAny(lower, truncatedFields):
			if str, ok := value.(string); ok && len(str) > 12 {
				masked[key] = str[:8] + "..." + str[len(str)-4:]
			} else {
				masked[key] = value
			}
		default:
			masked[key] = value
		}
	}
	return masked
}

func matchesAny(key string, substrings []string) bool {
	for _, s := range substrings {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}
