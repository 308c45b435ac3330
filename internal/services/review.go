package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/vonssyb/nacionmx-postulaciones/internal/core"
	"github.com/vonssyb/nacionmx-postulaciones/internal/grading"
	"github.com/vonssyb/nacionmx-postulaciones/internal/models"
	"github.com/vonssyb/nacionmx-postulaciones/internal/notify"
	"github.com/vonssyb/nacionmx-postulaciones/internal/store"
)

var (
	// ErrReasonRequired is returned when a rejection is missing its reason
	ErrReasonRequired = errors.New("rejection reason is required")

	// ErrInvalidGrade is returned for grade values outside {0, 0.5, 1}
	ErrInvalidGrade = errors.New("invalid grade value")
)

// ReviewService drives the staff review workflow: claiming, grading,
// deciding, and fanning out the decision side effects.
type ReviewService struct {
	store      *store.Store
	notifier   *notify.Notifier
	automation *notify.Automation
	audit      *AuditService
	metrics    core.Recorder
}

// NewReviewService creates a review service
func NewReviewService(
	s *store.Store,
	notifier *notify.Notifier,
	automation *notify.Automation,
	audit *AuditService,
	metrics core.Recorder,
) *ReviewService {
	return &ReviewService{
		store:      s,
		notifier:   notifier,
		automation: automation,
		audit:      audit,
		metrics:    metrics,
	}
}

// ApplicationDetail bundles everything the review screen shows
type ApplicationDetail struct {
	Application *models.Application  `json:"application"`
	Answers     []grading.QA         `json:"answers"`
	Grades      []models.GradeRecord `json:"grades"`
	Score       grading.Score        `json:"score"`
	History     []models.Application `json:"history"`
}

// Get loads one application with its parsed answers, grades and the
// applicant's prior applications.
func (r *ReviewService) Get(ctx context.Context, id string) (*ApplicationDetail, error) {
	app, err := r.store.GetApplication(id)
	if err != nil {
		return nil, err
	}

	grades, err := r.store.ListGrades(id)
	if err != nil {
		return nil, err
	}

	history, err := r.store.ListApplicationsByApplicant(app.ApplicantID, app.ID)
	if err != nil {
		return nil, err
	}

	return &ApplicationDetail{
		Application: app,
		Answers:     grading.ParseQA(app.Content),
		Grades:      grades,
		Score:       grading.NewSheet(grades).Score(),
		History:     history,
	}, nil
}

// List returns a page of applications for the review queue
func (r *ReviewService) List(
	filters store.ApplicationFilters,
	params store.PaginationParams,
) ([]models.Application, store.PaginationResult, error) {
	return r.store.ListApplications(filters, params)
}

// Claim moves a pending application to under review. Claiming an already
// claimed application is a no-op.
func (r *ReviewService) Claim(ctx context.Context, id, reviewerName string) error {
	if err := r.store.ClaimApplication(id); err != nil {
		return err
	}
	r.audit.Log(ctx, AuditEntry{
		EventType:     models.EventApplicationClaimed,
		Severity:      models.SeverityInfo,
		ActorName:     reviewerName,
		ApplicationID: id,
		Success:       true,
	})
	return nil
}

// Grade toggles a reviewer grade for one answer. Applying the grade an
// answer already carries clears it.
func (r *ReviewService) Grade(
	ctx context.Context,
	applicationID string,
	questionIndex int,
	value models.GradeValue,
	reviewerName string,
) (grading.Score, error) {
	if !value.IsValid() {
		return grading.Score{}, ErrInvalidGrade
	}

	records, err := r.store.ListGrades(applicationID)
	if err != nil {
		return grading.Score{}, err
	}

	sheet := grading.NewSheet(records)
	_, graded := sheet.Toggle(questionIndex, value)

	if graded {
		err = r.store.SaveGrade(&models.GradeRecord{
			ApplicationID: applicationID,
			QuestionIndex: questionIndex,
			Value:         value,
			GradedBy:      reviewerName,
		})
	} else {
		err = r.store.DeleteGrade(applicationID, questionIndex)
	}
	if err != nil {
		return grading.Score{}, err
	}

	r.metrics.RecordAnswerGraded()
	r.audit.Log(ctx, AuditEntry{
		EventType:     models.EventAnswerGraded,
		Severity:      models.SeverityInfo,
		ActorName:     reviewerName,
		ApplicationID: applicationID,
		Success:       true,
		Details: models.AuditDetails{
			"question_index": questionIndex,
			"value":          float64(value),
			"graded":         graded,
		},
	})

	return sheet.Score(), nil
}

// UpdateNotes replaces the internal reviewer notes on an application
func (r *ReviewService) UpdateNotes(ctx context.Context, id, notes, reviewerName string) error {
	if err := r.store.UpdateInternalNotes(id, notes); err != nil {
		return err
	}
	r.audit.Log(ctx, AuditEntry{
		EventType:     models.EventNotesUpdated,
		Severity:      models.SeverityInfo,
		ActorName:     reviewerName,
		ApplicationID: id,
		Success:       true,
	})
	return nil
}

// DecideInput is one approve/reject request
type DecideInput struct {
	ApplicationID string
	Version       int // version the reviewer loaded, for the optimistic lock
	Approve       bool
	Reason        string // required when rejecting
	Notes         string
	ReviewerName  string
}

// DecideResult reports the outcome, including non-fatal side-effect failures
type DecideResult struct {
	Application *models.Application `json:"application"`
	Warnings    []string            `json:"warnings,omitempty"`
}

// Decide finalizes an application. The database decision is atomic; the
// webhook side effects are best-effort and surface as warnings so a flaky
// webhook never rolls back a recorded decision.
func (r *ReviewService) Decide(ctx context.Context, input DecideInput) (*DecideResult, error) {
	start := time.Now()

	if !input.Approve && strings.TrimSpace(input.Reason) == "" {
		return nil, ErrReasonRequired
	}

	reviewer := strings.TrimSpace(input.ReviewerName)
	if reviewer == "" {
		reviewer = "Staff"
	}

	status := models.StatusRejected
	if input.Approve {
		status = models.StatusApproved
	}

	// Grades feed the score annotation on the decision notes
	records, err := r.store.ListGrades(input.ApplicationID)
	if err != nil {
		return nil, err
	}
	score := grading.NewSheet(records).Score()

	notes := strings.TrimSpace(input.Notes)
	if summary := score.Summary(); summary != "" {
		if notes != "" {
			notes = summary + " " + notes
		} else {
			notes = summary
		}
	}

	err = r.store.DecideApplication(input.ApplicationID, input.Version, store.Decision{
		Status:          status,
		RejectionReason: strings.TrimSpace(input.Reason),
		InternalNotes:   notes,
		ProcessedBy:     reviewer,
	})
	if err != nil {
		return nil, err
	}

	app, err := r.store.GetApplication(input.ApplicationID)
	if err != nil {
		return nil, err
	}

	result := &DecideResult{Application: app}

	// Side effects are strictly after the decision is durable
	if input.Approve {
		if err := r.triggerAutomation(ctx, app, reviewer); err != nil {
			log.Printf("[Review] automation failed for %s: %v", app.ID, err)
			result.Warnings = append(result.Warnings,
				"La automatización de roles falló; asignen los roles manualmente.")
			if fbErr := r.notifier.SendManualFallback(ctx, app.DiscordTag, app.ApplicantID); fbErr != nil {
				log.Printf("[Review] manual fallback notice failed for %s: %v", app.ID, fbErr)
			}
		}
	}

	notice := notify.DecisionNotice{
		ApplicantTag:    app.DiscordTag,
		ApplicantID:     app.ApplicantID,
		RobloxUsername:  app.RobloxUsername,
		Approved:        input.Approve,
		RejectionReason: app.RejectionReason,
		ReviewerName:    reviewer,
		ScoreSummary:    score.Summary(),
	}
	if err := r.notifier.SendDecision(ctx, notice); err != nil {
		log.Printf("[Review] decision notice failed for %s: %v", app.ID, err)
		result.Warnings = append(result.Warnings,
			"No se pudo publicar el anuncio de la decisión.")
	}

	eventType := models.EventApplicationRejected
	if input.Approve {
		eventType = models.EventApplicationApproved
	}
	r.audit.Log(ctx, AuditEntry{
		EventType:     eventType,
		Severity:      models.SeverityWarning,
		ActorName:     reviewer,
		ApplicationID: app.ID,
		Success:       true,
		Details: models.AuditDetails{
			"applicant_id": app.ApplicantID,
			"score":        score.Percent,
			"warnings":     len(result.Warnings),
		},
	})
	r.metrics.RecordDecision(string(status), time.Since(start))

	return result, nil
}

func (r *ReviewService) triggerAutomation(
	ctx context.Context,
	app *models.Application,
	reviewer string,
) error {
	return r.automation.TriggerApproval(
		ctx,
		app.ID,
		app.ApplicantID,
		app.DiscordTag,
		app.RobloxID,
		app.RobloxUsername,
		reviewer,
	)
}

// Stats returns application counts per status for the dashboard
func (r *ReviewService) Stats() (map[models.ApplicationStatus]int64, error) {
	return r.store.CountByStatus()
}
