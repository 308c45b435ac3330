package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vonssyb/nacionmx-postulaciones/internal/core"
	"github.com/vonssyb/nacionmx-postulaciones/internal/grading"
	"github.com/vonssyb/nacionmx-postulaciones/internal/models"
	"github.com/vonssyb/nacionmx-postulaciones/internal/roblox"
	"github.com/vonssyb/nacionmx-postulaciones/internal/store"
)

var (
	// ErrActiveApplication is returned when the applicant already has an
	// open application.
	ErrActiveApplication = errors.New("an application is already in progress")

	// ErrCooldownActive is returned while the post-rejection cooldown runs
	ErrCooldownActive = errors.New("rejection cooldown has not elapsed")

	// ErrIdempotencyKeyRequired is returned when a submit carries no key
	ErrIdempotencyKeyRequired = errors.New("idempotency key is required")
)

// ValidationError lists per-question problems found in a submission
type ValidationError struct {
	Fields map[string]string // question ID -> problem
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %d answer(s)", len(e.Fields))
}

// Eligibility reports whether the applicant may start a new application
type Eligibility struct {
	CanApply            bool       `json:"can_apply"`
	Reason              string     `json:"reason,omitempty"`
	RetryAt             *time.Time `json:"retry_at,omitempty"`
	ActiveApplicationID string     `json:"active_application_id,omitempty"`
}

// IntakeService drives the applicant side: eligibility, the wizard form,
// Roblox account verification and the final submit.
type IntakeService struct {
	store        *store.Store
	roblox       *roblox.Client
	audit        *AuditService
	metrics      core.Recorder
	cooldownDays int
}

// NewIntakeService creates an intake service
func NewIntakeService(
	s *store.Store,
	robloxClient *roblox.Client,
	audit *AuditService,
	metrics core.Recorder,
	cooldownDays int,
) *IntakeService {
	return &IntakeService{
		store:        s,
		roblox:       robloxClient,
		audit:        audit,
		metrics:      metrics,
		cooldownDays: cooldownDays,
	}
}

// Eligibility checks whether the applicant may submit: no open application
// and no rejection inside the cooldown window.
func (i *IntakeService) Eligibility(ctx context.Context, applicantID string) (Eligibility, error) {
	active, err := i.store.HasActiveApplication(applicantID)
	if err != nil {
		return Eligibility{}, err
	}
	if active {
		apps, err := i.store.ListApplicationsByApplicant(applicantID, "")
		if err != nil {
			return Eligibility{}, err
		}
		var activeID string
		for _, a := range apps {
			if a.Status.IsOpen() {
				activeID = a.ID
				break
			}
		}
		return Eligibility{
			CanApply:            false,
			Reason:              "Ya tienes una solicitud en curso.",
			ActiveApplicationID: activeID,
		}, nil
	}

	last, err := i.store.LastRejection(applicantID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return Eligibility{CanApply: true}, nil
		}
		return Eligibility{}, err
	}

	if last.ProcessedAt != nil {
		retryAt := last.ProcessedAt.AddDate(0, 0, i.cooldownDays)
		if time.Now().Before(retryAt) {
			return Eligibility{
				CanApply: false,
				Reason:   fmt.Sprintf("Tu última solicitud fue rechazada. Puedes volver a postular en %d días.", i.cooldownDays),
				RetryAt:  &retryAt,
			}, nil
		}
	}

	return Eligibility{CanApply: true}, nil
}

// Questions returns the live intake form
func (i *IntakeService) Questions() ([]models.Question, error) {
	return i.store.ListActiveQuestions()
}

// validateAnswers checks the submitted answers against the active form
func validateAnswers(questions []models.Question, answers map[string]string) error {
	fields := make(map[string]string)

	for _, q := range questions {
		answer := strings.TrimSpace(answers[q.ID])

		if answer == "" {
			if q.Required {
				fields[q.ID] = "respuesta requerida"
			}
			continue
		}
		if q.MinLength > 0 && len([]rune(answer)) < q.MinLength {
			fields[q.ID] = fmt.Sprintf("mínimo %d caracteres", q.MinLength)
			continue
		}
		if q.Type == models.QuestionTypeSelect && q.Options != "" {
			valid := false
			for _, opt := range strings.Split(q.Options, "|") {
				if answer == strings.TrimSpace(opt) {
					valid = true
					break
				}
			}
			if !valid {
				fields[q.ID] = "opción no válida"
			}
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// ValidateStep validates the answers belonging to one wizard step so the
// client can gate step navigation server-side.
func (i *IntakeService) ValidateStep(step int, answers map[string]string) error {
	questions, err := i.store.ListActiveQuestions()
	if err != nil {
		return err
	}

	var stepQuestions []models.Question
	for _, q := range questions {
		if q.Step == step {
			stepQuestions = append(stepQuestions, q)
		}
	}
	return validateAnswers(stepQuestions, answers)
}

// VerifyRoblox checks the claimed game account: existence, ban state,
// minimum age, and the verification code in the profile description.
func (i *IntakeService) VerifyRoblox(
	ctx context.Context,
	applicantID, username, code string,
) (*roblox.User, error) {
	user, err := i.roblox.Verify(ctx, username, code)
	if err != nil {
		result := "error"
		switch {
		case errors.Is(err, roblox.ErrUserNotFound):
			result = "not_found"
		case errors.Is(err, roblox.ErrUserBanned):
			result = "banned"
		case errors.Is(err, roblox.ErrCodeMissing):
			result = "code_missing"
		case errors.Is(err, roblox.ErrAccountTooNew):
			result = "too_new"
		}
		i.metrics.RecordRobloxVerification(result)
		i.audit.Log(ctx, AuditEntry{
			EventType:    models.EventRobloxVerifyFailed,
			Severity:     models.SeverityInfo,
			ActorID:      applicantID,
			Success:      false,
			ErrorMessage: err.Error(),
			Details:      models.AuditDetails{"username": username, "result": result},
		})
		return nil, err
	}

	i.metrics.RecordRobloxVerification("verified")
	i.audit.Log(ctx, AuditEntry{
		EventType: models.EventRobloxVerified,
		Severity:  models.SeverityInfo,
		ActorID:   applicantID,
		Success:   true,
		Details: models.AuditDetails{
			"username":  user.Username,
			"roblox_id": user.ID,
		},
	})
	return user, nil
}

// SubmitInput is one complete wizard submission
type SubmitInput struct {
	ApplicantID    string
	DiscordTag     string
	DiscordAvatar  string
	RobloxID       int64
	RobloxUsername string
	Answers        map[string]string // question ID -> answer
	IdempotencyKey string
}

// Submit validates and stores a new application. A retried submit with the
// same idempotency key returns the originally created application instead
// of a duplicate.
func (i *IntakeService) Submit(ctx context.Context, input SubmitInput) (*models.Application, error) {
	if strings.TrimSpace(input.IdempotencyKey) == "" {
		return nil, ErrIdempotencyKeyRequired
	}

	eligibility, err := i.Eligibility(ctx, input.ApplicantID)
	if err != nil {
		return nil, err
	}
	if !eligibility.CanApply {
		// A retry of an accepted submit shows up as "active application";
		// answer with the original row when the key matches.
		if existing, err := i.store.GetApplicationByIdempotencyKey(input.IdempotencyKey); err == nil {
			return existing, nil
		}
		if eligibility.RetryAt != nil {
			return nil, ErrCooldownActive
		}
		return nil, ErrActiveApplication
	}

	questions, err := i.store.ListActiveQuestions()
	if err != nil {
		return nil, err
	}
	if err := validateAnswers(questions, input.Answers); err != nil {
		i.metrics.RecordApplicationSubmitted(false)
		return nil, err
	}

	// Render the transcript in form order
	pairs := make([]grading.QA, 0, len(questions))
	formData := make(models.FormData, len(questions))
	for _, q := range questions {
		answer := strings.TrimSpace(input.Answers[q.ID])
		pairs = append(pairs, grading.QA{Question: q.Prompt, Answer: answer})
		formData[q.ID] = answer
	}

	app := &models.Application{
		ApplicantID:    input.ApplicantID,
		DiscordTag:     input.DiscordTag,
		DiscordAvatar:  input.DiscordAvatar,
		RobloxID:       input.RobloxID,
		RobloxUsername: input.RobloxUsername,
		Content:        grading.RenderQA(pairs),
		FormData:       formData,
		IdempotencyKey: input.IdempotencyKey,
	}

	if err := i.store.CreateApplication(app); err != nil {
		if errors.Is(err, store.ErrDuplicateSubmission) {
			// Two racing submits with the same key: hand back the winner
			if existing, getErr := i.store.GetApplicationByIdempotencyKey(input.IdempotencyKey); getErr == nil {
				return existing, nil
			}
		}
		i.metrics.RecordApplicationSubmitted(false)
		i.audit.Log(ctx, AuditEntry{
			EventType:    models.EventSubmissionRejected,
			Severity:     models.SeverityError,
			ActorID:      input.ApplicantID,
			Success:      false,
			ErrorMessage: err.Error(),
		})
		return nil, err
	}

	i.metrics.RecordApplicationSubmitted(true)
	i.audit.Log(ctx, AuditEntry{
		EventType:     models.EventApplicationSubmitted,
		Severity:      models.SeverityInfo,
		ActorID:       input.ApplicantID,
		ApplicationID: app.ID,
		Success:       true,
		Details: models.AuditDetails{
			"roblox_username": input.RobloxUsername,
			"answers":         len(input.Answers),
		},
	})

	return app, nil
}

// MyApplications returns the applicant's own submission history
func (i *IntakeService) MyApplications(applicantID string) ([]models.Application, error) {
	return i.store.ListApplicationsByApplicant(applicantID, "")
}
