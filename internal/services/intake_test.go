package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vonssyb/nacionmx-postulaciones/internal/models"
	"github.com/vonssyb/nacionmx-postulaciones/internal/roblox"
	"github.com/vonssyb/nacionmx-postulaciones/internal/store"
)

func newTestIntake(t *testing.T, s *store.Store, robloxClient *roblox.Client) *IntakeService {
	t.Helper()
	return NewIntakeService(s, robloxClient, newTestAudit(t, s), newNoopRecorder(), 30)
}

func TestEligibilityFreshApplicant(t *testing.T) {
	s := newTestStore(t)
	intake := newTestIntake(t, s, nil)

	elig, err := intake.Eligibility(context.Background(), "fresh-user")
	require.NoError(t, err)
	assert.True(t, elig.CanApply)
	assert.Empty(t, elig.Reason)
	assert.Nil(t, elig.RetryAt)
}

func TestEligibilityActiveApplication(t *testing.T) {
	s := newTestStore(t)
	intake := newTestIntake(t, s, nil)

	app := submitTestApplication(t, s, intake, "busy-user", "key-active-1")

	elig, err := intake.Eligibility(context.Background(), "busy-user")
	require.NoError(t, err)
	assert.False(t, elig.CanApply)
	assert.Equal(t, app.ID, elig.ActiveApplicationID)
	assert.Contains(t, elig.Reason, "en curso")
}

func TestEligibilityCooldown(t *testing.T) {
	s := newTestStore(t)
	intake := newTestIntake(t, s, nil)

	app := submitTestApplication(t, s, intake, "rejected-user", "key-cooldown-1")
	require.NoError(t, s.ClaimApplication(app.ID))
	require.NoError(t, s.DecideApplication(app.ID, 1, store.Decision{
		Status:          models.StatusRejected,
		RejectionReason: "Respuestas insuficientes",
		ProcessedBy:     "Reviewer",
	}))

	elig, err := intake.Eligibility(context.Background(), "rejected-user")
	require.NoError(t, err)
	assert.False(t, elig.CanApply)
	require.NotNil(t, elig.RetryAt)
	assert.True(t, elig.RetryAt.After(time.Now()))

	// Age the rejection past the cooldown window
	old := time.Now().AddDate(0, 0, -45)
	require.NoError(t, s.DB().Model(&models.Application{}).
		Where("id = ?", app.ID).
		Update("processed_at", &old).Error)

	elig, err = intake.Eligibility(context.Background(), "rejected-user")
	require.NoError(t, err)
	assert.True(t, elig.CanApply)
}

func TestSubmitIdempotency(t *testing.T) {
	s := newTestStore(t)
	intake := newTestIntake(t, s, nil)

	first := submitTestApplication(t, s, intake, "retry-user", "key-retry-1")

	// The retry hits the active-application guard but carries the same key,
	// so it resolves to the original row.
	second, err := intake.Submit(context.Background(), SubmitInput{
		ApplicantID:    "retry-user",
		DiscordTag:     "tester#0001",
		RobloxID:       123456,
		RobloxUsername: "TestUser",
		Answers:        validAnswers(t, s),
		IdempotencyKey: "key-retry-1",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestSubmitRequiresIdempotencyKey(t *testing.T) {
	s := newTestStore(t)
	intake := newTestIntake(t, s, nil)

	_, err := intake.Submit(context.Background(), SubmitInput{
		ApplicantID: "no-key-user",
		Answers:     validAnswers(t, s),
	})
	assert.ErrorIs(t, err, ErrIdempotencyKeyRequired)
}

func TestSubmitBlockedWhileActive(t *testing.T) {
	s := newTestStore(t)
	intake := newTestIntake(t, s, nil)

	submitTestApplication(t, s, intake, "double-user", "key-double-1")

	_, err := intake.Submit(context.Background(), SubmitInput{
		ApplicantID:    "double-user",
		Answers:        validAnswers(t, s),
		IdempotencyKey: "key-double-2",
	})
	assert.ErrorIs(t, err, ErrActiveApplication)
}

func TestSubmitValidation(t *testing.T) {
	s := newTestStore(t)
	intake := newTestIntake(t, s, nil)

	questions, err := s.ListActiveQuestions()
	require.NoError(t, err)

	t.Run("MissingRequiredAnswer", func(t *testing.T) {
		answers := validAnswers(t, s)
		delete(answers, questions[0].ID)

		_, err := intake.Submit(context.Background(), SubmitInput{
			ApplicantID:    "invalid-user",
			Answers:        answers,
			IdempotencyKey: "key-invalid-1",
		})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, questions[0].ID)
		assert.Equal(t, "respuesta requerida", verr.Fields[questions[0].ID])
	})

	t.Run("AnswerTooShort", func(t *testing.T) {
		answers := validAnswers(t, s)
		answers[questions[0].ID] = "corta"

		_, err := intake.Submit(context.Background(), SubmitInput{
			ApplicantID:    "invalid-user",
			Answers:        answers,
			IdempotencyKey: "key-invalid-2",
		})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, questions[0].ID)
	})
}

func TestSubmitRendersTranscript(t *testing.T) {
	s := newTestStore(t)
	intake := newTestIntake(t, s, nil)

	app := submitTestApplication(t, s, intake, "transcript-user", "key-transcript-1")
	assert.Contains(t, app.Content, "Q1: ")
	assert.Contains(t, app.Content, "\nR: ")
	assert.NotEmpty(t, app.FormData)
	assert.Equal(t, models.StatusPending, app.Status)
}

func TestValidateStep(t *testing.T) {
	s := newTestStore(t)
	intake := newTestIntake(t, s, nil)

	questions, err := s.ListActiveQuestions()
	require.NoError(t, err)

	answers := validAnswers(t, s)

	// Step 2 answers only; step 3 questions must not be considered
	step2 := make(map[string]string)
	for _, q := range questions {
		if q.Step == 2 {
			step2[q.ID] = answers[q.ID]
		}
	}
	assert.NoError(t, intake.ValidateStep(2, step2))

	var verr *ValidationError
	err = intake.ValidateStep(3, step2)
	require.ErrorAs(t, err, &verr)
	assert.NotEmpty(t, verr.Fields)
}

func TestSelectQuestionValidation(t *testing.T) {
	s := newTestStore(t)
	intake := newTestIntake(t, s, nil)

	q := &models.Question{
		Step:     2,
		Position: 99,
		Prompt:   "¿Turno preferido?",
		Type:     models.QuestionTypeSelect,
		Options:  "Mañana|Tarde|Noche",
		Required: true,
		Active:   true,
	}
	require.NoError(t, s.CreateQuestion(q))

	answers := validAnswers(t, s)
	answers[q.ID] = "Madrugada"

	_, err := intake.Submit(context.Background(), SubmitInput{
		ApplicantID:    "select-user",
		Answers:        answers,
		IdempotencyKey: "key-select-1",
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "opción no válida", verr.Fields[q.ID])

	answers[q.ID] = "Tarde"
	_, err = intake.Submit(context.Background(), SubmitInput{
		ApplicantID:    "select-user",
		Answers:        answers,
		IdempotencyKey: "key-select-2",
	})
	assert.NoError(t, err)
}

// verificationServer fakes the Roblox users API for intake verification
func verificationServer(t *testing.T, description string, created time.Time) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/usernames/users", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"id": 987654, "name": "TestUser", "displayName": "TestUser"},
			},
		})
	})
	mux.HandleFunc("/v1/users/987654", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":          987654,
			"name":        "TestUser",
			"displayName": "TestUser",
			"description": description,
			"created":     created.Format(time.RFC3339),
			"isBanned":    false,
		})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestVerifyRoblox(t *testing.T) {
	s := newTestStore(t)
	server := verificationServer(t, "Mi perfil. Código: NACION-XYZ789", time.Now().AddDate(-2, 0, 0))
	robloxClient := roblox.NewClient(server.URL, newTestRetryClient(t), 30)
	intake := newTestIntake(t, s, robloxClient)

	user, err := intake.VerifyRoblox(context.Background(), "verify-user", "TestUser", "NACION-XYZ789")
	require.NoError(t, err)
	assert.Equal(t, int64(987654), user.ID)
	assert.Equal(t, "TestUser", user.Username)
}

func TestVerifyRobloxCodeMissing(t *testing.T) {
	s := newTestStore(t)
	server := verificationServer(t, "Perfil sin código", time.Now().AddDate(-2, 0, 0))
	robloxClient := roblox.NewClient(server.URL, newTestRetryClient(t), 30)
	intake := newTestIntake(t, s, robloxClient)

	_, err := intake.VerifyRoblox(context.Background(), "verify-user", "TestUser", "NACION-XYZ789")
	assert.ErrorIs(t, err, roblox.ErrCodeMissing)
}

func TestMyApplications(t *testing.T) {
	s := newTestStore(t)
	intake := newTestIntake(t, s, nil)

	submitTestApplication(t, s, intake, "history-user", "key-history-1")

	apps, err := intake.MyApplications("history-user")
	require.NoError(t, err)
	assert.Len(t, apps, 1)
}
