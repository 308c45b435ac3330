package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vonssyb/nacionmx-postulaciones/internal/client"
	"github.com/vonssyb/nacionmx-postulaciones/internal/metrics"
	"github.com/vonssyb/nacionmx-postulaciones/internal/models"
	"github.com/vonssyb/nacionmx-postulaciones/internal/store"

	retry "github.com/appleboy/go-httpretry"
)

// newTestStore creates an in-memory SQLite store with seed data applied
func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New("sqlite", ":memory:")
	require.NoError(t, err)
	return s
}

// newTestAudit creates an audit service that is flushed on test cleanup
func newTestAudit(t *testing.T, s *store.Store) *AuditService {
	t.Helper()
	audit := NewAuditService(s, true, 64)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = audit.Shutdown(ctx)
	})
	return audit
}

// newTestRetryClient creates a retry client with retries disabled for
// predictable test behavior.
func newTestRetryClient(t *testing.T) *retry.Client {
	t.Helper()
	retryClient, err := client.NewRetry(client.Options{
		AuthMode:      "none",
		Timeout:       10 * time.Second,
		RetryDelay:    time.Second,
		MaxRetryDelay: 10 * time.Second,
	})
	require.NoError(t, err)
	return retryClient
}

// validAnswers builds an answer set satisfying every seeded question
func validAnswers(t *testing.T, s *store.Store) map[string]string {
	t.Helper()
	questions, err := s.ListActiveQuestions()
	require.NoError(t, err)
	require.NotEmpty(t, questions)

	answers := make(map[string]string, len(questions))
	for _, q := range questions {
		answer := "Respuesta de prueba."
		if q.MinLength > len([]rune(answer)) {
			answer += " " + strings.Repeat("a", q.MinLength)
		}
		answers[q.ID] = answer
	}
	return answers
}

// submitTestApplication pushes a valid application through the intake service
func submitTestApplication(
	t *testing.T,
	s *store.Store,
	intake *IntakeService,
	applicantID, key string,
) *models.Application {
	t.Helper()
	app, err := intake.Submit(context.Background(), SubmitInput{
		ApplicantID:    applicantID,
		DiscordTag:     "tester#0001",
		DiscordAvatar:  "https://cdn.example.com/avatar.png",
		RobloxID:       123456,
		RobloxUsername: "TestUser",
		Answers:        validAnswers(t, s),
		IdempotencyKey: key,
	})
	require.NoError(t, err)
	require.NotNil(t, app)
	return app
}

// newNoopRecorder keeps the metrics wiring out of the way in tests
func newNoopRecorder() *metrics.NoopMetrics {
	return &metrics.NoopMetrics{}
}
