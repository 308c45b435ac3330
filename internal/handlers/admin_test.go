package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vonssyb/nacionmx-postulaciones/internal/middleware"
	"github.com/vonssyb/nacionmx-postulaciones/internal/models"
	"github.com/vonssyb/nacionmx-postulaciones/internal/services"
)

// staffStub stands in for the full auth chain so the admin handlers can be
// exercised without a Discord round trip.
func staffStub() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextStaffProfile, &middleware.StaffProfile{
			UserID:     "staff-1",
			Username:   "revisor",
			GlobalName: "Revisor",
			Roles:      []string{"111"},
		})
		c.Next()
	}
}

func mountAdminRoutes(env *testEnv) {
	handler := NewAdminHandler(env.review, env.settings, env.audit, env.store)
	group := env.router.Group("/api/admin", staffStub())
	group.GET("/applications", handler.ListApplications)
	group.GET("/applications/:id", handler.GetApplication)
	group.POST("/applications/:id/claim", handler.ClaimApplication)
	group.POST("/applications/:id/grade", handler.GradeAnswer)
	group.PUT("/applications/:id/notes", handler.UpdateNotes)
	group.POST("/applications/:id/decision", handler.Decide)
	group.GET("/settings", handler.GetSettings)
	group.PUT("/settings/staff-roles", handler.UpdateStaffRoles)
	group.GET("/questions", handler.ListQuestions)
	group.POST("/questions", handler.CreateQuestion)
	group.PUT("/questions/:id", handler.UpdateQuestion)
	group.DELETE("/questions/:id", handler.DeactivateQuestion)
	group.GET("/audit", handler.ListAudit)
	group.GET("/stats", handler.Stats)
}

// seedApplication submits a pending application through the intake service
func seedApplication(t *testing.T, env *testEnv) *models.Application {
	t.Helper()
	app, err := env.intake.Submit(context.Background(), services.SubmitInput{
		ApplicantID:    "applicant-9",
		DiscordTag:     "Solicitante (solicitante)",
		RobloxID:       424242,
		RobloxUsername: "Solicitante",
		Answers:        applyAnswers(t, env),
		IdempotencyKey: "admin-seed-" + t.Name(),
	})
	require.NoError(t, err)
	return app
}

func TestAdminListApplications(t *testing.T) {
	env := newTestEnv(t, nil)
	mountAdminRoutes(env)
	app := seedApplication(t, env)

	w := doJSON(env.router, http.MethodGet, "/api/admin/applications", "", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), app.ID)

	w = doJSON(env.router, http.MethodGet, "/api/admin/applications?status=approved", "", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), app.ID)

	w = doJSON(env.router, http.MethodGet, "/api/admin/applications?status=bogus", "", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminGetApplication(t *testing.T) {
	env := newTestEnv(t, nil)
	mountAdminRoutes(env)
	app := seedApplication(t, env)

	w := doJSON(env.router, http.MethodGet, "/api/admin/applications/"+app.ID, "", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var detail services.ApplicationDetail
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	assert.Len(t, detail.Answers, 5)
	assert.Equal(t, models.StatusPending, detail.Application.Status)

	w = doJSON(env.router, http.MethodGet, "/api/admin/applications/missing", "", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminClaim(t *testing.T) {
	env := newTestEnv(t, nil)
	mountAdminRoutes(env)
	app := seedApplication(t, env)

	w := doJSON(env.router, http.MethodPost, "/api/admin/applications/"+app.ID+"/claim", "", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var detail services.ApplicationDetail
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	assert.Equal(t, models.StatusUnderReview, detail.Application.Status)
	assert.Equal(t, 1, detail.Application.Version)

	w = doJSON(env.router, http.MethodPost, "/api/admin/applications/missing/claim", "", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminGrade(t *testing.T) {
	env := newTestEnv(t, nil)
	mountAdminRoutes(env)
	app := seedApplication(t, env)

	w := doJSON(env.router, http.MethodPost, "/api/admin/applications/"+app.ID+"/grade", "",
		map[string]any{"question_index": 0, "value": 1}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"Percent":100`)

	w = doJSON(env.router, http.MethodPost, "/api/admin/applications/"+app.ID+"/grade", "",
		map[string]any{"question_index": 1, "value": 0.7}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_grade")
}

func TestAdminNotes(t *testing.T) {
	env := newTestEnv(t, nil)
	mountAdminRoutes(env)
	app := seedApplication(t, env)

	w := doJSON(env.router, http.MethodPut, "/api/admin/applications/"+app.ID+"/notes", "",
		map[string]string{"notes": "Buen perfil, falta experiencia."}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	stored, err := env.store.GetApplication(app.ID)
	require.NoError(t, err)
	assert.Equal(t, "Buen perfil, falta experiencia.", stored.InternalNotes)
}

func TestAdminDecideApprove(t *testing.T) {
	env := newTestEnv(t, nil)
	mountAdminRoutes(env)
	app := seedApplication(t, env)

	w := doJSON(env.router, http.MethodPost, "/api/admin/applications/"+app.ID+"/claim", "", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(env.router, http.MethodPost, "/api/admin/applications/"+app.ID+"/decision", "",
		map[string]any{"version": 1, "approve": true}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"approved"`)
	assert.Contains(t, w.Body.String(), `"processed_by":"Revisor"`)
}

func TestAdminDecideRejectNeedsReason(t *testing.T) {
	env := newTestEnv(t, nil)
	mountAdminRoutes(env)
	app := seedApplication(t, env)

	w := doJSON(env.router, http.MethodPost, "/api/admin/applications/"+app.ID+"/decision", "",
		map[string]any{"version": 0, "approve": false}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "reason_required")
}

func TestAdminDecideStaleVersion(t *testing.T) {
	env := newTestEnv(t, nil)
	mountAdminRoutes(env)
	app := seedApplication(t, env)

	w := doJSON(env.router, http.MethodPost, "/api/admin/applications/"+app.ID+"/claim", "", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Decision carries the pre-claim version
	w = doJSON(env.router, http.MethodPost, "/api/admin/applications/"+app.ID+"/decision", "",
		map[string]any{"version": 0, "approve": true}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "already_processed")
}

func TestAdminSettings(t *testing.T) {
	env := newTestEnv(t, nil)
	mountAdminRoutes(env)

	w := doJSON(env.router, http.MethodPut, "/api/admin/settings/staff-roles", "",
		map[string]any{"role_ids": []string{"111111111111111111", "222222222222222222"}}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "222222222222222222")

	w = doJSON(env.router, http.MethodGet, "/api/admin/settings", "", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"allowed_roles"`)
	assert.Contains(t, w.Body.String(), "111111111111111111")

	w = doJSON(env.router, http.MethodPut, "/api/admin/settings/staff-roles", "",
		map[string]any{"role_ids": []string{"not-a-snowflake"}}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_role_id")
}

func TestAdminQuestionLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)
	mountAdminRoutes(env)

	w := doJSON(env.router, http.MethodPost, "/api/admin/questions", "",
		map[string]any{
			"step":       3,
			"position":   3,
			"prompt":     "¿Pregunta nueva?",
			"type":       "textarea",
			"required":   true,
			"min_length": 20,
		}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Question models.Question `json:"question"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.Question.ID)

	w = doJSON(env.router, http.MethodPut, "/api/admin/questions/"+created.Question.ID, "",
		map[string]any{
			"step":     3,
			"position": 3,
			"prompt":   "¿Pregunta editada?",
			"type":     "textarea",
			"required": true,
		}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "¿Pregunta editada?")

	w = doJSON(env.router, http.MethodDelete, "/api/admin/questions/"+created.Question.ID, "", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Deactivated questions stay visible to staff but leave the form
	w = doJSON(env.router, http.MethodGet, "/api/admin/questions", "", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), created.Question.ID)

	active, err := env.store.ListActiveQuestions()
	require.NoError(t, err)
	for _, q := range active {
		assert.NotEqual(t, created.Question.ID, q.ID)
	}

	w = doJSON(env.router, http.MethodDelete, "/api/admin/questions/missing", "", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminAudit(t *testing.T) {
	env := newTestEnv(t, nil)
	mountAdminRoutes(env)

	require.NoError(t, env.store.CreateAuditRecord(&models.ReviewAudit{
		ID:            uuid.New().String(),
		EventType:     models.EventApplicationSubmitted,
		EventTime:     time.Now(),
		Severity:      models.SeverityInfo,
		ActorID:       "applicant-9",
		ApplicationID: "app-1",
		Success:       true,
	}))
	require.NoError(t, env.store.CreateAuditRecord(&models.ReviewAudit{
		ID:        uuid.New().String(),
		EventType: models.EventLoginSuccess,
		EventTime: time.Now(),
		Severity:  models.SeverityInfo,
		ActorID:   "user-123",
		Success:   true,
	}))

	w := doJSON(env.router, http.MethodGet, "/api/admin/audit", "", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), string(models.EventApplicationSubmitted))
	assert.Contains(t, w.Body.String(), string(models.EventLoginSuccess))

	w = doJSON(env.router, http.MethodGet, "/api/admin/audit?application_id=app-1", "", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), string(models.EventApplicationSubmitted))
	assert.NotContains(t, w.Body.String(), string(models.EventLoginSuccess))

	w = doJSON(env.router, http.MethodGet,
		"/api/admin/audit?event_type="+string(models.EventLoginSuccess), "", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), string(models.EventApplicationSubmitted))
}

func TestAdminStats(t *testing.T) {
	env := newTestEnv(t, nil)
	mountAdminRoutes(env)
	seedApplication(t, env)

	w := doJSON(env.router, http.MethodGet, "/api/admin/stats", "", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"pending":1`)
	assert.Contains(t, w.Body.String(), `"approved":0`)
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	env.router.GET("/health", NewHealthHandler(env.store).Check)

	w := doJSON(env.router, http.MethodGet, "/health", "", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}
