package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vonssyb/nacionmx-postulaciones/internal/middleware"
	"github.com/vonssyb/nacionmx-postulaciones/internal/models"
	"github.com/vonssyb/nacionmx-postulaciones/internal/services"
	"github.com/vonssyb/nacionmx-postulaciones/internal/store"
)

// AdminHandler serves the staff review area
type AdminHandler struct {
	review   *services.ReviewService
	settings *services.SettingsService
	audit    *services.AuditService
	store    *store.Store
}

// NewAdminHandler creates an admin handler
func NewAdminHandler(
	review *services.ReviewService,
	settings *services.SettingsService,
	audit *services.AuditService,
	s *store.Store,
) *AdminHandler {
	return &AdminHandler{
		review:   review,
		settings: settings,
		audit:    audit,
		store:    s,
	}
}

// reviewerName derives the display name used on decisions and audit trails
func reviewerName(c *gin.Context) string {
	if profile, ok := middleware.StaffProfileFromContext(c); ok {
		if profile.GlobalName != "" {
			return profile.GlobalName
		}
		if profile.Username != "" {
			return profile.Username
		}
	}
	return ""
}

// ListApplications answers GET /api/admin/applications
func (h *AdminHandler) ListApplications(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	params := store.NewPaginationParams(page, pageSize, c.Query("search"))

	filters := store.ApplicationFilters{
		Status: models.ApplicationStatus(c.Query("status")),
	}
	if filters.Status != "" && !filters.Status.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_status"})
		return
	}

	apps, pagination, err := h.review.List(filters, params)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"applications": apps,
		"pagination":   pagination,
	})
}

// GetApplication answers GET /api/admin/applications/:id
func (h *AdminHandler) GetApplication(c *gin.Context) {
	detail, err := h.review.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "application_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	c.JSON(http.StatusOK, detail)
}

// ClaimApplication answers POST /api/admin/applications/:id/claim
func (h *AdminHandler) ClaimApplication(c *gin.Context) {
	id := c.Param("id")
	if err := h.review.Claim(c.Request.Context(), id, reviewerName(c)); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "application_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	detail, err := h.review.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	c.JSON(http.StatusOK, detail)
}

type gradeRequest struct {
	QuestionIndex *int    `json:"question_index" binding:"required"`
	Value         float64 `json:"value"`
}

// GradeAnswer answers POST /api/admin/applications/:id/grade. Sending the
// value an answer already carries clears the grade.
func (h *AdminHandler) GradeAnswer(c *gin.Context) {
	var req gradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	score, err := h.review.Grade(
		c.Request.Context(),
		c.Param("id"),
		*req.QuestionIndex,
		models.GradeValue(req.Value),
		reviewerName(c),
	)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidGrade):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_grade"})
		case errors.Is(err, store.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "application_not_found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"score": score})
}

type notesRequest struct {
	Notes string `json:"notes"`
}

// UpdateNotes answers PUT /api/admin/applications/:id/notes
func (h *AdminHandler) UpdateNotes(c *gin.Context) {
	var req notesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	if err := h.review.UpdateNotes(c.Request.Context(), c.Param("id"), req.Notes, reviewerName(c)); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "application_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true})
}

type decisionRequest struct {
	Version *int   `json:"version" binding:"required"`
	Approve *bool  `json:"approve" binding:"required"`
	Reason  string `json:"reason"`
	Notes   string `json:"notes"`
}

// Decide answers POST /api/admin/applications/:id/decision. The version
// field is the optimistic lock: a stale decision gets a 409, never a
// silent double-process.
func (h *AdminHandler) Decide(c *gin.Context) {
	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	result, err := h.review.Decide(c.Request.Context(), services.DecideInput{
		ApplicationID: c.Param("id"),
		Version:       *req.Version,
		Approve:       *req.Approve,
		Reason:        req.Reason,
		Notes:         req.Notes,
		ReviewerName:  reviewerName(c),
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrReasonRequired):
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "reason_required",
				"message": "El rechazo necesita un motivo.",
			})
		case errors.Is(err, store.ErrAlreadyProcessed):
			c.JSON(http.StatusConflict, gin.H{
				"error":   "already_processed",
				"message": "Otro revisor ya procesó esta solicitud.",
			})
		case errors.Is(err, store.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "application_not_found"})
		default:
			log.Printf("[Admin] Decision failed for %s: %v", c.Param("id"), err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetSettings answers GET /api/admin/settings
func (h *AdminHandler) GetSettings(c *gin.Context) {
	settings, err := h.settings.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	allowed, err := h.settings.AllowedRoles(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"settings":      settings,
		"allowed_roles": allowed,
	})
}

type updateRolesRequest struct {
	RoleIDs []string `json:"role_ids" binding:"required"`
}

// UpdateStaffRoles answers PUT /api/admin/settings/staff-roles
func (h *AdminHandler) UpdateStaffRoles(c *gin.Context) {
	var req updateRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	err := h.settings.UpdateAllowedRoles(c.Request.Context(), req.RoleIDs, reviewerName(c))
	if err != nil {
		if errors.Is(err, services.ErrInvalidRoleID) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "invalid_role_id",
				"message": err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	allowed, err := h.settings.AllowedRoles(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"allowed_roles": allowed})
}

// ListQuestions answers GET /api/admin/questions (inactive included)
func (h *AdminHandler) ListQuestions(c *gin.Context) {
	questions, err := h.store.ListQuestions()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"questions": questions})
}

type questionRequest struct {
	Step      int    `json:"step" binding:"required"`
	Position  int    `json:"position"`
	Prompt    string `json:"prompt" binding:"required"`
	Type      string `json:"type" binding:"required"`
	Options   string `json:"options"`
	Required  bool   `json:"required"`
	MinLength int    `json:"min_length"`
}

// CreateQuestion answers POST /api/admin/questions
func (h *AdminHandler) CreateQuestion(c *gin.Context) {
	var req questionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	question := &models.Question{
		Step:      req.Step,
		Position:  req.Position,
		Prompt:    req.Prompt,
		Type:      models.QuestionType(req.Type),
		Options:   req.Options,
		Required:  req.Required,
		MinLength: req.MinLength,
		Active:    true,
	}
	if err := h.store.CreateQuestion(question); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	h.logQuestionChange(c, question.ID, "created")
	c.JSON(http.StatusCreated, gin.H{"question": question})
}

// UpdateQuestion answers PUT /api/admin/questions/:id
func (h *AdminHandler) UpdateQuestion(c *gin.Context) {
	var req questionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	question := &models.Question{
		ID:        c.Param("id"),
		Step:      req.Step,
		Position:  req.Position,
		Prompt:    req.Prompt,
		Type:      models.QuestionType(req.Type),
		Options:   req.Options,
		Required:  req.Required,
		MinLength: req.MinLength,
	}
	if err := h.store.UpdateQuestion(question); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "question_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	h.logQuestionChange(c, question.ID, "updated")
	c.JSON(http.StatusOK, gin.H{"question": question})
}

// DeactivateQuestion answers DELETE /api/admin/questions/:id. Questions are
// never hard-deleted so existing transcripts keep their context.
func (h *AdminHandler) DeactivateQuestion(c *gin.Context) {
	if err := h.store.DeactivateQuestion(c.Param("id")); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "question_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	h.logQuestionChange(c, c.Param("id"), "deactivated")
	c.JSON(http.StatusOK, gin.H{"deactivated": true})
}

func (h *AdminHandler) logQuestionChange(c *gin.Context, questionID, action string) {
	h.audit.Log(c.Request.Context(), services.AuditEntry{
		EventType: models.EventQuestionChanged,
		Severity:  models.SeverityWarning,
		ActorName: reviewerName(c),
		Success:   true,
		Details: models.AuditDetails{
			"question_id": questionID,
			"action":      action,
		},
	})
}

// ListAudit answers GET /api/admin/audit
func (h *AdminHandler) ListAudit(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))
	params := store.NewPaginationParams(page, pageSize, "")

	filters := store.AuditFilters{
		EventType:     models.EventType(c.Query("event_type")),
		ActorID:       c.Query("actor_id"),
		ApplicationID: c.Query("application_id"),
		Severity:      models.EventSeverity(c.Query("severity")),
	}
	if since := c.Query("since"); since != "" {
		if parsed, err := time.Parse(time.RFC3339, since); err == nil {
			filters.StartTime = parsed
		}
	}

	records, pagination, err := h.audit.GetAuditRecords(params, filters)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"records":    records,
		"pagination": pagination,
	})
}

// Stats answers GET /api/admin/stats with per-status application counts
func (h *AdminHandler) Stats(c *gin.Context) {
	counts, err := h.review.Stats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"pending":      counts[models.StatusPending],
		"under_review": counts[models.StatusUnderReview],
		"approved":     counts[models.StatusApproved],
		"rejected":     counts[models.StatusRejected],
	})
}
