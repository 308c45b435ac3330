package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/vonssyb/nacionmx-postulaciones/internal/middleware"
	"github.com/vonssyb/nacionmx-postulaciones/internal/models"
	"github.com/vonssyb/nacionmx-postulaciones/internal/roblox"
	"github.com/vonssyb/nacionmx-postulaciones/internal/services"
)

// Session keys for the in-progress verification
const (
	sessionRobloxCode     = "roblox_code"
	sessionRobloxID       = "roblox_id"
	sessionRobloxUsername = "roblox_username"
)

// ApplyHandler serves the applicant intake wizard
type ApplyHandler struct {
	intake *services.IntakeService
}

// NewApplyHandler creates an apply handler
func NewApplyHandler(intake *services.IntakeService) *ApplyHandler {
	return &ApplyHandler{intake: intake}
}

// Eligibility answers GET /api/apply/eligibility
func (h *ApplyHandler) Eligibility(c *gin.Context) {
	userID := c.GetString("user_id")
	eligibility, err := h.intake.Eligibility(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	c.JSON(http.StatusOK, eligibility)
}

// Questions answers GET /api/apply/questions with the form grouped by step
func (h *ApplyHandler) Questions(c *gin.Context) {
	questions, err := h.intake.Questions()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	steps := make(map[int][]models.Question)
	for _, q := range questions {
		steps[q.Step] = append(steps[q.Step], q)
	}
	c.JSON(http.StatusOK, gin.H{"questions": questions, "steps": steps})
}

type validateStepRequest struct {
	Step    int               `json:"step" binding:"required"`
	Answers map[string]string `json:"answers"`
}

// ValidateStep answers POST /api/apply/validate-step so the wizard can gate
// navigation server-side.
func (h *ApplyHandler) ValidateStep(c *gin.Context) {
	var req validateStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	if err := h.intake.ValidateStep(req.Step, req.Answers); err != nil {
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":  "validation_failed",
				"fields": verr.Fields,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

// VerificationCode answers POST /api/apply/verification-code with the code
// the applicant must paste into their Roblox profile.
func (h *ApplyHandler) VerificationCode(c *gin.Context) {
	session := sessions.Default(c)

	code, _ := session.Get(sessionRobloxCode).(string)
	if code == "" {
		generated, err := roblox.GenerateVerificationCode()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
			return
		}
		code = generated
		session.Set(sessionRobloxCode, code)
		if err := session.Save(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"code": code})
}

type verifyRobloxRequest struct {
	Username string `json:"username" binding:"required"`
}

// VerifyRoblox answers POST /api/apply/verify-roblox. The verified account
// is bound to the session so the submit cannot claim a different one.
func (h *ApplyHandler) VerifyRoblox(c *gin.Context) {
	var req verifyRobloxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	session := sessions.Default(c)
	code, _ := session.Get(sessionRobloxCode).(string)
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "code_not_generated",
			"message": "Genera un código de verificación primero.",
		})
		return
	}

	userID := c.GetString("user_id")
	user, err := h.intake.VerifyRoblox(c.Request.Context(), userID, req.Username, code)
	if err != nil {
		status, payload := robloxErrorResponse(err)
		c.JSON(status, payload)
		return
	}

	session.Set(sessionRobloxID, user.ID)
	session.Set(sessionRobloxUsername, user.Username)
	if err := session.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"verified": true,
		"roblox": gin.H{
			"id":           user.ID,
			"username":     user.Username,
			"display_name": user.DisplayName,
			"avatar_url":   roblox.AvatarURL(user.ID, user.Username),
		},
	})
}

// robloxErrorResponse maps verification errors to friendly API payloads
func robloxErrorResponse(err error) (int, gin.H) {
	switch {
	case errors.Is(err, roblox.ErrUserNotFound):
		return http.StatusUnprocessableEntity, gin.H{
			"error":   "user_not_found",
			"message": "No existe una cuenta de Roblox con ese nombre.",
		}
	case errors.Is(err, roblox.ErrUserBanned):
		return http.StatusUnprocessableEntity, gin.H{
			"error":   "user_banned",
			"message": "Esa cuenta de Roblox está suspendida.",
		}
	case errors.Is(err, roblox.ErrCodeMissing):
		return http.StatusUnprocessableEntity, gin.H{
			"error":   "code_missing",
			"message": "El código de verificación no aparece en la descripción del perfil.",
		}
	case errors.Is(err, roblox.ErrAccountTooNew):
		return http.StatusUnprocessableEntity, gin.H{
			"error":   "account_too_new",
			"message": "La cuenta de Roblox es demasiado nueva para postular.",
		}
	default:
		return http.StatusBadGateway, gin.H{
			"error":   "verification_unavailable",
			"message": "No se pudo verificar la cuenta. Intenta de nuevo más tarde.",
		}
	}
}

type submitRequest struct {
	Answers map[string]string `json:"answers" binding:"required"`
}

// Submit answers POST /api/apply. The Idempotency-Key header makes retried
// submits safe.
func (h *ApplyHandler) Submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	session := sessions.Default(c)
	robloxID, _ := session.Get(sessionRobloxID).(int64)
	robloxUsername, _ := session.Get(sessionRobloxUsername).(string)
	if robloxID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "roblox_not_verified",
			"message": "Verifica tu cuenta de Roblox antes de enviar la solicitud.",
		})
		return
	}

	userID := c.GetString("user_id")
	username, _ := session.Get(middleware.SessionUsername).(string)
	globalName, _ := session.Get(middleware.SessionGlobalName).(string)
	avatar, _ := session.Get(middleware.SessionAvatar).(string)

	tag := username
	if globalName != "" {
		tag = globalName + " (" + username + ")"
	}

	app, err := h.intake.Submit(c.Request.Context(), services.SubmitInput{
		ApplicantID:    userID,
		DiscordTag:     tag,
		DiscordAvatar:  avatar,
		RobloxID:       robloxID,
		RobloxUsername: robloxUsername,
		Answers:        req.Answers,
		IdempotencyKey: c.GetHeader("Idempotency-Key"),
	})
	if err != nil {
		h.submitError(c, err)
		return
	}

	// The code is single-use; clear the wizard state
	session.Delete(sessionRobloxCode)
	if err := session.Save(); err != nil {
		log.Printf("[Apply] Failed to clear wizard session: %v", err)
	}

	c.JSON(http.StatusCreated, gin.H{"application": app})
}

func (h *ApplyHandler) submitError(c *gin.Context, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "validation_failed",
			"fields": verr.Fields,
		})
	case errors.Is(err, services.ErrIdempotencyKeyRequired):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "idempotency_key_required",
			"message": "Falta el encabezado Idempotency-Key.",
		})
	case errors.Is(err, services.ErrActiveApplication):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "active_application",
			"message": "Ya tienes una solicitud en curso.",
		})
	case errors.Is(err, services.ErrCooldownActive):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "cooldown_active",
			"message": "Debes esperar antes de volver a postular.",
		})
	default:
		log.Printf("[Apply] Submit failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}

// Mine answers GET /api/apply/mine with the applicant's own history
func (h *ApplyHandler) Mine(c *gin.Context) {
	apps, err := h.intake.MyApplications(c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": apps})
}
