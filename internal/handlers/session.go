package handlers

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/vonssyb/nacionmx-postulaciones/internal/discord"
	"github.com/vonssyb/nacionmx-postulaciones/internal/middleware"
	"github.com/vonssyb/nacionmx-postulaciones/internal/services"
)

// SessionHandler reports the current actor to the SPA
type SessionHandler struct {
	resolver *discord.Resolver
	settings *services.SettingsService
}

// NewSessionHandler creates a session handler
func NewSessionHandler(resolver *discord.Resolver, settings *services.SettingsService) *SessionHandler {
	return &SessionHandler{resolver: resolver, settings: settings}
}

// Current answers GET /api/session with the signed-in identity, the staff
// flag, and the CSRF token for state-changing calls.
func (h *SessionHandler) Current(c *gin.Context) {
	session := sessions.Default(c)

	userID, _ := session.Get(middleware.SessionUserID).(string)
	token, _ := session.Get(middleware.SessionAccessToken).(string)
	if userID == "" || token == "" {
		c.JSON(http.StatusOK, gin.H{
			"authenticated": false,
			"login_url":     "/auth/login",
			"csrf_token":    middleware.CSRFTokenFromContext(c),
		})
		return
	}

	username, _ := session.Get(middleware.SessionUsername).(string)
	globalName, _ := session.Get(middleware.SessionGlobalName).(string)
	avatar, _ := session.Get(middleware.SessionAvatar).(string)

	staff := false
	var staffRoles []string
	allowed, err := h.settings.AllowedRoles(c.Request.Context())
	if err == nil {
		staffRoles, err = h.resolver.StaffRoles(c.Request.Context(), userID, token, allowed)
		staff = err == nil && len(staffRoles) > 0
	}

	var roleLabels []string
	if staff {
		if labels, labelErr := h.settings.RoleLabels(); labelErr == nil {
			for _, roleID := range staffRoles {
				if label, ok := labels[roleID]; ok {
					roleLabels = append(roleLabels, label)
				}
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"user": gin.H{
			"id":          userID,
			"username":    username,
			"global_name": globalName,
			"avatar_url":  avatar,
		},
		"staff":       staff,
		"staff_roles": staffRoles,
		"role_labels": roleLabels,
		"csrf_token":  middleware.CSRFTokenFromContext(c),
	})
}
