package middleware

import (
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/vonssyb/nacionmx-postulaciones/internal/core"
	"github.com/vonssyb/nacionmx-postulaciones/internal/discord"
	"github.com/vonssyb/nacionmx-postulaciones/internal/models"
	"github.com/vonssyb/nacionmx-postulaciones/internal/services"
	"github.com/vonssyb/nacionmx-postulaciones/internal/util"
)

// Session keys shared with the auth handlers
const (
	SessionUserID      = "user_id"
	SessionUsername    = "username"
	SessionGlobalName  = "global_name"
	SessionAvatar      = "avatar"
	SessionAccessToken = "access_token"
)

// ContextStaffProfile is where RequireStaff stores the resolved profile
const ContextStaffProfile = "staff_profile"

// StaffProfile is the resolved actor handed to staff handlers, and the
// payload returned on a denied staff check so the client can render an
// explicit restricted screen instead of silently redirecting.
type StaffProfile struct {
	UserID     string   `json:"user_id"`
	Username   string   `json:"username"`
	GlobalName string   `json:"global_name,omitempty"`
	AvatarURL  string   `json:"avatar_url,omitempty"`
	Roles      []string `json:"roles"`
	RoleLabels []string `json:"role_labels,omitempty"`
}

// RequireAuth requires a signed-in session. API callers get a 401 with the
// login URL; the client decides whether to redirect.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID, _ := session.Get(SessionUserID).(string)
		token, _ := session.Get(SessionAccessToken).(string)

		if userID == "" || token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":     "authentication_required",
				"login_url": "/auth/login",
			})
			c.Abort()
			return
		}

		c.Set(util.ContextKeyUserID, userID)
		if username, ok := session.Get(SessionUsername).(string); ok {
			c.Set(util.ContextKeyUsername, username)
		}
		if globalName, ok := session.Get(SessionGlobalName).(string); ok {
			c.Set(util.ContextKeyGlobalTag, globalName)
		}
		c.Next()
	}
}

// RequireStaff gates the staff area. It resolves guild membership through
// the allow-list before any handler runs. A denied check answers 403 with
// the resolved profile; a failed lookup degrades to a deny that carries the
// failure, never to silent access.
// Must run after RequireAuth.
func RequireStaff(
	resolver *discord.Resolver,
	settings *services.SettingsService,
	audit *services.AuditService,
	metrics core.Recorder,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		session := sessions.Default(c)

		userID, _ := session.Get(SessionUserID).(string)
		token, _ := session.Get(SessionAccessToken).(string)
		if userID == "" || token == "" {
			metrics.RecordStaffCheck("unauthenticated", time.Since(start))
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":     "authentication_required",
				"login_url": "/auth/login",
			})
			c.Abort()
			return
		}

		profile := StaffProfile{UserID: userID, Roles: []string{}}
		profile.Username, _ = session.Get(SessionUsername).(string)
		profile.GlobalName, _ = session.Get(SessionGlobalName).(string)
		profile.AvatarURL, _ = session.Get(SessionAvatar).(string)

		allowed, err := settings.AllowedRoles(c.Request.Context())
		if err == nil {
			profile.Roles, err = resolver.StaffRoles(c.Request.Context(), userID, token, allowed)
		}
		if err != nil {
			metrics.RecordStaffCheck("error", time.Since(start))
			audit.Log(c.Request.Context(), services.AuditEntry{
				EventType:    models.EventStaffCheckFailed,
				Severity:     models.SeverityError,
				ActorID:      userID,
				ActorName:    profile.Username,
				Success:      false,
				ErrorMessage: err.Error(),
			})
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "staff_check_failed",
				"message": "No se pudo verificar tu acceso de staff. Intenta de nuevo.",
				"profile": profile,
			})
			c.Abort()
			return
		}

		if profile.Roles == nil {
			profile.Roles = []string{}
		}

		if len(profile.Roles) == 0 {
			metrics.RecordStaffCheck("denied", time.Since(start))
			audit.Log(c.Request.Context(), services.AuditEntry{
				EventType: models.EventStaffCheckFailed,
				Severity:  models.SeverityWarning,
				ActorID:   userID,
				ActorName: profile.Username,
				Success:   false,
				Details:   models.AuditDetails{"reason": "no_allowed_roles"},
			})
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "access_restricted",
				"message": "Esta área es solo para el staff del servidor.",
				"profile": profile,
			})
			c.Abort()
			return
		}

		if labels, err := settings.RoleLabels(); err == nil {
			for _, roleID := range profile.Roles {
				if label, ok := labels[roleID]; ok {
					profile.RoleLabels = append(profile.RoleLabels, label)
				}
			}
		}

		metrics.RecordStaffCheck("allowed", time.Since(start))
		c.Set(util.ContextKeyUserID, userID)
		c.Set(util.ContextKeyUsername, profile.Username)
		c.Set(ContextStaffProfile, &profile)
		c.Next()
	}
}

// StaffProfileFromContext returns the profile RequireStaff stored
func StaffProfileFromContext(c *gin.Context) (*StaffProfile, bool) {
	value, exists := c.Get(ContextStaffProfile)
	if !exists {
		return nil, false
	}
	profile, ok := value.(*StaffProfile)
	return profile, ok
}
