package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/vonssyb/nacionmx-postulaciones/internal/auth"
	"github.com/vonssyb/nacionmx-postulaciones/internal/core"
	"github.com/vonssyb/nacionmx-postulaciones/internal/discord"
	"github.com/vonssyb/nacionmx-postulaciones/internal/middleware"
	"github.com/vonssyb/nacionmx-postulaciones/internal/models"
	"github.com/vonssyb/nacionmx-postulaciones/internal/services"
	"github.com/vonssyb/nacionmx-postulaciones/internal/util"
)

const sessionOAuthState = "oauth_state"
const sessionRedirectTo = "redirect_to"

// AuthHandler drives the Discord OAuth sign-in flow
type AuthHandler struct {
	provider *auth.OAuthProvider
	resolver *discord.Resolver
	audit    *services.AuditService
	metrics  core.Recorder
	baseURL  string
}

// NewAuthHandler creates an auth handler
func NewAuthHandler(
	provider *auth.OAuthProvider,
	resolver *discord.Resolver,
	audit *services.AuditService,
	metrics core.Recorder,
	baseURL string,
) *AuthHandler {
	return &AuthHandler{
		provider: provider,
		resolver: resolver,
		audit:    audit,
		metrics:  metrics,
		baseURL:  baseURL,
	}
}

// Login starts the OAuth flow: mint a state token, remember the return
// path, and bounce the browser to Discord.
func (h *AuthHandler) Login(c *gin.Context) {
	state, err := util.CryptoRandomString(32)
	if err != nil {
		log.Printf("[Auth] Failed to generate state: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	redirectTo := c.Query("redirect")
	if !util.IsRedirectSafe(redirectTo, h.baseURL) {
		redirectTo = ""
	}

	session := sessions.Default(c)
	session.Set(sessionOAuthState, state)
	if redirectTo != "" {
		session.Set(sessionRedirectTo, redirectTo)
	}
	if err := session.Save(); err != nil {
		log.Printf("[Auth] Failed to save session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	c.Redirect(http.StatusFound, h.provider.GetAuthURL(state))
}

// Callback finishes the OAuth flow: validate state, exchange the code,
// load the Discord identity, and establish the session.
func (h *AuthHandler) Callback(c *gin.Context) {
	session := sessions.Default(c)

	savedState, _ := session.Get(sessionOAuthState).(string)
	session.Delete(sessionOAuthState)

	if savedState == "" || c.Query("state") != savedState {
		h.metrics.RecordOAuthCallback(false)
		_ = session.Save()
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_state",
			"message": "La verificación de seguridad falló. Intenta iniciar sesión de nuevo.",
		})
		return
	}

	code := c.Query("code")
	if code == "" {
		h.metrics.RecordOAuthCallback(false)
		_ = session.Save()
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_code"})
		return
	}

	token, err := h.provider.ExchangeCode(c.Request.Context(), code)
	if err != nil {
		log.Printf("[Auth] Code exchange failed: %v", err)
		h.metrics.RecordOAuthCallback(false)
		h.metrics.RecordLogin(false)
		_ = session.Save()
		c.JSON(http.StatusBadGateway, gin.H{"error": "exchange_failed"})
		return
	}

	user, err := h.provider.GetUserInfo(c.Request.Context(), token)
	if err != nil {
		log.Printf("[Auth] User info lookup failed: %v", err)
		h.metrics.RecordOAuthCallback(false)
		h.metrics.RecordLogin(false)
		h.audit.Log(c.Request.Context(), services.AuditEntry{
			EventType:    models.EventLoginDenied,
			Severity:     models.SeverityWarning,
			Success:      false,
			ErrorMessage: err.Error(),
		})
		_ = session.Save()
		c.JSON(http.StatusBadGateway, gin.H{"error": "userinfo_failed"})
		return
	}

	redirectTo, _ := session.Get(sessionRedirectTo).(string)
	session.Delete(sessionRedirectTo)
	if redirectTo == "" {
		redirectTo = "/"
	}

	session.Set(middleware.SessionUserID, user.ProviderUserID)
	session.Set(middleware.SessionUsername, user.Username)
	session.Set(middleware.SessionGlobalName, user.GlobalName)
	session.Set(middleware.SessionAvatar, user.AvatarURL)
	session.Set(middleware.SessionAccessToken, token.AccessToken)
	session.Set(middleware.SessionLastActivity, time.Now().Unix())
	if err := session.Save(); err != nil {
		log.Printf("[Auth] Failed to save session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	// Warm the membership cache; sign-in must re-resolve roles
	h.resolver.Invalidate(c.Request.Context(), user.ProviderUserID)
	if _, err := h.resolver.Resolve(c.Request.Context(), user.ProviderUserID, token.AccessToken); err != nil {
		log.Printf("[Auth] Membership warmup failed for %s: %v", user.ProviderUserID, err)
	}

	h.metrics.RecordOAuthCallback(true)
	h.metrics.RecordLogin(true)
	h.audit.Log(c.Request.Context(), services.AuditEntry{
		EventType: models.EventLoginSuccess,
		Severity:  models.SeverityInfo,
		ActorID:   user.ProviderUserID,
		ActorName: user.Username,
		Success:   true,
	})

	c.Redirect(http.StatusFound, redirectTo)
}

// Logout clears the session
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	userID, _ := session.Get(middleware.SessionUserID).(string)
	username, _ := session.Get(middleware.SessionUsername).(string)

	session.Clear()
	if err := session.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	if userID != "" {
		h.resolver.Invalidate(c.Request.Context(), userID)
		h.metrics.RecordLogout()
		h.audit.Log(c.Request.Context(), services.AuditEntry{
			EventType: models.EventLogout,
			Severity:  models.SeverityInfo,
			ActorID:   userID,
			ActorName: username,
			Success:   true,
		})
	}

	c.JSON(http.StatusOK, gin.H{"logged_out": true, "redirect": "/"})
}
