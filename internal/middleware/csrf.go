package middleware

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/vonssyb/nacionmx-postulaciones/internal/util"
)

const (
	csrfTokenKey    = "csrf_token"
	csrfHeaderField = "X-CSRF-Token"
)

// CSRFMiddleware protects state-changing operations on the cookie session.
// The token travels in the X-CSRF-Token header; clients read it from
// GET /api/session.
func CSRFMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)

		token, _ := session.Get(csrfTokenKey).(string)
		if token == "" {
			generated, err := util.CryptoRandomString(32)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "failed to generate CSRF token",
				})
				c.Abort()
				return
			}
			token = generated
			session.Set(csrfTokenKey, token)
			if err := session.Save(); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "failed to save CSRF token",
				})
				c.Abort()
				return
			}
		}

		c.Set(csrfTokenKey, token)

		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
			if c.GetHeader(csrfHeaderField) != token {
				c.JSON(http.StatusForbidden, gin.H{
					"error":   "csrf_validation_failed",
					"message": "Token CSRF inválido. Recarga la página e intenta de nuevo.",
				})
				c.Abort()
				return
			}
		}

		c.Next()
	}
}

// CSRFTokenFromContext returns the token CSRFMiddleware stored for handlers
func CSRFTokenFromContext(c *gin.Context) string {
	token, _ := c.Get(csrfTokenKey)
	value, _ := token.(string)
	return value
}
