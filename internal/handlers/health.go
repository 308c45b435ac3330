package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vonssyb/nacionmx-postulaciones/internal/store"
	"github.com/vonssyb/nacionmx-postulaciones/internal/version"
)

// HealthHandler answers liveness probes
type HealthHandler struct {
	store *store.Store
}

// NewHealthHandler creates a health handler
func NewHealthHandler(s *store.Store) *HealthHandler {
	return &HealthHandler{store: s}
}

// Check answers GET /health
func (h *HealthHandler) Check(c *gin.Context) {
	if err := h.store.Health(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  "database unreachable",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": version.GetVersion(),
	})
}
