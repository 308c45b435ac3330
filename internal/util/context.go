package util

import (
	"context"

	"github.com/gin-gonic/gin"
)

// Context keys set by the auth middleware
const (
	ContextKeyUserID    = "user_id"
	ContextKeyUsername  = "username"
	ContextKeyGlobalTag = "global_name"
	ContextKeyClientIP  = "client_ip"
)

// IPMiddleware extracts client IP and stores it in the context
func IPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Gin's ClientIP() handles X-Forwarded-For and other headers
		c.Set(ContextKeyClientIP, c.ClientIP())
		c.Next()
	}
}

// GetIPFromContext extracts the client IP address from the context
func GetIPFromContext(ctx context.Context) string {
	// Try to extract from Gin context first
	if ginCtx, ok := ctx.(*gin.Context); ok {
		return ginCtx.ClientIP()
	}

	// Try to get from context value (set by middleware)
	if ip, ok := ctx.Value(ContextKeyClientIP).(string); ok { //nolint:staticcheck // string key kept for gin interop
		return ip
	}

	return ""
}

// GetUserIDFromContext extracts the Discord user ID set by the auth middleware
func GetUserIDFromContext(ctx context.Context) string {
	if ginCtx, ok := ctx.(*gin.Context); ok {
		if id, exists := ginCtx.Get(ContextKeyUserID); exists {
			if s, ok := id.(string); ok {
				return s
			}
		}
	}
	return ""
}

// GetUsernameFromContext extracts the Discord username set by the auth middleware
func GetUsernameFromContext(ctx context.Context) string {
	if ginCtx, ok := ctx.(*gin.Context); ok {
		if name, exists := ginCtx.Get(ContextKeyUsername); exists {
			if s, ok := name.(string); ok {
				return s
			}
		}
	}
	return ""
}
