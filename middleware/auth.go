package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"order-service/internal/auth"
	"order-service/pkg/ctxmanage"
	"order-service/pkg/logkey"

	"github.com/gin-gonic/gin"
)

// Authentication validates the Bearer token and stores the claims on
// the request context for downstream handlers.
func (m *Mid) Authentication() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceId := ctxmanage.GetTraceIdOfRequest(c)

		authHeader := c.Request.Header.Get("Authorization")
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			slog.Error("missing or malformed authorization header", slog.String(logkey.TraceID, traceId))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		claims, err := m.keys.ValidateToken(parts[1])
		if err != nil {
			slog.Error("token validation failed", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		ctx := context.WithValue(c.Request.Context(), auth.ClaimsKey, claims)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// Authorize wraps a handler so it only runs when the authenticated
// caller carries the required role.
func (m *Mid) Authorize(next gin.HandlerFunc, requiredRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		traceId := ctxmanage.GetTraceIdOfRequest(c)

		claims, ok := c.Request.Context().Value(auth.ClaimsKey).(auth.Claims)
		if !ok {
			slog.Error("claims not found", slog.String(logkey.TraceID, traceId))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		if !claims.HasRole(requiredRole) {
			slog.Error("role not permitted", slog.String(logkey.TraceID, traceId), slog.String("required", requiredRole))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}
		next(c)
	}
}
