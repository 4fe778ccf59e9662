package middleware

import (
	"context"
	"log/slog"
	"time"

	"order-service/pkg/ctxmanage"
	"order-service/pkg/logkey"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Logger assigns every request a trace id, stores it on the request
// context and logs the request once it completes.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceId := uuid.NewString()
		ctx := c.Request.Context()
		ctx = context.WithValue(ctx, ctxmanage.TraceIdKey, traceId)
		c.Request = c.Request.WithContext(ctx)

		startTime := time.Now()
		slog.Info("started", slog.String(logkey.TraceID, traceId),
			slog.String("method", c.Request.Method), slog.String("path", c.Request.URL.Path))

		c.Next()

		slog.Info("completed", slog.String(logkey.TraceID, traceId),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(startTime)))
	}
}
