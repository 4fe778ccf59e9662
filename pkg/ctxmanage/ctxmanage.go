package ctxmanage

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Key string

const TraceIdKey Key = "1"

// GetTraceIdOfRequest returns the trace id that the logging middleware
// stored on the request context. Falls back to a fresh id so handlers
// never log an empty trace id.
func GetTraceIdOfRequest(c *gin.Context) string {
	ctx := c.Request.Context()
	traceId, ok := ctx.Value(TraceIdKey).(string)
	if !ok {
		traceId = uuid.NewString()
	}
	return traceId
}
