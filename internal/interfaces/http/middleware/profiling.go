package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/payments/backend/internal/infrastructure/telemetry"
)

// ProfilingLabels attaches route and method pprof labels for the rest of the
// chain so continuous profiles can be filtered per endpoint. Disabled, it
// only calls Next.
func ProfilingLabels(enabled bool) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		telemetry.WithOperationLabels(c.Request.Context(), routePattern(c), c.Request.Method, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}
