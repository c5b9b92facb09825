package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Megamind2600/resumerocketpro/internal/shared/server/respond"
	"github.com/Megamind2600/resumerocketpro/internal/shared/telemetry"
)

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.Request.Method, "OPTIONS") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		fields := map[string]any{
			"request_id":      RequestIDFromContext(c),
			"method":          c.Request.Method,
			"path":            c.Request.URL.Path,
			"route":           c.FullPath(),
			"status":          c.Writer.Status(),
			"duration_ms":     float64(latency.Microseconds()) / 1000.0,
			"step":            nil,
			"resume_id":       nil,
			"optimization_id": nil,
			"payment_id":      nil,
			"client_ip":       c.ClientIP(),
			"user_agent":      c.Request.UserAgent(),
		}
		for k, v := range respond.LogFields(c) {
			fields[k] = v
		}
		telemetry.Info("request.complete", fields)
	}
}
