package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/Megamind2600/resumerocketpro/internal/shared/server/respond"
	"github.com/Megamind2600/resumerocketpro/internal/shared/telemetry"
)

// Recovery turns a handler panic into the internal_error envelope. The
// panic value and stack go to the log only.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			fields := respond.LogFields(c)
			fields["request_id"] = RequestIDFromContext(c)
			fields["panic"] = rec
			fields["stack"] = string(debug.Stack())
			fields["route"] = c.FullPath()
			telemetry.Error("http.panic", fields)

			if c.Writer.Written() {
				c.Abort()
				return
			}
			respond.Error(c, http.StatusInternalServerError, "internal_error", "internal error", nil)
		}()
		c.Next()
	}
}
