package respond

import (
	"github.com/gin-gonic/gin"

	"github.com/Megamind2600/resumerocketpro/internal/shared/telemetry"
)

// Context keys handlers set so error and request logs can be correlated
// with stored records.
const (
	KeyStep           = "step"
	KeyResumeID       = "resumeId"
	KeyOptimizationID = "optimizationId"
	KeyPaymentID      = "paymentId"
	KeyCause          = "errorCause"
)

// ErrorBody defines the standardized error object.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ErrorResponse wraps the error body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error sends a standardized error response.
func Error(c *gin.Context, status int, code, message string, details interface{}) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	for key, field := range LogFields(c) {
		fields[key] = field
	}
	if cause, ok := c.Get(KeyCause); ok {
		fields["cause"] = cause
	}
	telemetry.Error("http.error", fields)

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// LogFields returns the pipeline correlation fields recorded on the context.
func LogFields(c *gin.Context) map[string]any {
	out := make(map[string]any, 4)
	if step := c.GetString(KeyStep); step != "" {
		out["step"] = step
	}
	if v, ok := c.Get(KeyResumeID); ok {
		out["resume_id"] = v
	}
	if v, ok := c.Get(KeyOptimizationID); ok {
		out["optimization_id"] = v
	}
	if v, ok := c.Get(KeyPaymentID); ok {
		out["payment_id"] = v
	}
	return out
}
