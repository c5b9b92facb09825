package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Megamind2600/resumerocketpro/internal/pipeline"
	"github.com/Megamind2600/resumerocketpro/internal/services/health"
	"github.com/Megamind2600/resumerocketpro/internal/shared/config"
	"github.com/Megamind2600/resumerocketpro/internal/shared/metrics"
	"github.com/Megamind2600/resumerocketpro/internal/shared/server/middleware"
	"github.com/Megamind2600/resumerocketpro/internal/shared/server/respond"
)

// RouterDeps are the handlers mounted on the engine.
type RouterDeps struct {
	Config   config.Config
	Pipeline *pipeline.Handler
	Health   *health.Service
	// Limiter is shared across engines in tests; nil builds a fresh one.
	Limiter *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)
	if deps.Config.RateLimitEnabled {
		r.Use(middleware.RateLimit(middleware.Limits{
			Rules: map[string]middleware.Rule{
				middleware.GroupAI:      {Rate: 0.2, Burst: 5},
				middleware.GroupPolling: {Rate: 2, Burst: 20},
				middleware.GroupDefault: {Rate: 5, Burst: 30},
			},
			GroupOf: rateLimitGroup,
			Limiter: deps.Limiter,
		}))
	}

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		healthSvc := deps.Health
		if healthSvc == nil {
			healthSvc = health.NewService(nil)
		}
		status, ok := healthSvc.Status(c.Request.Context())
		if !ok {
			respond.JSON(c, http.StatusServiceUnavailable, status)
			return
		}
		respond.OK(c, status)
	})
	if deps.Pipeline != nil {
		deps.Pipeline.RegisterRoutes(api)
	}

	return r
}

// rateLimitGroup puts the model-backed steps in their own, tighter bucket.
func rateLimitGroup(c *gin.Context) string {
	path := c.Request.URL.Path
	switch {
	case path == "/api/upload-resume", path == "/api/optimize-resume":
		return middleware.GroupAI
	case strings.HasPrefix(path, "/api/payment-status/"):
		return middleware.GroupPolling
	default:
		return middleware.GroupDefault
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
