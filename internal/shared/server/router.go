package server

import (
	"github.com/gin-gonic/gin"

	googleauth "research-backend/internal/auth"
	"research-backend/internal/preferences"
	"research-backend/internal/projects"
	"research-backend/internal/services/health"
	"research-backend/internal/shared/auth"
	"research-backend/internal/shared/config"
	"research-backend/internal/shared/metrics"
	"research-backend/internal/shared/server/middleware"
	"research-backend/internal/users"
)

// RouterDeps carries the handlers registered on the API group.
type RouterDeps struct {
	Config      config.Config
	Signer      *auth.Signer
	Health      *health.Service
	Projects    *projects.Handler
	Users       *users.Handler
	Preferences *preferences.Handler
	GoogleAuth  *googleauth.GoogleService
	// RateLimiter is optional; tests inject one with a fake clock.
	RateLimiter *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Auth(deps.Signer),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				middleware.AnalyzeRateLimitGroup: middleware.PerMinute(deps.Config.AnalyzeRatePerMin, deps.Config.AnalyzeBurst),
			},
			GroupFor: middleware.AnalyzeGroup,
			Limiter:  deps.RateLimiter,
		}),
	)

	healthSvc := deps.Health
	if healthSvc == nil {
		healthSvc = health.NewService()
	}

	api := r.Group("/api/v1")
	api.GET("/health", healthSvc.Handler())
	api.GET("/metrics", metrics.Handler())

	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}
	if deps.Users != nil {
		deps.Users.RegisterRoutes(api)
	}
	if deps.Preferences != nil {
		deps.Preferences.RegisterRoutes(api)
	}
	if deps.Projects != nil {
		deps.Projects.RegisterRoutes(api)
	}

	return r
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
