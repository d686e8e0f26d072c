package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"compliance-backend/internal/agent"
	"compliance-backend/internal/analysis"
	"compliance-backend/internal/analytics"
	"compliance-backend/internal/auth"
	"compliance-backend/internal/identity"
	"compliance-backend/internal/organizations"
	"compliance-backend/internal/questionnaire"
	"compliance-backend/internal/reports"
	"compliance-backend/internal/services/health"
	"compliance-backend/internal/shared/config"
	"compliance-backend/internal/shared/metrics"
	"compliance-backend/internal/shared/server/middleware"
	"compliance-backend/internal/shared/server/respond"
)

// Rate limit groups.
const (
	rateGroupDefault = "DEFAULT"
	rateGroupAnalyze = "ANALYZE"
	rateGroupPDF     = "PDF"
)

// RouterDeps lists everything the router mounts.
type RouterDeps struct {
	Config        config.Config
	Identity      identity.Provider
	GoogleAuth    *auth.GoogleService
	Health        *health.Service
	Organizations *organizations.Handler
	Questionnaire *questionnaire.Handler
	Agent         *agent.Handler
	Analysis      *analysis.Handler
	Analytics     *analytics.Handler
	Reports       *reports.Handler
	RateLimiter   *middleware.RateLimiter
}

// DefaultRateLimits allows model calls and PDF renders far less often than reads.
func DefaultRateLimits() map[string]middleware.RateLimitRule {
	return map[string]middleware.RateLimitRule{
		rateGroupDefault: {Rate: 10, Burst: 30},
		rateGroupAnalyze: {Rate: 0.2, Burst: 3},
		rateGroupPDF:     {Rate: 0.5, Burst: 5},
	}
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if !deps.Config.IsDevLike() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(middleware.CORSConfig{
			Origins:    deps.Config.CORSAllowOrigin,
			ReflectAny: deps.Config.IsDevLike(),
		}),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		if deps.Health == nil {
			respond.JSON(c, http.StatusOK, gin.H{"ok": true})
			return
		}
		st := deps.Health.Check(c.Request.Context())
		status := http.StatusOK
		if !st.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, st)
	})

	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}

	authed := api.Group("")
	authed.Use(
		middleware.Auth(deps.Identity),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules:        DefaultRateLimits(),
			DefaultGroup: rateGroupDefault,
			GroupFor:     rateGroupFor,
			Limiter:      deps.RateLimiter,
		}),
	)
	registerMeRoutes(authed)
	if deps.Organizations != nil {
		deps.Organizations.RegisterRoutes(authed)
	}
	if deps.Questionnaire != nil {
		deps.Questionnaire.RegisterRoutes(authed)
	}
	if deps.Agent != nil {
		deps.Agent.RegisterRoutes(authed)
	}
	if deps.Analysis != nil {
		deps.Analysis.RegisterRoutes(authed)
	}
	if deps.Analytics != nil {
		deps.Analytics.RegisterRoutes(authed)
	}
	if deps.Reports != nil {
		deps.Reports.RegisterRoutes(authed)
	}

	return r
}

func rateGroupFor(c *gin.Context) string {
	path := c.FullPath()
	switch {
	case c.Request.Method == http.MethodPost && strings.HasPrefix(path, "/api/analyze/"):
		return rateGroupAnalyze
	case strings.HasPrefix(path, "/api/report/pdf/"):
		return rateGroupPDF
	default:
		return rateGroupDefault
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
