package router

import (
	"github.com/gin-gonic/gin"

	"payslipx/internal/domain"
	"payslipx/internal/handler"
	"payslipx/internal/metrics"
	"payslipx/internal/middleware"
)

// Handlers groups the HTTP handlers mounted by Setup.
type Handlers struct {
	Auth       *handler.AuthHandler
	Extraction *handler.ExtractionHandler
	Usage      *handler.UsageHandler
	Admin      *handler.AdminHandler
	Health     *handler.HealthHandler
}

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	tokens middleware.TokenValidator,
	h Handlers,
	m *metrics.Metrics,
	corsOrigins []string,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(m))
	r.Use(middleware.CORS(corsOrigins))

	// Health checks
	r.GET("/healthz", h.Health.Liveness)
	r.GET("/readyz", h.Health.Readiness)
	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	v1 := r.Group("/api/v1")

	// Public auth routes
	v1.POST("/auth/device-token", h.Auth.DeviceToken)

	// Protected routes - require valid device token
	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(tokens))

	extractions := protected.Group("/extractions")
	extractions.POST("", h.Extraction.Extract)
	extractions.POST("/jobs", h.Extraction.SubmitJob)
	extractions.GET("/jobs/:id", h.Extraction.GetJob)

	usage := protected.Group("/usage")
	usage.GET("", h.Usage.List)
	usage.GET("/summary", middleware.RequireRole(domain.RoleAdmin), h.Usage.Summary)
	usage.GET("/export", middleware.RequireRole(domain.RoleAdmin), h.Usage.Export)
	usage.POST("/alerts", middleware.RequireRole(domain.RoleAdmin), h.Usage.CheckAnomalies)

	// Admin routes
	admin := protected.Group("/admin")
	admin.Use(middleware.RequireRole(domain.RoleAdmin))
	admin.GET("/ratelimit", h.Admin.GetRateLimit)
	admin.PUT("/ratelimit", h.Admin.UpdateRateLimit)
	admin.GET("/cache", h.Admin.CacheStats)
	admin.DELETE("/cache", h.Admin.PurgeCache)

	return r
}
