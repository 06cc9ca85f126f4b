package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/opencase/benefits-portal-api/internal/middleware"
	"github.com/opencase/benefits-portal-api/internal/service"
)

// Handlers bundles the portal's HTTP handlers for route registration.
type Handlers struct {
	Cases    *CaseHandler
	Settings *SettingsHandler
	Sweeps   *SweepHandler
	Metrics  *MetricsHandler
}

// RegisterRoutes wires all portal routes under the API prefix. Every guarded
// route passes JWT validation and then the capability table.
func RegisterRoutes(r *gin.Engine, prefix string, auth *service.AuthService, h Handlers) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Health)
	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group(prefix)
	api.Use(middleware.JWT(auth))

	cases := api.Group("/cases")
	{
		cases.POST("", middleware.RequireCapability(middleware.OpCreateCase), h.Cases.Create)
		cases.GET("", middleware.RequireCapability(middleware.OpListCases), h.Cases.List)
		cases.GET("/:id", middleware.RequireCapability(middleware.OpViewCase), h.Cases.Get)
		cases.POST("/:id/submit", middleware.RequireCapability(middleware.OpSubmitCase), h.Cases.Submit)
		cases.POST("/:id/accept", middleware.RequireCapability(middleware.OpAcceptCase), h.Cases.Accept)
		cases.POST("/:id/hold", middleware.RequireCapability(middleware.OpHoldCase), h.Cases.Hold)
		cases.POST("/:id/resume", middleware.RequireCapability(middleware.OpResumeCase), h.Cases.Resume)
		cases.POST("/:id/complete", middleware.RequireCapability(middleware.OpCompleteCase), h.Cases.Complete)
		cases.POST("/:id/release", middleware.RequireCapability(middleware.OpReleaseCase), h.Cases.Release)
		cases.PATCH("/:id/tier", middleware.RequireCapability(middleware.OpChangeTier), h.Cases.ChangeTier)
		cases.PATCH("/:id/credit", middleware.RequireCapability(middleware.OpAdjustCredit), h.Cases.AdjustCredit)
		cases.GET("/:id/audit", middleware.RequireCapability(middleware.OpViewAuditTrail), h.Cases.AuditTrail)
		cases.GET("/:id/credits", middleware.RequireCapability(middleware.OpViewAuditTrail), h.Cases.CreditHistory)
		cases.GET("/:id/sync-attempts", middleware.RequireCapability(middleware.OpViewAuditTrail), h.Cases.SyncAttempts)
		cases.POST("/:id/sync/retry", middleware.RequireCapability(middleware.OpRetrySync), h.Cases.RetrySync)
	}

	settings := api.Group("/settings")
	{
		settings.GET("", middleware.RequireCapability(middleware.OpViewSettings), h.Settings.Get)
		settings.PATCH("", middleware.RequireCapability(middleware.OpEditSettings), h.Settings.Update)
	}

	sweeps := api.Group("/sweeps", middleware.RequireCapability(middleware.OpRunSweep))
	{
		sweeps.POST("/release", h.Sweeps.Release)
		sweeps.POST("/notifications", h.Sweeps.Notifications)
		sweeps.POST("/sync-retry", h.Sweeps.SyncRetry)
	}
}
