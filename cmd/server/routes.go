package main

import (
	"github.com/gin-gonic/gin"
	"github.com/mgsetel/vigilacore/internal/handlers"
	"github.com/mgsetel/vigilacore/internal/middleware"
	"github.com/mgsetel/vigilacore/internal/models"
	"github.com/mgsetel/vigilacore/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	// Middleware
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS())

	// Rate limiter for upload routes
	uploadLimiter := middleware.NewRateLimiter(10, 20)

	// Health and operational metrics
	healthHandler := handlers.NewHealthHandler()
	r.GET("/health", healthHandler.CheckHealth)
	r.GET("/metrics", handlers.Metrics)

	// API routes
	api := r.Group("/api/v1")
	api.Use(middleware.AuditLog())
	{
		// Report ingestion (rate limited, uploads are expensive to parse)
		ingest := api.Group("", uploadLimiter.Middleware())
		{
			ingest.POST("/reports/ingest", svc.ingestHandler.Ingest)
		}

		// Aggregated metrics and routing
		dashboardHandler := handlers.NewDashboardHandler(models.GetDB())
		api.GET("/metrics", dashboardHandler.GetMetrics)
		api.GET("/metrics/unrouted", dashboardHandler.GetUnrouted)
		api.POST("/routing-rules", dashboardHandler.AddRule)

		// Daily snapshots and monthly accumulation
		snapshotHandler := handlers.NewSnapshotHandler(models.GetDB())
		api.GET("/snapshots", snapshotHandler.Get)
		api.POST("/snapshots/freeze", snapshotHandler.Freeze)
		api.GET("/snapshots/dates", snapshotHandler.ListDates)
		api.GET("/snapshots/monthly", snapshotHandler.GetMonthly)

		// Sync sessions
		api.POST("/sync/trigger", svc.syncHandler.Trigger)

		// System config
		systemConfigHandler := handlers.NewSystemConfigHandler(models.GetDB())
		api.GET("/system-config/sync", systemConfigHandler.GetSyncSettings)
		api.PUT("/system-config/sync", systemConfigHandler.UpdateSyncSettings)
		api.GET("/system-config", systemConfigHandler.GetByGroup)

		// System Logs
		systemLogHandler := handlers.NewSystemLogHandler(models.GetDB())
		api.GET("/system-logs", systemLogHandler.List)
		api.GET("/system-logs/modules", systemLogHandler.GetModules)
	}
}
