package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/mgsetel/vigilacore/internal/models"
	"github.com/mgsetel/vigilacore/internal/services"
)

// HealthHandler provides enhanced health check endpoints.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// CheckHealth returns the health status of all subsystems.
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"

	// Database check
	dbStatus := "ok"
	sqlDB, err := models.GetDB().DB()
	if err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	} else if err := sqlDB.Ping(); err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	}

	// Queue mode
	taskQueue := services.GetTaskQueue()
	queueMode := "sync"
	if taskQueue != nil && taskQueue.IsAsync() {
		queueMode = "async (Redis)"
	}

	// Pending reading orders
	var pendingCount int64
	models.GetDB().Model(&models.ReadingRecord{}).
		Where("status = ?", models.ReadingStatusPending).
		Count(&pendingCount)

	// Running sync sessions
	var activeLocks int64
	models.GetDB().Model(&models.SyncLock{}).Count(&activeLocks)

	c.JSON(200, gin.H{
		"status":  overall,
		"service": "vigilacore",
		"components": gin.H{
			"database":       dbStatus,
			"queue_mode":     queueMode,
			"pending_orders": pendingCount,
			"sync_sessions":  activeLocks,
		},
	})
}
