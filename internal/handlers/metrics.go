package handlers

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mgsetel/vigilacore/internal/models"
	"github.com/mgsetel/vigilacore/internal/services"
)

var startTime = time.Now()

// Metrics returns Prometheus-compatible text format metrics.
func Metrics(c *gin.Context) {
	var b strings.Builder

	// -- Runtime metrics --
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	writeGauge(&b, "vigilacore_uptime_seconds", "Time since server start in seconds", float64(time.Since(startTime).Seconds()))
	writeGauge(&b, "vigilacore_goroutines", "Number of active goroutines", float64(runtime.NumGoroutine()))
	writeGauge(&b, "vigilacore_memory_alloc_bytes", "Current heap allocation in bytes", float64(m.Alloc))
	writeGauge(&b, "vigilacore_memory_sys_bytes", "Total memory obtained from OS in bytes", float64(m.Sys))
	writeGauge(&b, "vigilacore_gc_runs_total", "Total number of GC runs", float64(m.NumGC))

	// -- Database metrics --
	db := models.GetDB()
	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			stats := sqlDB.Stats()
			writeGauge(&b, "vigilacore_db_open_connections", "Number of open DB connections", float64(stats.OpenConnections))
			writeGauge(&b, "vigilacore_db_in_use_connections", "Number of in-use DB connections", float64(stats.InUse))
			writeGauge(&b, "vigilacore_db_idle_connections", "Number of idle DB connections", float64(stats.Idle))
		}
	}

	// -- Queue metrics --
	taskQueue := services.GetTaskQueue()
	queueAsync := 0.0
	if taskQueue != nil && taskQueue.IsAsync() {
		queueAsync = 1.0
	}
	writeGauge(&b, "vigilacore_queue_async_enabled", "Whether async queue (Redis) is enabled (1=yes, 0=no)", queueAsync)

	// -- Pipeline metrics --
	if db != nil {
		var totalBatches, acceptedBatches int64
		db.Model(&models.UploadBatch{}).Count(&totalBatches)
		db.Model(&models.UploadBatch{}).Where("outcome = ?", models.BatchOutcomeAccepted).Count(&acceptedBatches)

		writeGauge(&b, "vigilacore_batches_total", "Total number of upload batches", float64(totalBatches))
		writeGauge(&b, "vigilacore_batches_accepted", "Number of accepted upload batches", float64(acceptedBatches))

		var pendingOrders, unroutedReading int64
		db.Model(&models.ReadingRecord{}).Where("status = ?", models.ReadingStatusPending).Count(&pendingOrders)
		db.Model(&models.ReadingRecord{}).Where("region = ?", models.RegionUnrouted).Count(&unroutedReading)

		writeGauge(&b, "vigilacore_reading_pending", "Number of pending reading orders", float64(pendingOrders))
		writeGauge(&b, "vigilacore_reading_unrouted", "Number of reading records with no region match", float64(unroutedReading))

		var snapshotDays int64
		db.Model(&models.DailySnapshot{}).Distinct("snapshot_date").Count(&snapshotDays)
		writeGauge(&b, "vigilacore_snapshot_days_total", "Number of days with a frozen snapshot", float64(snapshotDays))

		// Batches in the last 24h
		since24h := time.Now().Add(-24 * time.Hour)
		var batches24h int64
		db.Model(&models.UploadBatch{}).Where("created_at >= ?", since24h).Count(&batches24h)
		writeGauge(&b, "vigilacore_batches_24h", "Upload batches in the last 24 hours", float64(batches24h))
	}

	c.Data(200, "text/plain; version=0.0.4; charset=utf-8", []byte(b.String()))
}

func writeGauge(b *strings.Builder, name, help string, value float64) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s gauge\n", name)
	fmt.Fprintf(b, "%s %g\n\n", name, value)
}
