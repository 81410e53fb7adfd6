package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mgsetel/vigilacore/internal/services"
	"github.com/mgsetel/vigilacore/pkg/response"
	"gorm.io/gorm"
)

type SnapshotHandler struct {
	snapshotService *services.SnapshotService
}

func NewSnapshotHandler(db *gorm.DB) *SnapshotHandler {
	return &SnapshotHandler{
		snapshotService: services.NewSnapshotService(db),
	}
}

type freezeRequest struct {
	TenantID string `json:"tenant_id" binding:"required"`
	Date     string `json:"date"` // YYYY-MM-DD, defaults to today
}

// Freeze creates (or returns) the daily snapshot for a date.
// POST /api/v1/snapshots/freeze
func (h *SnapshotHandler) Freeze(c *gin.Context) {
	var req freezeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	date := time.Now()
	if req.Date != "" {
		parsed, err := time.ParseInLocation("2006-01-02", req.Date, time.Local)
		if err != nil {
			response.BadRequest(c, "invalid date, expected YYYY-MM-DD")
			return
		}
		date = parsed
	}

	rows, err := h.snapshotService.Freeze(req.TenantID, date)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{"date": date.Format("2006-01-02"), "reasons": rows})
}

type snapshotDatesRequest struct {
	TenantID string `form:"tenant_id" binding:"required"`
	Month    string `form:"month" binding:"required"` // YYYY-MM
}

// ListDates lists the snapshot dates recorded within a month.
// GET /api/v1/snapshots/dates
func (h *SnapshotHandler) ListDates(c *gin.Context) {
	var req snapshotDatesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dates, err := h.snapshotService.ListSnapshotDates(req.TenantID, req.Month)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, dates)
}

type snapshotGetRequest struct {
	TenantID string `form:"tenant_id" binding:"required"`
	Date     string `form:"date" binding:"required"` // YYYY-MM-DD
}

// Get returns the frozen rows for one date.
// GET /api/v1/snapshots
func (h *SnapshotHandler) Get(c *gin.Context) {
	var req snapshotGetRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	rows, err := h.snapshotService.GetSnapshot(req.TenantID, req.Date)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	if len(rows) == 0 {
		response.NotFound(c, "no snapshot for date "+req.Date)
		return
	}

	response.Success(c, rows)
}

type monthlyRequest struct {
	TenantID string `form:"tenant_id" binding:"required"`
	Month    string `form:"month" binding:"required"` // YYYY-MM
}

// GetMonthly returns the monthly accumulation rows.
// GET /api/v1/snapshots/monthly
func (h *SnapshotHandler) GetMonthly(c *gin.Context) {
	var req monthlyRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	rows, err := h.snapshotService.GetMonthlyAccumulation(req.TenantID, req.Month)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	response.Success(c, rows)
}
