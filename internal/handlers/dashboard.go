package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/mgsetel/vigilacore/internal/services"
	"github.com/mgsetel/vigilacore/pkg/response"
	"gorm.io/gorm"
)

type DashboardHandler struct {
	metricsService *services.MetricsService
	router         *services.RegionRouter
}

func NewDashboardHandler(db *gorm.DB) *DashboardHandler {
	return &DashboardHandler{
		metricsService: services.NewMetricsService(db),
		router:         services.NewRegionRouter(db),
	}
}

// GetMetrics returns aggregated counts, ratios and breakdowns.
// GET /api/v1/metrics
func (h *DashboardHandler) GetMetrics(c *gin.Context) {
	var req services.MetricsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.metricsService.GetMetrics(&req)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, resp)
}

// GetUnrouted lists locality codes that matched no routing rule.
// GET /api/v1/metrics/unrouted
func (h *DashboardHandler) GetUnrouted(c *gin.Context) {
	var req services.UnroutedRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	entries, err := h.router.Unrouted(&req)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, entries)
}

type addRuleRequest struct {
	RegionalCode string `json:"regional_code" binding:"required,len=4"`
	Region       string `json:"region" binding:"required"`
}

// AddRule inserts or updates a routing rule. Historical records are
// not rewritten; region is recomputed at the next re-ingestion.
// POST /api/v1/routing-rules
func (h *DashboardHandler) AddRule(c *gin.Context) {
	var req addRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.router.AddRule(req.RegionalCode, req.Region); err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{"regional_code": req.RegionalCode, "region": req.Region})
}
