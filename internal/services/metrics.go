package services

import (
	"math"
	"time"

	"github.com/mgsetel/vigilacore/internal/models"
	"gorm.io/gorm"
)

// MetricsService folds persisted records into dashboard aggregates.
// All methods are read-only; two calls with the same filters against
// unchanged data return identical results.
type MetricsService struct {
	db *gorm.DB
}

func NewMetricsService(db *gorm.DB) *MetricsService {
	return &MetricsService{db: db}
}

// Percent returns part/total*100 rounded to one decimal. A zero
// total yields 0 rather than an error.
func Percent(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*1000) / 10
}

type MetricsRequest struct {
	TenantID   string `form:"tenant_id" binding:"required"`
	ReportType string `form:"report_type"` // reading (default), gateway
	Region     string `form:"region"`
	Cycle      string `form:"cycle"`
	StartDate  string `form:"start_date"`
	EndDate    string `form:"end_date"`
	ActiveOnly bool   `form:"active_only"` // restrict to the month's cycle under focus
}

type ReadingMetrics struct {
	Total        int64   `json:"total"`
	Pending      int64   `json:"pending"`
	Completed    int64   `json:"completed"`
	Overdue      int64   `json:"overdue"`
	CompletedPct float64 `json:"completed_pct"`
	OverduePct   float64 `json:"overdue_pct"`
}

type GatewayMetrics struct {
	Planned        int64   `json:"planned"`
	NotExecuted    int64   `json:"not_executed"`
	Impediments    int64   `json:"impediments"`
	Rereadings     int64   `json:"rereadings"`
	NotExecutedPct float64 `json:"not_executed_pct"`
}

type RegionBreakdown struct {
	Region      string  `json:"region"`
	Total       int64   `json:"total"`
	Pending     int64   `json:"pending"`
	Completed   int64   `json:"completed"`
	Planned     int64   `json:"planned"`
	NotExecuted int64   `json:"not_executed"`
	Pct         float64 `json:"pct"`
}

type CycleBreakdown struct {
	Cycle       string `json:"cycle"`
	Total       int64  `json:"total"`
	Planned     int64  `json:"planned"`
	NotExecuted int64  `json:"not_executed"`
}

type LocalityBreakdown struct {
	LocalityCode string `json:"locality_code"`
	Region       string `json:"region"`
	Total        int64  `json:"total"`
	Pending      int64  `json:"pending"`
	Planned      int64  `json:"planned"`
	NotExecuted  int64  `json:"not_executed"`
}

type MetricsResponse struct {
	ReportType string             `json:"report_type"`
	Reading    *ReadingMetrics    `json:"reading,omitempty"`
	Gateway    *GatewayMetrics    `json:"gateway,omitempty"`
	ByRegion   []RegionBreakdown  `json:"by_region"`
	ByCycle    []CycleBreakdown   `json:"by_cycle"`
	ByLocality []LocalityBreakdown `json:"by_locality"`
}

func (s *MetricsService) baseQuery(model interface{}, req *MetricsRequest) *gorm.DB {
	query := s.db.Model(model).Where("tenant_id = ?", req.TenantID)
	if req.Region != "" {
		query = query.Where("region = ?", req.Region)
	}
	cycle := req.Cycle
	if req.ActiveOnly && cycle == "" {
		cycle = CycleForMonth(time.Now().Month())
	}
	if cycle != "" {
		query = query.Where("cycle = ?", cycle)
	}
	if req.StartDate != "" {
		query = query.Where("created_at >= ?", req.StartDate)
	}
	if req.EndDate != "" {
		query = query.Where("created_at <= ?", req.EndDate+" 23:59:59")
	}
	return query
}

func (s *MetricsService) GetMetrics(req *MetricsRequest) (*MetricsResponse, error) {
	if req.ReportType == "" {
		req.ReportType = models.ReportTypeReading
	}

	switch req.ReportType {
	case models.ReportTypeReading:
		return s.readingMetrics(req)
	case models.ReportTypeGateway:
		return s.gatewayMetrics(req)
	default:
		return nil, &SchemaError{Detail: "unknown report type: " + req.ReportType}
	}
}

// readingQuery restricts reading aggregates to the latest row per
// installation; rows restated by a newer batch are superseded and
// must not be counted again.
func (s *MetricsService) readingQuery(req *MetricsRequest) *gorm.DB {
	return s.baseQuery(&models.ReadingRecord{}, req).Where("superseded = ?", false)
}

// gatewayQuery restricts gateway aggregates to the most recent batch,
// since every gateway report restates the full execution state.
func (s *MetricsService) gatewayQuery(req *MetricsRequest) *gorm.DB {
	latest := s.db.Model(&models.GatewayRecord{}).
		Select("batch_id").
		Where("tenant_id = ?", req.TenantID)
	if req.StartDate != "" {
		latest = latest.Where("created_at >= ?", req.StartDate)
	}
	if req.EndDate != "" {
		latest = latest.Where("created_at <= ?", req.EndDate+" 23:59:59")
	}
	latest = latest.Order("id DESC").Limit(1)
	return s.baseQuery(&models.GatewayRecord{}, req).Where("batch_id = (?)", latest)
}

func (s *MetricsService) readingMetrics(req *MetricsRequest) (*MetricsResponse, error) {
	today := time.Now().Truncate(24 * time.Hour)

	var m ReadingMetrics
	if err := s.readingQuery(req).Count(&m.Total).Error; err != nil {
		return nil, err
	}
	s.readingQuery(req).
		Where("status = ?", models.ReadingStatusPending).
		Count(&m.Pending)
	s.readingQuery(req).
		Where("status = ?", models.ReadingStatusCompleted).
		Count(&m.Completed)
	s.readingQuery(req).
		Where("status = ? AND due_date IS NOT NULL AND due_date < ?", models.ReadingStatusPending, today).
		Count(&m.Overdue)
	m.CompletedPct = Percent(m.Completed, m.Total)
	m.OverduePct = Percent(m.Overdue, m.Total)

	var byRegion []RegionBreakdown
	s.readingQuery(req).
		Select("region, COUNT(*) as total, " +
			"SUM(CASE WHEN status = 'PENDENTE' THEN 1 ELSE 0 END) as pending, " +
			"SUM(CASE WHEN status = 'CONCLUÍDA' THEN 1 ELSE 0 END) as completed").
		Group("region").
		Order("total DESC").
		Scan(&byRegion)
	for i := range byRegion {
		byRegion[i].Pct = Percent(byRegion[i].Completed, byRegion[i].Total)
	}

	var byCycle []CycleBreakdown
	s.readingQuery(req).
		Select("cycle, COUNT(*) as total").
		Group("cycle").
		Order("cycle").
		Scan(&byCycle)

	var byLocality []LocalityBreakdown
	s.readingQuery(req).
		Select("locality_code, region, COUNT(*) as total, " +
			"SUM(CASE WHEN status = 'PENDENTE' THEN 1 ELSE 0 END) as pending").
		Group("locality_code, region").
		Order("total DESC").
		Limit(50).
		Scan(&byLocality)

	return &MetricsResponse{
		ReportType: models.ReportTypeReading,
		Reading:    &m,
		ByRegion:   byRegion,
		ByCycle:    byCycle,
		ByLocality: byLocality,
	}, nil
}

func (s *MetricsService) gatewayMetrics(req *MetricsRequest) (*MetricsResponse, error) {
	var m GatewayMetrics
	row := s.gatewayQuery(req).
		Select("COALESCE(SUM(planned), 0) as planned, " +
			"COALESCE(SUM(not_executed), 0) as not_executed, " +
			"COALESCE(SUM(impediments), 0) as impediments, " +
			"COALESCE(SUM(rereadings), 0) as rereadings")
	if err := row.Scan(&m).Error; err != nil {
		return nil, err
	}
	m.NotExecutedPct = Percent(m.NotExecuted, m.Planned)

	var byRegion []RegionBreakdown
	s.gatewayQuery(req).
		Select("region, COUNT(*) as total, COALESCE(SUM(planned), 0) as planned, COALESCE(SUM(not_executed), 0) as not_executed").
		Group("region").
		Order("planned DESC").
		Scan(&byRegion)
	for i := range byRegion {
		byRegion[i].Pct = Percent(byRegion[i].NotExecuted, byRegion[i].Planned)
	}

	var byCycle []CycleBreakdown
	s.gatewayQuery(req).
		Select("cycle, COUNT(*) as total, COALESCE(SUM(planned), 0) as planned, COALESCE(SUM(not_executed), 0) as not_executed").
		Group("cycle").
		Order("cycle").
		Scan(&byCycle)

	var byLocality []LocalityBreakdown
	s.gatewayQuery(req).
		Select("locality_code, region, COUNT(*) as total, COALESCE(SUM(planned), 0) as planned, COALESCE(SUM(not_executed), 0) as not_executed").
		Group("locality_code, region").
		Order("planned DESC").
		Limit(50).
		Scan(&byLocality)

	return &MetricsResponse{
		ReportType: models.ReportTypeGateway,
		Gateway:    &m,
		ByRegion:   byRegion,
		ByCycle:    byCycle,
		ByLocality: byLocality,
	}, nil
}
