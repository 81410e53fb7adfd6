package services

import (
	"github.com/mgsetel/vigilacore/internal/models"
	"gorm.io/gorm"
)

// RegionRouter maps locality codes to regions through the
// table-driven rule set. Routing is total: a code matching no rule
// lands in the unrouted bucket, which is queryable, never an error.
type RegionRouter struct {
	db *gorm.DB
}

func NewRegionRouter(db *gorm.DB) *RegionRouter {
	return &RegionRouter{db: db}
}

// RegionalCode extracts digits [2:6] of an 8-digit locality code.
func RegionalCode(localityCode string) (string, bool) {
	if len(localityCode) != 8 {
		return "", false
	}
	return localityCode[2:6], true
}

// RouteWith resolves a locality code against a preloaded rule map.
// Used during batch ingestion so a thousand rows cost one rule load.
func RouteWith(rules map[string]string, localityCode string) string {
	code, ok := RegionalCode(localityCode)
	if !ok {
		return models.RegionUnrouted
	}
	if region, ok := rules[code]; ok {
		return region
	}
	return models.RegionUnrouted
}

// LoadRules reads the regional code map through the given handle, so
// batch ingestion can load rules inside its own transaction.
func LoadRules(db *gorm.DB) (map[string]string, error) {
	var rows []models.RegionRule
	if err := db.Find(&rows).Error; err != nil {
		return nil, err
	}
	rules := make(map[string]string, len(rows))
	for _, row := range rows {
		rules[row.RegionalCode] = row.Region
	}
	return rules, nil
}

// Rules loads the current regional code map.
func (r *RegionRouter) Rules() (map[string]string, error) {
	return LoadRules(r.db)
}

// Route resolves a single locality code against the stored rules.
func (r *RegionRouter) Route(localityCode string) (string, error) {
	rules, err := r.Rules()
	if err != nil {
		return "", err
	}
	return RouteWith(rules, localityCode), nil
}

// UnroutedEntry is one locality code with no region match.
type UnroutedEntry struct {
	LocalityCode string `json:"locality_code"`
	RegionalCode string `json:"regional_code"`
	Count        int64  `json:"count"`
}

type UnroutedRequest struct {
	TenantID   string `form:"tenant_id" binding:"required"`
	ReportType string `form:"report_type"`
}

// Unrouted lists locality codes that matched no routing rule, with
// occurrence counts, so operators can see what needs a new rule.
func (r *RegionRouter) Unrouted(req *UnroutedRequest) ([]UnroutedEntry, error) {
	var entries []UnroutedEntry

	query := r.db.Model(&models.ReadingRecord{}).
		Select("locality_code, COUNT(*) as count").
		Where("tenant_id = ? AND region = ? AND superseded = ?", req.TenantID, models.RegionUnrouted, false)
	if req.ReportType == models.ReportTypeGateway {
		// Gateway reports restate the full execution state, so only
		// the most recent batch is counted.
		latest := r.db.Model(&models.GatewayRecord{}).
			Select("batch_id").
			Where("tenant_id = ?", req.TenantID).
			Order("id DESC").Limit(1)
		query = r.db.Model(&models.GatewayRecord{}).
			Select("locality_code, COUNT(*) as count").
			Where("tenant_id = ? AND region = ? AND batch_id = (?)", req.TenantID, models.RegionUnrouted, latest)
	}

	if err := query.Group("locality_code").Order("count DESC").Scan(&entries).Error; err != nil {
		return nil, err
	}

	for i := range entries {
		if code, ok := RegionalCode(entries[i].LocalityCode); ok {
			entries[i].RegionalCode = code
		}
	}
	return entries, nil
}

// AddRule inserts or updates a routing rule. Historical records keep
// their stored region until the next re-ingestion recomputes it.
func (r *RegionRouter) AddRule(regionalCode, region string) error {
	var rule models.RegionRule
	err := r.db.Where("regional_code = ?", regionalCode).First(&rule).Error
	if err == gorm.ErrRecordNotFound {
		return r.db.Create(&models.RegionRule{RegionalCode: regionalCode, Region: region}).Error
	}
	if err != nil {
		return err
	}
	return r.db.Model(&rule).Update("region", region).Error
}
