package models

import "time"

// Region names. Codes matching no rule fall into RegionUnrouted,
// which is a queryable bucket, not an error.
const (
	RegionAraxa    = "Araxá"
	RegionUberaba  = "Uberaba"
	RegionFrutal   = "Frutal"
	RegionUnrouted = "NÃO ROTEADA"
)

// RegionRule maps a regional code (digits [2:6] of the 8-digit
// locality code) to a region. Rules are table-driven so a new
// locality can be routed without touching historical records.
type RegionRule struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	RegionalCode string    `gorm:"uniqueIndex;size:4;not null" json:"regional_code"`
	Region       string    `gorm:"size:50;not null;index" json:"region"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (RegionRule) TableName() string { return "region_rules" }
