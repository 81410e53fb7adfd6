package models

import "time"

// DailySnapshot is one frozen delay count per (tenant, date, reason).
// Rows are write-once: a freeze for an existing date returns the
// stored rows unchanged.
type DailySnapshot struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	TenantID     string    `gorm:"uniqueIndex:idx_snapshot_day;size:100;not null" json:"tenant_id"`
	SnapshotDate string    `gorm:"uniqueIndex:idx_snapshot_day;size:10;not null" json:"snapshot_date"` // YYYY-MM-DD
	DelayReason  string    `gorm:"uniqueIndex:idx_snapshot_day;size:2;not null" json:"delay_reason"`
	Pending      int       `json:"pending"`
	Overdue      int       `json:"overdue"`
	CreatedAt    time.Time `json:"created_at"`
}

func (DailySnapshot) TableName() string { return "daily_snapshots" }

// MonthlyAccumulation is the month-to-date running maximum per
// (tenant, year, month, cycle, region, reason). Columns only ever
// grow within a month; a lower observed value is ignored. A new
// month starts a fresh bucket.
type MonthlyAccumulation struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	TenantID       string    `gorm:"uniqueIndex:idx_accum_bucket;size:100;not null" json:"tenant_id"`
	Year           int       `gorm:"uniqueIndex:idx_accum_bucket;not null" json:"year"`
	Month          int       `gorm:"uniqueIndex:idx_accum_bucket;not null" json:"month"`
	Cycle          string    `gorm:"uniqueIndex:idx_accum_bucket;size:2;not null" json:"cycle"`
	Region         string    `gorm:"uniqueIndex:idx_accum_bucket;size:50;not null" json:"region"`
	DelayReason    string    `gorm:"uniqueIndex:idx_accum_bucket;size:2;not null" json:"delay_reason"`
	PlannedOSB     int       `json:"planned_osb"`
	NotExecutedOSB int       `json:"not_executed_osb"`
	PlannedCNV     int       `json:"planned_cnv"`
	NotExecutedCNV int       `json:"not_executed_cnv"`
	PlannedTotal   int       `json:"planned_total"`
	NotExecTotal   int       `json:"not_executed_total"`
	FirstSeenAt    time.Time `json:"first_seen_at"`
	LastSeenAt     time.Time `json:"last_seen_at"`
}

func (MonthlyAccumulation) TableName() string { return "monthly_accumulation" }
