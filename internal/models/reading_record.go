package models

import "time"

// Reading record status values
const (
	ReadingStatusPending   = "PENDENTE"
	ReadingStatusCompleted = "CONCLUÍDA"
	ReadingStatusOverdue   = "ATRASADA"
)

// ReadingRecord represents one re-reading service order row from a
// reading report. The locality code is immutable once persisted;
// region and cycle are derived from it and may be recomputed.
type ReadingRecord struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	TenantID     string `gorm:"index:idx_reading_tenant_ul;size:100;not null" json:"tenant_id"`
	BatchID      string `gorm:"index;size:36;not null" json:"batch_id"`
	LocalityCode string `gorm:"index:idx_reading_tenant_ul;size:8;not null" json:"locality_code"`
	Installation string `gorm:"size:10" json:"installation"`
	Registration string `gorm:"size:50" json:"registration"`
	Address      string `gorm:"size:500" json:"address"`
	Region       string `gorm:"size:50;index" json:"region"` // empty until routed
	Cycle        string `gorm:"size:2;index" json:"cycle"`
	DelayReason  string `gorm:"size:2;index" json:"delay_reason"` // first two locality digits, "01".."18"
	Status       string `gorm:"size:20;default:PENDENTE;index" json:"status"`
	Superseded   bool   `gorm:"default:false;index" json:"superseded"` // a newer batch restated this installation
	DueDate      *time.Time `json:"due_date"`
	CompletedAt  *time.Time `json:"completed_at"`
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (ReadingRecord) TableName() string { return "reading_records" }
