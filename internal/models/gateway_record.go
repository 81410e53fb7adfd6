package models

import "time"

// Gateway service types
const (
	ServiceTypeOSB = "OSB"
	ServiceTypeCNV = "CNV"
)

// GatewayRecord represents one aggregated execution row from a
// gateway report, grouped by contract set and service type.
// NotExecuted and Impediments are independent counts: an order can
// be not executed with or without a recorded impediment.
type GatewayRecord struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	TenantID     string `gorm:"index:idx_gateway_tenant_ul;size:100;not null" json:"tenant_id"`
	BatchID      string `gorm:"index;size:36;not null" json:"batch_id"`
	LocalityCode string `gorm:"index:idx_gateway_tenant_ul;size:8;not null" json:"locality_code"`
	ContractSet  string `gorm:"size:200" json:"contract_set"`
	Region       string `gorm:"size:50;index" json:"region"`
	Cycle        string `gorm:"size:2;index" json:"cycle"`
	ServiceType  string `gorm:"size:10;index" json:"service_type"` // OSB, CNV
	Planned      int    `json:"planned"`
	NotExecuted  int    `json:"not_executed"`
	Impediments  int    `json:"impediments"`
	Rereadings   int    `json:"rereadings"`
	ReportDate   time.Time `gorm:"index" json:"report_date"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (GatewayRecord) TableName() string { return "gateway_records" }
