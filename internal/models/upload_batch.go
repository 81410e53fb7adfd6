package models

import "time"

// Report types accepted by the ingestion pipeline
const (
	ReportTypeReading = "reading"
	ReportTypeGateway = "gateway"
)

// Batch outcomes
const (
	BatchOutcomeAccepted  = "accepted"
	BatchOutcomeDuplicate = "duplicate"
	BatchOutcomeRejected  = "rejected"
)

// UploadBatch records one ingestion attempt. The fingerprint is a
// SHA-256 over the raw file bytes and is unique per tenant and
// report type, so re-uploading an unchanged file is a no-op.
type UploadBatch struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	BatchID     string    `gorm:"uniqueIndex;size:36;not null" json:"batch_id"`
	TenantID    string    `gorm:"uniqueIndex:idx_batch_fingerprint;size:100;not null" json:"tenant_id"`
	ReportType  string    `gorm:"uniqueIndex:idx_batch_fingerprint;size:20;not null" json:"report_type"`
	Fingerprint string    `gorm:"uniqueIndex:idx_batch_fingerprint;size:64;not null" json:"fingerprint"`
	Filename    string    `gorm:"size:255" json:"filename"`
	TotalRows   int       `json:"total_rows"`
	Accepted    int       `json:"accepted"`
	Skipped     int       `json:"skipped"`
	Outcome     string    `gorm:"size:20;not null" json:"outcome"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

func (UploadBatch) TableName() string { return "upload_batches" }
