package services

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/mgsetel/vigilacore/internal/models"
	"gorm.io/gorm"
)

// Fingerprint computes the stable content fingerprint of a report
// file. The same bytes always hash the same regardless of upload
// time or uploader.
func Fingerprint(fileBytes []byte) string {
	sum := sha256.Sum256(fileBytes)
	return hex.EncodeToString(sum[:])
}

// IsDuplicateBatch reports whether a fingerprint was already accepted
// for the tenant and report type. Runs inside the ingestion
// transaction so the check and the insert are atomic.
func IsDuplicateBatch(tx *gorm.DB, tenantID, reportType, fingerprint string) (bool, error) {
	var count int64
	err := tx.Model(&models.UploadBatch{}).
		Where("tenant_id = ? AND report_type = ? AND fingerprint = ? AND outcome = ?",
			tenantID, reportType, fingerprint, models.BatchOutcomeAccepted).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
