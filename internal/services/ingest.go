package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mgsetel/vigilacore/internal/models"
	"github.com/mgsetel/vigilacore/pkg/logger"
	"gorm.io/gorm"
)

// IngestService runs the full ingestion pipeline: parse, duplicate
// gate, route, classify, persist, all within one transaction per
// batch. Uploads for the same tenant and report type are serialized
// so two batches cannot interleave on the same locality records.
type IngestService struct {
	db       *gorm.DB
	calendar *ReadingCalendar // optional, resolves missing due dates

	mu      sync.Mutex
	ingestL map[string]*sync.Mutex
}

func NewIngestService(db *gorm.DB, calendar *ReadingCalendar) *IngestService {
	return &IngestService{
		db:       db,
		calendar: calendar,
		ingestL:  make(map[string]*sync.Mutex),
	}
}

// IngestResult reports the outcome of one ingestion attempt.
type IngestResult struct {
	Outcome   string         `json:"outcome"` // accepted, duplicate, rejected
	BatchID   string         `json:"batch_id,omitempty"`
	TotalRows int            `json:"total_rows"`
	Accepted  int            `json:"accepted"`
	Skipped   int            `json:"skipped"`
	Errors    map[string]int `json:"errors,omitempty"`
}

// lockFor returns the mutex serializing ingestion for one tenant and
// report type.
func (s *IngestService) lockFor(tenantID, reportType string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := tenantID + "/" + reportType
	if l, ok := s.ingestL[key]; ok {
		return l
	}
	l := &sync.Mutex{}
	s.ingestL[key] = l
	return l
}

// Ingest processes one uploaded report file end to end. A schema
// error rejects the whole batch with nothing persisted; a known
// fingerprint short-circuits as a duplicate no-op.
func (s *IngestService) Ingest(ctx context.Context, fileBytes []byte, reportType, tenantID, filename string) (*IngestResult, error) {
	if reportType != models.ReportTypeReading && reportType != models.ReportTypeGateway {
		return nil, fmt.Errorf("unknown report type: %s", reportType)
	}
	if tenantID == "" {
		return nil, fmt.Errorf("tenant id is required")
	}

	l := s.lockFor(tenantID, reportType)
	l.Lock()
	defer l.Unlock()

	fingerprint := Fingerprint(fileBytes)

	result := &IngestResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dup, err := IsDuplicateBatch(tx, tenantID, reportType, fingerprint)
		if err != nil {
			return err
		}
		if dup {
			result.Outcome = models.BatchOutcomeDuplicate
			return nil
		}

		batchID := uuid.NewString()
		now := time.Now()

		var total, accepted, skipped int
		var skipReasons map[string]int

		switch reportType {
		case models.ReportTypeReading:
			parse, err := ParseReading(fileBytes)
			if err != nil {
				return err
			}
			total, skipped, skipReasons = parse.TotalRows, parse.Skipped, parse.SkipReasons
			accepted = len(parse.Rows)
			if err := s.persistReading(tx, tenantID, batchID, now, parse.Rows); err != nil {
				return err
			}
		case models.ReportTypeGateway:
			parse, err := ParseGateway(fileBytes)
			if err != nil {
				return err
			}
			total, skipped, skipReasons = parse.TotalRows, parse.Skipped, parse.SkipReasons
			accepted = len(parse.Rows)
			if err := s.persistGateway(tx, tenantID, batchID, now, parse.Rows); err != nil {
				return err
			}
		}

		batch := models.UploadBatch{
			BatchID:     batchID,
			TenantID:    tenantID,
			ReportType:  reportType,
			Fingerprint: fingerprint,
			Filename:    filename,
			TotalRows:   total,
			Accepted:    accepted,
			Skipped:     skipped,
			Outcome:     models.BatchOutcomeAccepted,
		}
		if err := tx.Create(&batch).Error; err != nil {
			return err
		}

		result.Outcome = models.BatchOutcomeAccepted
		result.BatchID = batchID
		result.TotalRows = total
		result.Accepted = accepted
		result.Skipped = skipped
		result.Errors = skipReasons
		return nil
	})

	if err != nil {
		if _, ok := err.(*SchemaError); ok {
			result = &IngestResult{Outcome: models.BatchOutcomeRejected}
			LogWarning("ingest", "reject", err.Error(), tenantID, map[string]string{"report_type": reportType, "filename": filename})
			return result, err
		}
		return nil, err
	}

	switch result.Outcome {
	case models.BatchOutcomeDuplicate:
		logger.Info().
			Str("tenant", tenantID).
			Str("report_type", reportType).
			Str("fingerprint", fingerprint).
			Msg("duplicate batch ignored")
		LogInfo("ingest", "duplicate", fmt.Sprintf("duplicate %s upload ignored", reportType), tenantID,
			map[string]string{"fingerprint": fingerprint, "filename": filename})
	case models.BatchOutcomeAccepted:
		logger.Info().
			Str("tenant", tenantID).
			Str("report_type", reportType).
			Str("batch", result.BatchID).
			Int("accepted", result.Accepted).
			Int("skipped", result.Skipped).
			Msg("batch ingested")
		LogInfo("ingest", "accept", fmt.Sprintf("ingested %s batch %s", reportType, result.BatchID), tenantID,
			map[string]int{"accepted": result.Accepted, "skipped": result.Skipped})
	}

	return result, nil
}

// persistReading routes, classifies and appends the parsed rows,
// then reconciles open orders: an order completed by an earlier
// batch is never reopened, rows restated by the new batch are marked
// superseded so each installation has one countable row, and pending
// orders absent from the new batch are closed as completed.
func (s *IngestService) persistReading(tx *gorm.DB, tenantID, batchID string, now time.Time, rows []ParsedReadingRow) error {
	rules, err := LoadRules(tx)
	if err != nil {
		return err
	}

	var completedInstallations []string
	if err := tx.Model(&models.ReadingRecord{}).
		Where("tenant_id = ? AND status = ? AND installation <> ''", tenantID, models.ReadingStatusCompleted).
		Distinct("installation").
		Pluck("installation", &completedInstallations).Error; err != nil {
		return err
	}
	completed := make(map[string]bool, len(completedInstallations))
	for _, inst := range completedInstallations {
		completed[inst] = true
	}

	seen := make(map[string]bool, len(rows))
	records := make([]models.ReadingRecord, 0, len(rows))
	for _, row := range rows {
		rec := models.ReadingRecord{
			TenantID:     tenantID,
			BatchID:      batchID,
			LocalityCode: row.LocalityCode,
			Installation: row.Installation,
			Registration: row.Registration,
			Address:      row.Address,
			Region:       RouteWith(rules, row.LocalityCode),
			Cycle:        ClassifyCycle(row.LocalityCode, now),
			DelayReason:  DelayReason(row.LocalityCode),
			Status:       models.ReadingStatusPending,
			DueDate:      row.DueDate,
		}
		if rec.DueDate == nil && s.calendar != nil {
			rec.DueDate = s.calendar.DueDate(now.Year(), now.Month(), rec.DelayReason)
		}
		if row.Installation != "" {
			if completed[row.Installation] {
				rec.Status = models.ReadingStatusCompleted
				completedAt := now
				rec.CompletedAt = &completedAt
			}
			seen[row.Installation] = true
		}
		records = append(records, rec)
	}

	if len(records) > 0 {
		if err := tx.CreateInBatches(records, 200).Error; err != nil {
			return err
		}
	}

	// The new batch restates the installations it carries; earlier
	// rows for them become superseded so aggregates count each open
	// order once. Rows without an installation cannot be tracked
	// across batches and are superseded outright.
	seenList := make([]string, 0, len(seen))
	for inst := range seen {
		seenList = append(seenList, inst)
	}
	prior := tx.Model(&models.ReadingRecord{}).
		Where("tenant_id = ? AND batch_id <> ? AND superseded = ?", tenantID, batchID, false)
	if len(seenList) > 0 {
		prior = prior.Where("installation IN ? OR installation = ''", seenList)
	} else {
		prior = prior.Where("installation = ''")
	}
	if err := prior.Update("superseded", true).Error; err != nil {
		return err
	}

	// What remains pending from earlier batches is absent from the
	// new report, meaning it was resolved upstream. Close it.
	if err := tx.Model(&models.ReadingRecord{}).
		Where("tenant_id = ? AND status = ? AND batch_id <> ? AND superseded = ?",
			tenantID, models.ReadingStatusPending, batchID, false).
		Updates(map[string]interface{}{
			"status":       models.ReadingStatusCompleted,
			"completed_at": now,
		}).Error; err != nil {
		return err
	}

	return nil
}

func (s *IngestService) persistGateway(tx *gorm.DB, tenantID, batchID string, now time.Time, rows []ParsedGatewayRow) error {
	rules, err := LoadRules(tx)
	if err != nil {
		return err
	}

	reportDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	records := make([]models.GatewayRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, models.GatewayRecord{
			TenantID:     tenantID,
			BatchID:      batchID,
			LocalityCode: row.LocalityCode,
			ContractSet:  row.ContractSet,
			Region:       RouteWith(rules, row.LocalityCode),
			Cycle:        ClassifyCycle(row.LocalityCode, now),
			ServiceType:  row.ServiceType,
			Planned:      row.Planned,
			NotExecuted:  row.NotExecuted,
			Impediments:  row.Impediments,
			Rereadings:   row.Rereadings,
			ReportDate:   reportDate,
		})
	}

	if len(records) > 0 {
		if err := tx.CreateInBatches(records, 200).Error; err != nil {
			return err
		}
	}
	return nil
}
