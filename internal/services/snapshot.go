package services

import (
	"fmt"
	"time"

	"github.com/mgsetel/vigilacore/internal/models"
	"github.com/mgsetel/vigilacore/pkg/logger"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SnapshotService owns the daily delay snapshots and the monthly
// accumulation. No other component writes snapshot rows.
type SnapshotService struct {
	db *gorm.DB

	cronScheduler *cron.Cron
}

func NewSnapshotService(db *gorm.DB) *SnapshotService {
	return &SnapshotService{db: db}
}

// StartScheduler registers the end-of-day freeze. Sync sessions also
// freeze opportunistically; this entry guarantees a snapshot exists
// even on days without a successful sync.
func (s *SnapshotService) StartScheduler(schedule, tenantID string) {
	s.cronScheduler = cron.New()

	_, err := s.cronScheduler.AddFunc(schedule, func() {
		if !NewSystemConfigService(s.db).GetSyncSettings().SnapshotEnabled {
			return
		}
		if _, err := s.Freeze(tenantID, time.Now()); err != nil {
			logger.Errorf("scheduled snapshot freeze failed: %v", err)
		}
	})
	if err != nil {
		logger.Errorf("invalid snapshot schedule %q: %v", schedule, err)
		return
	}

	s.cronScheduler.Start()
	logger.Infof("[Snapshot] Scheduler started with spec %q", schedule)
}

func (s *SnapshotService) StopScheduler() {
	if s.cronScheduler != nil {
		s.cronScheduler.Stop()
	}
}

// Freeze captures today's delay counts per reason for the given
// date. Write-once: when rows for the date already exist they are
// returned unchanged, and concurrent freezes collapse to the first
// successful write through the unique index on (tenant, date,
// reason).
func (s *SnapshotService) Freeze(tenantID string, date time.Time) ([]models.DailySnapshot, error) {
	day := date.Format("2006-01-02")

	var existing []models.DailySnapshot
	if err := s.db.Where("tenant_id = ? AND snapshot_date = ?", tenantID, day).
		Order("delay_reason").Find(&existing).Error; err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing, nil
	}

	today := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())

	type reasonCount struct {
		DelayReason string
		Pending     int
		Overdue     int
	}
	var counts []reasonCount
	if err := s.db.Model(&models.ReadingRecord{}).
		Select("delay_reason, "+
			"SUM(CASE WHEN status = 'PENDENTE' THEN 1 ELSE 0 END) as pending, "+
			"SUM(CASE WHEN status = 'PENDENTE' AND due_date IS NOT NULL AND due_date < ? THEN 1 ELSE 0 END) as overdue", today).
		Where("tenant_id = ? AND delay_reason <> '' AND superseded = ?", tenantID, false).
		Group("delay_reason").
		Scan(&counts).Error; err != nil {
		return nil, err
	}

	rows := make([]models.DailySnapshot, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, models.DailySnapshot{
			TenantID:     tenantID,
			SnapshotDate: day,
			DelayReason:  c.DelayReason,
			Pending:      c.Pending,
			Overdue:      c.Overdue,
		})
	}

	if len(rows) > 0 {
		// DoNothing keeps the first writer's rows when two freezes race.
		if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
			return nil, err
		}
	}

	var frozen []models.DailySnapshot
	if err := s.db.Where("tenant_id = ? AND snapshot_date = ?", tenantID, day).
		Order("delay_reason").Find(&frozen).Error; err != nil {
		return nil, err
	}

	logger.Info().
		Str("tenant", tenantID).
		Str("date", day).
		Int("reasons", len(frozen)).
		Msg("daily snapshot frozen")
	return frozen, nil
}

// ListSnapshotDates returns the snapshot dates recorded within a
// month ("2006-01").
func (s *SnapshotService) ListSnapshotDates(tenantID, month string) ([]string, error) {
	var dates []string
	if err := s.db.Model(&models.DailySnapshot{}).
		Where("tenant_id = ? AND snapshot_date LIKE ?", tenantID, month+"%").
		Distinct("snapshot_date").
		Order("snapshot_date").
		Pluck("snapshot_date", &dates).Error; err != nil {
		return nil, err
	}
	return dates, nil
}

// GetSnapshot returns the frozen rows for one date, without creating
// anything.
func (s *SnapshotService) GetSnapshot(tenantID, date string) ([]models.DailySnapshot, error) {
	var rows []models.DailySnapshot
	if err := s.db.Where("tenant_id = ? AND snapshot_date = ?", tenantID, date).
		Order("delay_reason").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// AccumulationInput is one observed bucket for the monthly running
// maximum.
type AccumulationInput struct {
	Cycle          string
	Region         string
	DelayReason    string
	PlannedOSB     int
	NotExecutedOSB int
	PlannedCNV     int
	NotExecutedCNV int
}

// Accumulate applies observed bucket values to the monthly
// accumulation. Every column only moves upward within the month; a
// lower observed value is logged and ignored. A new month starts
// from zero.
func (s *SnapshotService) Accumulate(tenantID string, year int, month time.Month, inputs []AccumulationInput) error {
	now := time.Now()

	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, in := range inputs {
			var row models.MonthlyAccumulation
			err := tx.Where("tenant_id = ? AND year = ? AND month = ? AND cycle = ? AND region = ? AND delay_reason = ?",
				tenantID, year, int(month), in.Cycle, in.Region, in.DelayReason).
				First(&row).Error

			if err == gorm.ErrRecordNotFound {
				row = models.MonthlyAccumulation{
					TenantID:       tenantID,
					Year:           year,
					Month:          int(month),
					Cycle:          in.Cycle,
					Region:         in.Region,
					DelayReason:    in.DelayReason,
					PlannedOSB:     in.PlannedOSB,
					NotExecutedOSB: in.NotExecutedOSB,
					PlannedCNV:     in.PlannedCNV,
					NotExecutedCNV: in.NotExecutedCNV,
					PlannedTotal:   in.PlannedOSB + in.PlannedCNV,
					NotExecTotal:   in.NotExecutedOSB + in.NotExecutedCNV,
					FirstSeenAt:    now,
					LastSeenAt:     now,
				}
				if err := tx.Create(&row).Error; err != nil {
					return err
				}
				continue
			}
			if err != nil {
				return err
			}

			decreased := in.PlannedOSB < row.PlannedOSB || in.NotExecutedOSB < row.NotExecutedOSB ||
				in.PlannedCNV < row.PlannedCNV || in.NotExecutedCNV < row.NotExecutedCNV
			if decreased {
				logger.Warn().
					Str("tenant", tenantID).
					Str("cycle", in.Cycle).
					Str("region", in.Region).
					Str("reason", in.DelayReason).
					Msg("lower accumulation value observed, keeping stored maximum")
			}

			row.PlannedOSB = maxInt(row.PlannedOSB, in.PlannedOSB)
			row.NotExecutedOSB = maxInt(row.NotExecutedOSB, in.NotExecutedOSB)
			row.PlannedCNV = maxInt(row.PlannedCNV, in.PlannedCNV)
			row.NotExecutedCNV = maxInt(row.NotExecutedCNV, in.NotExecutedCNV)
			row.PlannedTotal = row.PlannedOSB + row.PlannedCNV
			row.NotExecTotal = row.NotExecutedOSB + row.NotExecutedCNV
			row.LastSeenAt = now

			if err := tx.Save(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// AccumulateFromGateway folds the month's most recent gateway batch
// into the monthly accumulation. Called after each successful gateway
// ingest. Each gateway report restates the full execution state, so
// only the latest batch is read; the running maximum in Accumulate
// preserves the month's high-water mark across reports.
func (s *SnapshotService) AccumulateFromGateway(tenantID string, ref time.Time) error {
	monthStart := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())

	latest := s.db.Model(&models.GatewayRecord{}).
		Select("batch_id").
		Where("tenant_id = ? AND report_date >= ?", tenantID, monthStart).
		Order("id DESC").Limit(1)

	type bucket struct {
		Cycle        string
		Region       string
		LocalityCode string
		ServiceType  string
		Planned      int
		NotExecuted  int
	}
	var buckets []bucket
	if err := s.db.Model(&models.GatewayRecord{}).
		Select("cycle, region, locality_code, service_type, "+
			"COALESCE(SUM(planned), 0) as planned, COALESCE(SUM(not_executed), 0) as not_executed").
		Where("tenant_id = ? AND report_date >= ? AND batch_id = (?)", tenantID, monthStart, latest).
		Group("cycle, region, locality_code, service_type").
		Scan(&buckets).Error; err != nil {
		return err
	}

	merged := make(map[string]*AccumulationInput)
	for _, b := range buckets {
		reason := DelayReason(b.LocalityCode)
		key := fmt.Sprintf("%s|%s|%s", b.Cycle, b.Region, reason)
		in, ok := merged[key]
		if !ok {
			in = &AccumulationInput{Cycle: b.Cycle, Region: b.Region, DelayReason: reason}
			merged[key] = in
		}
		switch b.ServiceType {
		case models.ServiceTypeOSB:
			in.PlannedOSB += b.Planned
			in.NotExecutedOSB += b.NotExecuted
		case models.ServiceTypeCNV:
			in.PlannedCNV += b.Planned
			in.NotExecutedCNV += b.NotExecuted
		}
	}

	inputs := make([]AccumulationInput, 0, len(merged))
	for _, in := range merged {
		inputs = append(inputs, *in)
	}
	return s.Accumulate(tenantID, ref.Year(), ref.Month(), inputs)
}

// GetMonthlyAccumulation returns the accumulation rows for a month
// ("2006-01").
func (s *SnapshotService) GetMonthlyAccumulation(tenantID, month string) ([]models.MonthlyAccumulation, error) {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return nil, fmt.Errorf("invalid month %q, expected YYYY-MM", month)
	}

	var rows []models.MonthlyAccumulation
	if err := s.db.Where("tenant_id = ? AND year = ? AND month = ?", tenantID, t.Year(), int(t.Month())).
		Order("cycle, region, delay_reason").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
