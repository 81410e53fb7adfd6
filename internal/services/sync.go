package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mgsetel/vigilacore/internal/config"
	"github.com/mgsetel/vigilacore/internal/models"
	"github.com/mgsetel/vigilacore/pkg/logger"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

const syncLockName = "sync_session"

// FileSource produces report files for ingestion. The portal
// automation is a black box behind this interface: it places a
// completed download where the source can read it. A nil byte slice
// means nothing arrived this cycle, which is not an error.
type FileSource interface {
	Fetch(ctx context.Context, tenantID, reportType string) ([]byte, string, error)
}

// DirFileSource reads the newest workbook from a drop directory laid
// out as <dir>/<reportType>/*.xlsx.
type DirFileSource struct {
	Dir string
}

func (s *DirFileSource) Fetch(ctx context.Context, tenantID, reportType string) ([]byte, string, error) {
	pattern := filepath.Join(s.Dir, reportType, "*.xlsx")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, "", err
	}
	if len(matches) == 0 {
		return nil, "", nil
	}

	sort.Slice(matches, func(i, j int) bool {
		fi, errI := os.Stat(matches[i])
		fj, errJ := os.Stat(matches[j])
		if errI != nil || errJ != nil {
			return matches[i] < matches[j]
		}
		return fi.ModTime().After(fj.ModTime())
	})

	// Temporary files still being written by the downloader start
	// with "~" and are skipped.
	for _, path := range matches {
		if strings.HasPrefix(filepath.Base(path), "~") {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", err
		}
		return data, filepath.Base(path), nil
	}
	return nil, "", nil
}

// SyncService orchestrates the scheduled synchronization: acquire
// the session lock, run the reading sync fully, then the gateway
// sync, then refresh the snapshots, release the lock.
type SyncService struct {
	db        *gorm.DB
	ingest    *IngestService
	snapshot  *SnapshotService
	configSvc *SystemConfigService
	source    FileSource
	cfg       *config.SyncConfig

	cronScheduler *cron.Cron
	workerID      string
}

func NewSyncService(db *gorm.DB, ingest *IngestService, snapshot *SnapshotService, configSvc *SystemConfigService, source FileSource, cfg *config.SyncConfig) *SyncService {
	return &SyncService{
		db:        db,
		ingest:    ingest,
		snapshot:  snapshot,
		configSvc: configSvc,
		source:    source,
		cfg:       cfg,
		workerID:  uuid.NewString(),
	}
}

// StartScheduler registers the cron entry driving scheduled sync
// sessions. Sessions are dispatched through the task queue so the
// worker's single slot serializes them.
func (s *SyncService) StartScheduler() {
	s.cronScheduler = cron.New()

	_, err := s.cronScheduler.AddFunc(s.cfg.Schedule, func() {
		settings := s.configSvc.GetSyncSettings()
		if !settings.Enabled {
			return
		}
		hour := time.Now().Hour()
		if hour < settings.WindowStartHour || hour >= settings.WindowEndHour {
			logger.Debug().Int("hour", hour).Msg("outside sync window, skipping run")
			return
		}
		if err := GetTaskQueue().Enqueue(&SyncTask{TenantID: s.cfg.Tenant, Trigger: "schedule"}); err != nil {
			logger.Errorf("failed to enqueue sync session: %v", err)
		}
	})
	if err != nil {
		logger.Errorf("invalid sync schedule %q: %v", s.cfg.Schedule, err)
		return
	}

	s.cronScheduler.Start()
	logger.Infof("[Sync] Scheduler started with spec %q", s.cfg.Schedule)
}

func (s *SyncService) StopScheduler() {
	if s.cronScheduler != nil {
		s.cronScheduler.Stop()
	}
}

// TriggerManual enqueues an on-demand sync session for a tenant.
func (s *SyncService) TriggerManual(tenantID string) error {
	if tenantID == "" {
		tenantID = s.cfg.Tenant
	}
	return GetTaskQueue().Enqueue(&SyncTask{TenantID: tenantID, Trigger: "manual"})
}

// RunSession executes one full sync session. The database lock makes
// the session mutually exclusive across processes; a busy lock means
// another session is running and this one is skipped, not queued.
func (s *SyncService) RunSession(ctx context.Context, task *SyncTask) error {
	acquired, err := s.acquireLock(task.TenantID)
	if err != nil {
		return err
	}
	if !acquired {
		logger.Warn().Str("tenant", task.TenantID).Msg("sync session already running, skipping")
		return nil
	}
	defer s.releaseLock(task.TenantID)

	LogInfo("sync", "session_start", fmt.Sprintf("sync session started (%s)", task.Trigger), task.TenantID, nil)

	// Reading sync completes fully, ingestion included, before the
	// gateway sync starts.
	if err := s.syncReport(ctx, task.TenantID, models.ReportTypeReading); err != nil {
		LogError("sync", "reading_failed", err.Error(), task.TenantID, nil)
		return err
	}
	if err := s.syncReport(ctx, task.TenantID, models.ReportTypeGateway); err != nil {
		LogError("sync", "gateway_failed", err.Error(), task.TenantID, nil)
		return err
	}

	now := time.Now()
	if s.configSvc.GetSyncSettings().SnapshotEnabled {
		if _, err := s.snapshot.Freeze(task.TenantID, now); err != nil {
			logger.Errorf("snapshot freeze failed: %v", err)
		}
		if err := s.snapshot.AccumulateFromGateway(task.TenantID, now); err != nil {
			logger.Errorf("monthly accumulation failed: %v", err)
		}
	}

	LogInfo("sync", "session_done", "sync session finished", task.TenantID, nil)
	return nil
}

func (s *SyncService) syncReport(ctx context.Context, tenantID, reportType string) error {
	data, filename, err := s.source.Fetch(ctx, tenantID, reportType)
	if err != nil {
		return fmt.Errorf("fetch %s report: %w", reportType, err)
	}
	if data == nil {
		logger.Info().Str("report_type", reportType).Msg("no file to ingest this cycle")
		return nil
	}

	result, err := s.ingest.Ingest(ctx, data, reportType, tenantID, filename)
	if err != nil {
		if _, ok := err.(*SchemaError); ok {
			// A malformed file rejects its own batch but must not
			// abort the rest of the session.
			logger.Warn().Str("report_type", reportType).Err(err).Msg("batch rejected")
			return nil
		}
		return err
	}

	logger.Info().
		Str("report_type", reportType).
		Str("outcome", result.Outcome).
		Int("accepted", result.Accepted).
		Msg("report synchronized")
	return nil
}

// acquireLock takes the per-tenant session lock. Expired rows from a
// crashed holder are cleared first; losing the insert race means the
// lock is busy.
func (s *SyncService) acquireLock(tenantID string) (bool, error) {
	now := time.Now()
	ttl := time.Duration(s.cfg.LockTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}

	if err := s.db.Where("lock_name = ? AND lock_key = ? AND expires_at < ?", syncLockName, tenantID, now).
		Delete(&models.SyncLock{}).Error; err != nil {
		return false, err
	}

	lock := models.SyncLock{
		LockName:  syncLockName,
		LockKey:   tenantID,
		LockedBy:  s.workerID,
		LockedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.db.Create(&lock).Error; err != nil {
		// Unique index violation: another worker holds the lock.
		return false, nil
	}
	return true, nil
}

func (s *SyncService) releaseLock(tenantID string) {
	if err := s.db.Where("lock_name = ? AND lock_key = ? AND locked_by = ?", syncLockName, tenantID, s.workerID).
		Delete(&models.SyncLock{}).Error; err != nil {
		logger.Errorf("failed to release sync lock: %v", err)
	}
}
