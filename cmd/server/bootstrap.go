package main

import (
	"github.com/mgsetel/vigilacore/internal/config"
	"github.com/mgsetel/vigilacore/internal/handlers"
	"github.com/mgsetel/vigilacore/internal/models"
	"github.com/mgsetel/vigilacore/internal/services"
	"github.com/mgsetel/vigilacore/pkg/logger"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	calendar      *services.ReadingCalendar
	ingestService *services.IngestService
	snapshotSvc   *services.SnapshotService
	syncService   *services.SyncService
	taskQueue     services.TaskQueue
	worker        *services.Worker
	ingestHandler *handlers.IngestHandler
	syncHandler   *handlers.SyncHandler
}

// bootstrap initializes all application dependencies: database, services, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	// Initialize database
	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto migrate database
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	// Seed routing rules and default configs
	if err := models.SeedDefaultData(); err != nil {
		logger.Warn().Err(err).Msg("Failed to seed default data")
	}

	// Initialize system logger
	services.InitSystemLogger(models.GetDB())

	// Start system log cleanup scheduler
	services.StartLogCleanupScheduler(models.GetDB())

	// Core pipeline services
	calendar := services.NewReadingCalendar(cfg.Calendar.WorkbookPath)
	ingestService := services.NewIngestService(models.GetDB(), calendar)
	snapshotSvc := services.NewSnapshotService(models.GetDB())
	configSvc := services.NewSystemConfigService(models.GetDB())

	// Sync orchestration over the drop directory
	source := &services.DirFileSource{Dir: cfg.Sync.DropDir}
	syncService := services.NewSyncService(models.GetDB(), ingestService, snapshotSvc, configSvc, source, &cfg.Sync)

	// Initialize task queue (uses Redis if enabled, otherwise sync mode)
	taskQueue := services.InitTaskQueue(cfg)
	if syncQueue, ok := taskQueue.(*services.SyncQueue); ok {
		syncQueue.SetProcessor(syncService.RunSession)
	}

	// Start async worker if Redis is enabled
	var worker *services.Worker
	if cfg.Redis.Enabled {
		worker = services.InitWorker(&cfg.Redis)
		if worker != nil {
			worker.SetProcessor(syncService.RunSession)
			worker.Start()
		}
	}

	if cfg.Sync.Enabled {
		syncService.StartScheduler()
	}
	if cfg.Snapshot.Enabled {
		snapshotSvc.StartScheduler(cfg.Snapshot.Schedule, cfg.Sync.Tenant)
	}

	return &appServices{
		calendar:      calendar,
		ingestService: ingestService,
		snapshotSvc:   snapshotSvc,
		syncService:   syncService,
		taskQueue:     taskQueue,
		worker:        worker,
		ingestHandler: handlers.NewIngestHandler(ingestService),
		syncHandler:   handlers.NewSyncHandler(syncService),
	}
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.syncService.StopScheduler()
	s.snapshotSvc.StopScheduler()
	logger.Info().Msg("All schedulers stopped")

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		s.taskQueue.Close()
	}
}
