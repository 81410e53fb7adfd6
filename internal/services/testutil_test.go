package services

import (
	"fmt"
	"testing"

	"github.com/mgsetel/vigilacore/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory database and migrates the
// full schema. Each test gets its own database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.ReadingRecord{},
		&models.GatewayRecord{},
		&models.UploadBatch{},
		&models.RegionRule{},
		&models.DailySnapshot{},
		&models.MonthlyAccumulation{},
		&models.SyncLock{},
		&models.SystemConfig{},
		&models.SystemLog{},
	)
	if err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	return db
}

// seedRegionRules installs a minimal routing rule set.
func seedRegionRules(t *testing.T, db *gorm.DB) {
	t.Helper()
	rules := []models.RegionRule{
		{RegionalCode: "5101", Region: models.RegionAraxa},
		{RegionalCode: "5105", Region: models.RegionUberaba},
		{RegionalCode: "5309", Region: models.RegionFrutal},
	}
	if err := db.Create(&rules).Error; err != nil {
		t.Fatalf("seed region rules: %v", err)
	}
}
