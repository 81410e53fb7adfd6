package models

import (
	"fmt"

	"github.com/mgsetel/vigilacore/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func InitDB(cfg *config.DatabaseConfig) error {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}

	DB = db
	return nil
}

func AutoMigrate() error {
	return DB.AutoMigrate(
		&ReadingRecord{},
		&GatewayRecord{},
		&UploadBatch{},
		&RegionRule{},
		&DailySnapshot{},
		&MonthlyAccumulation{},
		&SyncLock{},
		&SystemConfig{},
		&SystemLog{},
	)
}

func GetDB() *gorm.DB {
	return DB
}

// defaultRegionRules is the authoritative regional code map. The
// regional code is digits [2:6] of the 8-digit locality code.
var defaultRegionRules = map[string]string{
	"3427": RegionAraxa,
	"5101": RegionAraxa,
	"5103": RegionAraxa,
	"5104": RegionAraxa,
	"5117": RegionAraxa,
	"5118": RegionAraxa,
	"5119": RegionAraxa,
	"5120": RegionAraxa,
	"5121": RegionAraxa,
	"5325": RegionAraxa,

	"1966": RegionUberaba,
	"5105": RegionUberaba,
	"5106": RegionUberaba,
	"5300": RegionUberaba,
	"5301": RegionUberaba,
	"5302": RegionUberaba,
	"5313": RegionUberaba,
	"5314": RegionUberaba,
	"5315": RegionUberaba,

	"5309": RegionFrutal,
	"5310": RegionFrutal,
	"5311": RegionFrutal,
	"5312": RegionFrutal,
	"5316": RegionFrutal,
	"5317": RegionFrutal,
	"5318": RegionFrutal,
	"5319": RegionFrutal,
	"5320": RegionFrutal,
	"5321": RegionFrutal,
	"5322": RegionFrutal,
	"5323": RegionFrutal,
	"5324": RegionFrutal,
	"5413": RegionFrutal,
	"5415": RegionFrutal,
	"5418": RegionFrutal,
	"5420": RegionFrutal,
	"5422": RegionFrutal,
	"5424": RegionFrutal,
}

// SeedDefaultData creates default data if not exists
func SeedDefaultData() error {
	for code, region := range defaultRegionRules {
		var count int64
		DB.Model(&RegionRule{}).Where("regional_code = ?", code).Count(&count)
		if count == 0 {
			if err := DB.Create(&RegionRule{RegionalCode: code, Region: region}).Error; err != nil {
				return err
			}
		}
	}

	defaultConfigs := []SystemConfig{
		{Key: "sync_window_start_hour", Value: "7", Type: "int", Group: "sync", Label: "Sync Window Start Hour"},
		{Key: "sync_window_end_hour", Value: "22", Type: "int", Group: "sync", Label: "Sync Window End Hour"},
		{Key: "sync_enabled", Value: "false", Type: "bool", Group: "sync", Label: "Enable Scheduled Sync"},
		{Key: "snapshot_enabled", Value: "true", Type: "bool", Group: "snapshot", Label: "Enable Daily Snapshot Freeze"},
		{Key: "log_retention_days", Value: "30", Type: "int", Group: "system", Label: "System Log Retention Days"},
	}

	for _, cfg := range defaultConfigs {
		var count int64
		DB.Model(&SystemConfig{}).Where("key = ?", cfg.Key).Count(&count)
		if count == 0 {
			if err := DB.Create(&cfg).Error; err != nil {
				return err
			}
		}
	}

	return nil
}
