package services

import (
	"strconv"

	"github.com/mgsetel/vigilacore/internal/models"
	"gorm.io/gorm"
)

type SystemConfigService struct {
	db *gorm.DB
}

func NewSystemConfigService(db *gorm.DB) *SystemConfigService {
	return &SystemConfigService{db: db}
}

func (s *SystemConfigService) Get(key string) (string, error) {
	var cfg models.SystemConfig
	if err := s.db.Where("`key` = ?", key).First(&cfg).Error; err != nil {
		return "", err
	}
	return cfg.Value, nil
}

func (s *SystemConfigService) GetWithDefault(key, defaultValue string) string {
	value, err := s.Get(key)
	if err != nil {
		return defaultValue
	}
	return value
}

func (s *SystemConfigService) Set(key, value string) error {
	var cfg models.SystemConfig
	err := s.db.Where("`key` = ?", key).First(&cfg).Error
	if err == gorm.ErrRecordNotFound {
		cfg = models.SystemConfig{
			Key:   key,
			Value: value,
		}
		return s.db.Create(&cfg).Error
	}
	if err != nil {
		return err
	}
	return s.db.Model(&cfg).Update("value", value).Error
}

func (s *SystemConfigService) GetByGroup(group string) ([]models.SystemConfig, error) {
	var configs []models.SystemConfig
	if err := s.db.Where("`group` = ?", group).Find(&configs).Error; err != nil {
		return nil, err
	}
	return configs, nil
}

type SyncSettingsResponse struct {
	Enabled         bool `json:"enabled"`
	WindowStartHour int  `json:"window_start_hour"`
	WindowEndHour   int  `json:"window_end_hour"`
	SnapshotEnabled bool `json:"snapshot_enabled"`
}

func (s *SystemConfigService) GetSyncSettings() *SyncSettingsResponse {
	start, _ := strconv.Atoi(s.GetWithDefault("sync_window_start_hour", "7"))
	end, _ := strconv.Atoi(s.GetWithDefault("sync_window_end_hour", "22"))
	return &SyncSettingsResponse{
		Enabled:         s.GetWithDefault("sync_enabled", "false") == "true",
		WindowStartHour: start,
		WindowEndHour:   end,
		SnapshotEnabled: s.GetWithDefault("snapshot_enabled", "true") == "true",
	}
}

type UpdateSyncSettingsRequest struct {
	Enabled         *bool `json:"enabled"`
	WindowStartHour *int  `json:"window_start_hour"`
	WindowEndHour   *int  `json:"window_end_hour"`
	SnapshotEnabled *bool `json:"snapshot_enabled"`
}

func (s *SystemConfigService) UpdateSyncSettings(req *UpdateSyncSettingsRequest) error {
	if req.Enabled != nil {
		if err := s.Set("sync_enabled", strconv.FormatBool(*req.Enabled)); err != nil {
			return err
		}
	}
	if req.WindowStartHour != nil {
		if err := s.Set("sync_window_start_hour", strconv.Itoa(*req.WindowStartHour)); err != nil {
			return err
		}
	}
	if req.WindowEndHour != nil {
		if err := s.Set("sync_window_end_hour", strconv.Itoa(*req.WindowEndHour)); err != nil {
			return err
		}
	}
	if req.SnapshotEnabled != nil {
		if err := s.Set("snapshot_enabled", strconv.FormatBool(*req.SnapshotEnabled)); err != nil {
			return err
		}
	}
	return nil
}
