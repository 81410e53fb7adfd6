package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Sync     SyncConfig     `yaml:"sync"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Calendar CalendarConfig `yaml:"calendar"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, mysql, postgres
	DSN    string `yaml:"dsn"`
}

// RedisConfig for optional async task queue
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// SyncConfig controls the scheduled report synchronization.
// Reports are picked up from DropDir; the portal fetcher writes
// completed downloads there before signaling.
type SyncConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Schedule        string `yaml:"schedule"` // cron spec, e.g. "*/30 * * * *"
	WindowStartHour int    `yaml:"window_start_hour"`
	WindowEndHour   int    `yaml:"window_end_hour"`
	DropDir         string `yaml:"drop_dir"`
	Tenant          string `yaml:"tenant"`
	LockTTLMinutes  int    `yaml:"lock_ttl_minutes"`
}

// SnapshotConfig controls the daily delay snapshot freeze.
type SnapshotConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"` // cron spec, e.g. "0 23 * * *"
}

// CalendarConfig points at the reading calendar workbook used to
// resolve due dates per delay reason.
type CalendarConfig struct {
	WorkbookPath string `yaml:"workbook_path"`
}

var GlobalConfig *Config

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	var cfg *Config

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg = DefaultConfig()
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}

		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, err
		}
		cfg = &fileCfg
	}

	cfg.overrideFromEnv()
	GlobalConfig = cfg
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: "8080",
			Mode: "debug",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "vigilacore.db",
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			DB:      0,
		},
		Sync: SyncConfig{
			Enabled:         false,
			Schedule:        "*/30 * * * *",
			WindowStartHour: 7,
			WindowEndHour:   22,
			DropDir:         "downloads",
			Tenant:          "default",
			LockTTLMinutes:  30,
		},
		Snapshot: SnapshotConfig{
			Enabled:  true,
			Schedule: "0 23 * * *",
		},
		Calendar: CalendarConfig{
			WorkbookPath: "calendario_leitura.xlsx",
		},
	}
}

func (c *Config) overrideFromEnv() {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		c.Server.Port = port
	}
	if mode := os.Getenv("SERVER_MODE"); mode != "" {
		c.Server.Mode = mode
	}
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	if dropDir := os.Getenv("SYNC_DROP_DIR"); dropDir != "" {
		c.Sync.DropDir = dropDir
	}
	if tenant := os.Getenv("SYNC_TENANT"); tenant != "" {
		c.Sync.Tenant = tenant
	}
	if wb := os.Getenv("CALENDAR_WORKBOOK"); wb != "" {
		c.Calendar.WorkbookPath = wb
	}
	// Redis URL override (format: redis://:password@host:port/db)
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.Enabled = true
		c.parseRedisURL(redisURL)
	}
}

// parseRedisURL parses a Redis URL and sets config values
// Format: redis://:password@host:port/db
func (c *Config) parseRedisURL(redisURL string) {
	// Remove redis:// prefix
	url := strings.TrimPrefix(redisURL, "redis://")

	// Extract password if present
	if atIdx := strings.Index(url, "@"); atIdx != -1 {
		authPart := url[:atIdx]
		url = url[atIdx+1:]
		// Password format: :password or user:password
		if colonIdx := strings.Index(authPart, ":"); colonIdx != -1 {
			c.Redis.Password = authPart[colonIdx+1:]
		}
	}

	// Extract db number if present
	if slashIdx := strings.LastIndex(url, "/"); slashIdx != -1 {
		dbStr := url[slashIdx+1:]
		url = url[:slashIdx]
		if db, err := strconv.Atoi(dbStr); err == nil {
			c.Redis.DB = db
		}
	}

	// Remaining is host:port
	c.Redis.Addr = url
}

func (c *Config) Save(configPath string) error {
	if configPath == "" {
		configPath = "config.yaml"
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}
