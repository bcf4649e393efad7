// Package config provides configuration management for the journal.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"closing-journal/internal/errors"
	"closing-journal/internal/logging"
	"closing-journal/pkg/utils"
)

// Config holds all application configuration.
type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	Report  ReportConfig  `mapstructure:"report"`
	Offline OfflineConfig `mapstructure:"offline"`
	Server  ServerConfig  `mapstructure:"server"`
	UI      UIConfig      `mapstructure:"ui"`
	Log     LogConfig     `mapstructure:"log"`

	dir string
}

// StorageConfig holds the local database location.
type StorageConfig struct {
	DBPath string `mapstructure:"db_path"` // empty: <config dir>/journal.db
}

// ReportConfig describes where the daily auto-candidate report lives.
type ReportConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Path     string        `mapstructure:"path"`
	MaxItems int           `mapstructure:"max_items"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// OfflineConfig holds the offline cache configuration.
type OfflineConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	CacheVersion string   `mapstructure:"cache_version"`
	Origin       string   `mapstructure:"origin"` // empty: report.base_url
	Assets       []string `mapstructure:"assets"`
}

// ServerConfig holds HTTP API configuration.
type ServerConfig struct {
	Addr      string `mapstructure:"addr"`
	StaticDir string `mapstructure:"static_dir"`
}

// UIConfig holds UI-related configuration.
type UIConfig struct {
	Timezone     string `mapstructure:"timezone"`
	ColorEnabled bool   `mapstructure:"color_enabled"`
}

// LogConfig mirrors logging.LogConfig in its TOML form.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// DefaultAssets is the app shell precached on install.
var DefaultAssets = []string{
	"./",
	"./index.html",
	"./manifest.webmanifest",
	"./assets/css/app.css",
	"./assets/js/app.js",
	"./assets/js/db.js",
	"./reports/today.json",
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/closing-journal"
	}
	return filepath.Join(home, ".config", "closing-journal")
}

// Default returns the configuration used when no file overrides a value.
func Default() *Config {
	return &Config{
		Report: ReportConfig{
			BaseURL:  "http://localhost:8787",
			Path:     "reports/today.json",
			MaxItems: 20,
			Timeout:  15 * time.Second,
		},
		Offline: OfflineConfig{
			Enabled:      true,
			CacheVersion: "closing-trade-pwa-v1",
			Assets:       append([]string(nil), DefaultAssets...),
		},
		Server: ServerConfig{
			Addr: ":8787",
		},
		UI: UIConfig{
			Timezone:     "Asia/Seoul",
			ColorEnabled: true,
		},
		Log: LogConfig{
			Level:      "info",
			File:       true,
			MaxSize:    20,
			MaxBackups: 5,
			MaxAge:     30,
		},
		dir: DefaultConfigDir(),
	}
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. A missing
// config.toml is replaced by the commented template and loading continues
// with its values.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := Default()
	cfg.dir = configDir

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("loading config.toml: %w", err)
		}
		if err := createTemplateConfig(configDir); err != nil {
			return nil, err
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("storage.db_path", cfg.Storage.DBPath)
	v.SetDefault("report.base_url", cfg.Report.BaseURL)
	v.SetDefault("report.path", cfg.Report.Path)
	v.SetDefault("report.max_items", cfg.Report.MaxItems)
	v.SetDefault("report.timeout", cfg.Report.Timeout)
	v.SetDefault("offline.enabled", cfg.Offline.Enabled)
	v.SetDefault("offline.cache_version", cfg.Offline.CacheVersion)
	v.SetDefault("offline.origin", cfg.Offline.Origin)
	v.SetDefault("offline.assets", cfg.Offline.Assets)
	v.SetDefault("server.addr", cfg.Server.Addr)
	v.SetDefault("server.static_dir", cfg.Server.StaticDir)
	v.SetDefault("ui.timezone", cfg.UI.Timezone)
	v.SetDefault("ui.color_enabled", cfg.UI.ColorEnabled)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.file", cfg.Log.File)
	v.SetDefault("log.file_path", cfg.Log.FilePath)
	v.SetDefault("log.max_size", cfg.Log.MaxSize)
	v.SetDefault("log.max_backups", cfg.Log.MaxBackups)
	v.SetDefault("log.max_age", cfg.Log.MaxAge)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CLOSING_JOURNAL_DB"); v != "" {
		cfg.Storage.DBPath = v
	}
	if v := os.Getenv("CLOSING_JOURNAL_REPORT_URL"); v != "" {
		cfg.Report.BaseURL = v
	}
	if v := os.Getenv("CLOSING_JOURNAL_TZ"); v != "" {
		cfg.UI.Timezone = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Report.MaxItems <= 0 {
		return fmt.Errorf("%w: report.max_items must be positive", errors.ErrConfigInvalid)
	}
	if c.Report.Path == "" {
		return fmt.Errorf("%w: report.path must not be empty", errors.ErrConfigInvalid)
	}
	if c.Offline.CacheVersion == "" {
		return fmt.Errorf("%w: offline.cache_version must not be empty", errors.ErrConfigInvalid)
	}
	if _, err := time.LoadLocation(c.UI.Timezone); err != nil {
		return fmt.Errorf("%w: ui.timezone %q: %v", errors.ErrConfigInvalid, c.UI.Timezone, err)
	}
	return nil
}

// Dir returns the directory the configuration was loaded from.
func (c *Config) Dir() string {
	return c.dir
}

// DBPath returns the database file, defaulting to journal.db in the config dir.
func (c *Config) DBPath() string {
	if c.Storage.DBPath != "" {
		return c.Storage.DBPath
	}
	return filepath.Join(c.dir, "journal.db")
}

// Location returns the configured calendar time zone. Validate guarantees
// it loads; the fallback is the exchange zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.UI.Timezone)
	if err != nil {
		return utils.SeoulLocation
	}
	return loc
}

// OfflineOrigin returns the origin the offline cache treats as same-origin.
func (c *Config) OfflineOrigin() string {
	if c.Offline.Origin != "" {
		return c.Offline.Origin
	}
	return c.Report.BaseURL
}

// LoggingConfig converts the [log] section for the logging package.
func (c *Config) LoggingConfig() logging.LogConfig {
	path := c.Log.FilePath
	if path == "" {
		path = filepath.Join(c.dir, "logs", "journal.log")
	}
	return logging.LogConfig{
		Level:      c.Log.Level,
		Console:    true,
		File:       c.Log.File,
		FilePath:   path,
		MaxSize:    c.Log.MaxSize,
		MaxBackups: c.Log.MaxBackups,
		MaxAge:     c.Log.MaxAge,
	}
}
