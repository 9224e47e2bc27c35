package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"

	EnvAPIURL    = "ANKIPH_API_URL"
	EnvToken     = "ANKIPH_TOKEN"
	EnvStateFile = "ANKIPH_STATE_FILE"

	defaultAPIURL          = "https://api.ankiph.app/functions/v1"
	defaultRequestTimeout  = 30 * time.Second
	defaultDownloadTimeout = 120 * time.Second
	defaultMaxBatchSize    = 10
	defaultNotifyInterval  = 15 * time.Minute
)

type CatalogConfig struct {
	APIURL                 string `yaml:"api_url"`
	Token                  string `yaml:"token"`
	RequestTimeoutSeconds  int    `yaml:"request_timeout_seconds"`
	DownloadTimeoutSeconds int    `yaml:"download_timeout_seconds"`

	RequestTimeout  time.Duration `yaml:"-"`
	DownloadTimeout time.Duration `yaml:"-"`
}

type SyncConfig struct {
	StateFile             string `yaml:"state_file"`
	CollectionFile        string `yaml:"collection_file"`
	MaxBatchSize          int    `yaml:"max_batch_size"`
	NotifyIntervalMinutes int    `yaml:"notification_interval_minutes"`

	NotifyInterval time.Duration `yaml:"-"`
}

type Config struct {
	LogLevel      string        `yaml:"log_level"`
	CatalogConfig CatalogConfig `yaml:"catalog"`
	SyncConfig    SyncConfig    `yaml:"sync"`
}

func (c *Config) SetDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = LogLevelInfo
	}
	if c.CatalogConfig.APIURL == "" {
		c.CatalogConfig.APIURL = defaultAPIURL
	}
	if c.CatalogConfig.RequestTimeoutSeconds > 0 {
		c.CatalogConfig.RequestTimeout = time.Duration(c.CatalogConfig.RequestTimeoutSeconds) * time.Second
	}
	if c.CatalogConfig.RequestTimeout <= 0 {
		c.CatalogConfig.RequestTimeout = defaultRequestTimeout
	}
	if c.CatalogConfig.DownloadTimeoutSeconds > 0 {
		c.CatalogConfig.DownloadTimeout = time.Duration(c.CatalogConfig.DownloadTimeoutSeconds) * time.Second
	}
	if c.CatalogConfig.DownloadTimeout <= 0 {
		c.CatalogConfig.DownloadTimeout = defaultDownloadTimeout
	}
	if c.SyncConfig.MaxBatchSize <= 0 {
		c.SyncConfig.MaxBatchSize = defaultMaxBatchSize
	}
	if c.SyncConfig.NotifyIntervalMinutes > 0 {
		c.SyncConfig.NotifyInterval = time.Duration(c.SyncConfig.NotifyIntervalMinutes) * time.Minute
	}
	if c.SyncConfig.NotifyInterval <= 0 {
		c.SyncConfig.NotifyInterval = defaultNotifyInterval
	}
	if c.SyncConfig.StateFile == "" {
		c.SyncConfig.StateFile = defaultProfilePath("state.json")
	}
	if c.SyncConfig.CollectionFile == "" {
		c.SyncConfig.CollectionFile = defaultProfilePath("collection.db")
	}
}

// applyEnv overlays environment values on top of the file config. A .env
// next to the working directory is honored if present.
func (c *Config) applyEnv() {
	_ = godotenv.Load()

	if v := os.Getenv(EnvAPIURL); v != "" {
		c.CatalogConfig.APIURL = v
	}
	if v := os.Getenv(EnvToken); v != "" {
		c.CatalogConfig.Token = v
	}
	if v := os.Getenv(EnvStateFile); v != "" {
		c.SyncConfig.StateFile = v
	}
}

// Load reads the YAML config at path. A missing file is not an error; the
// defaults plus environment overrides are returned instead.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("cannot parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("cannot read config %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.SetDefaults()

	return cfg, nil
}

func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

func defaultProfilePath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return name
	}

	return filepath.Join(home, ".ankiph", name)
}
