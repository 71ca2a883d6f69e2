// ABOUTME: Configuration for the sync service, loaded from environment variables
// ABOUTME: An optional YAML file provides a base layer; environment variables win

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the sync service.
type Config struct {
	ServiceName string `yaml:"service_name"`
	LogLevel    string `yaml:"log_level"`

	Database    DatabaseConfig    `yaml:"database"`
	RecordStore RecordStoreConfig `yaml:"record_store"`
	Sync        SyncConfig        `yaml:"sync"`
	Server      ServerConfig      `yaml:"server"`
}

// DatabaseConfig selects the local storage backend.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // "postgres" or "sqlite"
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"-"` // secrets never come from the file
	SSLMode  string `yaml:"ssl_mode"`
	Path     string `yaml:"path"` // sqlite file path
}

// RecordStoreConfig holds the remote record store connection settings.
// The private key is a PEM-encoded EC key for ES256 request signing.
type RecordStoreConfig struct {
	BaseURL       string `yaml:"base_url"`
	KeyID         string `yaml:"key_id"`
	PrivateKeyPEM string `yaml:"-"`
}

// SyncConfig controls the background sync cadence.
type SyncConfig struct {
	RefreshInterval     time.Duration `yaml:"refresh_interval"`
	StatusFlushInterval time.Duration `yaml:"status_flush_interval"`
	AccountName         string        `yaml:"account_name"`
}

// ServerConfig holds the admin API server settings.
type ServerConfig struct {
	Addr              string        `yaml:"addr"`
	RateLimitPerHour  int           `yaml:"rate_limit_per_hour"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
}

// LoadConfig builds the configuration. A YAML file named by CONFIG_FILE
// (or the path argument of the binary) is read first when present;
// environment variables override its values.
func LoadConfig(configFile string) (*Config, error) {
	cfg := defaults()

	if configFile == "" {
		configFile = os.Getenv("CONFIG_FILE")
	}
	if configFile != "" {
		raw, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configFile, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		ServiceName: "sync-core",
		LogLevel:    "info",
		Database: DatabaseConfig{
			Driver:  "sqlite",
			Host:    "localhost",
			Port:    "5432",
			Name:    "sync",
			User:    "sync",
			SSLMode: "disable",
			Path:    "sync.db",
		},
		Sync: SyncConfig{
			RefreshInterval:     30 * time.Minute,
			StatusFlushInterval: 2 * time.Minute,
			AccountName:         "default",
		},
		Server: ServerConfig{
			Addr:              ":8080",
			RateLimitPerHour:  600,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func applyEnv(cfg *Config) {
	setString(&cfg.ServiceName, "SERVICE_NAME")
	setString(&cfg.LogLevel, "LOG_LEVEL")

	setString(&cfg.Database.Driver, "DB_DRIVER")
	setString(&cfg.Database.Host, "DB_HOST")
	setString(&cfg.Database.Port, "DB_PORT")
	setString(&cfg.Database.Name, "DB_NAME")
	setString(&cfg.Database.User, "DB_USER")
	setString(&cfg.Database.Password, "DB_PASSWORD")
	setString(&cfg.Database.SSLMode, "DB_SSL_MODE")
	setString(&cfg.Database.Path, "DB_PATH")

	setString(&cfg.RecordStore.BaseURL, "RECORD_STORE_BASE_URL")
	setString(&cfg.RecordStore.KeyID, "RECORD_STORE_KEY_ID")
	setString(&cfg.RecordStore.PrivateKeyPEM, "RECORD_STORE_PRIVATE_KEY")

	setDuration(&cfg.Sync.RefreshInterval, "SYNC_REFRESH_INTERVAL")
	setDuration(&cfg.Sync.StatusFlushInterval, "SYNC_STATUS_FLUSH_INTERVAL")
	setString(&cfg.Sync.AccountName, "SYNC_ACCOUNT_NAME")

	setString(&cfg.Server.Addr, "SERVER_ADDR")
	setInt(&cfg.Server.RateLimitPerHour, "SERVER_RATE_LIMIT_PER_HOUR")
}

// Validate checks the loaded configuration for required values.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("DB_PATH is required for the sqlite driver")
		}
	case "postgres":
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if c.RecordStore.BaseURL == "" {
		return fmt.Errorf("RECORD_STORE_BASE_URL is required")
	}
	if c.RecordStore.KeyID == "" {
		return fmt.Errorf("RECORD_STORE_KEY_ID is required")
	}
	if c.RecordStore.PrivateKeyPEM == "" {
		return fmt.Errorf("RECORD_STORE_PRIVATE_KEY is required")
	}

	if c.Sync.RefreshInterval <= 0 {
		return fmt.Errorf("sync refresh interval must be positive")
	}
	if c.Sync.StatusFlushInterval <= 0 {
		return fmt.Errorf("status flush interval must be positive")
	}
	return nil
}

func setString(target *string, key string) {
	if value := os.Getenv(key); value != "" {
		*target = value
	}
}

func setDuration(target *time.Duration, key string) {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			*target = parsed
		}
	}
}

func setInt(target *int, key string) {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}
