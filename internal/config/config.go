package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all application configuration
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Permissions PermissionsConfig `mapstructure:"permissions"`
	Bulk        BulkConfig        `mapstructure:"bulk"`
	Queue       QueueConfig       `mapstructure:"queue"`
	Refresher   RefresherConfig   `mapstructure:"refresher"`
	Export      ExportConfig      `mapstructure:"export"`
	Logger      LoggerConfig      `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// PermissionsConfig holds the reviewer's approval rights
type PermissionsConfig struct {
	CanApproveExpenses  bool `mapstructure:"can_approve_expenses"`
	CanApproveInvoices  bool `mapstructure:"can_approve_invoices"`
	CanApproveTimecards bool `mapstructure:"can_approve_timecards"`
	CanApprovePOs       bool `mapstructure:"can_approve_pos"`
}

// BulkConfig tunes bulk action runs
type BulkConfig struct {
	Concurrency int `mapstructure:"concurrency"`
	// PermissionDeniedLimit stops a run after this many denials; 0 attempts every id
	PermissionDeniedLimit int           `mapstructure:"permission_denied_limit"`
	ActionTimeout         time.Duration `mapstructure:"action_timeout"`
}

// QueueConfig tunes the queue pipeline
type QueueConfig struct {
	ProcessedWindow time.Duration `mapstructure:"processed_window"`
	FetchTimeout    time.Duration `mapstructure:"fetch_timeout"`
}

// RefresherConfig controls the background summary refresher
type RefresherConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

// ExportConfig controls spreadsheet export
type ExportConfig struct {
	SheetName string `mapstructure:"sheet_name"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load reads an optional .env file, the YAML config file and environment
// overrides prefixed with APPROVALS_ (APPROVALS_BULK_CONCURRENCY, ...)
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APPROVALS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv loads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func loadDotEnv(path string) error {
	err := gotenv.Load(path)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", path, err)
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)

	// Database defaults
	v.SetDefault("database.path", "data/approvals.db")
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	// Permission defaults
	v.SetDefault("permissions.can_approve_expenses", false)
	v.SetDefault("permissions.can_approve_invoices", false)
	v.SetDefault("permissions.can_approve_timecards", false)
	v.SetDefault("permissions.can_approve_pos", false)

	// Bulk defaults
	v.SetDefault("bulk.concurrency", 4)
	v.SetDefault("bulk.permission_denied_limit", 0)
	v.SetDefault("bulk.action_timeout", 15*time.Second)

	// Queue defaults
	v.SetDefault("queue.processed_window", 30*24*time.Hour)
	v.SetDefault("queue.fetch_timeout", 20*time.Second)

	// Refresher defaults
	v.SetDefault("refresher.enabled", true)
	v.SetDefault("refresher.interval", 5*time.Minute)

	// Export defaults
	v.SetDefault("export.sheet_name", "Pending")

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Bulk.Concurrency <= 0 {
		return fmt.Errorf("bulk.concurrency must be positive")
	}
	if c.Bulk.PermissionDeniedLimit < 0 {
		return fmt.Errorf("bulk.permission_denied_limit must not be negative")
	}
	if c.Bulk.ActionTimeout < 0 {
		return fmt.Errorf("bulk.action_timeout must not be negative")
	}
	if c.Queue.ProcessedWindow < 0 {
		return fmt.Errorf("queue.processed_window must not be negative")
	}
	if c.Refresher.Enabled && c.Refresher.Interval <= 0 {
		return fmt.Errorf("refresher.interval must be positive when the refresher is enabled")
	}
	if c.Export.SheetName == "" {
		return fmt.Errorf("export.sheet_name is required")
	}
	switch c.Logger.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logger.format must be json or console")
	}
	return nil
}

// Addr returns the listen address of the HTTP server
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
