package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
permissions:
  can_approve_expenses: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.True(t, cfg.Permissions.CanApproveExpenses)
	assert.False(t, cfg.Permissions.CanApproveTimecards)
	assert.Equal(t, 4, cfg.Bulk.Concurrency)
	assert.Equal(t, 0, cfg.Bulk.PermissionDeniedLimit)
	assert.Equal(t, 15*time.Second, cfg.Bulk.ActionTimeout)
	assert.Equal(t, 30*24*time.Hour, cfg.Queue.ProcessedWindow)
	assert.Equal(t, "Pending", cfg.Export.SheetName)
	assert.Equal(t, "json", cfg.Logger.Format)
}

func TestLoad_FileAndEnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
bulk:
  concurrency: 8
  permission_denied_limit: 3
  action_timeout: 5s
queue:
  processed_window: 168h
refresher:
  enabled: false
`)
	t.Setenv("APPROVALS_BULK_CONCURRENCY", "2")
	t.Setenv("APPROVALS_PERMISSIONS_CAN_APPROVE_POS", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 2, cfg.Bulk.Concurrency)
	assert.Equal(t, 3, cfg.Bulk.PermissionDeniedLimit)
	assert.Equal(t, 5*time.Second, cfg.Bulk.ActionTimeout)
	assert.Equal(t, 7*24*time.Hour, cfg.Queue.ProcessedWindow)
	assert.False(t, cfg.Refresher.Enabled)
	assert.True(t, cfg.Permissions.CanApprovePOs)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	path := writeConfig(t, `
bulk:
  concurrency: 0
`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "bulk.concurrency")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:    ServerConfig{Port: 8080},
			Database:  DatabaseConfig{Path: "hub.db"},
			Bulk:      BulkConfig{Concurrency: 4},
			Refresher: RefresherConfig{Enabled: true, Interval: time.Minute},
			Export:    ExportConfig{SheetName: "Pending"},
			Logger:    LoggerConfig{Format: "console"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: "server.port"},
		{name: "no database", mutate: func(c *Config) { c.Database.Path = "" }, wantErr: "database.path"},
		{name: "negative limit", mutate: func(c *Config) { c.Bulk.PermissionDeniedLimit = -1 }, wantErr: "permission_denied_limit"},
		{name: "refresher without interval", mutate: func(c *Config) { c.Refresher.Interval = 0 }, wantErr: "refresher.interval"},
		{name: "refresher disabled", mutate: func(c *Config) { c.Refresher = RefresherConfig{} }},
		{name: "bad log format", mutate: func(c *Config) { c.Logger.Format = "xml" }, wantErr: "logger.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("APPROVALS_TEST_DOTENV=from-file\n"), 0o600))
	t.Setenv("APPROVALS_TEST_DOTENV_PRESET", "kept")

	require.NoError(t, loadDotEnv(path))
	t.Cleanup(func() { _ = os.Unsetenv("APPROVALS_TEST_DOTENV") })
	assert.Equal(t, "from-file", os.Getenv("APPROVALS_TEST_DOTENV"))
	assert.Equal(t, "kept", os.Getenv("APPROVALS_TEST_DOTENV_PRESET"))

	assert.NoError(t, loadDotEnv(filepath.Join(dir, "missing.env")))
}
