package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "geotarget.db", cfg.Store.IndexPath)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 20, cfg.Search.DefaultLimit)
	assert.Equal(t, 100, cfg.Search.BatchTermLimit)
	assert.Equal(t, "memory", cfg.Session.Backend)
	assert.Equal(t, 12*time.Hour, cfg.Session.TTL())
	assert.Equal(t, 30, cfg.Platform.TimeoutSecs)
	assert.InDelta(t, 5.0, cfg.Platform.RatePerSec, 0.001)
	assert.Equal(t, 3, cfg.Platform.MaxAttempts)
	assert.False(t, cfg.Platform.Enabled())
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/geo
log:
  level: debug
  format: console
server:
  port: 9090
  cors_origins: ["https://ads.example.com"]
session:
  backend: redis
  redis_url: redis://localhost:6379/0
platform:
  rest_url: https://ads.example.com/api
  customer_id: "1234567890"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/geo", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://ads.example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "redis", cfg.Session.Backend)
	assert.Equal(t, "1234567890", cfg.Platform.CustomerID)
	assert.True(t, cfg.Platform.Enabled())
	// Defaults still apply for unset values
	assert.Equal(t, 20, cfg.Search.DefaultLimit)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("GEOTARGET_STORE_DRIVER", "postgres")
	t.Setenv("GEOTARGET_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOnlyKeys(t *testing.T) {
	chdirTemp(t)

	t.Setenv("GEOTARGET_SERVER_PORT", "3000")
	t.Setenv("GEOTARGET_PLATFORM_TOKEN", "secret")
	t.Setenv("GEOTARGET_PLATFORM_RPC_URL", "https://ads.example.com/rpc")
	t.Setenv("GEOTARGET_PLATFORM_CUSTOMER_ID", "42")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "secret", cfg.Platform.Token)
	assert.True(t, cfg.Platform.Enabled())
}

func TestLoadMalformedFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0o644))

	_, err := Load()
	assert.Error(t, err)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

func validDefaults() *Config {
	return &Config{
		Store:   StoreConfig{Driver: "sqlite", IndexPath: "geotarget.db"},
		Server:  ServerConfig{Port: 8080},
		Log:     LogConfig{Level: "info", Format: "json"},
		Search:  SearchConfig{DefaultLimit: 20, BatchTermLimit: 100},
		Session: SessionConfig{Backend: "memory", TTLMinutes: 60},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mode    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "serve defaults", mode: "serve"},
		{name: "index defaults", mode: "index"},
		{name: "query defaults", mode: "query"},
		{name: "postgres needs url", mode: "query", mutate: func(c *Config) { c.Store.Driver = "postgres" }, wantErr: "database_url"},
		{name: "postgres with url", mode: "index", mutate: func(c *Config) {
			c.Store.Driver = "postgres"
			c.Store.DatabaseURL = "postgres://localhost/geo"
		}},
		{name: "sqlite needs path", mode: "query", mutate: func(c *Config) { c.Store.IndexPath = "" }, wantErr: "index_path"},
		{name: "unknown driver", mode: "query", mutate: func(c *Config) { c.Store.Driver = "mysql" }, wantErr: "unknown store.driver"},
		{name: "memory not importable", mode: "index", mutate: func(c *Config) { c.Store.Driver = "memory" }, wantErr: "memory driver"},
		{name: "bad limits", mode: "query", mutate: func(c *Config) { c.Search.DefaultLimit = 0 }, wantErr: "search limits"},
		{name: "bad port", mode: "serve", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: "server.port"},
		{name: "redis needs url", mode: "serve", mutate: func(c *Config) { c.Session.Backend = "redis" }, wantErr: "redis_url"},
		{name: "unknown session backend", mode: "serve", mutate: func(c *Config) { c.Session.Backend = "memcached" }, wantErr: "session.backend"},
		{name: "unknown mode", mode: "enrich", wantErr: "unknown validation mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			err := cfg.Validate(tt.mode)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
