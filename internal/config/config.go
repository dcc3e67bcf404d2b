package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Search   SearchConfig   `yaml:"search" mapstructure:"search"`
	Session  SessionConfig  `yaml:"session" mapstructure:"session"`
	Platform PlatformConfig `yaml:"platform" mapstructure:"platform"`
}

// StoreConfig configures the address index backend.
type StoreConfig struct {
	// Driver is "sqlite", "postgres", or "memory".
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	// IndexPath is the SQLite file, or the source file loaded by the memory driver.
	IndexPath string `yaml:"index_path" mapstructure:"index_path"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// SearchConfig tunes location search.
type SearchConfig struct {
	DefaultLimit   int `yaml:"default_limit" mapstructure:"default_limit"`
	BatchTermLimit int `yaml:"batch_term_limit" mapstructure:"batch_term_limit"`
}

// SessionConfig selects where per-session state whitelists live.
type SessionConfig struct {
	// Backend is "memory" or "redis".
	Backend    string `yaml:"backend" mapstructure:"backend"`
	RedisURL   string `yaml:"redis_url" mapstructure:"redis_url"`
	TTLMinutes int    `yaml:"ttl_minutes" mapstructure:"ttl_minutes"`
}

// TTL returns the session idle timeout.
func (s SessionConfig) TTL() time.Duration {
	return time.Duration(s.TTLMinutes) * time.Minute
}

// PlatformConfig holds ad platform credentials and transport settings.
type PlatformConfig struct {
	RESTURL     string  `yaml:"rest_url" mapstructure:"rest_url"`
	RPCURL      string  `yaml:"rpc_url" mapstructure:"rpc_url"`
	CustomerID  string  `yaml:"customer_id" mapstructure:"customer_id"`
	Token       string  `yaml:"token" mapstructure:"token"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	MaxAttempts int     `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// Enabled reports whether enough is configured to reach the platform.
func (p PlatformConfig) Enabled() bool {
	return (p.RESTURL != "" || p.RPCURL != "") && p.CustomerID != ""
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GEOTARGET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.index_path", "geotarget.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("search.default_limit", 20)
	v.SetDefault("search.batch_term_limit", 100)
	v.SetDefault("session.backend", "memory")
	v.SetDefault("session.ttl_minutes", 720)
	v.SetDefault("platform.timeout_secs", 30)
	v.SetDefault("platform.rate_per_sec", 5.0)
	v.SetDefault("platform.max_attempts", 3)

	// Bind keys without defaults so env vars alone can set them.
	for _, key := range []string{
		"store.database_url", "session.redis_url",
		"platform.rest_url", "platform.rpc_url", "platform.customer_id", "platform.token",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", key)
		}
	}

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command needs. mode is "serve", "index",
// or "query".
func (c *Config) Validate(mode string) error {
	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return eris.New("config: store.database_url is required for the postgres driver")
		}
	case "sqlite", "memory":
		if c.Store.IndexPath == "" {
			return eris.Errorf("config: store.index_path is required for the %s driver", c.Store.Driver)
		}
	default:
		return eris.Errorf("config: unknown store.driver %q", c.Store.Driver)
	}

	if c.Search.DefaultLimit < 1 || c.Search.BatchTermLimit < 1 {
		return eris.New("config: search limits must be positive")
	}

	switch mode {
	case "serve":
		if c.Server.Port < 1 || c.Server.Port > 65535 {
			return eris.Errorf("config: server.port %d out of range", c.Server.Port)
		}
		switch c.Session.Backend {
		case "memory":
		case "redis":
			if c.Session.RedisURL == "" {
				return eris.New("config: session.redis_url is required for the redis backend")
			}
		default:
			return eris.Errorf("config: unknown session.backend %q", c.Session.Backend)
		}
	case "index":
		if c.Store.Driver == "memory" {
			return eris.New("config: the memory driver cannot be imported into; use sqlite or postgres")
		}
	case "query":
	default:
		return eris.Errorf("config: unknown validation mode %q", mode)
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
