package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	apperrors "github.com/axellelanca/shortener/internal/errors"
)

// Config represents the main structure mapping the entire application configuration.
// This struct uses mapstructure tags to map YAML keys to Go struct fields.
type Config struct {
	// Server configuration section containing HTTP server settings
	Server struct {
		Port                   int    `mapstructure:"port"`                     // HTTP server port (default: 8080)
		BaseURL                string `mapstructure:"base_url"`                 // Base URL for generating short links
		ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds"` // Grace period for in-flight requests
	} `mapstructure:"server"`

	// Database configuration section
	Database struct {
		Driver string `mapstructure:"driver"` // sqlite, postgres or mysql
		Name   string `mapstructure:"name"`   // SQLite database file name
		DSN    string `mapstructure:"dsn"`    // Connection string for postgres/mysql
	} `mapstructure:"database"`

	// Cache configuration for the look-aside cache
	Cache struct {
		Driver                  string `mapstructure:"driver"` // redis, memory or none
		TTLSeconds              int    `mapstructure:"ttl_seconds"`
		InvalidationHoldSeconds int    `mapstructure:"invalidation_hold_seconds"` // How long a mutated entry can't be repopulated
		RedisAddr               string `mapstructure:"redis_addr"`
		RedisPassword           string `mapstructure:"redis_password"`
		RedisDB                 int    `mapstructure:"redis_db"`
		KeyPrefix               string `mapstructure:"key_prefix"`
	} `mapstructure:"cache"`

	// Analytics configuration for asynchronous click tracking
	Analytics struct {
		BufferSize  int `mapstructure:"buffer_size"`  // Size of the click event channel buffer
		WorkerCount int `mapstructure:"worker_count"` // Number of worker goroutines for processing clicks
	} `mapstructure:"analytics"`

	// Monitor configuration for the expiry reclaimer
	Monitor struct {
		IntervalSeconds int `mapstructure:"interval_seconds"` // Seconds between two expiry sweeps
	} `mapstructure:"monitor"`

	Links struct {
		CodeLength          int `mapstructure:"code_length"`
		DefaultTTLHours     int `mapstructure:"default_ttl_hours"`
		MaxGenerateAttempts int `mapstructure:"max_generate_attempts"`
	} `mapstructure:"links"`

	Auth struct {
		JWTSecret     string `mapstructure:"jwt_secret"`
		TokenTTLHours int    `mapstructure:"token_ttl_hours"`
		BcryptCost    int    `mapstructure:"bcrypt_cost"`
	} `mapstructure:"auth"`

	Log LogConfig `mapstructure:"log"`
}

// LogConfig selects the logrus level and formatter.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
}

// CacheTTL returns the configured cache entry lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// InvalidationHold returns how long a mutated cache entry refuses repopulation.
func (c *Config) InvalidationHold() time.Duration {
	return time.Duration(c.Cache.InvalidationHoldSeconds) * time.Second
}

// MonitorInterval returns the delay between two expiry sweeps.
func (c *Config) MonitorInterval() time.Duration {
	return time.Duration(c.Monitor.IntervalSeconds) * time.Second
}

// DefaultLinkTTL returns the lifetime given to links created without an explicit expiry.
func (c *Config) DefaultLinkTTL() time.Duration {
	return time.Duration(c.Links.DefaultTTLHours) * time.Hour
}

// TokenTTL returns the lifetime of issued access tokens and their sessions.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenTTLHours) * time.Hour
}

// ShutdownTimeout returns the grace period given to the HTTP server on shutdown.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.shutdown_timeout_seconds", 5)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.name", "url_shortener.db")
	v.SetDefault("database.dsn", "")
	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.ttl_seconds", 3600)
	v.SetDefault("cache.invalidation_hold_seconds", 30)
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.key_prefix", "")
	v.SetDefault("analytics.buffer_size", 1000)
	v.SetDefault("analytics.worker_count", 4)
	v.SetDefault("monitor.interval_seconds", 1800)
	v.SetDefault("links.code_length", 8)
	v.SetDefault("links.default_ttl_hours", 30*24)
	v.SetDefault("links.max_generate_attempts", 20)
	v.SetDefault("auth.jwt_secret", "change-me")
	v.SetDefault("auth.token_ttl_hours", 24)
	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Default returns a Config populated with the default values only.
// Tests and the CLI use it as a base before overriding fields.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	// Defaults always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// LoadConfig loads the application configuration using Viper.
// A .env file is applied first, then ./configs/config.yaml, then environment
// variables (server.port -> SERVER_PORT).
func LoadConfig() (*Config, error) {
	// A missing .env is the normal case outside of local development.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AddConfigPath("./configs")
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, apperrors.ErrConfigLoad{Path: "./configs/config.yaml", Reason: err.Error()}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "error unmarshaling config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the application can't start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres", "mysql":
	default:
		return errors.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Database.Driver != "sqlite" && c.Database.DSN == "" {
		return errors.Errorf("database.dsn is required for driver %q", c.Database.Driver)
	}
	switch c.Cache.Driver {
	case "redis", "memory", "none":
	default:
		return errors.Errorf("unknown cache driver %q", c.Cache.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret must be set")
	}
	if c.Monitor.IntervalSeconds <= 0 {
		return errors.Errorf("monitor.interval_seconds must be positive, got %d", c.Monitor.IntervalSeconds)
	}
	if c.Links.CodeLength < 4 {
		return errors.Errorf("links.code_length must be at least 4, got %d", c.Links.CodeLength)
	}
	return nil
}
