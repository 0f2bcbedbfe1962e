// Package config provides configuration management for the recipe catalog service.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "RECIPES"

// Accepted values of DatabaseConfig.SSLMode. SSLModeDisable is meant for
// local development only.
const (
	SSLModeDisable    = "disable"
	SSLModeRequire    = "require"
	SSLModeVerifyCA   = "verify-ca"
	SSLModeVerifyFull = "verify-full"
)

// Config holds all configuration for the recipe catalog service.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Pagination PaginationConfig `mapstructure:"pagination"`
}

// ServerConfig configures the API and metrics listeners.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	HTTPPort     int           `mapstructure:"http_port"`
	MetricsPort  int           `mapstructure:"metrics_port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout bounds draining requests and pending view recordings.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig configures the PostgreSQL pool and migrations.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"ssl_mode"`

	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	ConnectTimeout    time.Duration `mapstructure:"connect_timeout"`

	MigrationPath string `mapstructure:"migration_path"`
	// MigrationAutoRun applies pending migrations when the server starts.
	MigrationAutoRun       bool `mapstructure:"migration_auto_run"`
	StatementCacheCapacity int  `mapstructure:"statement_cache_capacity"`
}

// LoggingConfig mirrors observability.LoggingConfig. Output is stdout,
// stderr or a file path.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"`
}

// KafkaConfig configures the recipe change event publisher.
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	BatchSize    int           `mapstructure:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	// WriteTimeout bounds a single publish.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// RateLimitConfig configures the token bucket in front of the recipe API.
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

// PaginationConfig holds paging bounds for list, search and filter reads.
type PaginationConfig struct {
	DefaultLimit int `mapstructure:"default_limit"`
	MaxLimit     int `mapstructure:"max_limit"`
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	params := url.Values{}
	params.Set("sslmode", c.SSLMode)
	if c.ConnectTimeout > 0 {
		params.Set("connect_timeout", fmt.Sprintf("%d", int(c.ConnectTimeout.Seconds())))
	}
	if c.StatementCacheCapacity > 0 {
		params.Set("statement_cache_capacity", fmt.Sprintf("%d", c.StatementCacheCapacity))
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		params.Encode(),
	)
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// MetricsAddress returns the metrics server address.
func (c *ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// Load reads configuration from defaults, an optional config.yaml and
// RECIPES_* environment variables, in increasing precedence.
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/recipe-catalog-service")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// defaults are keyed by the viper path; RECIPES_DATABASE_SSL_MODE=disable
// is the usual override for local development.
var defaults = map[string]any{
	"server.host":             "0.0.0.0",
	"server.http_port":        8080,
	"server.metrics_port":     9091,
	"server.read_timeout":     "15s",
	"server.write_timeout":    "15s",
	"server.shutdown_timeout": "30s",

	"database.host":                     "localhost",
	"database.port":                     5432,
	"database.user":                     "recipes",
	"database.password":                 "",
	"database.name":                     "recipe_catalog",
	"database.ssl_mode":                 SSLModeRequire,
	"database.max_conns":                20,
	"database.min_conns":                2,
	"database.max_conn_lifetime":        "1h",
	"database.max_conn_idle_time":       "30m",
	"database.health_check_period":      "30s",
	"database.connect_timeout":          "10s",
	"database.migration_path":           "migrations",
	"database.migration_auto_run":       false,
	"database.statement_cache_capacity": 512,

	"logging.level":       "info",
	"logging.format":      "json",
	"logging.output":      "stdout",
	"logging.add_source":  false,
	"logging.time_format": time.RFC3339,

	"metrics.enabled":   true,
	"metrics.path":      "/metrics",
	"metrics.namespace": "recipe_catalog",

	"kafka.enabled":       false,
	"kafka.brokers":       []string{"localhost:9092"},
	"kafka.topic":         "events.recipe_catalog.recipes",
	"kafka.batch_size":    100,
	"kafka.batch_timeout": "10ms",
	"kafka.write_timeout": "5s",

	"rate_limit.enabled": false,
	"rate_limit.rps":     50.0,
	"rate_limit.burst":   100,

	"pagination.default_limit": 20,
	"pagination.max_limit":     100,
}

var logLevels = map[string]bool{
	"trace": true, "debug": true, "info": true,
	"warn": true, "error": true, "fatal": true, "panic": true,
}

// Validate reports every invalid setting, joined into one error.
func (c *Config) Validate() error {
	var errs []error
	check := func(bad bool, format string, args ...any) {
		if bad {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	srv := c.Server
	check(!validPort(srv.HTTPPort), "invalid HTTP port: %d", srv.HTTPPort)
	check(!validPort(srv.MetricsPort), "invalid metrics port: %d", srv.MetricsPort)
	check(c.Metrics.Enabled && srv.MetricsPort == srv.HTTPPort,
		"metrics port must differ from HTTP port: %d", srv.HTTPPort)

	db := c.Database
	check(db.Host == "", "database host is required")
	check(!validPort(db.Port), "invalid database port: %d", db.Port)
	check(db.Name == "", "database name is required")
	check(db.MaxConns < db.MinConns, "max_conns (%d) must be >= min_conns (%d)", db.MaxConns, db.MinConns)
	switch db.SSLMode {
	case SSLModeDisable, SSLModeRequire, SSLModeVerifyCA, SSLModeVerifyFull:
	default:
		check(true, "invalid database ssl_mode: %s", db.SSLMode)
	}

	check(!logLevels[strings.ToLower(c.Logging.Level)], "invalid log level: %s", c.Logging.Level)

	if c.Kafka.Enabled {
		check(len(c.Kafka.Brokers) == 0, "kafka brokers are required when kafka is enabled")
		check(c.Kafka.Topic == "", "kafka topic is required when kafka is enabled")
	}
	if c.RateLimit.Enabled {
		check(c.RateLimit.RPS <= 0, "rate limit rps must be positive")
		check(c.RateLimit.Burst <= 0, "rate limit burst must be positive")
	}

	page := c.Pagination
	check(page.DefaultLimit <= 0, "pagination default_limit must be positive")
	check(page.MaxLimit < page.DefaultLimit,
		"pagination max_limit (%d) must be >= default_limit (%d)", page.MaxLimit, page.DefaultLimit)

	return errors.Join(errs...)
}

func validPort(p int) bool {
	return p > 0 && p <= 65535
}
