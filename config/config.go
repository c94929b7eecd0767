package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the drivesync service
type Config struct {
	Service  ServiceConfig  `mapstructure:"service"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	IDMS     IDMSConfig     `mapstructure:"idms"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// ServiceConfig contains general service configuration
type ServiceConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`

	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// HTTPConfig contains HTTP server configuration
type HTTPConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig contains database configuration
type DatabaseConfig struct {
	PostgreSQL PostgreSQLConfig `mapstructure:"postgresql"`
}

// PostgreSQLConfig contains PostgreSQL configuration
type PostgreSQLConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"ssl_mode"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// CacheConfig contains cache configuration
type CacheConfig struct {
	Enabled bool        `mapstructure:"enabled"`
	Redis   RedisConfig `mapstructure:"redis"`

	// TTL for the cached account list
	AccountsTTL time.Duration `mapstructure:"accounts_ttl"`
}

// RedisConfig contains Redis configuration
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	Database int    `mapstructure:"database"`

	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// IDMSConfig contains configuration for the external IDMS system
type IDMSConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`
	InstitutionID int    `mapstructure:"institution_id"`
	LayoutID      int    `mapstructure:"layout_id"`
	AccountStatus string `mapstructure:"account_status"`
	PageNumber    int    `mapstructure:"page_number"`

	// RequestTimeout bounds each outbound IDMS call. The upstream API has no
	// timeout of its own, so an unbounded call would stall the sync worker.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	// Circuit breaker settings for the IDMS client
	Breaker BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig contains circuit breaker configuration
type BreakerConfig struct {
	MaxRequests uint32        `mapstructure:"max_requests"`
	Interval    time.Duration `mapstructure:"interval"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MinRequests uint32        `mapstructure:"min_requests"`
	FailureRate float64       `mapstructure:"failure_rate"`
}

// SyncConfig contains account synchronization configuration
type SyncConfig struct {
	// Interval between scheduled sync cycles, measured from process start
	Interval time.Duration `mapstructure:"interval"`

	// BatchSize controls the flush cadence of the batch writer
	BatchSize int `mapstructure:"batch_size"`

	// RunOnStartup fires one sync asynchronously once the service is up
	RunOnStartup bool `mapstructure:"run_on_startup"`
}

// AuthConfig contains authentication configuration
type AuthConfig struct {
	JWT JWTConfig `mapstructure:"jwt"`

	// Bootstrap user created at startup when the user table is empty
	Bootstrap BootstrapUserConfig `mapstructure:"bootstrap"`
}

// JWTConfig contains JWT configuration
type JWTConfig struct {
	SecretKey     string        `mapstructure:"secret_key"`
	Issuer        string        `mapstructure:"issuer"`
	TokenLifetime time.Duration `mapstructure:"token_lifetime"`
}

// BootstrapUserConfig contains the initial API user
type BootstrapUserConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig contains metrics configuration
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"`
}

// LoadConfig loads configuration from config file and environment variables
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/drivesync")

	viper.SetEnvPrefix("DRIVESYNC")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; use defaults and environment variables
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	overrideWithEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Service defaults
	viper.SetDefault("service.name", "drivesync")
	viper.SetDefault("service.version", "1.0.0")
	viper.SetDefault("service.environment", "development")
	viper.SetDefault("service.debug", false)
	viper.SetDefault("service.shutdown_timeout", "30s")

	// HTTP defaults
	viper.SetDefault("http.host", "0.0.0.0")
	viper.SetDefault("http.port", "8080")
	viper.SetDefault("http.read_timeout", "30s")
	viper.SetDefault("http.write_timeout", "30s")
	viper.SetDefault("http.idle_timeout", "120s")

	// Database defaults
	viper.SetDefault("database.postgresql.host", "localhost")
	viper.SetDefault("database.postgresql.port", 5432)
	viper.SetDefault("database.postgresql.database", "drivesync")
	viper.SetDefault("database.postgresql.username", "postgres")
	viper.SetDefault("database.postgresql.ssl_mode", "disable")
	viper.SetDefault("database.postgresql.max_open_conns", 25)
	viper.SetDefault("database.postgresql.max_idle_conns", 10)
	viper.SetDefault("database.postgresql.conn_max_lifetime", "1h")
	viper.SetDefault("database.postgresql.conn_max_idle_time", "30m")

	// Cache defaults
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.redis.host", "localhost")
	viper.SetDefault("cache.redis.port", "6379")
	viper.SetDefault("cache.redis.database", 0)
	viper.SetDefault("cache.redis.pool_size", 10)
	viper.SetDefault("cache.redis.min_idle_conns", 5)
	viper.SetDefault("cache.redis.dial_timeout", "5s")
	viper.SetDefault("cache.redis.read_timeout", "3s")
	viper.SetDefault("cache.redis.write_timeout", "3s")
	viper.SetDefault("cache.accounts_ttl", "5m")

	// IDMS defaults
	viper.SetDefault("idms.base_url", "")
	viper.SetDefault("idms.institution_id", 0)
	viper.SetDefault("idms.layout_id", 0)
	viper.SetDefault("idms.account_status", "Active")
	viper.SetDefault("idms.page_number", 1)
	viper.SetDefault("idms.request_timeout", "30s")
	viper.SetDefault("idms.breaker.max_requests", 1)
	viper.SetDefault("idms.breaker.interval", "60s")
	viper.SetDefault("idms.breaker.timeout", "60s")
	viper.SetDefault("idms.breaker.min_requests", 3)
	viper.SetDefault("idms.breaker.failure_rate", 0.6)

	// Sync defaults (15 minutes, batches of 30, one run at startup)
	viper.SetDefault("sync.interval", "900000ms")
	viper.SetDefault("sync.batch_size", 30)
	viper.SetDefault("sync.run_on_startup", true)

	// Auth defaults
	viper.SetDefault("auth.jwt.issuer", "drivesync")
	viper.SetDefault("auth.jwt.token_lifetime", "30m")
	viper.SetDefault("auth.bootstrap.enabled", false)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	// Metrics defaults
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")
	viper.SetDefault("metrics.namespace", "drivesync")
}

// overrideWithEnv overrides sensitive configuration with environment variables
func overrideWithEnv() {
	if val := os.Getenv("POSTGRES_PASSWORD"); val != "" {
		viper.Set("database.postgresql.password", val)
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		viper.Set("cache.redis.password", val)
	}
	if val := os.Getenv("IDMS_USERNAME"); val != "" {
		viper.Set("idms.username", val)
	}
	if val := os.Getenv("IDMS_PASSWORD"); val != "" {
		viper.Set("idms.password", val)
	}
	if val := os.Getenv("JWT_SECRET_KEY"); val != "" {
		viper.Set("auth.jwt.secret_key", val)
	}
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	if config.Service.Name == "" {
		return fmt.Errorf("service name is required")
	}

	if _, err := strconv.Atoi(config.HTTP.Port); err != nil {
		return fmt.Errorf("invalid HTTP port: %s", config.HTTP.Port)
	}

	if config.Database.PostgreSQL.Host == "" {
		return fmt.Errorf("PostgreSQL host is required")
	}

	if config.Sync.BatchSize <= 0 {
		return fmt.Errorf("sync batch_size must be greater than 0")
	}

	if config.Sync.Interval <= 0 {
		return fmt.Errorf("sync interval must be greater than 0")
	}

	if config.IDMS.RequestTimeout <= 0 {
		return fmt.Errorf("idms request_timeout must be greater than 0")
	}

	return nil
}

// GetDSN returns the PostgreSQL DSN string
func (c *PostgreSQLConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.Password, c.Database, c.SSLMode)
}

// GetRedisAddr returns the Redis address string
func (c *RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}
