package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mindgrove-hq/mindgrove/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Redis configuration
	Redis RedisConfig

	// AI routing configuration
	AI AIConfig

	// Retention configuration
	Retention RetentionConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// DatabaseConfig holds PostgreSQL settings
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
	Timeout  time.Duration
}

// RedisConfig holds Redis settings. Redis backs the permission flag cache;
// an empty URL disables it and resolution hits the database directly.
type RedisConfig struct {
	URL        string
	Password   string
	DB         int
	MaxRetries int
	PoolSize   int
}

// AIConfig holds AI routing settings
type AIConfig struct {
	// ResolutionCacheSize bounds the in-process LRU of resolved routes.
	ResolutionCacheSize int
	// FeatureOverridePath optionally points at a YAML file that overrides
	// the built-in feature capability table. Hot-reloaded when set.
	FeatureOverridePath string
	// ProviderTimeout bounds a single upstream provider call.
	ProviderTimeout time.Duration
}

// RetentionConfig holds the janitor's purge settings
type RetentionConfig struct {
	// RevokedGrantTTL is how long revoked grants stay queryable before the
	// janitor purges them.
	RevokedGrantTTL time.Duration
	// PurgeSchedule is a cron expression for the janitor run.
	PurgeSchedule string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Database:      loadDatabaseConfig(),
		Redis:         loadRedisConfig(),
		AI:            loadAIConfig(),
		Retention:     loadRetentionConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("MINDGROVE_HOST", "0.0.0.0"),
		Port:            getEnv("MINDGROVE_PORT", "8080"),
		ReadTimeout:     getEnvDuration("MINDGROVE_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("MINDGROVE_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("MINDGROVE_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("MINDGROVE_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("MINDGROVE_HEALTH_PORT", "9090"),
	}
}

// loadDatabaseConfig loads PostgreSQL configuration from environment
func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:      getEnv("MINDGROVE_POSTGRES_URL", ""),
		MaxConns: getEnvInt("MINDGROVE_POSTGRES_MAX_CONNS", 25),
		MinConns: getEnvInt("MINDGROVE_POSTGRES_MIN_CONNS", 5),
		Timeout:  getEnvDuration("MINDGROVE_POSTGRES_TIMEOUT", 30*time.Second),
	}
}

// loadRedisConfig loads Redis configuration from environment
func loadRedisConfig() RedisConfig {
	return RedisConfig{
		URL:        getEnv("MINDGROVE_REDIS_URL", ""),
		Password:   getEnv("MINDGROVE_REDIS_PASSWORD", ""),
		DB:         getEnvInt("MINDGROVE_REDIS_DB", 0),
		MaxRetries: getEnvInt("MINDGROVE_REDIS_MAX_RETRIES", 3),
		PoolSize:   getEnvInt("MINDGROVE_REDIS_POOL_SIZE", 10),
	}
}

// loadAIConfig loads AI routing configuration from environment
func loadAIConfig() AIConfig {
	return AIConfig{
		ResolutionCacheSize: getEnvInt("MINDGROVE_AI_CACHE_SIZE", 1024),
		FeatureOverridePath: getEnv("MINDGROVE_AI_FEATURE_OVERRIDES", ""),
		ProviderTimeout:     getEnvDuration("MINDGROVE_AI_PROVIDER_TIMEOUT", 60*time.Second),
	}
}

// loadRetentionConfig loads retention configuration from environment
func loadRetentionConfig() RetentionConfig {
	return RetentionConfig{
		RevokedGrantTTL: getEnvDuration("MINDGROVE_REVOKED_GRANT_TTL", 30*24*time.Hour),
		PurgeSchedule:   getEnv("MINDGROVE_PURGE_SCHEDULE", "0 3 * * *"),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	cfg := ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("MINDGROVE_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("MINDGROVE_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("MINDGROVE_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("MINDGROVE_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("MINDGROVE_OTEL_SERVICE_NAME", "mindgrove-api"),
		OTelServiceVersion: getEnv("MINDGROVE_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("MINDGROVE_OTEL_INSECURE", true),
	}

	return cfg
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("postgres max connections must be >= min connections")
	}

	if c.AI.ResolutionCacheSize <= 0 {
		return fmt.Errorf("AI resolution cache size must be positive")
	}
	if c.Retention.RevokedGrantTTL <= 0 {
		return fmt.Errorf("revoked grant TTL must be positive")
	}

	// Validate OpenTelemetry config
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
