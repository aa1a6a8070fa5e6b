// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables with
// sensible defaults for all settings.
//
// # Configuration Structure
//
// Server settings:
//
//	MINDGROVE_HOST="0.0.0.0"
//	MINDGROVE_PORT="8080"
//	MINDGROVE_HEALTH_PORT="9090"
//	MINDGROVE_READ_TIMEOUT="15s"
//	MINDGROVE_WRITE_TIMEOUT="15s"
//
// Database settings:
//
//	MINDGROVE_POSTGRES_URL="postgres://localhost/mindgrove"
//	MINDGROVE_POSTGRES_MAX_CONNS="25"
//
// Cache settings:
//
//	MINDGROVE_REDIS_URL="redis://localhost:6379"
//	MINDGROVE_REDIS_POOL_SIZE="10"
//
// AI routing settings:
//
//	MINDGROVE_AI_CACHE_SIZE="1024"
//	MINDGROVE_AI_FEATURE_OVERRIDES="/etc/mindgrove/features.yaml"
//	MINDGROVE_AI_PROVIDER_TIMEOUT="60s"
//
// Retention settings:
//
//	MINDGROVE_REVOKED_GRANT_TTL="720h"
//	MINDGROVE_PURGE_SCHEDULE="0 3 * * *"
//
// Observability settings:
//
//	MINDGROVE_LOG_LEVEL="info"  # debug, info, warn, error
//	MINDGROVE_METRICS_ENABLED="true"
//	MINDGROVE_OTEL_ENABLED="true"
//	MINDGROVE_OTEL_ENDPOINT="otel-collector:4317"
//
// Provider credentials are read separately, one variable per provider slug
// (MINDGROVE_AI_KEY_ANTHROPIC, MINDGROVE_AI_KEY_OPENAI, ...); they never
// pass through this package or the database.
//
// # Usage Example
//
// Load configuration:
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("Server: %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//	fmt.Printf("Log level: %v\n", cfg.Observability.LogLevel)
//
// # Related Packages
//
//   - pkg/observability: Uses observability configuration
//   - pkg/aiprovider: Reads provider credentials from the environment
package config
