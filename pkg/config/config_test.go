package config

import (
	"os"
	"testing"
	"time"

	"github.com/mindgrove-hq/mindgrove/pkg/observability"
)

// TestGetEnv tests the getEnv helper function
func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{
			name:         "returns env value when set",
			key:          "TEST_VAR",
			defaultValue: "default",
			envValue:     "custom",
			want:         "custom",
		},
		{
			name:         "returns default when env not set",
			key:          "TEST_VAR_NOT_SET",
			defaultValue: "default",
			envValue:     "",
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			}

			got := getEnv(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestGetEnvBool tests the getEnvBool helper function
func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue bool
		envValue     string
		want         bool
	}{
		{
			name:         "returns true for 'true'",
			key:          "TEST_BOOL",
			defaultValue: false,
			envValue:     "true",
			want:         true,
		},
		{
			name:         "returns true for '1'",
			key:          "TEST_BOOL",
			defaultValue: false,
			envValue:     "1",
			want:         true,
		},
		{
			name:         "returns false for 'false'",
			key:          "TEST_BOOL",
			defaultValue: true,
			envValue:     "false",
			want:         false,
		},
		{
			name:         "returns default when not set",
			key:          "TEST_BOOL_NOT_SET",
			defaultValue: true,
			envValue:     "",
			want:         true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			}

			got := getEnvBool(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnvBool() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestGetEnvInt tests the getEnvInt helper function
func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue int
		envValue     string
		want         int
	}{
		{
			name:         "returns parsed int",
			key:          "TEST_INT",
			defaultValue: 10,
			envValue:     "42",
			want:         42,
		},
		{
			name:         "returns default on parse error",
			key:          "TEST_INT",
			defaultValue: 10,
			envValue:     "not-a-number",
			want:         10,
		},
		{
			name:         "returns default when not set",
			key:          "TEST_INT_NOT_SET",
			defaultValue: 10,
			envValue:     "",
			want:         10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			}

			got := getEnvInt(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnvInt() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestGetEnvDuration tests the getEnvDuration helper function
func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue time.Duration
		envValue     string
		want         time.Duration
	}{
		{
			name:         "returns parsed duration",
			key:          "TEST_DURATION",
			defaultValue: 10 * time.Second,
			envValue:     "5m",
			want:         5 * time.Minute,
		},
		{
			name:         "returns default on parse error",
			key:          "TEST_DURATION",
			defaultValue: 10 * time.Second,
			envValue:     "invalid",
			want:         10 * time.Second,
		},
		{
			name:         "returns default when not set",
			key:          "TEST_DURATION_NOT_SET",
			defaultValue: 10 * time.Second,
			envValue:     "",
			want:         10 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			}

			got := getEnvDuration(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnvDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestParseLogLevel tests log level parsing
func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  observability.LogLevel
	}{
		{"debug", observability.DebugLevel},
		{"DEBUG", observability.DebugLevel},
		{"info", observability.InfoLevel},
		{"warn", observability.WarnLevel},
		{"warning", observability.WarnLevel},
		{"error", observability.ErrorLevel},
		{"unknown", observability.InfoLevel},
		{"", observability.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseLogLevel(tt.input)
			if got != tt.want {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// TestLoadServerConfig tests server configuration loading
func TestLoadServerConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := loadServerConfig()

		if cfg.Host != "0.0.0.0" {
			t.Errorf("Host = %v, want 0.0.0.0", cfg.Host)
		}
		if cfg.Port != "8080" {
			t.Errorf("Port = %v, want 8080", cfg.Port)
		}
		if cfg.HealthPort != "9090" {
			t.Errorf("HealthPort = %v, want 9090", cfg.HealthPort)
		}
		if cfg.ReadTimeout != 15*time.Second {
			t.Errorf("ReadTimeout = %v, want 15s", cfg.ReadTimeout)
		}
		if cfg.ShutdownTimeout != 30*time.Second {
			t.Errorf("ShutdownTimeout = %v, want 30s", cfg.ShutdownTimeout)
		}
	})

	t.Run("from environment", func(t *testing.T) {
		os.Setenv("MINDGROVE_HOST", "127.0.0.1")
		os.Setenv("MINDGROVE_PORT", "3000")
		os.Setenv("MINDGROVE_READ_TIMEOUT", "45s")
		defer func() {
			os.Unsetenv("MINDGROVE_HOST")
			os.Unsetenv("MINDGROVE_PORT")
			os.Unsetenv("MINDGROVE_READ_TIMEOUT")
		}()

		cfg := loadServerConfig()

		if cfg.Host != "127.0.0.1" {
			t.Errorf("Host = %v, want 127.0.0.1", cfg.Host)
		}
		if cfg.Port != "3000" {
			t.Errorf("Port = %v, want 3000", cfg.Port)
		}
		if cfg.ReadTimeout != 45*time.Second {
			t.Errorf("ReadTimeout = %v, want 45s", cfg.ReadTimeout)
		}
	})
}

// TestLoadAIConfig tests AI routing configuration loading
func TestLoadAIConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := loadAIConfig()

		if cfg.ResolutionCacheSize != 1024 {
			t.Errorf("ResolutionCacheSize = %v, want 1024", cfg.ResolutionCacheSize)
		}
		if cfg.FeatureOverridePath != "" {
			t.Errorf("FeatureOverridePath = %v, want empty", cfg.FeatureOverridePath)
		}
		if cfg.ProviderTimeout != 60*time.Second {
			t.Errorf("ProviderTimeout = %v, want 60s", cfg.ProviderTimeout)
		}
	})

	t.Run("from environment", func(t *testing.T) {
		os.Setenv("MINDGROVE_AI_CACHE_SIZE", "256")
		os.Setenv("MINDGROVE_AI_FEATURE_OVERRIDES", "/etc/mindgrove/features.yaml")
		defer func() {
			os.Unsetenv("MINDGROVE_AI_CACHE_SIZE")
			os.Unsetenv("MINDGROVE_AI_FEATURE_OVERRIDES")
		}()

		cfg := loadAIConfig()

		if cfg.ResolutionCacheSize != 256 {
			t.Errorf("ResolutionCacheSize = %v, want 256", cfg.ResolutionCacheSize)
		}
		if cfg.FeatureOverridePath != "/etc/mindgrove/features.yaml" {
			t.Errorf("FeatureOverridePath = %v, want /etc/mindgrove/features.yaml", cfg.FeatureOverridePath)
		}
	})
}

// TestLoadRetentionConfig tests retention configuration loading
func TestLoadRetentionConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := loadRetentionConfig()

		if cfg.RevokedGrantTTL != 30*24*time.Hour {
			t.Errorf("RevokedGrantTTL = %v, want 720h", cfg.RevokedGrantTTL)
		}
		if cfg.PurgeSchedule != "0 3 * * *" {
			t.Errorf("PurgeSchedule = %v, want '0 3 * * *'", cfg.PurgeSchedule)
		}
	})

	t.Run("from environment", func(t *testing.T) {
		os.Setenv("MINDGROVE_REVOKED_GRANT_TTL", "168h")
		defer os.Unsetenv("MINDGROVE_REVOKED_GRANT_TTL")

		cfg := loadRetentionConfig()
		if cfg.RevokedGrantTTL != 7*24*time.Hour {
			t.Errorf("RevokedGrantTTL = %v, want 168h", cfg.RevokedGrantTTL)
		}
	})
}

// TestConfigValidate tests configuration validation
func TestConfigValidate(t *testing.T) {
	validConfig := func() *Config {
		return &Config{
			Server: ServerConfig{
				Host:       "0.0.0.0",
				Port:       "8080",
				HealthPort: "9090",
			},
			Database: DatabaseConfig{
				URL:      "postgres://localhost/mindgrove",
				MaxConns: 25,
				MinConns: 5,
			},
			AI: AIConfig{
				ResolutionCacheSize: 1024,
			},
			Retention: RetentionConfig{
				RevokedGrantTTL: 30 * 24 * time.Hour,
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing port",
			mutate:  func(c *Config) { c.Server.Port = "" },
			wantErr: true,
		},
		{
			name:    "missing health port",
			mutate:  func(c *Config) { c.Server.HealthPort = "" },
			wantErr: true,
		},
		{
			name:    "same port and health port",
			mutate:  func(c *Config) { c.Server.HealthPort = "8080" },
			wantErr: true,
		},
		{
			name:    "missing postgres URL",
			mutate:  func(c *Config) { c.Database.URL = "" },
			wantErr: true,
		},
		{
			name:    "max conns below min conns",
			mutate:  func(c *Config) { c.Database.MaxConns = 2 },
			wantErr: true,
		},
		{
			name:    "zero cache size",
			mutate:  func(c *Config) { c.AI.ResolutionCacheSize = 0 },
			wantErr: true,
		},
		{
			name:    "zero retention TTL",
			mutate:  func(c *Config) { c.Retention.RevokedGrantTTL = 0 },
			wantErr: true,
		},
		{
			name: "otel enabled without endpoint",
			mutate: func(c *Config) {
				c.Observability.OTelEnabled = true
				c.Observability.OTelEndpoint = ""
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestLoadConfig tests full configuration loading
func TestLoadConfig(t *testing.T) {
	t.Run("fails without postgres URL", func(t *testing.T) {
		os.Unsetenv("MINDGROVE_POSTGRES_URL")

		_, err := LoadConfig()
		if err == nil {
			t.Error("LoadConfig() expected error without postgres URL, got nil")
		}
	})

	t.Run("loads with required settings", func(t *testing.T) {
		os.Setenv("MINDGROVE_POSTGRES_URL", "postgres://localhost/mindgrove")
		os.Setenv("MINDGROVE_LOG_LEVEL", "debug")
		defer func() {
			os.Unsetenv("MINDGROVE_POSTGRES_URL")
			os.Unsetenv("MINDGROVE_LOG_LEVEL")
		}()

		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}

		if cfg.Database.URL != "postgres://localhost/mindgrove" {
			t.Errorf("Database.URL = %v", cfg.Database.URL)
		}
		if cfg.Observability.LogLevel != observability.DebugLevel {
			t.Errorf("LogLevel = %v, want debug", cfg.Observability.LogLevel)
		}
		if cfg.AI.ResolutionCacheSize != 1024 {
			t.Errorf("ResolutionCacheSize = %v, want default 1024", cfg.AI.ResolutionCacheSize)
		}
	})
}
