package airouting

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns all AI routing migrations
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create ai_providers table",
			SQL: `
				CREATE TABLE IF NOT EXISTS ai_providers (
					id SERIAL PRIMARY KEY,
					name VARCHAR(100) NOT NULL UNIQUE,
					display_name VARCHAR(255) NOT NULL DEFAULT '',
					is_enabled BOOLEAN NOT NULL DEFAULT true,
					supports_tools BOOLEAN NOT NULL DEFAULT false,
					supports_streaming BOOLEAN NOT NULL DEFAULT false,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);
			`,
		},
		{
			Version:     2,
			Description: "Create ai_provider_models table",
			SQL: `
				CREATE TABLE IF NOT EXISTS ai_provider_models (
					id SERIAL PRIMARY KEY,
					provider_id INTEGER NOT NULL REFERENCES ai_providers(id),
					model_key VARCHAR(255) NOT NULL,
					display_name VARCHAR(255) NOT NULL DEFAULT '',
					capabilities JSONB NOT NULL DEFAULT '{}',
					context_window_tokens INTEGER NOT NULL DEFAULT 0,
					max_output_tokens INTEGER NOT NULL DEFAULT 0,
					cost_per_1m_input DOUBLE PRECISION NOT NULL DEFAULT 0,
					cost_per_1m_output DOUBLE PRECISION NOT NULL DEFAULT 0,
					reasoning_level VARCHAR(50),
					is_enabled BOOLEAN NOT NULL DEFAULT true,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE(provider_id, model_key)
				);

				CREATE INDEX idx_ai_provider_models_provider ON ai_provider_models(provider_id);
			`,
		},
		{
			Version:     3,
			Description: "Create ai_feature_routes table",
			SQL: `
				CREATE TABLE IF NOT EXISTS ai_feature_routes (
					id SERIAL PRIMARY KEY,
					feature_key VARCHAR(100) NOT NULL,
					provider_model_id INTEGER NOT NULL REFERENCES ai_provider_models(id),
					surface_type VARCHAR(50),
					master_project_id VARCHAR(255),
					priority INTEGER NOT NULL DEFAULT 0,
					is_fallback BOOLEAN NOT NULL DEFAULT false,
					constraints JSONB NOT NULL DEFAULT '{}',
					is_enabled BOOLEAN NOT NULL DEFAULT true,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_ai_feature_routes_feature ON ai_feature_routes(feature_key);
				CREATE INDEX idx_ai_feature_routes_model ON ai_feature_routes(provider_model_id);
			`,
		},
	}
}

// RunMigrations applies all AI routing migrations in order.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	for _, m := range GetMigrations() {
		if _, err := db.ExecContext(ctx, m.SQL); err != nil {
			return fmt.Errorf("ai routing migration %d (%s) failed: %w", m.Version, m.Description, err)
		}
	}
	return nil
}
