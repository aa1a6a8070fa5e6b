package sharing

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

// GetMigrations returns all sharing migrations
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create identity tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS users (
					id VARCHAR(255) PRIMARY KEY,
					display_name VARCHAR(255) NOT NULL,
					email VARCHAR(255),
					avatar_url VARCHAR(1024)
				);

				CREATE TABLE IF NOT EXISTS contacts (
					id VARCHAR(255) PRIMARY KEY,
					owner_id VARCHAR(255) NOT NULL,
					name VARCHAR(255) NOT NULL,
					email VARCHAR(255)
				);
			`,
		},
		{
			Version:     2,
			Description: "Create shareable entity tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS trackers (
					id VARCHAR(255) PRIMARY KEY,
					owner_id VARCHAR(255) NOT NULL,
					title VARCHAR(255) NOT NULL,
					archived_at TIMESTAMP
				);

				CREATE TABLE IF NOT EXISTS tracker_entries (
					id VARCHAR(255) PRIMARY KEY,
					tracker_id VARCHAR(255) NOT NULL,
					logged_at TIMESTAMP NOT NULL
				);

				CREATE TABLE IF NOT EXISTS calendar_events (
					id VARCHAR(255) PRIMARY KEY,
					owner_id VARCHAR(255) NOT NULL,
					title VARCHAR(255) NOT NULL
				);

				CREATE TABLE IF NOT EXISTS calendar_event_items (
					id VARCHAR(255) PRIMARY KEY,
					event_id VARCHAR(255) NOT NULL
				);

				CREATE TABLE IF NOT EXISTS calendar_event_shares (
					event_id VARCHAR(255) NOT NULL,
					subject_type VARCHAR(50) NOT NULL,
					subject_id VARCHAR(255) NOT NULL,
					detail VARCHAR(20) NOT NULL,
					nested_scope VARCHAR(30) NOT NULL,
					PRIMARY KEY (event_id, subject_type, subject_id)
				);

				CREATE TABLE IF NOT EXISTS trips (
					id VARCHAR(255) PRIMARY KEY,
					owner_id VARCHAR(255) NOT NULL,
					name VARCHAR(255) NOT NULL
				);

				CREATE TABLE IF NOT EXISTS trip_legs (
					id VARCHAR(255) PRIMARY KEY,
					trip_id VARCHAR(255) NOT NULL
				);

				CREATE TABLE IF NOT EXISTS guardrails_projects (
					id VARCHAR(255) PRIMARY KEY,
					owner_id VARCHAR(255) NOT NULL,
					name VARCHAR(255) NOT NULL
				);

				CREATE TABLE IF NOT EXISTS guardrails_rules (
					id VARCHAR(255) PRIMARY KEY,
					project_id VARCHAR(255) NOT NULL
				);
			`,
		},
		{
			Version:     3,
			Description: "Create context_projections table",
			SQL: `
				CREATE TABLE IF NOT EXISTS context_projections (
					id VARCHAR(36) PRIMARY KEY,
					entity_type VARCHAR(50) NOT NULL,
					entity_id VARCHAR(255) NOT NULL,
					subject_type VARCHAR(50) NOT NULL,
					subject_id VARCHAR(255) NOT NULL,
					status VARCHAR(20) NOT NULL,
					created_at TIMESTAMP NOT NULL,
					accepted_at TIMESTAMP,
					UNIQUE(entity_type, entity_id, subject_type, subject_id)
				);

				CREATE INDEX idx_context_projections_entity ON context_projections(entity_type, entity_id);
			`,
		},
	}
}

// RunMigrations applies all sharing migrations in order.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	for _, m := range GetMigrations() {
		if _, err := db.ExecContext(ctx, m.SQL); err != nil {
			return fmt.Errorf("sharing migration %d (%s) failed: %w", m.Version, m.Description, err)
		}
	}
	return nil
}
