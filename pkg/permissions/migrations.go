package permissions

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

// GetMigrations returns all permission migrations
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create permission_grants table",
			SQL: `
				CREATE TABLE IF NOT EXISTS permission_grants (
					id VARCHAR(36) PRIMARY KEY,
					entity_type VARCHAR(50) NOT NULL,
					entity_id VARCHAR(255) NOT NULL,
					subject_type VARCHAR(50) NOT NULL,
					subject_id VARCHAR(255) NOT NULL,
					flags JSONB NOT NULL DEFAULT '{}',
					granted_by VARCHAR(255) NOT NULL,
					granted_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
					revoked_at TIMESTAMP,
					UNIQUE(entity_type, entity_id, subject_type, subject_id)
				);

				CREATE INDEX idx_permission_grants_entity ON permission_grants(entity_type, entity_id);
				CREATE INDEX idx_permission_grants_subject ON permission_grants(subject_type, subject_id);
				CREATE INDEX idx_permission_grants_revoked_at ON permission_grants(revoked_at);
			`,
		},
	}
}

// RunMigrations applies all permission migrations in order.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	for _, m := range GetMigrations() {
		if _, err := db.ExecContext(ctx, m.SQL); err != nil {
			return fmt.Errorf("permission migration %d (%s) failed: %w", m.Version, m.Description, err)
		}
	}
	return nil
}
