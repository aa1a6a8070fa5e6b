package audit

import (
	"context"
	"database/sql"
	"time"

	"github.com/mindgrove-hq/mindgrove/pkg/observability"
)

// DBLogger persists audit events to the audit_events table.
type DBLogger struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewDBLogger creates a database-backed audit logger.
func NewDBLogger(db *sql.DB, logger *observability.Logger) *DBLogger {
	return &DBLogger{db: db, logger: logger}
}

// Log writes the event. Failures are logged and swallowed; audit must
// never fail the operation it describes.
func (l *DBLogger) Log(ctx context.Context, event *Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	query := `
		INSERT INTO audit_events (timestamp, event_type, status, actor_id, resource_type, resource_id, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := l.db.ExecContext(ctx, query,
		event.Timestamp,
		event.EventType,
		event.Status,
		event.ActorID,
		event.ResourceType,
		event.ResourceID,
		event.ErrorMessage,
	)
	if err != nil && l.logger != nil {
		l.logger.WithError(err).WithField("event_type", string(event.EventType)).Warn("failed to write audit event")
	}
}

// RunMigrations applies the audit schema.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	for _, stmt := range Migrations() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Migrations returns the audit schema.
func Migrations() []string {
	return []string{`
		CREATE TABLE IF NOT EXISTS audit_events (
			id BIGSERIAL PRIMARY KEY,
			timestamp TIMESTAMP NOT NULL,
			event_type VARCHAR(100) NOT NULL,
			status VARCHAR(20) NOT NULL,
			actor_id VARCHAR(255),
			resource_type VARCHAR(100),
			resource_id VARCHAR(255),
			error_message TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_audit_events_timestamp ON audit_events(timestamp);
		CREATE INDEX IF NOT EXISTS idx_audit_events_event_type ON audit_events(event_type);
	`}
}
