package sharing

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mindgrove-hq/mindgrove/pkg/permissions"
)

// Projection is the cross-entity sharing record used by the calendar and
// trip adapters. A share starts pending and becomes accepted when the
// recipient confirms; the underlying grant exists from the start, the
// projection only tracks the handshake.
type Projection struct {
	ID          string                  `json:"id"`
	EntityType  permissions.EntityType  `json:"entity_type"`
	EntityID    string                  `json:"entity_id"`
	SubjectType permissions.SubjectType `json:"subject_type"`
	SubjectID   string                  `json:"subject_id"`
	Status      GrantStatus             `json:"status"`
	CreatedAt   time.Time               `json:"created_at"`
	AcceptedAt  *time.Time              `json:"accepted_at,omitempty"`
}

// ProjectionStore persists the projection handshake. Calendar and trip
// adapters share one instance.
type ProjectionStore struct {
	db *sql.DB
}

// NewProjectionStore creates a projection store.
func NewProjectionStore(db *sql.DB) *ProjectionStore {
	return &ProjectionStore{db: db}
}

// Create opens a pending projection. Creating one that already exists is
// a no-op that preserves the current status.
func (s *ProjectionStore) Create(ctx context.Context, p *Projection) error {
	existing, err := s.Get(ctx, p.EntityType, p.EntityID, p.SubjectType, p.SubjectID)
	if err != nil {
		return err
	}
	if existing != nil {
		*p = *existing
		return nil
	}

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.Status = StatusPending
	p.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO context_projections (id, entity_type, entity_id, subject_type, subject_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := s.db.ExecContext(ctx, query, p.ID, p.EntityType, p.EntityID, p.SubjectType, p.SubjectID, p.Status, p.CreatedAt); err != nil {
		return fmt.Errorf("failed to create projection: %w", err)
	}
	return nil
}

// Get returns the projection for a subject on an entity, or (nil, nil).
func (s *ProjectionStore) Get(ctx context.Context, entityType permissions.EntityType, entityID string, subjectType permissions.SubjectType, subjectID string) (*Projection, error) {
	query := `
		SELECT id, entity_type, entity_id, subject_type, subject_id, status, created_at, accepted_at
		FROM context_projections
		WHERE entity_type = $1 AND entity_id = $2 AND subject_type = $3 AND subject_id = $4
	`

	var p Projection
	var acceptedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, query, entityType, entityID, subjectType, subjectID).Scan(
		&p.ID, &p.EntityType, &p.EntityID, &p.SubjectType, &p.SubjectID, &p.Status, &p.CreatedAt, &acceptedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get projection: %w", err)
	}
	if acceptedAt.Valid {
		t := acceptedAt.Time
		p.AcceptedAt = &t
	}
	return &p, nil
}

// Accept marks a pending projection accepted. Accepting an already
// accepted projection is a no-op.
func (s *ProjectionStore) Accept(ctx context.Context, projectionID string) error {
	query := `
		UPDATE context_projections
		SET status = $1, accepted_at = $2
		WHERE id = $3 AND status = $4
	`
	if _, err := s.db.ExecContext(ctx, query, StatusAccepted, time.Now().UTC(), projectionID, StatusPending); err != nil {
		return fmt.Errorf("failed to accept projection: %w", err)
	}
	return nil
}

// Delete removes the projection for a subject on an entity.
func (s *ProjectionStore) Delete(ctx context.Context, entityType permissions.EntityType, entityID string, subjectType permissions.SubjectType, subjectID string) error {
	query := `
		DELETE FROM context_projections
		WHERE entity_type = $1 AND entity_id = $2 AND subject_type = $3 AND subject_id = $4
	`
	if _, err := s.db.ExecContext(ctx, query, entityType, entityID, subjectType, subjectID); err != nil {
		return fmt.Errorf("failed to delete projection: %w", err)
	}
	return nil
}
