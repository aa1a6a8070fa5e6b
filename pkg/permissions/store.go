package permissions

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GrantStore is the uniform grant lifecycle contract. Revocation is always
// soft; adapters that want hard-delete semantics call Purge immediately
// after Revoke. New entity types get this for free and never choose a
// lifecycle of their own.
type GrantStore interface {
	Upsert(ctx context.Context, grant *Grant) error
	Get(ctx context.Context, entityType EntityType, entityID string, subjectType SubjectType, subjectID string) (*Grant, error)
	ListActive(ctx context.Context, entityType EntityType, entityID string) ([]Grant, error)
	ListAll(ctx context.Context, entityType EntityType, entityID string) ([]Grant, error)
	Revoke(ctx context.Context, entityType EntityType, entityID string, subjectType SubjectType, subjectID string) error
	Restore(ctx context.Context, entityType EntityType, entityID string, subjectType SubjectType, subjectID string) error
	Purge(ctx context.Context, entityType EntityType, entityID string, subjectType SubjectType, subjectID string) error
	PurgeRevokedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Store persists grants in SQL. It implements GrantStore.
type Store struct {
	db *sql.DB
}

// NewStore creates a new grant store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const grantColumns = `id, entity_type, entity_id, subject_type, subject_id, flags, granted_by, granted_at, updated_at, revoked_at`

// Upsert creates a grant, or updates the flags of an existing one in
// place. Re-granting a revoked subject clears the tombstone instead of
// inserting a duplicate row. Granting the same subject the same flags
// twice is a no-op observable only through updated_at.
func (s *Store) Upsert(ctx context.Context, grant *Grant) error {
	existing, err := s.Get(ctx, grant.EntityType, grant.EntityID, grant.SubjectType, grant.SubjectID)
	if err != nil {
		return err
	}

	flagsJSON, err := json.Marshal(grant.Flags)
	if err != nil {
		return fmt.Errorf("failed to marshal flags: %w", err)
	}

	now := time.Now().UTC()

	if existing != nil {
		query := `
			UPDATE permission_grants
			SET flags = $1, updated_at = $2, revoked_at = NULL
			WHERE id = $3
		`
		if _, err := s.db.ExecContext(ctx, query, string(flagsJSON), now, existing.ID); err != nil {
			return fmt.Errorf("failed to update grant: %w", err)
		}
		grant.ID = existing.ID
		grant.GrantedAt = existing.GrantedAt
		grant.UpdatedAt = now
		grant.RevokedAt = nil
		return nil
	}

	if grant.ID == "" {
		grant.ID = uuid.NewString()
	}
	query := `
		INSERT INTO permission_grants (id, entity_type, entity_id, subject_type, subject_id, flags, granted_by, granted_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = s.db.ExecContext(ctx, query,
		grant.ID,
		grant.EntityType,
		grant.EntityID,
		grant.SubjectType,
		grant.SubjectID,
		string(flagsJSON),
		grant.GrantedBy,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create grant: %w", err)
	}

	grant.GrantedAt = now
	grant.UpdatedAt = now
	return nil
}

// Get returns the grant row for a subject on an entity, tombstones
// included. A missing row is (nil, nil), not an error.
func (s *Store) Get(ctx context.Context, entityType EntityType, entityID string, subjectType SubjectType, subjectID string) (*Grant, error) {
	query := `
		SELECT ` + grantColumns + `
		FROM permission_grants
		WHERE entity_type = $1 AND entity_id = $2 AND subject_type = $3 AND subject_id = $4
	`

	grant, err := scanGrant(s.db.QueryRowContext(ctx, query, entityType, entityID, subjectType, subjectID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get grant: %w", err)
	}
	return grant, nil
}

// ListActive returns all non-revoked grants for an entity.
func (s *Store) ListActive(ctx context.Context, entityType EntityType, entityID string) ([]Grant, error) {
	query := `
		SELECT ` + grantColumns + `
		FROM permission_grants
		WHERE entity_type = $1 AND entity_id = $2 AND revoked_at IS NULL
		ORDER BY granted_at ASC
	`
	return s.listGrants(ctx, query, entityType, entityID)
}

// ListAll returns every grant row for an entity including tombstones.
// Management surfaces use this; consumers gate visibility with HasAccess.
func (s *Store) ListAll(ctx context.Context, entityType EntityType, entityID string) ([]Grant, error) {
	query := `
		SELECT ` + grantColumns + `
		FROM permission_grants
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY granted_at ASC
	`
	return s.listGrants(ctx, query, entityType, entityID)
}

func (s *Store) listGrants(ctx context.Context, query string, args ...interface{}) ([]Grant, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list grants: %w", err)
	}
	defer rows.Close()

	var grants []Grant
	for rows.Next() {
		grant, err := scanGrant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		grants = append(grants, *grant)
	}
	return grants, rows.Err()
}

// Revoke tombstones a grant. Revoking a subject that has no grant, or one
// already revoked, is a no-op.
func (s *Store) Revoke(ctx context.Context, entityType EntityType, entityID string, subjectType SubjectType, subjectID string) error {
	query := `
		UPDATE permission_grants
		SET revoked_at = $1, updated_at = $1
		WHERE entity_type = $2 AND entity_id = $3 AND subject_type = $4 AND subject_id = $5 AND revoked_at IS NULL
	`
	if _, err := s.db.ExecContext(ctx, query, time.Now().UTC(), entityType, entityID, subjectType, subjectID); err != nil {
		return fmt.Errorf("failed to revoke grant: %w", err)
	}
	return nil
}

// Restore clears a tombstone, reactivating the grant with its last flags.
func (s *Store) Restore(ctx context.Context, entityType EntityType, entityID string, subjectType SubjectType, subjectID string) error {
	query := `
		UPDATE permission_grants
		SET revoked_at = NULL, updated_at = $1
		WHERE entity_type = $2 AND entity_id = $3 AND subject_type = $4 AND subject_id = $5
	`
	if _, err := s.db.ExecContext(ctx, query, time.Now().UTC(), entityType, entityID, subjectType, subjectID); err != nil {
		return fmt.Errorf("failed to restore grant: %w", err)
	}
	return nil
}

// Purge hard-deletes a grant row. Adapters with immediate-purge semantics
// call this right after Revoke.
func (s *Store) Purge(ctx context.Context, entityType EntityType, entityID string, subjectType SubjectType, subjectID string) error {
	query := `
		DELETE FROM permission_grants
		WHERE entity_type = $1 AND entity_id = $2 AND subject_type = $3 AND subject_id = $4
	`
	if _, err := s.db.ExecContext(ctx, query, entityType, entityID, subjectType, subjectID); err != nil {
		return fmt.Errorf("failed to purge grant: %w", err)
	}
	return nil
}

// PurgeRevokedBefore deletes tombstones older than the cutoff and returns
// how many rows went away. The janitor runs this on a schedule.
func (s *Store) PurgeRevokedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM permission_grants WHERE revoked_at IS NOT NULL AND revoked_at < $1`
	result, err := s.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge revoked grants: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged grants: %w", err)
	}
	return n, nil
}

// ResolveFlags returns the active flags for a subject on an entity. The
// second return is false when no active grant exists; callers treat that
// as no access, never as an error.
func (s *Store) ResolveFlags(ctx context.Context, entityType EntityType, entityID string, subjectType SubjectType, subjectID string) (Flags, bool, error) {
	grant, err := s.Get(ctx, entityType, entityID, subjectType, subjectID)
	if err != nil {
		return Flags{}, false, err
	}
	if grant == nil || grant.Revoked() {
		return Flags{}, false, nil
	}
	return grant.Flags, true, nil
}

// scanGrant scans a grant from a database row.
func scanGrant(scanner interface {
	Scan(dest ...interface{}) error
}) (*Grant, error) {
	var grant Grant
	var flagsJSON string
	var revokedAt sql.NullTime

	err := scanner.Scan(
		&grant.ID,
		&grant.EntityType,
		&grant.EntityID,
		&grant.SubjectType,
		&grant.SubjectID,
		&flagsJSON,
		&grant.GrantedBy,
		&grant.GrantedAt,
		&grant.UpdatedAt,
		&revokedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(flagsJSON), &grant.Flags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal flags: %w", err)
	}
	if revokedAt.Valid {
		t := revokedAt.Time
		grant.RevokedAt = &t
	}

	return &grant, nil
}
