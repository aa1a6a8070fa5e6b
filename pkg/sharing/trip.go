package sharing

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mindgrove-hq/mindgrove/pkg/permissions"
)

// TripAdapter shares trips. Trips reuse the calendar's context projection
// handshake rather than inventing a second acceptance mechanism.
type TripAdapter struct {
	db          *sql.DB
	grants      permissions.GrantStore
	projections *ProjectionStore
}

// NewTripAdapter creates a sharing adapter for trips.
func NewTripAdapter(db *sql.DB, grants permissions.GrantStore, projections *ProjectionStore) *TripAdapter {
	return &TripAdapter{db: db, grants: grants, projections: projections}
}

// EntityType returns the entity type this adapter owns.
func (a *TripAdapter) EntityType() permissions.EntityType {
	return permissions.EntityTrip
}

// GetEntityTitle returns the trip name, empty if the trip is gone.
func (a *TripAdapter) GetEntityTitle(ctx context.Context, entityID string) (string, error) {
	var name string
	err := a.db.QueryRowContext(ctx, `SELECT name FROM trips WHERE id = $1`, entityID).Scan(&name)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get trip name: %w", err)
	}
	return name, nil
}

// ListGrants returns drawer rows with handshake state. A deleted trip
// yields an empty list.
func (a *TripAdapter) ListGrants(ctx context.Context, entityID string) ([]GrantView, error) {
	if _, ok, err := a.tripOwner(ctx, entityID); err != nil {
		return nil, err
	} else if !ok {
		return []GrantView{}, nil
	}

	grants, err := a.grants.ListActive(ctx, permissions.EntityTrip, entityID)
	if err != nil {
		return nil, err
	}

	views := make([]GrantView, 0, len(grants))
	for _, g := range grants {
		display, err := lookupUserDisplay(ctx, a.db, g.SubjectType, g.SubjectID)
		if err != nil {
			return nil, err
		}

		status := StatusPending
		proj, err := a.projections.Get(ctx, permissions.EntityTrip, entityID, g.SubjectType, g.SubjectID)
		if err != nil {
			return nil, err
		}
		if proj != nil && proj.Status == StatusAccepted {
			status = StatusAccepted
		}

		views = append(views, GrantView{
			Subject:   SubjectRef{Type: g.SubjectType, ID: g.SubjectID},
			Display:   display,
			Flags:     g.Flags,
			Role:      permissions.FlagsToRoleApprox(g.Flags),
			Status:    status,
			GrantedBy: g.GrantedBy,
			GrantedAt: g.GrantedAt,
		})
	}
	return views, nil
}

// UpsertGrant shares a trip and opens the projection handshake.
func (a *TripAdapter) UpsertGrant(ctx context.Context, entityID, actorID string, subject SubjectRef, flags permissions.Flags) error {
	if _, ok, err := a.tripOwner(ctx, entityID); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("trip %s not found", entityID)
	}

	if err := a.grants.Upsert(ctx, &permissions.Grant{
		EntityType:  permissions.EntityTrip,
		EntityID:    entityID,
		SubjectType: subject.Type,
		SubjectID:   subject.ID,
		Flags:       flags,
		GrantedBy:   actorID,
	}); err != nil {
		return err
	}

	return a.projections.Create(ctx, &Projection{
		EntityType:  permissions.EntityTrip,
		EntityID:    entityID,
		SubjectType: subject.Type,
		SubjectID:   subject.ID,
	})
}

// RevokeGrant tombstones the grant and tears down the projection.
func (a *TripAdapter) RevokeGrant(ctx context.Context, entityID string, subjectType permissions.SubjectType, subjectID string) error {
	if err := a.grants.Revoke(ctx, permissions.EntityTrip, entityID, subjectType, subjectID); err != nil {
		return err
	}
	return a.projections.Delete(ctx, permissions.EntityTrip, entityID, subjectType, subjectID)
}

// PreviewScopeImpact counts the trip legs a widened scope exposes.
func (a *TripAdapter) PreviewScopeImpact(ctx context.Context, entityID string, scope permissions.ShareScope) (*ScopeImpact, error) {
	impact := &ScopeImpact{Scope: scope}
	if scope == permissions.ScopeThisOnly {
		impact.Description = "Only the trip overview is shared"
		return impact, nil
	}

	var count int
	err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trip_legs WHERE trip_id = $1`, entityID).Scan(&count)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to count trip legs: %w", err)
	}
	impact.NestedItemCount = count
	impact.Description = fmt.Sprintf("%d trip legs become visible", count)
	return impact, nil
}

// CanManagePermissions fails closed.
func (a *TripAdapter) CanManagePermissions(ctx context.Context, entityID, actorID string) (bool, error) {
	if actorID == "" {
		return false, nil
	}
	owner, ok, err := a.tripOwner(ctx, entityID)
	if err != nil || !ok {
		return false, err
	}
	if owner == actorID {
		return true, nil
	}

	flags, found, err := resolveActiveFlags(ctx, a.grants, permissions.EntityTrip, entityID, actorID)
	if err != nil || !found {
		return false, err
	}
	return permissions.HasAccess(flags, permissions.AccessManage), nil
}

func (a *TripAdapter) tripOwner(ctx context.Context, entityID string) (string, bool, error) {
	var owner string
	err := a.db.QueryRowContext(ctx, `SELECT owner_id FROM trips WHERE id = $1`, entityID).Scan(&owner)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to load trip: %w", err)
	}
	return owner, true, nil
}
