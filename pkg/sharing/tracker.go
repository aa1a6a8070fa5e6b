package sharing

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mindgrove-hq/mindgrove/pkg/permissions"
)

// TrackerAdapter shares habit/goal trackers. Trackers keep revoked grants
// as tombstones so a re-share restores history instead of duplicating.
type TrackerAdapter struct {
	db     *sql.DB
	grants permissions.GrantStore
}

// NewTrackerAdapter creates a sharing adapter for trackers.
func NewTrackerAdapter(db *sql.DB, grants permissions.GrantStore) *TrackerAdapter {
	return &TrackerAdapter{db: db, grants: grants}
}

// EntityType returns the entity type this adapter owns.
func (a *TrackerAdapter) EntityType() permissions.EntityType {
	return permissions.EntityTracker
}

// GetEntityTitle returns the tracker title, or an empty string for a
// tracker that no longer resolves.
func (a *TrackerAdapter) GetEntityTitle(ctx context.Context, entityID string) (string, error) {
	var title string
	err := a.db.QueryRowContext(ctx, `SELECT title FROM trackers WHERE id = $1 AND archived_at IS NULL`, entityID).Scan(&title)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get tracker title: %w", err)
	}
	return title, nil
}

// ListGrants returns the drawer rows for a tracker. A missing or archived
// tracker yields an empty list, never an error.
func (a *TrackerAdapter) ListGrants(ctx context.Context, entityID string) ([]GrantView, error) {
	if _, ok, err := a.trackerOwner(ctx, entityID); err != nil {
		return nil, err
	} else if !ok {
		return []GrantView{}, nil
	}

	grants, err := a.grants.ListActive(ctx, permissions.EntityTracker, entityID)
	if err != nil {
		return nil, err
	}

	views := make([]GrantView, 0, len(grants))
	for _, g := range grants {
		display, err := a.resolveDisplay(ctx, g.SubjectType, g.SubjectID)
		if err != nil {
			return nil, err
		}
		views = append(views, GrantView{
			Subject:   SubjectRef{Type: g.SubjectType, ID: g.SubjectID},
			Display:   display,
			Flags:     g.Flags,
			Role:      permissions.FlagsToRoleApprox(g.Flags),
			Status:    StatusAccepted, // trackers grant immediately
			GrantedBy: g.GrantedBy,
			GrantedAt: g.GrantedAt,
		})
	}
	return views, nil
}

// UpsertGrant shares a tracker with a subject. The owner already has
// implicit full access, so self-grants are rejected. Re-granting a
// soft-revoked subject restores the tombstone.
func (a *TrackerAdapter) UpsertGrant(ctx context.Context, entityID, actorID string, subject SubjectRef, flags permissions.Flags) error {
	owner, ok, err := a.trackerOwner(ctx, entityID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("tracker %s not found", entityID)
	}
	if subject.Type == permissions.SubjectUser && subject.ID == owner {
		return fmt.Errorf("cannot grant tracker access to its owner")
	}

	return a.grants.Upsert(ctx, &permissions.Grant{
		EntityType:  permissions.EntityTracker,
		EntityID:    entityID,
		SubjectType: subject.Type,
		SubjectID:   subject.ID,
		Flags:       flags,
		GrantedBy:   actorID,
	})
}

// RevokeGrant soft-revokes a tracker grant. Revoking an already-revoked
// subject is a no-op.
func (a *TrackerAdapter) RevokeGrant(ctx context.Context, entityID string, subjectType permissions.SubjectType, subjectID string) error {
	return a.grants.Revoke(ctx, permissions.EntityTracker, entityID, subjectType, subjectID)
}

// PreviewScopeImpact reports how many logged entries a widened scope
// would expose.
func (a *TrackerAdapter) PreviewScopeImpact(ctx context.Context, entityID string, scope permissions.ShareScope) (*ScopeImpact, error) {
	impact := &ScopeImpact{Scope: scope}
	if scope == permissions.ScopeThisOnly {
		impact.Description = "Only the tracker summary is shared"
		return impact, nil
	}

	var count int
	err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tracker_entries WHERE tracker_id = $1`, entityID).Scan(&count)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to count tracker entries: %w", err)
	}
	impact.NestedItemCount = count
	impact.Description = fmt.Sprintf("%d logged entries become visible", count)
	return impact, nil
}

// CanManagePermissions reports whether the actor may change who has
// access. Fails closed: unknown tracker or empty actor means no.
func (a *TrackerAdapter) CanManagePermissions(ctx context.Context, entityID, actorID string) (bool, error) {
	if actorID == "" {
		return false, nil
	}
	owner, ok, err := a.trackerOwner(ctx, entityID)
	if err != nil || !ok {
		return false, err
	}
	if owner == actorID {
		return true, nil
	}

	flags, found, err := resolveActiveFlags(ctx, a.grants, permissions.EntityTracker, entityID, actorID)
	if err != nil || !found {
		return false, err
	}
	return permissions.HasAccess(flags, permissions.AccessManage), nil
}

func (a *TrackerAdapter) trackerOwner(ctx context.Context, entityID string) (string, bool, error) {
	var owner string
	err := a.db.QueryRowContext(ctx, `SELECT owner_id FROM trackers WHERE id = $1 AND archived_at IS NULL`, entityID).Scan(&owner)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to load tracker: %w", err)
	}
	return owner, true, nil
}

func (a *TrackerAdapter) resolveDisplay(ctx context.Context, subjectType permissions.SubjectType, subjectID string) (SubjectDisplay, error) {
	return lookupUserDisplay(ctx, a.db, subjectType, subjectID)
}
