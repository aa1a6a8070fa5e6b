package sharing

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mindgrove-hq/mindgrove/pkg/permissions"
)

// GuardrailsAdapter shares guardrails projects. Guardrails grant
// immediately with no handshake, and revocation purges the row right
// away: a removed collaborator leaves no tombstone on a project that
// tracks personal boundaries.
type GuardrailsAdapter struct {
	db     *sql.DB
	grants permissions.GrantStore
}

// NewGuardrailsAdapter creates a sharing adapter for guardrails projects.
func NewGuardrailsAdapter(db *sql.DB, grants permissions.GrantStore) *GuardrailsAdapter {
	return &GuardrailsAdapter{db: db, grants: grants}
}

// EntityType returns the entity type this adapter owns.
func (a *GuardrailsAdapter) EntityType() permissions.EntityType {
	return permissions.EntityGuardrailsProject
}

// GetEntityTitle returns the project name, empty if the project is gone.
func (a *GuardrailsAdapter) GetEntityTitle(ctx context.Context, entityID string) (string, error) {
	var name string
	err := a.db.QueryRowContext(ctx, `SELECT name FROM guardrails_projects WHERE id = $1`, entityID).Scan(&name)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get project name: %w", err)
	}
	return name, nil
}

// ListGrants returns drawer rows. Every guardrails grant is accepted by
// construction. A deleted project yields an empty list.
func (a *GuardrailsAdapter) ListGrants(ctx context.Context, entityID string) ([]GrantView, error) {
	if _, ok, err := a.projectOwner(ctx, entityID); err != nil {
		return nil, err
	} else if !ok {
		return []GrantView{}, nil
	}

	grants, err := a.grants.ListActive(ctx, permissions.EntityGuardrailsProject, entityID)
	if err != nil {
		return nil, err
	}

	views := make([]GrantView, 0, len(grants))
	for _, g := range grants {
		display, err := lookupUserDisplay(ctx, a.db, g.SubjectType, g.SubjectID)
		if err != nil {
			return nil, err
		}
		views = append(views, GrantView{
			Subject:   SubjectRef{Type: g.SubjectType, ID: g.SubjectID},
			Display:   display,
			Flags:     g.Flags,
			Role:      permissions.FlagsToRoleApprox(g.Flags),
			Status:    StatusAccepted,
			GrantedBy: g.GrantedBy,
			GrantedAt: g.GrantedAt,
		})
	}
	return views, nil
}

// UpsertGrant shares a project; access takes effect immediately.
func (a *GuardrailsAdapter) UpsertGrant(ctx context.Context, entityID, actorID string, subject SubjectRef, flags permissions.Flags) error {
	if _, ok, err := a.projectOwner(ctx, entityID); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("guardrails project %s not found", entityID)
	}

	return a.grants.Upsert(ctx, &permissions.Grant{
		EntityType:  permissions.EntityGuardrailsProject,
		EntityID:    entityID,
		SubjectType: subject.Type,
		SubjectID:   subject.ID,
		Flags:       flags,
		GrantedBy:   actorID,
	})
}

// RevokeGrant removes access and purges the row immediately.
func (a *GuardrailsAdapter) RevokeGrant(ctx context.Context, entityID string, subjectType permissions.SubjectType, subjectID string) error {
	if err := a.grants.Revoke(ctx, permissions.EntityGuardrailsProject, entityID, subjectType, subjectID); err != nil {
		return err
	}
	return a.grants.Purge(ctx, permissions.EntityGuardrailsProject, entityID, subjectType, subjectID)
}

// PreviewScopeImpact counts the guardrail rules a widened scope exposes.
func (a *GuardrailsAdapter) PreviewScopeImpact(ctx context.Context, entityID string, scope permissions.ShareScope) (*ScopeImpact, error) {
	impact := &ScopeImpact{Scope: scope}
	if scope == permissions.ScopeThisOnly {
		impact.Description = "Only the project summary is shared"
		return impact, nil
	}

	var count int
	err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM guardrails_rules WHERE project_id = $1`, entityID).Scan(&count)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to count guardrail rules: %w", err)
	}
	impact.NestedItemCount = count
	impact.Description = fmt.Sprintf("%d guardrail rules become visible", count)
	return impact, nil
}

// CanManagePermissions fails closed.
func (a *GuardrailsAdapter) CanManagePermissions(ctx context.Context, entityID, actorID string) (bool, error) {
	if actorID == "" {
		return false, nil
	}
	owner, ok, err := a.projectOwner(ctx, entityID)
	if err != nil || !ok {
		return false, err
	}
	if owner == actorID {
		return true, nil
	}

	flags, found, err := resolveActiveFlags(ctx, a.grants, permissions.EntityGuardrailsProject, entityID, actorID)
	if err != nil || !found {
		return false, err
	}
	return permissions.HasAccess(flags, permissions.AccessManage), nil
}

func (a *GuardrailsAdapter) projectOwner(ctx context.Context, entityID string) (string, bool, error) {
	var owner string
	err := a.db.QueryRowContext(ctx, `SELECT owner_id FROM guardrails_projects WHERE id = $1`, entityID).Scan(&owner)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to load guardrails project: %w", err)
	}
	return owner, true, nil
}
