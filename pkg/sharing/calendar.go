package sharing

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mindgrove-hq/mindgrove/pkg/permissions"
)

// Calendar events encode the canonical detail level and scope in their
// native columns: detail as 'title'|'full', nested scope as
// 'container'|'container+items'. The adapter owns both translations.
const (
	calendarDetailTitle = "title"
	calendarDetailFull  = "full"

	calendarScopeContainer      = "container"
	calendarScopeContainerItems = "container+items"
)

// CalendarAdapter shares calendar events. Shares go through the context
// projection handshake: the grant exists immediately but shows as pending
// until the recipient accepts.
type CalendarAdapter struct {
	db          *sql.DB
	grants      permissions.GrantStore
	projections *ProjectionStore
}

// NewCalendarAdapter creates a sharing adapter for calendar events.
func NewCalendarAdapter(db *sql.DB, grants permissions.GrantStore, projections *ProjectionStore) *CalendarAdapter {
	return &CalendarAdapter{db: db, grants: grants, projections: projections}
}

// EntityType returns the entity type this adapter owns.
func (a *CalendarAdapter) EntityType() permissions.EntityType {
	return permissions.EntityCalendarEvent
}

// GetEntityTitle returns the event title, empty if the event is gone.
func (a *CalendarAdapter) GetEntityTitle(ctx context.Context, entityID string) (string, error) {
	var title string
	err := a.db.QueryRowContext(ctx, `SELECT title FROM calendar_events WHERE id = $1`, entityID).Scan(&title)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get event title: %w", err)
	}
	return title, nil
}

// ListGrants returns drawer rows with the projection handshake state
// attached. A deleted event yields an empty list.
func (a *CalendarAdapter) ListGrants(ctx context.Context, entityID string) ([]GrantView, error) {
	if _, ok, err := a.eventOwner(ctx, entityID); err != nil {
		return nil, err
	} else if !ok {
		return []GrantView{}, nil
	}

	grants, err := a.grants.ListActive(ctx, permissions.EntityCalendarEvent, entityID)
	if err != nil {
		return nil, err
	}

	views := make([]GrantView, 0, len(grants))
	for _, g := range grants {
		display, err := a.resolveDisplay(ctx, g.SubjectType, g.SubjectID)
		if err != nil {
			return nil, err
		}

		status := StatusPending
		proj, err := a.projections.Get(ctx, permissions.EntityCalendarEvent, entityID, g.SubjectType, g.SubjectID)
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

// UpsertGrant shares an event and opens the projection handshake. The
// native detail/scope columns are kept in sync with the canonical flags.
func (a *CalendarAdapter) UpsertGrant(ctx context.Context, entityID, actorID string, subject SubjectRef, flags permissions.Flags) error {
	if _, ok, err := a.eventOwner(ctx, entityID); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("calendar event %s not found", entityID)
	}

	if err := a.grants.Upsert(ctx, &permissions.Grant{
		EntityType:  permissions.EntityCalendarEvent,
		EntityID:    entityID,
		SubjectType: subject.Type,
		SubjectID:   subject.ID,
		Flags:       flags,
		GrantedBy:   actorID,
	}); err != nil {
		return err
	}

	// Native encoding mirrors the canonical flags on the share row.
	detail := calendarDetailFull
	if flags.Detail == permissions.DetailOverview {
		detail = calendarDetailTitle
	}
	nested := calendarScopeContainer
	if flags.Scope == permissions.ScopeIncludeChildren {
		nested = calendarScopeContainerItems
	}

	result, err := a.db.ExecContext(ctx, `
		UPDATE calendar_event_shares
		SET detail = $1, nested_scope = $2
		WHERE event_id = $3 AND subject_type = $4 AND subject_id = $5
	`, detail, nested, entityID, subject.Type, subject.ID)
	if err != nil {
		return fmt.Errorf("failed to sync event share encoding: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		_, err = a.db.ExecContext(ctx, `
			INSERT INTO calendar_event_shares (event_id, subject_type, subject_id, detail, nested_scope)
			VALUES ($1, $2, $3, $4, $5)
		`, entityID, subject.Type, subject.ID, detail, nested)
		if err != nil {
			return fmt.Errorf("failed to record event share encoding: %w", err)
		}
	}

	return a.projections.Create(ctx, &Projection{
		EntityType:  permissions.EntityCalendarEvent,
		EntityID:    entityID,
		SubjectType: subject.Type,
		SubjectID:   subject.ID,
	})
}

// RevokeGrant tombstones the grant and tears down the projection.
func (a *CalendarAdapter) RevokeGrant(ctx context.Context, entityID string, subjectType permissions.SubjectType, subjectID string) error {
	if err := a.grants.Revoke(ctx, permissions.EntityCalendarEvent, entityID, subjectType, subjectID); err != nil {
		return err
	}
	return a.projections.Delete(ctx, permissions.EntityCalendarEvent, entityID, subjectType, subjectID)
}

// PreviewScopeImpact counts the agenda items a widened scope exposes.
func (a *CalendarAdapter) PreviewScopeImpact(ctx context.Context, entityID string, scope permissions.ShareScope) (*ScopeImpact, error) {
	impact := &ScopeImpact{Scope: scope}
	if scope == permissions.ScopeThisOnly {
		impact.Description = "Only the event itself is shared"
		return impact, nil
	}

	var count int
	err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM calendar_event_items WHERE event_id = $1`, entityID).Scan(&count)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to count event items: %w", err)
	}
	impact.NestedItemCount = count
	impact.Description = fmt.Sprintf("%d agenda items become visible", count)
	return impact, nil
}

// CanManagePermissions fails closed: only the event owner or a subject
// holding an active manage grant may change access.
func (a *CalendarAdapter) CanManagePermissions(ctx context.Context, entityID, actorID string) (bool, error) {
	if actorID == "" {
		return false, nil
	}
	owner, ok, err := a.eventOwner(ctx, entityID)
	if err != nil || !ok {
		return false, err
	}
	if owner == actorID {
		return true, nil
	}

	flags, found, err := resolveActiveFlags(ctx, a.grants, permissions.EntityCalendarEvent, entityID, actorID)
	if err != nil || !found {
		return false, err
	}
	return permissions.HasAccess(flags, permissions.AccessManage), nil
}

func (a *CalendarAdapter) eventOwner(ctx context.Context, entityID string) (string, bool, error) {
	var owner string
	err := a.db.QueryRowContext(ctx, `SELECT owner_id FROM calendar_events WHERE id = $1`, entityID).Scan(&owner)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to load calendar event: %w", err)
	}
	return owner, true, nil
}

// resolveDisplay consults users first, then contacts; calendar shares are
// the one surface where invites routinely target address-book contacts.
func (a *CalendarAdapter) resolveDisplay(ctx context.Context, subjectType permissions.SubjectType, subjectID string) (SubjectDisplay, error) {
	if subjectType == permissions.SubjectContact {
		return lookupContactDisplay(ctx, a.db, subjectID)
	}
	return lookupUserDisplay(ctx, a.db, subjectType, subjectID)
}
