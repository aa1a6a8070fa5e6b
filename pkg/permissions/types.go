package permissions

import (
	"time"
)

// Role is the coarse permission vocabulary shown in the sharing UI.
// Roles are a display convenience only; grants persist flags, not roles.
type Role string

const (
	RoleOwner     Role = "owner"
	RoleEditor    Role = "editor"
	RoleCommenter Role = "commenter"
	RoleViewer    Role = "viewer"
)

// DetailLevel controls how much of an entity a subject may see.
type DetailLevel string

const (
	DetailOverview DetailLevel = "overview"
	DetailDetailed DetailLevel = "detailed"
)

// ShareScope controls whether a grant covers nested items.
type ShareScope string

const (
	ScopeThisOnly        ShareScope = "this_only"
	ScopeIncludeChildren ShareScope = "include_children"
)

// Access names a single capability checked by HasAccess.
type Access string

const (
	AccessView    Access = "view"
	AccessComment Access = "comment"
	AccessEdit    Access = "edit"
	AccessManage  Access = "manage"
)

// SubjectType identifies what kind of principal a grant targets.
type SubjectType string

const (
	SubjectUser    SubjectType = "user"
	SubjectContact SubjectType = "contact"
	SubjectGroup   SubjectType = "group"
	SubjectSpace   SubjectType = "space"
	SubjectLink    SubjectType = "link"
)

// EntityType identifies which adapter owns a grant row.
type EntityType string

const (
	EntityCalendarEvent     EntityType = "calendar_event"
	EntityTrip              EntityType = "trip"
	EntityGuardrailsProject EntityType = "guardrails_project"
	EntityTracker           EntityType = "tracker"
)

// Flags is the canonical permission value for one subject on one entity.
// By convention manage implies edit implies comment implies view; the
// struct does not enforce that, RoleToFlags templates do.
//
// CanView=false means the entity must be hidden entirely from the subject.
// Consumers never partially render a forbidden entity.
type Flags struct {
	CanView    bool        `json:"can_view"`
	CanComment bool        `json:"can_comment"`
	CanEdit    bool        `json:"can_edit"`
	CanManage  bool        `json:"can_manage"`
	Detail     DetailLevel `json:"detail_level"`
	Scope      ShareScope  `json:"scope"`

	// Set when the flags were merged down from a containing context.
	IsInherited     bool    `json:"is_inherited,omitempty"`
	SourceContextID *string `json:"source_context_id,omitempty"`
}

// Grant is one persisted permission row. Revocation is soft: RevokedAt is
// set and the row is preserved as a tombstone so a later re-grant restores
// it in place.
type Grant struct {
	ID          string      `json:"id"`
	EntityType  EntityType  `json:"entity_type"`
	EntityID    string      `json:"entity_id"`
	SubjectType SubjectType `json:"subject_type"`
	SubjectID   string      `json:"subject_id"`
	Flags       Flags       `json:"flags"`
	GrantedBy   string      `json:"granted_by"`
	GrantedAt   time.Time   `json:"granted_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	RevokedAt   *time.Time  `json:"revoked_at,omitempty"`
}

// Revoked reports whether the grant is a tombstone.
func (g *Grant) Revoked() bool {
	return g.RevokedAt != nil
}

// FlagOverrides optionally adjusts the detail/scope of a role template.
type FlagOverrides struct {
	Detail *DetailLevel
	Scope  *ShareScope
}
