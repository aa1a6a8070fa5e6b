package sharing

import (
	"context"
	"fmt"
	"time"

	"github.com/mindgrove-hq/mindgrove/pkg/permissions"
)

// GrantStatus is the projection lifecycle state exposed to the drawer.
// Entities that grant immediately report accepted without a pending phase.
type GrantStatus string

const (
	StatusPending  GrantStatus = "pending"
	StatusAccepted GrantStatus = "accepted"
)

// SubjectRef identifies a grant target.
type SubjectRef struct {
	Type permissions.SubjectType `json:"subject_type"`
	ID   string                  `json:"subject_id"`
}

// SubjectDisplay is the human-readable identity an adapter resolves for a
// subject. There is no generic identity service; each adapter owns its
// own lookup so the canonical layer stays ignorant of identity tables.
type SubjectDisplay struct {
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// GrantView is one row in the sharing drawer: the grant resolved to
// canonical flags plus display info and lifecycle state.
type GrantView struct {
	Subject   SubjectRef        `json:"subject"`
	Display   SubjectDisplay    `json:"display"`
	Flags     permissions.Flags `json:"flags"`
	Role      permissions.Role  `json:"role"`
	Status    GrantStatus       `json:"status"`
	GrantedBy string            `json:"granted_by"`
	GrantedAt time.Time         `json:"granted_at"`
}

// ScopeImpact describes what widening a grant's scope would expose.
type ScopeImpact struct {
	Scope           permissions.ShareScope `json:"scope"`
	NestedItemCount int                    `json:"nested_item_count"`
	Description     string                 `json:"description"`
}

// Adapter translates between the canonical permission model and one
// entity type's native storage.
//
// Failure semantics: an adapter that cannot resolve its entity (deleted,
// archived) returns an empty grant list rather than an error, so the
// drawer degrades to "no one has access". CanManagePermissions fails
// closed on any ambiguity.
type Adapter interface {
	EntityType() permissions.EntityType
	GetEntityTitle(ctx context.Context, entityID string) (string, error)
	ListGrants(ctx context.Context, entityID string) ([]GrantView, error)
	UpsertGrant(ctx context.Context, entityID, actorID string, subject SubjectRef, flags permissions.Flags) error
	RevokeGrant(ctx context.Context, entityID string, subjectType permissions.SubjectType, subjectID string) error
	PreviewScopeImpact(ctx context.Context, entityID string, scope permissions.ShareScope) (*ScopeImpact, error)
	CanManagePermissions(ctx context.Context, entityID, actorID string) (bool, error)
}

// Registry maps entity types to their adapters.
type Registry struct {
	adapters map[permissions.EntityType]Adapter
}

// NewRegistry creates an adapter registry.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[permissions.EntityType]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.EntityType()] = a
	}
	return r
}

// Register adds or replaces the adapter for an entity type.
func (r *Registry) Register(a Adapter) {
	r.adapters[a.EntityType()] = a
}

// Get returns the adapter for an entity type.
func (r *Registry) Get(entityType permissions.EntityType) (Adapter, error) {
	a, ok := r.adapters[entityType]
	if !ok {
		return nil, fmt.Errorf("no sharing adapter registered for entity type %q", entityType)
	}
	return a, nil
}
