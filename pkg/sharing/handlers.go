package sharing

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mindgrove-hq/mindgrove/pkg/async"
	"github.com/mindgrove-hq/mindgrove/pkg/audit"
	"github.com/mindgrove-hq/mindgrove/pkg/httputil"
	"github.com/mindgrove-hq/mindgrove/pkg/middleware"
	"github.com/mindgrove-hq/mindgrove/pkg/observability"
	"github.com/mindgrove-hq/mindgrove/pkg/permissions"
)

// Handlers serves the generic sharing drawer API over the adapter
// registry. The drawer never sees entity storage, only resolved views.
type Handlers struct {
	registry    *Registry
	auditLogger audit.Logger
}

// NewHandlers creates sharing handlers.
func NewHandlers(registry *Registry, auditLogger audit.Logger) *Handlers {
	if auditLogger == nil {
		auditLogger = audit.NopLogger{}
	}
	return &Handlers{registry: registry, auditLogger: auditLogger}
}

// RegisterRoutes registers all sharing routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/share/{entity_type}/{entity_id}", h.GetDrawer).Methods("GET")
	router.HandleFunc("/share/{entity_type}/{entity_id}/grants", h.UpsertGrant).Methods("POST")
	router.HandleFunc("/share/{entity_type}/{entity_id}/grants/{subject_type}/{subject_id}", h.RevokeGrant).Methods("DELETE")
	router.HandleFunc("/share/{entity_type}/{entity_id}/preview", h.PreviewScopeImpact).Methods("GET")
}

// DrawerResponse is everything the sharing drawer renders.
type DrawerResponse struct {
	Title     string      `json:"title"`
	Grants    []GrantView `json:"grants"`
	CanManage bool        `json:"can_manage"`
}

// GetDrawer returns the drawer view for an entity.
func (h *Handlers) GetDrawer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	adapter, entityID, ok := h.adapterFromRequest(w, r)
	if !ok {
		return
	}

	title, err := adapter.GetEntityTitle(ctx, entityID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	grants, err := adapter.ListGrants(ctx, entityID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	canManage, err := adapter.CanManagePermissions(ctx, entityID, middleware.SubjectID(r))
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, DrawerResponse{
		Title:     title,
		Grants:    grants,
		CanManage: canManage,
	})
}

// UpsertGrant shares an entity with a subject. The caller either picks a
// role (expanded through the canonical template) or sends explicit flags.
func (h *Handlers) UpsertGrant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	adapter, entityID, ok := h.adapterFromRequest(w, r)
	if !ok {
		return
	}

	actorID := middleware.SubjectID(r)
	allowed, err := adapter.CanManagePermissions(ctx, entityID, actorID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if !allowed {
		httputil.WriteForbidden(w, "only the owner or a subject with manage access may change sharing")
		return
	}

	var req struct {
		SubjectType permissions.SubjectType  `json:"subject_type"`
		SubjectID   string                   `json:"subject_id"`
		Role        *permissions.Role        `json:"role,omitempty"`
		Flags       *permissions.Flags       `json:"flags,omitempty"`
		Detail      *permissions.DetailLevel `json:"detail_level,omitempty"`
		Scope       *permissions.ShareScope  `json:"scope,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteValidationError(w, "invalid request body")
		return
	}
	if req.SubjectType == "" || req.SubjectID == "" {
		httputil.WriteValidationError(w, "subject_type and subject_id are required")
		return
	}

	var flags permissions.Flags
	switch {
	case req.Flags != nil:
		flags = *req.Flags
	case req.Role != nil:
		flags = permissions.RoleToFlags(*req.Role, &permissions.FlagOverrides{
			Detail: req.Detail,
			Scope:  req.Scope,
		})
	default:
		httputil.WriteValidationError(w, "either role or flags is required")
		return
	}

	subject := SubjectRef{Type: req.SubjectType, ID: req.SubjectID}
	err = adapter.UpsertGrant(ctx, entityID, actorID, subject, flags)
	h.logAudit(ctx, audit.EventTypeShareGrant, adapter.EntityType(), entityID, actorID, err)
	if err != nil {
		httputil.WriteErrorMessage(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	observability.FromContext(ctx).WithFields(map[string]interface{}{
		"entity_type": string(adapter.EntityType()),
		"entity_id":   entityID,
		"subject":     req.SubjectID,
	}).Info("share grant upserted")

	httputil.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"subject": subject,
		"flags":   flags,
		"role":    permissions.FlagsToRoleApprox(flags),
	})
}

// RevokeGrant removes a subject's access. Idempotent.
func (h *Handlers) RevokeGrant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	adapter, entityID, ok := h.adapterFromRequest(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)

	actorID := middleware.SubjectID(r)
	allowed, err := adapter.CanManagePermissions(ctx, entityID, actorID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if !allowed {
		httputil.WriteForbidden(w, "only the owner or a subject with manage access may change sharing")
		return
	}

	err = adapter.RevokeGrant(ctx, entityID, permissions.SubjectType(vars["subject_type"]), vars["subject_id"])
	h.logAudit(ctx, audit.EventTypeShareRevoke, adapter.EntityType(), entityID, actorID, err)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

// PreviewScopeImpact reports the blast radius of widening a share scope.
func (h *Handlers) PreviewScopeImpact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	adapter, entityID, ok := h.adapterFromRequest(w, r)
	if !ok {
		return
	}

	scope := permissions.ShareScope(r.URL.Query().Get("scope"))
	if scope != permissions.ScopeThisOnly && scope != permissions.ScopeIncludeChildren {
		httputil.WriteValidationError(w, "scope must be this_only or include_children")
		return
	}

	impact, err := adapter.PreviewScopeImpact(ctx, entityID, scope)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, impact)
}

func (h *Handlers) adapterFromRequest(w http.ResponseWriter, r *http.Request) (Adapter, string, bool) {
	vars := mux.Vars(r)
	adapter, err := h.registry.Get(permissions.EntityType(vars["entity_type"]))
	if err != nil {
		httputil.WriteNotFoundError(w, err.Error())
		return nil, "", false
	}
	return adapter, vars["entity_id"], true
}

func (h *Handlers) logAudit(ctx context.Context, eventType audit.EventType, entityType permissions.EntityType, entityID, actorID string, err error) {
	event := &audit.Event{
		Timestamp:    time.Now().UTC(),
		EventType:    eventType,
		Status:       audit.EventStatusSuccess,
		ActorID:      actorID,
		ResourceType: string(entityType),
		ResourceID:   entityID,
	}
	if err != nil {
		event.Status = audit.EventStatusFailure
		event.ErrorMessage = err.Error()
	}
	// Detached from the request context so the write survives the response.
	async.SafeGoNoError(context.Background(), 5*time.Second, "audit write", func(ctx context.Context) {
		h.auditLogger.Log(ctx, event)
	})
}
