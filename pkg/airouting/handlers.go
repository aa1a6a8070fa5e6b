package airouting

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/mindgrove-hq/mindgrove/pkg/async"
	"github.com/mindgrove-hq/mindgrove/pkg/audit"
	"github.com/mindgrove-hq/mindgrove/pkg/httputil"
	"github.com/mindgrove-hq/mindgrove/pkg/middleware"
)

// TestInvoker runs a single live call against a provider model. The
// provider adapters implement this; handlers stay decoupled from them.
type TestInvoker interface {
	TestCall(ctx context.Context, providerName, modelKey, prompt string) (string, error)
}

// Handlers serves the AI routing admin API plus the internal resolution
// endpoint. Every mutation invalidates the resolver cache.
type Handlers struct {
	store       *Store
	resolver    *Resolver
	invoker     TestInvoker
	auditLogger audit.Logger
}

// NewHandlers creates routing handlers. invoker may be nil; the test-call
// endpoint then reports the capability as unavailable.
func NewHandlers(store *Store, resolver *Resolver, invoker TestInvoker, auditLogger audit.Logger) *Handlers {
	if auditLogger == nil {
		auditLogger = audit.NopLogger{}
	}
	return &Handlers{store: store, resolver: resolver, invoker: invoker, auditLogger: auditLogger}
}

// RegisterAdminRoutes registers the config surface. The caller mounts these
// behind admin-gated middleware.
func (h *Handlers) RegisterAdminRoutes(router *mux.Router) {
	router.HandleFunc("/ai/features", h.ListFeatures).Methods("GET")
	router.HandleFunc("/ai/features/{feature_key}/candidates", h.ListCandidateModels).Methods("GET")

	router.HandleFunc("/ai/providers", h.ListProviders).Methods("GET")
	router.HandleFunc("/ai/providers", h.CreateProvider).Methods("POST")
	router.HandleFunc("/ai/providers/{id}", h.GetProvider).Methods("GET")
	router.HandleFunc("/ai/providers/{id}", h.DeleteProvider).Methods("DELETE")
	router.HandleFunc("/ai/providers/{id}/enabled", h.SetProviderEnabled).Methods("PUT")

	router.HandleFunc("/ai/providers/{id}/models", h.ListModels).Methods("GET")
	router.HandleFunc("/ai/providers/{id}/models", h.CreateModel).Methods("POST")
	router.HandleFunc("/ai/models/{id}", h.GetModel).Methods("GET")
	router.HandleFunc("/ai/models/{id}", h.UpdateModel).Methods("PUT")
	router.HandleFunc("/ai/models/{id}", h.DeleteModel).Methods("DELETE")
	router.HandleFunc("/ai/models/{id}/enabled", h.SetModelEnabled).Methods("PUT")
	router.HandleFunc("/ai/models/{id}/test", h.TestModel).Methods("POST")

	router.HandleFunc("/ai/routes", h.ListRoutes).Methods("GET")
	router.HandleFunc("/ai/routes", h.CreateRoute).Methods("POST")
	router.HandleFunc("/ai/routes/{id}", h.GetRoute).Methods("GET")
	router.HandleFunc("/ai/routes/{id}", h.UpdateRoute).Methods("PUT")
	router.HandleFunc("/ai/routes/{id}", h.DeleteRoute).Methods("DELETE")
	router.HandleFunc("/ai/routes/{id}/enabled", h.SetRouteEnabled).Methods("PUT")
}

// RegisterResolveRoutes registers the internal resolution endpoint; any
// authenticated subject may call it.
func (h *Handlers) RegisterResolveRoutes(router *mux.Router) {
	router.HandleFunc("/ai/resolve", h.Resolve).Methods("POST")
}

// --- features ---

// ListFeatures returns the feature registry.
func (h *Handlers) ListFeatures(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, h.store.Features().List())
}

// ListCandidateModels returns the enabled models that could serve a feature.
func (h *Handlers) ListCandidateModels(w http.ResponseWriter, r *http.Request) {
	featureKey := FeatureKey(mux.Vars(r)["feature_key"])
	candidates, err := h.store.CandidateModels(r.Context(), featureKey)
	if err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}
	if candidates == nil {
		candidates = []*ProviderModel{}
	}
	httputil.WriteSuccess(w, candidates)
}

// --- providers ---

// ListProviders returns all providers.
func (h *Handlers) ListProviders(w http.ResponseWriter, r *http.Request) {
	providers, err := h.store.ListProviders(r.Context())
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if providers == nil {
		providers = []*Provider{}
	}
	httputil.WriteSuccess(w, providers)
}

// CreateProvider registers a new provider.
func (h *Handlers) CreateProvider(w http.ResponseWriter, r *http.Request) {
	var params ProviderParams
	if !httputil.ParseJSONOrError(w, r, &params) {
		return
	}

	provider, err := h.store.CreateProvider(r.Context(), params)
	if err != nil {
		h.logMutation(r, audit.EventTypeProviderCreate, audit.EventStatusFailure, "provider", params.Name, err)
		httputil.WriteValidationError(w, err.Error())
		return
	}

	h.logMutation(r, audit.EventTypeProviderCreate, audit.EventStatusSuccess, "provider", provider.Name, nil)
	h.resolver.Invalidate()
	httputil.WriteCreated(w, provider)
}

// GetProvider returns one provider.
func (h *Handlers) GetProvider(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	provider, err := h.store.GetProvider(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	httputil.WriteSuccess(w, provider)
}

// DeleteProvider removes a provider with no models. A provider that still
// owns models is rejected with the model count.
func (h *Handlers) DeleteProvider(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	err := h.store.DeleteProvider(r.Context(), id)
	var hasModels *ProviderHasModelsError
	if errors.As(err, &hasModels) {
		h.logMutation(r, audit.EventTypeProviderDelete, audit.EventStatusDenied, "provider", pathIDString(r), err)
		httputil.WriteDetailedError(w, http.StatusConflict, err, map[string]string{
			"model_count": strconv.Itoa(hasModels.ModelCount),
		})
		return
	}
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	h.logMutation(r, audit.EventTypeProviderDelete, audit.EventStatusSuccess, "provider", pathIDString(r), nil)
	h.resolver.Invalidate()
	httputil.WriteNoContent(w)
}

type setEnabledRequest struct {
	Enabled bool `json:"enabled"`
	Confirm bool `json:"confirm"`
}

// SetProviderEnabled toggles a provider. Disabling requires confirm=true
// once the impact preview has been shown; the response to an unconfirmed
// disable carries the counts of models and routes it would cascade to.
func (h *Handlers) SetProviderEnabled(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req setEnabledRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if !req.Enabled && !req.Confirm {
		impact, err := h.store.ProviderDisableImpact(r.Context(), id)
		if err != nil {
			httputil.WriteInternalError(w, err)
			return
		}
		httputil.WriteDetailedError(w, http.StatusConflict,
			fmt.Errorf("disabling this provider affects %d model(s) and %d route(s); retry with confirm", impact.Models, impact.Routes),
			map[string]string{
				"models": strconv.Itoa(impact.Models),
				"routes": strconv.Itoa(impact.Routes),
			})
		return
	}

	if err := h.store.SetProviderEnabled(r.Context(), id, req.Enabled); err != nil {
		h.writeStoreError(w, err)
		return
	}

	h.logMutation(r, audit.EventTypeProviderUpdate, audit.EventStatusSuccess, "provider", pathIDString(r), nil)
	h.resolver.Invalidate()
	httputil.WriteNoContent(w)
}

// --- models ---

// ListModels returns a provider's models.
func (h *Handlers) ListModels(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	models, err := h.store.ListModels(r.Context(), id)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if models == nil {
		models = []*ProviderModel{}
	}
	httputil.WriteSuccess(w, models)
}

// CreateModel adds a model to a provider.
func (h *Handlers) CreateModel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var params ModelParams
	if !httputil.ParseJSONOrError(w, r, &params) {
		return
	}

	model, err := h.store.CreateModel(r.Context(), id, params)
	if err == ErrNotFound {
		httputil.WriteNotFoundError(w, "provider not found")
		return
	}
	if err != nil {
		h.logMutation(r, audit.EventTypeModelCreate, audit.EventStatusFailure, "model", params.ModelKey, err)
		httputil.WriteValidationError(w, err.Error())
		return
	}

	h.logMutation(r, audit.EventTypeModelCreate, audit.EventStatusSuccess, "model", model.ModelKey, nil)
	h.resolver.Invalidate()
	httputil.WriteCreated(w, model)
}

// GetModel returns one model.
func (h *Handlers) GetModel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	model, err := h.store.GetModel(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	httputil.WriteSuccess(w, model)
}

// UpdateModel rewrites a model.
func (h *Handlers) UpdateModel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var params ModelParams
	if !httputil.ParseJSONOrError(w, r, &params) {
		return
	}

	model, err := h.store.UpdateModel(r.Context(), id, params)
	if err == ErrNotFound {
		httputil.WriteNotFoundError(w, "model not found")
		return
	}
	if err != nil {
		h.logMutation(r, audit.EventTypeModelUpdate, audit.EventStatusFailure, "model", params.ModelKey, err)
		httputil.WriteValidationError(w, err.Error())
		return
	}

	h.logMutation(r, audit.EventTypeModelUpdate, audit.EventStatusSuccess, "model", model.ModelKey, nil)
	h.resolver.Invalidate()
	httputil.WriteSuccess(w, model)
}

// DeleteModel removes a model and its routes.
func (h *Handlers) DeleteModel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteModel(r.Context(), id); err != nil {
		h.writeStoreError(w, err)
		return
	}
	h.logMutation(r, audit.EventTypeModelDelete, audit.EventStatusSuccess, "model", pathIDString(r), nil)
	h.resolver.Invalidate()
	httputil.WriteNoContent(w)
}

// SetModelEnabled toggles a model, with the same confirm flow as providers.
func (h *Handlers) SetModelEnabled(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req setEnabledRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if !req.Enabled && !req.Confirm {
		impact, err := h.store.ModelDisableImpact(r.Context(), id)
		if err != nil {
			httputil.WriteInternalError(w, err)
			return
		}
		httputil.WriteDetailedError(w, http.StatusConflict,
			fmt.Errorf("disabling this model affects %d route(s); retry with confirm", impact.Routes),
			map[string]string{"routes": strconv.Itoa(impact.Routes)})
		return
	}

	if err := h.store.SetModelEnabled(r.Context(), id, req.Enabled); err != nil {
		h.writeStoreError(w, err)
		return
	}

	h.logMutation(r, audit.EventTypeModelUpdate, audit.EventStatusSuccess, "model", pathIDString(r), nil)
	h.resolver.Invalidate()
	httputil.WriteNoContent(w)
}

type testModelRequest struct {
	Prompt string `json:"prompt"`
}

type testModelResponse struct {
	Output string `json:"output"`
}

// TestModel runs one live prompt through the model's provider adapter so
// an admin can verify credentials and the model key before routing traffic.
func (h *Handlers) TestModel(w http.ResponseWriter, r *http.Request) {
	if h.invoker == nil {
		httputil.WriteServiceUnavailable(w, "test invocation is not configured")
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req testModelRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Prompt == "" {
		req.Prompt = "Reply with a single short sentence confirming you received this."
	}

	model, err := h.store.GetModel(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	provider, err := h.store.GetProvider(r.Context(), model.ProviderID)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	output, err := h.invoker.TestCall(r.Context(), provider.Name, model.ModelKey, req.Prompt)
	if err != nil {
		h.logMutation(r, audit.EventTypeModelTestCall, audit.EventStatusFailure, "model", model.ModelKey, err)
		httputil.WriteError(w, http.StatusBadGateway, err)
		return
	}

	h.logMutation(r, audit.EventTypeModelTestCall, audit.EventStatusSuccess, "model", model.ModelKey, nil)
	httputil.WriteSuccess(w, testModelResponse{Output: output})
}

// --- routes ---

// ListRoutes returns routes, optionally filtered by ?feature=.
func (h *Handlers) ListRoutes(w http.ResponseWriter, r *http.Request) {
	var routes []*FeatureRoute
	var err error
	if feature := r.URL.Query().Get("feature"); feature != "" {
		routes, err = h.store.ListRoutes(r.Context(), FeatureKey(feature))
	} else {
		routes, err = h.store.ListAllRoutes(r.Context())
	}
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if routes == nil {
		routes = []*FeatureRoute{}
	}
	httputil.WriteSuccess(w, routes)
}

// CreateRoute binds a feature to a model.
func (h *Handlers) CreateRoute(w http.ResponseWriter, r *http.Request) {
	var params RouteParams
	if !httputil.ParseJSONOrError(w, r, &params) {
		return
	}

	route, err := h.store.CreateRoute(r.Context(), params)
	if err == ErrNotFound {
		httputil.WriteNotFoundError(w, "model not found")
		return
	}
	if err != nil {
		h.logMutation(r, audit.EventTypeRouteCreate, audit.EventStatusFailure, "route", string(params.FeatureKey), err)
		httputil.WriteValidationError(w, err.Error())
		return
	}

	h.logMutation(r, audit.EventTypeRouteCreate, audit.EventStatusSuccess, "route", strconv.FormatInt(route.ID, 10), nil)
	h.resolver.Invalidate()
	httputil.WriteCreated(w, route)
}

// GetRoute returns one route.
func (h *Handlers) GetRoute(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	route, err := h.store.GetRoute(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	httputil.WriteSuccess(w, route)
}

// UpdateRoute rewrites a route.
func (h *Handlers) UpdateRoute(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var params RouteParams
	if !httputil.ParseJSONOrError(w, r, &params) {
		return
	}

	route, err := h.store.UpdateRoute(r.Context(), id, params)
	if err == ErrNotFound {
		httputil.WriteNotFoundError(w, "route not found")
		return
	}
	if err != nil {
		h.logMutation(r, audit.EventTypeRouteUpdate, audit.EventStatusFailure, "route", pathIDString(r), err)
		httputil.WriteValidationError(w, err.Error())
		return
	}

	h.logMutation(r, audit.EventTypeRouteUpdate, audit.EventStatusSuccess, "route", pathIDString(r), nil)
	h.resolver.Invalidate()
	httputil.WriteSuccess(w, route)
}

// DeleteRoute removes a route.
func (h *Handlers) DeleteRoute(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteRoute(r.Context(), id); err != nil {
		h.writeStoreError(w, err)
		return
	}
	h.logMutation(r, audit.EventTypeRouteDelete, audit.EventStatusSuccess, "route", pathIDString(r), nil)
	h.resolver.Invalidate()
	httputil.WriteNoContent(w)
}

// SetRouteEnabled toggles a route. No confirm flow: a single route has no
// blast radius beyond itself.
func (h *Handlers) SetRouteEnabled(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req setEnabledRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if err := h.store.SetRouteEnabled(r.Context(), id, req.Enabled); err != nil {
		h.writeStoreError(w, err)
		return
	}
	h.logMutation(r, audit.EventTypeRouteUpdate, audit.EventStatusSuccess, "route", pathIDString(r), nil)
	h.resolver.Invalidate()
	httputil.WriteNoContent(w)
}

// --- resolution ---

// Resolve returns the model pick for a feature invocation. A request that
// cannot be served gets 404 with ErrNoRoute's message; the client must not
// substitute a default model.
func (h *Handlers) Resolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	resolved, err := h.resolver.Resolve(r.Context(), req)
	if errors.Is(err, ErrNoRoute) {
		httputil.WriteNotFoundError(w, err.Error())
		return
	}
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, resolved)
}

// --- helpers ---

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	return httputil.ParsePathInt64OrError(w, r, "id")
}

func pathIDString(r *http.Request) string {
	return mux.Vars(r)["id"]
}

func (h *Handlers) writeStoreError(w http.ResponseWriter, err error) {
	if err == ErrNotFound {
		httputil.WriteNotFoundError(w, "not found")
		return
	}
	httputil.WriteInternalError(w, err)
}

func (h *Handlers) logMutation(r *http.Request, eventType audit.EventType, status audit.EventStatus, resourceType, resourceID string, err error) {
	event := &audit.Event{
		EventType:    eventType,
		Status:       status,
		ActorID:      middleware.SubjectID(r),
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
	if err != nil {
		event.ErrorMessage = err.Error()
	}
	// Detached from the request context so the write survives the response.
	async.SafeGoNoError(context.Background(), 5*time.Second, "audit write", func(ctx context.Context) {
		h.auditLogger.Log(ctx, event)
	})
}
