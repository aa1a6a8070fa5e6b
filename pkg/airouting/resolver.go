package airouting

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/mindgrove-hq/mindgrove/pkg/observability"
)

// ErrNoRoute is returned when no enabled, capability-valid route serves a
// resolution request. Callers must treat it as a hard failure: there is no
// implicit default model to fall back to.
var ErrNoRoute = fmt.Errorf("no route available for feature")

// ResolveRequest identifies the context a feature invocation runs in.
type ResolveRequest struct {
	FeatureKey      FeatureKey   `json:"feature_key"`
	SurfaceType     *SurfaceType `json:"surface_type,omitempty"`
	MasterProjectID *string      `json:"master_project_id,omitempty"`
	Intent          Intent       `json:"intent"`
}

const (
	specificityGlobal  = 1
	specificitySurface = 2
	specificityProject = 3
)

// Resolver picks the model a feature invocation should use. Resolution
// results are cached; any write through the admin surface must call
// Invalidate so stale picks never outlive a config change.
type Resolver struct {
	store      *Store
	logger     *observability.Logger
	cache      *lru.Cache[string, *ResolvedRoute]
	generation atomic.Uint64
}

// NewResolver creates a resolver with an LRU result cache of the given size.
func NewResolver(store *Store, logger *observability.Logger, cacheSize int) (*Resolver, error) {
	cache, err := lru.New[string, *ResolvedRoute](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create resolution cache: %w", err)
	}
	return &Resolver{store: store, logger: logger, cache: cache}, nil
}

// Invalidate drops every cached resolution. Cheap: the generation counter
// makes old keys unreachable instead of walking the cache.
func (r *Resolver) Invalidate() {
	r.generation.Add(1)
}

func (r *Resolver) cacheKey(req ResolveRequest) string {
	surface := ""
	if req.SurfaceType != nil {
		surface = string(*req.SurfaceType)
	}
	project := ""
	if req.MasterProjectID != nil {
		project = *req.MasterProjectID
	}
	return fmt.Sprintf("%d:%s:%s:%s:%s", r.generation.Load(), req.FeatureKey, surface, project, req.Intent)
}

// Resolve returns the route a feature invocation should use, or ErrNoRoute.
//
// Candidate ordering: scope specificity (project > surface > global), then
// priority descending, then most recently created. Fallback routes are only
// considered after every primary candidate is exhausted.
func (r *Resolver) Resolve(ctx context.Context, req ResolveRequest) (*ResolvedRoute, error) {
	spec, ok := r.store.Features().Get(req.FeatureKey)
	if !ok {
		return nil, fmt.Errorf("unknown feature key %q", req.FeatureKey)
	}

	key := r.cacheKey(req)
	if cached, ok := r.cache.Get(key); ok {
		return cached, nil
	}

	var (
		providers []*Provider
		routes    []*FeatureRoute
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		providers, err = r.store.ListProviders(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		routes, err = r.store.ListRoutes(gctx, req.FeatureKey)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load routing config: %w", err)
	}

	providersByID := make(map[int64]*Provider, len(providers))
	for _, p := range providers {
		providersByID[p.ID] = p
	}

	type candidate struct {
		route       *FeatureRoute
		specificity int
	}
	var candidates []candidate
	for _, route := range routes {
		if !route.IsEnabled {
			continue
		}
		s, matches := routeSpecificity(route, req)
		if !matches {
			continue
		}
		candidates = append(candidates, candidate{route: route, specificity: s})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.route.IsFallback != b.route.IsFallback {
			return !a.route.IsFallback
		}
		if a.specificity != b.specificity {
			return a.specificity > b.specificity
		}
		if a.route.Priority != b.route.Priority {
			return a.route.Priority > b.route.Priority
		}
		if !a.route.CreatedAt.Equal(b.route.CreatedAt) {
			return a.route.CreatedAt.After(b.route.CreatedAt)
		}
		return a.route.ID > b.route.ID
	})

	for _, c := range candidates {
		if !c.route.Constraints.PermitsIntent(req.Intent) {
			continue
		}

		model, err := r.store.GetModel(ctx, c.route.ProviderModelID)
		if err == ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !model.IsEnabled {
			continue
		}

		provider, ok := providersByID[model.ProviderID]
		if !ok || !provider.IsEnabled {
			continue
		}

		// Capabilities were checked when the route was written, but the
		// model may have been edited since. Re-check here so a stale
		// route can never select a model that lost a required capability.
		if !model.Capabilities.HasAll(spec.RequiredCapabilities) {
			r.logger.WithFields(map[string]interface{}{
				"feature_key": string(req.FeatureKey),
				"route_id":    c.route.ID,
				"model_key":   model.ModelKey,
			}).Warn("skipping route: model no longer satisfies feature capabilities")
			continue
		}

		resolved := buildResolved(c.route, model, provider)
		r.cache.Add(key, resolved)
		return resolved, nil
	}

	return nil, fmt.Errorf("%w %q", ErrNoRoute, req.FeatureKey)
}

// routeSpecificity classifies how a route's scope relates to a request.
// The second return is false when the route does not apply at all.
func routeSpecificity(route *FeatureRoute, req ResolveRequest) (int, bool) {
	if route.MasterProjectID != nil && *route.MasterProjectID != "" {
		if req.MasterProjectID == nil || *req.MasterProjectID != *route.MasterProjectID {
			return 0, false
		}
		if route.SurfaceType != nil && (req.SurfaceType == nil || *req.SurfaceType != *route.SurfaceType) {
			return 0, false
		}
		return specificityProject, true
	}
	if route.SurfaceType != nil {
		if req.SurfaceType == nil || *req.SurfaceType != *route.SurfaceType {
			return 0, false
		}
		return specificitySurface, true
	}
	return specificityGlobal, true
}

func buildResolved(route *FeatureRoute, model *ProviderModel, provider *Provider) *ResolvedRoute {
	resolved := &ResolvedRoute{
		Route:                  *route,
		Model:                  *model,
		Provider:               *provider,
		EffectiveContextTokens: model.ContextWindowTokens,
		EffectiveOutputTokens:  model.MaxOutputTokens,
	}
	if c := route.Constraints.MaxContextTokens; c != nil && *c > 0 && *c < resolved.EffectiveContextTokens {
		resolved.EffectiveContextTokens = *c
	}
	if c := route.Constraints.MaxOutputTokens; c != nil && *c > 0 && *c < resolved.EffectiveOutputTokens {
		resolved.EffectiveOutputTokens = *c
	}
	return resolved
}
