package airouting

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/mindgrove-hq/mindgrove/pkg/observability"
)

func setupResolver(t *testing.T) (*Resolver, *Store, func()) {
	store, db := setupRoutingStore(t)
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	resolver, err := NewResolver(store, logger, 128)
	if err != nil {
		t.Fatalf("NewResolver failed: %v", err)
	}
	return resolver, store, func() { db.Close() }
}

func surfacePtr(s SurfaceType) *SurfaceType { return &s }
func strPtr(s string) *string               { return &s }

func TestResolver_GlobalRoute(t *testing.T) {
	resolver, store, cleanup := setupResolver(t)
	defer cleanup()

	ctx := context.Background()
	p := mustCreateProvider(t, store, "anthropic")
	m := mustCreateModel(t, store, p.ID, "claude-sonnet-4-5", fullCapabilities())
	route, err := store.CreateRoute(ctx, RouteParams{
		FeatureKey:      FeatureOnboardingChat,
		ProviderModelID: m.ID,
		Priority:        10,
	})
	if err != nil {
		t.Fatalf("CreateRoute failed: %v", err)
	}

	resolved, err := resolver.Resolve(ctx, ResolveRequest{
		FeatureKey: FeatureOnboardingChat,
		Intent:     IntentChat,
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.Route.ID != route.ID {
		t.Errorf("Expected route %d, got %d", route.ID, resolved.Route.ID)
	}
	if resolved.Model.ModelKey != "claude-sonnet-4-5" {
		t.Errorf("Expected model joined, got %q", resolved.Model.ModelKey)
	}
	if resolved.Provider.Name != "anthropic" {
		t.Errorf("Expected provider joined, got %q", resolved.Provider.Name)
	}
	if resolved.EffectiveContextTokens != 128000 || resolved.EffectiveOutputTokens != 8192 {
		t.Errorf("Expected model token budgets, got %d/%d", resolved.EffectiveContextTokens, resolved.EffectiveOutputTokens)
	}
}

func TestResolver_SpecificityBeatsPriority(t *testing.T) {
	resolver, store, cleanup := setupResolver(t)
	defer cleanup()

	ctx := context.Background()
	p := mustCreateProvider(t, store, "anthropic")
	m := mustCreateModel(t, store, p.ID, "claude-sonnet-4-5", fullCapabilities())

	// A global route with sky-high priority...
	if _, err := store.CreateRoute(ctx, RouteParams{
		FeatureKey:      FeatureOnboardingChat,
		ProviderModelID: m.ID,
		Priority:        1000,
	}); err != nil {
		t.Fatalf("CreateRoute failed: %v", err)
	}
	// ...loses to a low-priority surface route when the surface matches.
	surfaceRoute, err := store.CreateRoute(ctx, RouteParams{
		FeatureKey:      FeatureOnboardingChat,
		ProviderModelID: m.ID,
		SurfaceType:     surfacePtr(SurfacePersonal),
		Priority:        1,
	})
	if err != nil {
		t.Fatalf("CreateRoute failed: %v", err)
	}
	// ...which in turn loses to a project route.
	projectRoute, err := store.CreateRoute(ctx, RouteParams{
		FeatureKey:      FeatureOnboardingChat,
		ProviderModelID: m.ID,
		SurfaceType:     surfacePtr(SurfacePersonal),
		MasterProjectID: strPtr("proj-1"),
		Priority:        1,
	})
	if err != nil {
		t.Fatalf("CreateRoute failed: %v", err)
	}

	resolved, err := resolver.Resolve(ctx, ResolveRequest{
		FeatureKey:  FeatureOnboardingChat,
		SurfaceType: surfacePtr(SurfacePersonal),
		Intent:      IntentChat,
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.Route.ID != surfaceRoute.ID {
		t.Errorf("Surface route must beat higher-priority global, got route %d", resolved.Route.ID)
	}

	resolved, err = resolver.Resolve(ctx, ResolveRequest{
		FeatureKey:      FeatureOnboardingChat,
		SurfaceType:     surfacePtr(SurfacePersonal),
		MasterProjectID: strPtr("proj-1"),
		Intent:          IntentChat,
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.Route.ID != projectRoute.ID {
		t.Errorf("Project route must win at its scope, got route %d", resolved.Route.ID)
	}
}

func TestResolver_ProjectRouteWithoutSurface(t *testing.T) {
	resolver, store, cleanup := setupResolver(t)
	defer cleanup()

	ctx := context.Background()
	p := mustCreateProvider(t, store, "anthropic")
	m := mustCreateModel(t, store, p.ID, "claude-sonnet-4-5", fullCapabilities())

	// A route may scope to a project alone; it then covers every surface
	// of that project.
	projectRoute, err := store.CreateRoute(ctx, RouteParams{
		FeatureKey:      FeatureOnboardingChat,
		ProviderModelID: m.ID,
		MasterProjectID: strPtr("proj-1"),
		Priority:        1,
	})
	if err != nil {
		t.Fatalf("CreateRoute failed for a project-only scope: %v", err)
	}
	if _, err := store.CreateRoute(ctx, RouteParams{
		FeatureKey:      FeatureOnboardingChat,
		ProviderModelID: m.ID,
		SurfaceType:     surfacePtr(SurfacePersonal),
		Priority:        1000,
	}); err != nil {
		t.Fatalf("CreateRoute failed: %v", err)
	}

	for _, surface := range []*SurfaceType{surfacePtr(SurfacePersonal), surfacePtr(SurfaceProject), nil} {
		resolved, err := resolver.Resolve(ctx, ResolveRequest{
			FeatureKey:      FeatureOnboardingChat,
			SurfaceType:     surface,
			MasterProjectID: strPtr("proj-1"),
			Intent:          IntentChat,
		})
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if resolved.Route.ID != projectRoute.ID {
			t.Errorf("Project-only route must beat the surface route inside its project, got route %d", resolved.Route.ID)
		}
	}
}

func TestResolver_ScopedRoutesDoNotLeak(t *testing.T) {
	resolver, store, cleanup := setupResolver(t)
	defer cleanup()

	ctx := context.Background()
	p := mustCreateProvider(t, store, "anthropic")
	m := mustCreateModel(t, store, p.ID, "claude-sonnet-4-5", fullCapabilities())

	// Only a project-scoped route exists.
	if _, err := store.CreateRoute(ctx, RouteParams{
		FeatureKey:      FeatureOnboardingChat,
		ProviderModelID: m.ID,
		SurfaceType:     surfacePtr(SurfaceProject),
		MasterProjectID: strPtr("proj-1"),
	}); err != nil {
		t.Fatalf("CreateRoute failed: %v", err)
	}

	// A request outside that project gets nothing.
	_, err := resolver.Resolve(ctx, ResolveRequest{
		FeatureKey: FeatureOnboardingChat,
		Intent:     IntentChat,
	})
	if !errors.Is(err, ErrNoRoute) {
		t.Errorf("Expected ErrNoRoute outside the project, got %v", err)
	}

	_, err = resolver.Resolve(ctx, ResolveRequest{
		FeatureKey:      FeatureOnboardingChat,
		SurfaceType:     surfacePtr(SurfaceProject),
		MasterProjectID: strPtr("proj-other"),
		Intent:          IntentChat,
	})
	if !errors.Is(err, ErrNoRoute) {
		t.Errorf("Expected ErrNoRoute for a different project, got %v", err)
	}
}

func TestResolver_FallbackOnlyAfterPrimaries(t *testing.T) {
	resolver, store, cleanup := setupResolver(t)
	defer cleanup()

	ctx := context.Background()
	p := mustCreateProvider(t, store, "anthropic")
	primary := mustCreateModel(t, store, p.ID, "claude-sonnet-4-5", fullCapabilities())
	backup := mustCreateModel(t, store, p.ID, "claude-haiku-4", fullCapabilities())

	primaryRoute, err := store.CreateRoute(ctx, RouteParams{
		FeatureKey:      FeatureOnboardingChat,
		ProviderModelID: primary.ID,
		Priority:        1,
	})
	if err != nil {
		t.Fatalf("CreateRoute failed: %v", err)
	}
	fallbackRoute, err := store.CreateRoute(ctx, RouteParams{
		FeatureKey:      FeatureOnboardingChat,
		ProviderModelID: backup.ID,
		Priority:        100, // priority never promotes a fallback above primaries
		IsFallback:      true,
	})
	if err != nil {
		t.Fatalf("CreateRoute failed: %v", err)
	}

	resolved, err := resolver.Resolve(ctx, ResolveRequest{FeatureKey: FeatureOnboardingChat, Intent: IntentChat})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.Route.ID != primaryRoute.ID {
		t.Errorf("Primary must win over fallback, got route %d", resolved.Route.ID)
	}

	// With the primary's model disabled, the fallback serves.
	if err := store.SetModelEnabled(ctx, primary.ID, false); err != nil {
		t.Fatalf("SetModelEnabled failed: %v", err)
	}
	resolver.Invalidate()

	resolved, err = resolver.Resolve(ctx, ResolveRequest{FeatureKey: FeatureOnboardingChat, Intent: IntentChat})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.Route.ID != fallbackRoute.ID {
		t.Errorf("Expected fallback after primary disabled, got route %d", resolved.Route.ID)
	}
}

func TestResolver_IntentConstraints(t *testing.T) {
	resolver, store, cleanup := setupResolver(t)
	defer cleanup()

	ctx := context.Background()
	p := mustCreateProvider(t, store, "anthropic")
	m := mustCreateModel(t, store, p.ID, "claude-sonnet-4-5", fullCapabilities())

	// The preferred route refuses generate; both allow and disallow list
	// the intent, and disallow wins.
	restricted, err := store.CreateRoute(ctx, RouteParams{
		FeatureKey:      FeatureOnboardingChat,
		ProviderModelID: m.ID,
		Priority:        10,
		Constraints: RouteConstraints{
			AllowedIntents:    []Intent{IntentChat, IntentGenerate},
			DisallowedIntents: []Intent{IntentGenerate},
		},
	})
	if err != nil {
		t.Fatalf("CreateRoute failed: %v", err)
	}
	open, err := store.CreateRoute(ctx, RouteParams{
		FeatureKey:      FeatureOnboardingChat,
		ProviderModelID: m.ID,
		Priority:        1,
	})
	if err != nil {
		t.Fatalf("CreateRoute failed: %v", err)
	}

	resolved, err := resolver.Resolve(ctx, ResolveRequest{FeatureKey: FeatureOnboardingChat, Intent: IntentChat})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.Route.ID != restricted.ID {
		t.Errorf("Restricted route still serves permitted intents, got %d", resolved.Route.ID)
	}

	resolved, err = resolver.Resolve(ctx, ResolveRequest{FeatureKey: FeatureOnboardingChat, Intent: IntentGenerate})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.Route.ID != open.ID {
		t.Errorf("Disallowed intent must fall through to the next route, got %d", resolved.Route.ID)
	}
}

func TestResolver_CapabilityRecheck(t *testing.T) {
	resolver, store, cleanup := setupResolver(t)
	defer cleanup()

	ctx := context.Background()
	p := mustCreateProvider(t, store, "anthropic")
	m := mustCreateModel(t, store, p.ID, "claude-sonnet-4-5", fullCapabilities())

	if _, err := store.CreateRoute(ctx, RouteParams{
		FeatureKey:      FeatureGoalBreakdown,
		ProviderModelID: m.ID,
	}); err != nil {
		t.Fatalf("CreateRoute failed: %v", err)
	}

	// The route was valid at creation; editing the model out from under
	// it must not let a reasoning feature reach a chat-only model.
	if _, err := store.UpdateModel(ctx, m.ID, ModelParams{
		ModelKey:            "claude-sonnet-4-5",
		DisplayName:         "Claude Sonnet",
		Capabilities:        chatCapabilities(),
		ContextWindowTokens: 128000,
		MaxOutputTokens:     8192,
	}); err != nil {
		t.Fatalf("UpdateModel failed: %v", err)
	}
	resolver.Invalidate()

	_, err := resolver.Resolve(ctx, ResolveRequest{FeatureKey: FeatureGoalBreakdown, Intent: IntentChat})
	if !errors.Is(err, ErrNoRoute) {
		t.Errorf("Expected ErrNoRoute after capability loss, got %v", err)
	}
}

func TestResolver_ProviderDisableCascades(t *testing.T) {
	resolver, store, cleanup := setupResolver(t)
	defer cleanup()

	ctx := context.Background()
	p := mustCreateProvider(t, store, "anthropic")
	m := mustCreateModel(t, store, p.ID, "claude-sonnet-4-5", fullCapabilities())
	if _, err := store.CreateRoute(ctx, RouteParams{
		FeatureKey:      FeatureOnboardingChat,
		ProviderModelID: m.ID,
	}); err != nil {
		t.Fatalf("CreateRoute failed: %v", err)
	}

	if _, err := resolver.Resolve(ctx, ResolveRequest{FeatureKey: FeatureOnboardingChat, Intent: IntentChat}); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// Disabling the provider takes out the route and model without
	// touching either row.
	if err := store.SetProviderEnabled(ctx, p.ID, false); err != nil {
		t.Fatalf("SetProviderEnabled failed: %v", err)
	}
	resolver.Invalidate()

	_, err := resolver.Resolve(ctx, ResolveRequest{FeatureKey: FeatureOnboardingChat, Intent: IntentChat})
	if !errors.Is(err, ErrNoRoute) {
		t.Errorf("Expected ErrNoRoute with provider disabled, got %v", err)
	}
}

func TestResolver_NoImplicitDefault(t *testing.T) {
	resolver, store, cleanup := setupResolver(t)
	defer cleanup()

	ctx := context.Background()

	// Models exist but no route does: resolution is a hard stop, never a
	// silent default pick.
	p := mustCreateProvider(t, store, "anthropic")
	mustCreateModel(t, store, p.ID, "claude-sonnet-4-5", fullCapabilities())

	_, err := resolver.Resolve(ctx, ResolveRequest{FeatureKey: FeatureOnboardingChat, Intent: IntentChat})
	if !errors.Is(err, ErrNoRoute) {
		t.Errorf("Expected ErrNoRoute with no routes configured, got %v", err)
	}

	// Unknown features fail before touching storage.
	if _, err := resolver.Resolve(ctx, ResolveRequest{FeatureKey: "dream_journal", Intent: IntentChat}); err == nil {
		t.Error("Unknown feature key must be rejected")
	}
}

func TestResolver_ConstraintOverridesClampTokens(t *testing.T) {
	resolver, store, cleanup := setupResolver(t)
	defer cleanup()

	ctx := context.Background()
	p := mustCreateProvider(t, store, "anthropic")
	m := mustCreateModel(t, store, p.ID, "claude-sonnet-4-5", fullCapabilities())

	maxCtx := 32000
	maxOut := 999999 // larger than the model's own cap, must not raise it
	if _, err := store.CreateRoute(ctx, RouteParams{
		FeatureKey:      FeatureOnboardingChat,
		ProviderModelID: m.ID,
		Constraints: RouteConstraints{
			MaxContextTokens: &maxCtx,
			MaxOutputTokens:  &maxOut,
		},
	}); err != nil {
		t.Fatalf("CreateRoute failed: %v", err)
	}

	resolved, err := resolver.Resolve(ctx, ResolveRequest{FeatureKey: FeatureOnboardingChat, Intent: IntentChat})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.EffectiveContextTokens != 32000 {
		t.Errorf("Constraint must lower the context budget, got %d", resolved.EffectiveContextTokens)
	}
	if resolved.EffectiveOutputTokens != 8192 {
		t.Errorf("Constraint must never raise the model's cap, got %d", resolved.EffectiveOutputTokens)
	}
}

func TestResolver_CacheAndInvalidate(t *testing.T) {
	resolver, store, cleanup := setupResolver(t)
	defer cleanup()

	ctx := context.Background()
	p := mustCreateProvider(t, store, "anthropic")
	m := mustCreateModel(t, store, p.ID, "claude-sonnet-4-5", fullCapabilities())
	route, err := store.CreateRoute(ctx, RouteParams{
		FeatureKey:      FeatureOnboardingChat,
		ProviderModelID: m.ID,
	})
	if err != nil {
		t.Fatalf("CreateRoute failed: %v", err)
	}

	req := ResolveRequest{FeatureKey: FeatureOnboardingChat, Intent: IntentChat}
	if _, err := resolver.Resolve(ctx, req); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// Without invalidation the cached pick survives a config change.
	if err := store.SetRouteEnabled(ctx, route.ID, false); err != nil {
		t.Fatalf("SetRouteEnabled failed: %v", err)
	}
	resolved, err := resolver.Resolve(ctx, req)
	if err != nil {
		t.Fatalf("Cached resolve failed: %v", err)
	}
	if resolved.Route.ID != route.ID {
		t.Errorf("Expected cached result, got route %d", resolved.Route.ID)
	}

	// Invalidation makes the change visible.
	resolver.Invalidate()
	if _, err := resolver.Resolve(ctx, req); !errors.Is(err, ErrNoRoute) {
		t.Errorf("Expected ErrNoRoute after invalidation, got %v", err)
	}
}
