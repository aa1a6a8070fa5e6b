package airouting

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func setupRoutingDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	_, err = db.Exec(`
		CREATE TABLE ai_providers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			display_name TEXT NOT NULL,
			is_enabled INTEGER NOT NULL DEFAULT 1,
			supports_tools INTEGER NOT NULL DEFAULT 0,
			supports_streaming INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);

		CREATE TABLE ai_provider_models (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			provider_id INTEGER NOT NULL,
			model_key TEXT NOT NULL,
			display_name TEXT NOT NULL,
			capabilities TEXT NOT NULL DEFAULT '{}',
			context_window_tokens INTEGER NOT NULL DEFAULT 0,
			max_output_tokens INTEGER NOT NULL DEFAULT 0,
			cost_per_1m_input REAL NOT NULL DEFAULT 0,
			cost_per_1m_output REAL NOT NULL DEFAULT 0,
			reasoning_level TEXT,
			is_enabled INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			UNIQUE(provider_id, model_key)
		);

		CREATE TABLE ai_feature_routes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			feature_key TEXT NOT NULL,
			provider_model_id INTEGER NOT NULL,
			surface_type TEXT,
			master_project_id TEXT,
			priority INTEGER NOT NULL DEFAULT 0,
			is_fallback INTEGER NOT NULL DEFAULT 0,
			constraints TEXT NOT NULL DEFAULT '{}',
			is_enabled INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);
	`)
	if err != nil {
		t.Fatalf("Failed to create test tables: %v", err)
	}

	return db
}

func setupRoutingStore(t *testing.T) (*Store, *sql.DB) {
	db := setupRoutingDB(t)
	return NewStore(db, NewFeatureRegistry()), db
}

func chatCapabilities() ModelCapabilities {
	return ModelCapabilities{Chat: true}
}

func fullCapabilities() ModelCapabilities {
	return ModelCapabilities{Chat: true, Reasoning: true, Vision: true, Search: true, LongContext: true, Tools: true}
}

func mustCreateProvider(t *testing.T, store *Store, name string) *Provider {
	t.Helper()
	p, err := store.CreateProvider(context.Background(), ProviderParams{
		Name:        name,
		DisplayName: name,
	})
	if err != nil {
		t.Fatalf("CreateProvider(%s) failed: %v", name, err)
	}
	return p
}

func mustCreateModel(t *testing.T, store *Store, providerID int64, key string, caps ModelCapabilities) *ProviderModel {
	t.Helper()
	m, err := store.CreateModel(context.Background(), providerID, ModelParams{
		ModelKey:            key,
		DisplayName:         key,
		Capabilities:        caps,
		ContextWindowTokens: 128000,
		MaxOutputTokens:     8192,
	})
	if err != nil {
		t.Fatalf("CreateModel(%s) failed: %v", key, err)
	}
	return m
}

func TestStore_ProviderCRUD(t *testing.T) {
	store, db := setupRoutingStore(t)
	defer db.Close()

	ctx := context.Background()

	p, err := store.CreateProvider(ctx, ProviderParams{
		Name:          "  Anthropic  ",
		DisplayName:   "Anthropic",
		SupportsTools: true,
	})
	if err != nil {
		t.Fatalf("CreateProvider failed: %v", err)
	}
	if p.ID == 0 {
		t.Error("Expected provider ID to be set")
	}
	if p.Name != "anthropic" {
		t.Errorf("Provider name must be a trimmed lowercase slug, got %q", p.Name)
	}
	if !p.IsEnabled {
		t.Error("New providers start enabled")
	}

	byName, err := store.GetProviderByName(ctx, "ANTHROPIC")
	if err != nil {
		t.Fatalf("GetProviderByName failed: %v", err)
	}
	if byName.ID != p.ID {
		t.Errorf("Lookup by name returned wrong provider: %d", byName.ID)
	}

	if _, err := store.CreateProvider(ctx, ProviderParams{Name: "   "}); err == nil {
		t.Error("Blank provider name must be rejected")
	}

	if _, err := store.GetProvider(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing provider, got %v", err)
	}

	if err := store.SetProviderEnabled(ctx, p.ID, false); err != nil {
		t.Fatalf("SetProviderEnabled failed: %v", err)
	}
	got, err := store.GetProvider(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProvider failed: %v", err)
	}
	if got.IsEnabled {
		t.Error("Expected provider disabled")
	}

	if err := store.SetProviderEnabled(ctx, 9999, false); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound toggling missing provider, got %v", err)
	}
}

func TestStore_DeleteProviderWithModels(t *testing.T) {
	store, db := setupRoutingStore(t)
	defer db.Close()

	ctx := context.Background()
	p := mustCreateProvider(t, store, "openai")
	mustCreateModel(t, store, p.ID, "gpt-5", chatCapabilities())
	mustCreateModel(t, store, p.ID, "gpt-5-mini", chatCapabilities())

	err := store.DeleteProvider(ctx, p.ID)
	var hasModels *ProviderHasModelsError
	if !errors.As(err, &hasModels) {
		t.Fatalf("Expected ProviderHasModelsError, got %v", err)
	}
	if hasModels.ModelCount != 2 {
		t.Errorf("Expected model count 2, got %d", hasModels.ModelCount)
	}

	// Deleting the models first clears the way.
	models, err := store.ListModels(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListModels failed: %v", err)
	}
	for _, m := range models {
		if err := store.DeleteModel(ctx, m.ID); err != nil {
			t.Fatalf("DeleteModel failed: %v", err)
		}
	}
	if err := store.DeleteProvider(ctx, p.ID); err != nil {
		t.Fatalf("DeleteProvider after cleanup failed: %v", err)
	}
}

func TestStore_ModelKeyTrimming(t *testing.T) {
	store, db := setupRoutingStore(t)
	defer db.Close()

	ctx := context.Background()
	p := mustCreateProvider(t, store, "anthropic")

	m, err := store.CreateModel(ctx, p.ID, ModelParams{
		ModelKey:     "  claude-sonnet-4-5\n",
		DisplayName:  "Claude Sonnet",
		Capabilities: chatCapabilities(),
	})
	if err != nil {
		t.Fatalf("CreateModel failed: %v", err)
	}
	if m.ModelKey != "claude-sonnet-4-5" {
		t.Errorf("Model key must be trimmed at the write boundary, got %q", m.ModelKey)
	}

	got, err := store.GetModel(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetModel failed: %v", err)
	}
	if got.ModelKey != "claude-sonnet-4-5" {
		t.Errorf("Model key must be trimmed at the read boundary, got %q", got.ModelKey)
	}

	if _, err := store.CreateModel(ctx, p.ID, ModelParams{ModelKey: "   \t "}); err == nil {
		t.Error("A key that is blank after trimming must be rejected")
	}
}

func TestStore_ModelCRUD(t *testing.T) {
	store, db := setupRoutingStore(t)
	defer db.Close()

	ctx := context.Background()
	p := mustCreateProvider(t, store, "anthropic")

	level := ReasoningDeep
	m, err := store.CreateModel(ctx, p.ID, ModelParams{
		ModelKey:            "claude-opus-4",
		DisplayName:         "Claude Opus",
		Capabilities:        fullCapabilities(),
		ContextWindowTokens: 200000,
		MaxOutputTokens:     32000,
		CostPer1MInput:      15,
		CostPer1MOutput:     75,
		ReasoningLevel:      &level,
	})
	if err != nil {
		t.Fatalf("CreateModel failed: %v", err)
	}

	got, err := store.GetModel(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetModel failed: %v", err)
	}
	if !got.Capabilities.LongContext || !got.Capabilities.Tools {
		t.Errorf("Capabilities must round trip, got %+v", got.Capabilities)
	}
	if got.ReasoningLevel == nil || *got.ReasoningLevel != ReasoningDeep {
		t.Errorf("Reasoning level must round trip, got %v", got.ReasoningLevel)
	}
	if got.CostPer1MInput != 15 || got.CostPer1MOutput != 75 {
		t.Errorf("Costs must round trip, got %v/%v", got.CostPer1MInput, got.CostPer1MOutput)
	}

	updated, err := store.UpdateModel(ctx, m.ID, ModelParams{
		ModelKey:            "claude-opus-4",
		DisplayName:         "Claude Opus 4",
		Capabilities:        chatCapabilities(),
		ContextWindowTokens: 200000,
		MaxOutputTokens:     32000,
	})
	if err != nil {
		t.Fatalf("UpdateModel failed: %v", err)
	}
	if updated.Capabilities.Reasoning {
		t.Error("Update must replace capabilities")
	}
	if updated.ReasoningLevel != nil {
		t.Error("Omitted reasoning level must clear the column")
	}

	if _, err := store.CreateModel(ctx, 9999, ModelParams{ModelKey: "x", Capabilities: chatCapabilities()}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Creating a model under a missing provider must fail with ErrNotFound, got %v", err)
	}
}

func TestStore_DeleteModelCascadesRoutes(t *testing.T) {
	store, db := setupRoutingStore(t)
	defer db.Close()

	ctx := context.Background()
	p := mustCreateProvider(t, store, "anthropic")
	m := mustCreateModel(t, store, p.ID, "claude-haiku-4", chatCapabilities())

	route, err := store.CreateRoute(ctx, RouteParams{
		FeatureKey:      FeatureOnboardingChat,
		ProviderModelID: m.ID,
		Priority:        10,
	})
	if err != nil {
		t.Fatalf("CreateRoute failed: %v", err)
	}

	if err := store.DeleteModel(ctx, m.ID); err != nil {
		t.Fatalf("DeleteModel failed: %v", err)
	}

	if _, err := store.GetRoute(ctx, route.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected route deleted with its model, got %v", err)
	}
}

func TestStore_RouteValidation(t *testing.T) {
	store, db := setupRoutingStore(t)
	defer db.Close()

	ctx := context.Background()
	p := mustCreateProvider(t, store, "anthropic")
	chatOnly := mustCreateModel(t, store, p.ID, "claude-haiku-4", chatCapabilities())

	// Unknown feature key.
	if _, err := store.CreateRoute(ctx, RouteParams{
		FeatureKey:      "dream_journal",
		ProviderModelID: chatOnly.ID,
	}); err == nil {
		t.Error("Unknown feature key must be rejected")
	}

	// Project scope without a surface.
	project := "proj-1"
	if _, err := store.CreateRoute(ctx, RouteParams{
		FeatureKey:      FeatureOnboardingChat,
		ProviderModelID: chatOnly.ID,
		MasterProjectID: &project,
	}); err == nil {
		t.Error("Project-scoped route without surface must be rejected")
	}

	// Capability mismatch: goal_breakdown needs reasoning.
	_, err := store.CreateRoute(ctx, RouteParams{
		FeatureKey:      FeatureGoalBreakdown,
		ProviderModelID: chatOnly.ID,
	})
	var mismatch *CapabilityMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("Expected CapabilityMismatchError, got %v", err)
	}
	if len(mismatch.Missing) != 1 || mismatch.Missing[0] != CapabilityReasoning {
		t.Errorf("Expected missing [reasoning], got %v", mismatch.Missing)
	}

	// Missing model.
	if _, err := store.CreateRoute(ctx, RouteParams{
		FeatureKey:      FeatureOnboardingChat,
		ProviderModelID: 9999,
	}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing model, got %v", err)
	}
}

func TestStore_RouteCRUDAndOrdering(t *testing.T) {
	store, db := setupRoutingStore(t)
	defer db.Close()

	ctx := context.Background()
	p := mustCreateProvider(t, store, "anthropic")
	m := mustCreateModel(t, store, p.ID, "claude-sonnet-4-5", fullCapabilities())

	low, err := store.CreateRoute(ctx, RouteParams{
		FeatureKey:      FeatureOnboardingChat,
		ProviderModelID: m.ID,
		Priority:        1,
	})
	if err != nil {
		t.Fatalf("CreateRoute failed: %v", err)
	}
	high, err := store.CreateRoute(ctx, RouteParams{
		FeatureKey:      FeatureOnboardingChat,
		ProviderModelID: m.ID,
		Priority:        10,
	})
	if err != nil {
		t.Fatalf("CreateRoute failed: %v", err)
	}

	routes, err := store.ListRoutes(ctx, FeatureOnboardingChat)
	if err != nil {
		t.Fatalf("ListRoutes failed: %v", err)
	}
	if len(routes) != 2 {
		t.Fatalf("Expected 2 routes, got %d", len(routes))
	}
	if routes[0].ID != high.ID || routes[1].ID != low.ID {
		t.Error("Routes must list highest priority first")
	}

	surface := SurfacePersonal
	max := 4096
	updated, err := store.UpdateRoute(ctx, low.ID, RouteParams{
		FeatureKey:      FeatureOnboardingChat,
		ProviderModelID: m.ID,
		SurfaceType:     &surface,
		Priority:        5,
		Constraints: RouteConstraints{
			MaxOutputTokens:   &max,
			DisallowedIntents: []Intent{IntentGenerate},
		},
	})
	if err != nil {
		t.Fatalf("UpdateRoute failed: %v", err)
	}
	if updated.SurfaceType == nil || *updated.SurfaceType != SurfacePersonal {
		t.Errorf("Surface must round trip, got %v", updated.SurfaceType)
	}
	if updated.Constraints.MaxOutputTokens == nil || *updated.Constraints.MaxOutputTokens != 4096 {
		t.Errorf("Constraints must round trip, got %+v", updated.Constraints)
	}

	if err := store.SetRouteEnabled(ctx, high.ID, false); err != nil {
		t.Fatalf("SetRouteEnabled failed: %v", err)
	}
	got, err := store.GetRoute(ctx, high.ID)
	if err != nil {
		t.Fatalf("GetRoute failed: %v", err)
	}
	if got.IsEnabled {
		t.Error("Expected route disabled")
	}

	if err := store.DeleteRoute(ctx, high.ID); err != nil {
		t.Fatalf("DeleteRoute failed: %v", err)
	}
	if err := store.DeleteRoute(ctx, high.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Deleting twice must report ErrNotFound, got %v", err)
	}
}

func TestStore_DisableImpacts(t *testing.T) {
	store, db := setupRoutingStore(t)
	defer db.Close()

	ctx := context.Background()
	p := mustCreateProvider(t, store, "anthropic")
	m1 := mustCreateModel(t, store, p.ID, "claude-sonnet-4-5", fullCapabilities())
	m2 := mustCreateModel(t, store, p.ID, "claude-haiku-4", chatCapabilities())

	for _, modelID := range []int64{m1.ID, m2.ID} {
		if _, err := store.CreateRoute(ctx, RouteParams{
			FeatureKey:      FeatureOnboardingChat,
			ProviderModelID: modelID,
		}); err != nil {
			t.Fatalf("CreateRoute failed: %v", err)
		}
	}

	impact, err := store.ProviderDisableImpact(ctx, p.ID)
	if err != nil {
		t.Fatalf("ProviderDisableImpact failed: %v", err)
	}
	if impact.Models != 2 || impact.Routes != 2 {
		t.Errorf("Expected 2 models / 2 routes, got %+v", impact)
	}

	modelImpact, err := store.ModelDisableImpact(ctx, m1.ID)
	if err != nil {
		t.Fatalf("ModelDisableImpact failed: %v", err)
	}
	if modelImpact.Routes != 1 {
		t.Errorf("Expected 1 route, got %d", modelImpact.Routes)
	}

	// Disabled models and routes drop out of the counts.
	if err := store.SetModelEnabled(ctx, m2.ID, false); err != nil {
		t.Fatalf("SetModelEnabled failed: %v", err)
	}
	impact, err = store.ProviderDisableImpact(ctx, p.ID)
	if err != nil {
		t.Fatalf("ProviderDisableImpact failed: %v", err)
	}
	if impact.Models != 1 {
		t.Errorf("Expected 1 enabled model after disable, got %d", impact.Models)
	}
}

func TestStore_CandidateModels(t *testing.T) {
	store, db := setupRoutingStore(t)
	defer db.Close()

	ctx := context.Background()
	anthropic := mustCreateProvider(t, store, "anthropic")
	ollama := mustCreateProvider(t, store, "ollama")

	full := mustCreateModel(t, store, anthropic.ID, "claude-sonnet-4-5", fullCapabilities())
	mustCreateModel(t, store, anthropic.ID, "claude-haiku-4", chatCapabilities())
	local := mustCreateModel(t, store, ollama.ID, "llama3", ModelCapabilities{Chat: true, Reasoning: true})

	// goal_breakdown needs chat+reasoning.
	candidates, err := store.CandidateModels(ctx, FeatureGoalBreakdown)
	if err != nil {
		t.Fatalf("CandidateModels failed: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("Expected 2 candidates, got %d", len(candidates))
	}

	// Disabling the ollama provider removes its model from candidacy.
	if err := store.SetProviderEnabled(ctx, ollama.ID, false); err != nil {
		t.Fatalf("SetProviderEnabled failed: %v", err)
	}
	candidates, err = store.CandidateModels(ctx, FeatureGoalBreakdown)
	if err != nil {
		t.Fatalf("CandidateModels failed: %v", err)
	}
	if len(candidates) != 1 || candidates[0].ID != full.ID {
		t.Errorf("Expected only the anthropic model, got %d candidates", len(candidates))
	}
	_ = local

	if _, err := store.CandidateModels(ctx, "dream_journal"); err == nil {
		t.Error("Unknown feature key must be rejected")
	}
}
