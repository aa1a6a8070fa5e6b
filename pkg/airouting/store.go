package airouting

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when a provider, model or route does not exist.
var ErrNotFound = fmt.Errorf("not found")

// ProviderHasModelsError rejects deletion of a provider that still owns
// models. Callers surface the count so the operator knows the blast radius.
type ProviderHasModelsError struct {
	ProviderID int64
	ModelCount int
}

func (e *ProviderHasModelsError) Error() string {
	return fmt.Sprintf("provider %d still has %d model(s); delete or reassign them first", e.ProviderID, e.ModelCount)
}

// CapabilityMismatchError rejects a route whose model cannot serve the
// feature's capability requirements.
type CapabilityMismatchError struct {
	FeatureKey FeatureKey
	ModelKey   string
	Missing    []Capability
}

func (e *CapabilityMismatchError) Error() string {
	missing := make([]string, len(e.Missing))
	for i, c := range e.Missing {
		missing[i] = string(c)
	}
	return fmt.Sprintf("model %q lacks capabilities required by feature %q: %s",
		e.ModelKey, e.FeatureKey, strings.Join(missing, ", "))
}

// DisableImpact reports what disabling a provider or model would cascade to.
type DisableImpact struct {
	Models int `json:"models"`
	Routes int `json:"routes"`
}

// Store persists providers, models and feature routes.
type Store struct {
	db       *sql.DB
	features *FeatureRegistry
}

// NewStore creates a routing store backed by the given database.
func NewStore(db *sql.DB, features *FeatureRegistry) *Store {
	return &Store{db: db, features: features}
}

// Features exposes the registry the store validates against.
func (s *Store) Features() *FeatureRegistry {
	return s.features
}

// --- providers ---

// ProviderParams carries the writable fields of a provider.
type ProviderParams struct {
	Name              string `json:"name"`
	DisplayName       string `json:"display_name"`
	SupportsTools     bool   `json:"supports_tools"`
	SupportsStreaming bool   `json:"supports_streaming"`
}

// CreateProvider inserts a new provider, enabled by default.
func (s *Store) CreateProvider(ctx context.Context, params ProviderParams) (*Provider, error) {
	name := strings.TrimSpace(strings.ToLower(params.Name))
	if name == "" {
		return nil, fmt.Errorf("provider name is required")
	}

	now := time.Now().UTC()
	p := &Provider{
		Name:              name,
		DisplayName:       params.DisplayName,
		IsEnabled:         true,
		SupportsTools:     params.SupportsTools,
		SupportsStreaming: params.SupportsStreaming,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO ai_providers (name, display_name, is_enabled, supports_tools, supports_streaming, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		p.Name, p.DisplayName, p.IsEnabled, p.SupportsTools, p.SupportsStreaming, p.CreatedAt, p.UpdatedAt).
		Scan(&p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}
	return p, nil
}

// GetProvider fetches a provider by ID.
func (s *Store) GetProvider(ctx context.Context, id int64) (*Provider, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, display_name, is_enabled, supports_tools, supports_streaming, created_at, updated_at
		FROM ai_providers WHERE id = $1`, id)
	return scanProvider(row)
}

// GetProviderByName fetches a provider by its slug.
func (s *Store) GetProviderByName(ctx context.Context, name string) (*Provider, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, display_name, is_enabled, supports_tools, supports_streaming, created_at, updated_at
		FROM ai_providers WHERE name = $1`, strings.TrimSpace(strings.ToLower(name)))
	return scanProvider(row)
}

// ListProviders returns all providers, enabled or not.
func (s *Store) ListProviders(ctx context.Context) ([]*Provider, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, display_name, is_enabled, supports_tools, supports_streaming, created_at, updated_at
		FROM ai_providers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	defer rows.Close()

	var providers []*Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	return providers, rows.Err()
}

// SetProviderEnabled toggles a provider. Disabling cascades at resolution
// time: every model and route under the provider stops being a candidate.
func (s *Store) SetProviderEnabled(ctx context.Context, id int64, enabled bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE ai_providers SET is_enabled = $1, updated_at = $2 WHERE id = $3`,
		enabled, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update provider: %w", err)
	}
	return requireRowAffected(res)
}

// ProviderDisableImpact counts the enabled models and routes that setting
// is_enabled=false on this provider would take out of resolution.
func (s *Store) ProviderDisableImpact(ctx context.Context, id int64) (*DisableImpact, error) {
	impact := &DisableImpact{}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM ai_provider_models WHERE provider_id = $1 AND is_enabled = true`, id).
		Scan(&impact.Models)
	if err != nil {
		return nil, fmt.Errorf("failed to count provider models: %w", err)
	}
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM ai_feature_routes r
		JOIN ai_provider_models m ON m.id = r.provider_model_id
		WHERE m.provider_id = $1 AND r.is_enabled = true`, id).
		Scan(&impact.Routes)
	if err != nil {
		return nil, fmt.Errorf("failed to count provider routes: %w", err)
	}
	return impact, nil
}

// DeleteProvider removes a provider that owns no models.
func (s *Store) DeleteProvider(ctx context.Context, id int64) error {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM ai_provider_models WHERE provider_id = $1`, id).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to count provider models: %w", err)
	}
	if count > 0 {
		return &ProviderHasModelsError{ProviderID: id, ModelCount: count}
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM ai_providers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete provider: %w", err)
	}
	return requireRowAffected(res)
}

// --- models ---

// ModelParams carries the writable fields of a provider model.
type ModelParams struct {
	ModelKey            string            `json:"model_key"`
	DisplayName         string            `json:"display_name"`
	Capabilities        ModelCapabilities `json:"capabilities"`
	ContextWindowTokens int               `json:"context_window_tokens"`
	MaxOutputTokens     int               `json:"max_output_tokens"`
	CostPer1MInput      float64           `json:"cost_per_1m_input"`
	CostPer1MOutput     float64           `json:"cost_per_1m_output"`
	ReasoningLevel      *ReasoningLevel   `json:"reasoning_level,omitempty"`
}

// CreateModel inserts a model under a provider. The model key is trimmed
// before it ever reaches storage; a key that is blank after trimming is
// rejected.
func (s *Store) CreateModel(ctx context.Context, providerID int64, params ModelParams) (*ProviderModel, error) {
	params.ModelKey = strings.TrimSpace(params.ModelKey)
	if params.ModelKey == "" {
		return nil, fmt.Errorf("model key is required")
	}
	if _, err := s.GetProvider(ctx, providerID); err != nil {
		return nil, err
	}

	caps, err := json.Marshal(params.Capabilities)
	if err != nil {
		return nil, fmt.Errorf("failed to encode capabilities: %w", err)
	}

	now := time.Now().UTC()
	m := &ProviderModel{
		ProviderID:          providerID,
		ModelKey:            params.ModelKey,
		DisplayName:         params.DisplayName,
		Capabilities:        params.Capabilities,
		ContextWindowTokens: params.ContextWindowTokens,
		MaxOutputTokens:     params.MaxOutputTokens,
		CostPer1MInput:      params.CostPer1MInput,
		CostPer1MOutput:     params.CostPer1MOutput,
		ReasoningLevel:      params.ReasoningLevel,
		IsEnabled:           true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO ai_provider_models
			(provider_id, model_key, display_name, capabilities, context_window_tokens, max_output_tokens,
			 cost_per_1m_input, cost_per_1m_output, reasoning_level, is_enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`,
		m.ProviderID, m.ModelKey, m.DisplayName, string(caps), m.ContextWindowTokens, m.MaxOutputTokens,
		m.CostPer1MInput, m.CostPer1MOutput, reasoningLevelPtr(m.ReasoningLevel), m.IsEnabled, m.CreatedAt, m.UpdatedAt).
		Scan(&m.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create model: %w", err)
	}
	return m, nil
}

// UpdateModel rewrites a model's writable fields.
func (s *Store) UpdateModel(ctx context.Context, id int64, params ModelParams) (*ProviderModel, error) {
	params.ModelKey = strings.TrimSpace(params.ModelKey)
	if params.ModelKey == "" {
		return nil, fmt.Errorf("model key is required")
	}

	caps, err := json.Marshal(params.Capabilities)
	if err != nil {
		return nil, fmt.Errorf("failed to encode capabilities: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE ai_provider_models
		SET model_key = $1, display_name = $2, capabilities = $3, context_window_tokens = $4,
			max_output_tokens = $5, cost_per_1m_input = $6, cost_per_1m_output = $7,
			reasoning_level = $8, updated_at = $9
		WHERE id = $10`,
		params.ModelKey, params.DisplayName, string(caps), params.ContextWindowTokens,
		params.MaxOutputTokens, params.CostPer1MInput, params.CostPer1MOutput,
		reasoningLevelPtr(params.ReasoningLevel), time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update model: %w", err)
	}
	if err := requireRowAffected(res); err != nil {
		return nil, err
	}
	return s.GetModel(ctx, id)
}

// GetModel fetches a model by ID.
func (s *Store) GetModel(ctx context.Context, id int64) (*ProviderModel, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, provider_id, model_key, display_name, capabilities, context_window_tokens,
			max_output_tokens, cost_per_1m_input, cost_per_1m_output, reasoning_level,
			is_enabled, created_at, updated_at
		FROM ai_provider_models WHERE id = $1`, id)
	return scanModel(row)
}

// ListModels returns all models for a provider.
func (s *Store) ListModels(ctx context.Context, providerID int64) ([]*ProviderModel, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, provider_id, model_key, display_name, capabilities, context_window_tokens,
			max_output_tokens, cost_per_1m_input, cost_per_1m_output, reasoning_level,
			is_enabled, created_at, updated_at
		FROM ai_provider_models WHERE provider_id = $1 ORDER BY model_key`, providerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	defer rows.Close()

	var models []*ProviderModel
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, err
		}
		models = append(models, m)
	}
	return models, rows.Err()
}

// SetModelEnabled toggles a model. Routes pointing at a disabled model
// drop out of resolution without being edited.
func (s *Store) SetModelEnabled(ctx context.Context, id int64, enabled bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE ai_provider_models SET is_enabled = $1, updated_at = $2 WHERE id = $3`,
		enabled, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update model: %w", err)
	}
	return requireRowAffected(res)
}

// ModelDisableImpact counts the enabled routes a model disable would strand.
func (s *Store) ModelDisableImpact(ctx context.Context, id int64) (*DisableImpact, error) {
	impact := &DisableImpact{}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM ai_feature_routes WHERE provider_model_id = $1 AND is_enabled = true`, id).
		Scan(&impact.Routes)
	if err != nil {
		return nil, fmt.Errorf("failed to count model routes: %w", err)
	}
	return impact, nil
}

// DeleteModel removes a model and every route that targets it.
func (s *Store) DeleteModel(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM ai_feature_routes WHERE provider_model_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete model routes: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM ai_provider_models WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete model: %w", err)
	}
	if err := requireRowAffected(res); err != nil {
		return err
	}
	return tx.Commit()
}

// CandidateModels returns enabled models, under enabled providers, that
// satisfy a feature's capability requirements.
func (s *Store) CandidateModels(ctx context.Context, featureKey FeatureKey) ([]*ProviderModel, error) {
	spec, ok := s.features.Get(featureKey)
	if !ok {
		return nil, fmt.Errorf("unknown feature key %q", featureKey)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.provider_id, m.model_key, m.display_name, m.capabilities, m.context_window_tokens,
			m.max_output_tokens, m.cost_per_1m_input, m.cost_per_1m_output, m.reasoning_level,
			m.is_enabled, m.created_at, m.updated_at
		FROM ai_provider_models m
		JOIN ai_providers p ON p.id = m.provider_id
		WHERE m.is_enabled = true AND p.is_enabled = true
		ORDER BY m.model_key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidate models: %w", err)
	}
	defer rows.Close()

	var candidates []*ProviderModel
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, err
		}
		if m.Capabilities.HasAll(spec.RequiredCapabilities) {
			candidates = append(candidates, m)
		}
	}
	return candidates, rows.Err()
}

// --- routes ---

// RouteParams carries the writable fields of a feature route.
type RouteParams struct {
	FeatureKey      FeatureKey       `json:"feature_key"`
	ProviderModelID int64            `json:"provider_model_id"`
	SurfaceType     *SurfaceType     `json:"surface_type,omitempty"`
	MasterProjectID *string          `json:"master_project_id,omitempty"`
	Priority        int              `json:"priority"`
	IsFallback      bool             `json:"is_fallback"`
	Constraints     RouteConstraints `json:"constraints"`
}

// CreateRoute inserts a route. The target model must satisfy the feature's
// capability requirements at creation time; the resolver re-checks anyway
// because model capabilities can be edited after the route exists.
func (s *Store) CreateRoute(ctx context.Context, params RouteParams) (*FeatureRoute, error) {
	if err := s.validateRoute(ctx, &params); err != nil {
		return nil, err
	}

	constraints, err := json.Marshal(params.Constraints)
	if err != nil {
		return nil, fmt.Errorf("failed to encode constraints: %w", err)
	}

	now := time.Now().UTC()
	route := &FeatureRoute{
		FeatureKey:      params.FeatureKey,
		ProviderModelID: params.ProviderModelID,
		SurfaceType:     params.SurfaceType,
		MasterProjectID: params.MasterProjectID,
		Priority:        params.Priority,
		IsFallback:      params.IsFallback,
		Constraints:     params.Constraints,
		IsEnabled:       true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO ai_feature_routes
			(feature_key, provider_model_id, surface_type, master_project_id, priority, is_fallback,
			 constraints, is_enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		string(route.FeatureKey), route.ProviderModelID, surfaceTypePtr(route.SurfaceType),
		route.MasterProjectID, route.Priority, route.IsFallback, string(constraints),
		route.IsEnabled, route.CreatedAt, route.UpdatedAt).
		Scan(&route.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create route: %w", err)
	}
	return route, nil
}

// UpdateRoute rewrites a route's writable fields.
func (s *Store) UpdateRoute(ctx context.Context, id int64, params RouteParams) (*FeatureRoute, error) {
	if err := s.validateRoute(ctx, &params); err != nil {
		return nil, err
	}

	constraints, err := json.Marshal(params.Constraints)
	if err != nil {
		return nil, fmt.Errorf("failed to encode constraints: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE ai_feature_routes
		SET feature_key = $1, provider_model_id = $2, surface_type = $3, master_project_id = $4,
			priority = $5, is_fallback = $6, constraints = $7, updated_at = $8
		WHERE id = $9`,
		string(params.FeatureKey), params.ProviderModelID, surfaceTypePtr(params.SurfaceType),
		params.MasterProjectID, params.Priority, params.IsFallback, string(constraints),
		time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update route: %w", err)
	}
	if err := requireRowAffected(res); err != nil {
		return nil, err
	}
	return s.GetRoute(ctx, id)
}

// GetRoute fetches a route by ID.
func (s *Store) GetRoute(ctx context.Context, id int64) (*FeatureRoute, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, feature_key, provider_model_id, surface_type, master_project_id, priority,
			is_fallback, constraints, is_enabled, created_at, updated_at
		FROM ai_feature_routes WHERE id = $1`, id)
	return scanRoute(row)
}

// ListRoutes returns every route for a feature, highest priority first.
func (s *Store) ListRoutes(ctx context.Context, featureKey FeatureKey) ([]*FeatureRoute, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, feature_key, provider_model_id, surface_type, master_project_id, priority,
			is_fallback, constraints, is_enabled, created_at, updated_at
		FROM ai_feature_routes WHERE feature_key = $1
		ORDER BY priority DESC, created_at DESC, id DESC`, string(featureKey))
	if err != nil {
		return nil, fmt.Errorf("failed to list routes: %w", err)
	}
	defer rows.Close()

	var routes []*FeatureRoute
	for rows.Next() {
		r, err := scanRoute(rows)
		if err != nil {
			return nil, err
		}
		routes = append(routes, r)
	}
	return routes, rows.Err()
}

// ListAllRoutes returns every route across all features.
func (s *Store) ListAllRoutes(ctx context.Context) ([]*FeatureRoute, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, feature_key, provider_model_id, surface_type, master_project_id, priority,
			is_fallback, constraints, is_enabled, created_at, updated_at
		FROM ai_feature_routes
		ORDER BY feature_key, priority DESC, created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list routes: %w", err)
	}
	defer rows.Close()

	var routes []*FeatureRoute
	for rows.Next() {
		r, err := scanRoute(rows)
		if err != nil {
			return nil, err
		}
		routes = append(routes, r)
	}
	return routes, rows.Err()
}

// SetRouteEnabled toggles a single route.
func (s *Store) SetRouteEnabled(ctx context.Context, id int64, enabled bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE ai_feature_routes SET is_enabled = $1, updated_at = $2 WHERE id = $3`,
		enabled, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update route: %w", err)
	}
	return requireRowAffected(res)
}

// DeleteRoute removes a route.
func (s *Store) DeleteRoute(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM ai_feature_routes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete route: %w", err)
	}
	return requireRowAffected(res)
}

func (s *Store) validateRoute(ctx context.Context, params *RouteParams) error {
	spec, ok := s.features.Get(params.FeatureKey)
	if !ok {
		return fmt.Errorf("unknown feature key %q", params.FeatureKey)
	}
	model, err := s.GetModel(ctx, params.ProviderModelID)
	if err != nil {
		return err
	}
	var missing []Capability
	for _, c := range spec.RequiredCapabilities {
		if !model.Capabilities.Has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &CapabilityMismatchError{
			FeatureKey: params.FeatureKey,
			ModelKey:   model.ModelKey,
			Missing:    missing,
		}
	}
	return nil
}

// --- scan helpers ---

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProvider(row rowScanner) (*Provider, error) {
	p := &Provider{}
	err := row.Scan(&p.ID, &p.Name, &p.DisplayName, &p.IsEnabled,
		&p.SupportsTools, &p.SupportsStreaming, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan provider: %w", err)
	}
	return p, nil
}

func scanModel(row rowScanner) (*ProviderModel, error) {
	m := &ProviderModel{}
	var caps string
	var reasoning sql.NullString
	err := row.Scan(&m.ID, &m.ProviderID, &m.ModelKey, &m.DisplayName, &caps,
		&m.ContextWindowTokens, &m.MaxOutputTokens, &m.CostPer1MInput, &m.CostPer1MOutput,
		&reasoning, &m.IsEnabled, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan model: %w", err)
	}
	if err := json.Unmarshal([]byte(caps), &m.Capabilities); err != nil {
		return nil, fmt.Errorf("failed to decode capabilities: %w", err)
	}
	if reasoning.Valid && reasoning.String != "" {
		level := ReasoningLevel(reasoning.String)
		m.ReasoningLevel = &level
	}
	m.Normalize()
	return m, nil
}

func scanRoute(row rowScanner) (*FeatureRoute, error) {
	r := &FeatureRoute{}
	var featureKey string
	var surface sql.NullString
	var constraints string
	err := row.Scan(&r.ID, &featureKey, &r.ProviderModelID, &surface, &r.MasterProjectID,
		&r.Priority, &r.IsFallback, &constraints, &r.IsEnabled, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan route: %w", err)
	}
	r.FeatureKey = FeatureKey(featureKey)
	if surface.Valid {
		st := SurfaceType(surface.String)
		r.SurfaceType = &st
	}
	if err := json.Unmarshal([]byte(constraints), &r.Constraints); err != nil {
		return nil, fmt.Errorf("failed to decode constraints: %w", err)
	}
	return r, nil
}

func surfaceTypePtr(st *SurfaceType) *string {
	if st == nil {
		return nil
	}
	s := string(*st)
	return &s
}

func reasoningLevelPtr(level *ReasoningLevel) *string {
	if level == nil {
		return nil
	}
	s := string(*level)
	return &s
}

func requireRowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
