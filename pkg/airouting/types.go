package airouting

import (
	"strings"
	"time"
)

// FeatureKey names a product feature that consumes AI. Closed enum; new
// features land here and in the registry together.
type FeatureKey string

const (
	FeatureOnboardingChat      FeatureKey = "onboarding_chat"
	FeatureBrainProfileSummary FeatureKey = "brain_profile_summary"
	FeatureHabitCoach          FeatureKey = "habit_coach"
	FeatureGoalBreakdown       FeatureKey = "goal_breakdown"
	FeatureWidgetSuggestions   FeatureKey = "widget_suggestions"
	FeatureTaskExtraction      FeatureKey = "task_extraction"
	FeatureFocusSessionPlanner FeatureKey = "focus_session_planner"
)

// Capability names an ability a model may have.
type Capability string

const (
	CapabilityChat        Capability = "chat"
	CapabilityReasoning   Capability = "reasoning"
	CapabilityVision      Capability = "vision"
	CapabilitySearch      Capability = "search"
	CapabilityLongContext Capability = "longContext"
	CapabilityTools       Capability = "tools"
)

// SurfaceType is the product context a route applies to. The zero value
// (nil pointer in routes) means global.
type SurfaceType string

const (
	SurfaceProject  SurfaceType = "project"
	SurfacePersonal SurfaceType = "personal"
	SurfaceShared   SurfaceType = "shared"
)

// Intent classifies what a request wants from the model.
type Intent string

const (
	IntentChat      Intent = "chat"
	IntentSummarize Intent = "summarize"
	IntentClassify  Intent = "classify"
	IntentGenerate  Intent = "generate"
	IntentExtract   Intent = "extract"
)

// ReasoningLevel is a provider-specific preset that expands to concrete
// request parameters in the provider adapter. Only one provider family
// gives it meaning; others ignore it.
type ReasoningLevel string

const (
	ReasoningFast     ReasoningLevel = "fast"
	ReasoningBalanced ReasoningLevel = "balanced"
	ReasoningDeep     ReasoningLevel = "deep"
	ReasoningLongForm ReasoningLevel = "long_form"
)

// Provider is one upstream AI vendor.
type Provider struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"` // slug, also the credential env var suffix
	DisplayName       string    `json:"display_name"`
	IsEnabled         bool      `json:"is_enabled"`
	SupportsTools     bool      `json:"supports_tools"`
	SupportsStreaming bool      `json:"supports_streaming"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ModelCapabilities is the per-model capability matrix.
type ModelCapabilities struct {
	Chat        bool `json:"chat"`
	Reasoning   bool `json:"reasoning"`
	Vision      bool `json:"vision"`
	Search      bool `json:"search"`
	LongContext bool `json:"longContext"`
	Tools       bool `json:"tools"`
}

// Has reports whether the matrix includes a capability.
func (c ModelCapabilities) Has(cap Capability) bool {
	switch cap {
	case CapabilityChat:
		return c.Chat
	case CapabilityReasoning:
		return c.Reasoning
	case CapabilityVision:
		return c.Vision
	case CapabilitySearch:
		return c.Search
	case CapabilityLongContext:
		return c.LongContext
	case CapabilityTools:
		return c.Tools
	default:
		return false
	}
}

// HasAll reports whether the matrix includes every listed capability.
func (c ModelCapabilities) HasAll(caps []Capability) bool {
	for _, cap := range caps {
		if !c.Has(cap) {
			return false
		}
	}
	return true
}

// ProviderModel is one model offered by a provider.
//
// ModelKey is trimmed of surrounding whitespace at every read and write
// boundary; the upstream APIs reject padded identifiers and padding has
// been a recurring defect class.
type ProviderModel struct {
	ID                  int64             `json:"id"`
	ProviderID          int64             `json:"provider_id"`
	ModelKey            string            `json:"model_key"`
	DisplayName         string            `json:"display_name"`
	Capabilities        ModelCapabilities `json:"capabilities"`
	ContextWindowTokens int               `json:"context_window_tokens"`
	MaxOutputTokens     int               `json:"max_output_tokens"`
	CostPer1MInput      float64           `json:"cost_per_1m_input"`
	CostPer1MOutput     float64           `json:"cost_per_1m_output"`
	ReasoningLevel      *ReasoningLevel   `json:"reasoning_level,omitempty"`
	IsEnabled           bool              `json:"is_enabled"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// Normalize applies the model key sanitization rule.
func (m *ProviderModel) Normalize() {
	m.ModelKey = strings.TrimSpace(m.ModelKey)
}

// RouteConstraints optionally overrides model defaults per route. All
// fields are optional; nil/empty means "use the model's own value".
type RouteConstraints struct {
	MaxContextTokens  *int     `json:"max_context_tokens,omitempty"`
	MaxOutputTokens   *int     `json:"max_output_tokens,omitempty"`
	AllowedIntents    []Intent `json:"allowed_intents,omitempty"`
	DisallowedIntents []Intent `json:"disallowed_intents,omitempty"`
}

// PermitsIntent applies the intent filter. Disallowed wins over allowed
// when both are set.
func (c RouteConstraints) PermitsIntent(intent Intent) bool {
	for _, d := range c.DisallowedIntents {
		if d == intent {
			return false
		}
	}
	if len(c.AllowedIntents) == 0 {
		return true
	}
	for _, a := range c.AllowedIntents {
		if a == intent {
			return true
		}
	}
	return false
}

// FeatureRoute binds a feature to one provider model, optionally scoped
// by surface and/or master project.
type FeatureRoute struct {
	ID              int64            `json:"id"`
	FeatureKey      FeatureKey       `json:"feature_key"`
	ProviderModelID int64            `json:"provider_model_id"`
	SurfaceType     *SurfaceType     `json:"surface_type,omitempty"` // nil = global
	MasterProjectID *string          `json:"master_project_id,omitempty"`
	Priority        int              `json:"priority"`
	IsFallback      bool             `json:"is_fallback"`
	Constraints     RouteConstraints `json:"constraints"`
	IsEnabled       bool             `json:"is_enabled"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// ResolvedRoute is a route joined with its model and provider plus the
// effective token budgets after constraint overrides.
type ResolvedRoute struct {
	Route    FeatureRoute  `json:"route"`
	Model    ProviderModel `json:"model"`
	Provider Provider      `json:"provider"`

	EffectiveContextTokens int `json:"effective_context_tokens"`
	EffectiveOutputTokens  int `json:"effective_output_tokens"`
}

// PermitsIntent applies the resolved route's intent filter.
func (r *ResolvedRoute) PermitsIntent(intent Intent) bool {
	return r.Route.Constraints.PermitsIntent(intent)
}
