package airouting

import (
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/mindgrove-hq/mindgrove/pkg/observability"
)

// FeatureSpec describes one product feature's AI requirements.
type FeatureSpec struct {
	Key                  FeatureKey   `yaml:"key" json:"key"`
	DisplayName          string       `yaml:"display_name" json:"display_name"`
	RequiredCapabilities []Capability `yaml:"required_capabilities" json:"required_capabilities"`
}

// builtinFeatures is the compiled-in registry. An override file can
// replace individual entries but never delete one: every FeatureKey
// constant stays routable.
func builtinFeatures() map[FeatureKey]FeatureSpec {
	return map[FeatureKey]FeatureSpec{
		FeatureOnboardingChat: {
			Key:                  FeatureOnboardingChat,
			DisplayName:          "Onboarding Chat",
			RequiredCapabilities: []Capability{CapabilityChat},
		},
		FeatureBrainProfileSummary: {
			Key:                  FeatureBrainProfileSummary,
			DisplayName:          "Brain Profile Summary",
			RequiredCapabilities: []Capability{CapabilityChat, CapabilityReasoning, CapabilityLongContext},
		},
		FeatureHabitCoach: {
			Key:                  FeatureHabitCoach,
			DisplayName:          "Habit Coach",
			RequiredCapabilities: []Capability{CapabilityChat},
		},
		FeatureGoalBreakdown: {
			Key:                  FeatureGoalBreakdown,
			DisplayName:          "Goal Breakdown",
			RequiredCapabilities: []Capability{CapabilityChat, CapabilityReasoning},
		},
		FeatureWidgetSuggestions: {
			Key:                  FeatureWidgetSuggestions,
			DisplayName:          "Widget Suggestions",
			RequiredCapabilities: []Capability{CapabilityChat, CapabilityVision},
		},
		FeatureTaskExtraction: {
			Key:                  FeatureTaskExtraction,
			DisplayName:          "Task Extraction",
			RequiredCapabilities: []Capability{CapabilityChat, CapabilityTools},
		},
		FeatureFocusSessionPlanner: {
			Key:                  FeatureFocusSessionPlanner,
			DisplayName:          "Focus Session Planner",
			RequiredCapabilities: []Capability{CapabilityChat, CapabilityReasoning},
		},
	}
}

// FeatureRegistry maps feature keys to their capability requirements.
// Safe for concurrent use; an optional YAML override file is hot-reloaded
// so capability gates can change without a deploy.
type FeatureRegistry struct {
	mu       sync.RWMutex
	features map[FeatureKey]FeatureSpec
}

// NewFeatureRegistry creates a registry with the built-in feature table.
func NewFeatureRegistry() *FeatureRegistry {
	return &FeatureRegistry{features: builtinFeatures()}
}

// Get returns the spec for a feature key.
func (r *FeatureRegistry) Get(key FeatureKey) (FeatureSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.features[key]
	return spec, ok
}

// List returns all feature specs.
func (r *FeatureRegistry) List() []FeatureSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	specs := make([]FeatureSpec, 0, len(r.features))
	for _, spec := range r.features {
		specs = append(specs, spec)
	}
	return specs
}

type overrideFile struct {
	Features []FeatureSpec `yaml:"features"`
}

// LoadOverrides merges a YAML override file on top of the built-in
// table. Unknown keys are rejected: the enum is closed.
func (r *FeatureRegistry) LoadOverrides(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read feature overrides: %w", err)
	}

	var file overrideFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse feature overrides: %w", err)
	}

	merged := builtinFeatures()
	for _, spec := range file.Features {
		if _, ok := merged[spec.Key]; !ok {
			return fmt.Errorf("feature overrides reference unknown feature key %q", spec.Key)
		}
		merged[spec.Key] = spec
	}

	r.mu.Lock()
	r.features = merged
	r.mu.Unlock()
	return nil
}

// Watch reloads the override file whenever it changes. Runs until the
// watcher is closed via the returned stop function. A bad edit keeps the
// previous table and logs the parse error.
func (r *FeatureRegistry) Watch(path string, logger *observability.Logger) (func() error, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create feature override watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", path, err)
	}

	go func() {
		defer observability.RecoverPanic(logger, "feature override watch")
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := r.LoadOverrides(path); err != nil {
					logger.WithError(err).Warn("feature override reload failed, keeping previous table")
					continue
				}
				logger.WithField("path", path).Info("feature overrides reloaded")
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.WithError(err).Warn("feature override watcher error")
			}
		}
	}()

	return watcher.Close, nil
}
