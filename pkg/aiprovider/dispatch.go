package aiprovider

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Dispatcher maps provider slugs to adapters. Safe for concurrent use.
type Dispatcher struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
	logger   *logrus.Logger
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		adapters: make(map[string]Adapter),
		logger:   logger,
	}
}

// NewDefaultDispatcher wires the built-in adapters under their default
// slugs. Credentials come from the environment; an adapter without
// credentials registers anyway and fails with NotConfiguredError on use,
// so the error names the missing variable instead of "unknown provider".
func NewDefaultDispatcher(logger *logrus.Logger) *Dispatcher {
	d := NewDispatcher(logger)
	d.Register(NewAnthropicAdapter(AnthropicConfig{}, logger))
	d.Register(NewOpenAIAdapter(OpenAIConfig{}, logger))
	d.Register(NewOllamaAdapter(OllamaConfig{}, logger))
	return d
}

// Register adds an adapter under its slug, replacing any previous one.
func (d *Dispatcher) Register(adapter Adapter) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.adapters[strings.ToLower(adapter.Name())] = adapter
}

// Get returns the adapter for a provider slug.
func (d *Dispatcher) Get(providerName string) (Adapter, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	adapter, ok := d.adapters[strings.ToLower(strings.TrimSpace(providerName))]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", providerName)
	}
	return adapter, nil
}

// Complete routes a request to the named provider's adapter.
func (d *Dispatcher) Complete(ctx context.Context, providerName string, req Request) (*Response, error) {
	adapter, err := d.Get(providerName)
	if err != nil {
		return nil, err
	}
	return adapter.Complete(ctx, req)
}

// TestCall runs a single prompt through a provider model and returns the
// text. Implements the routing admin surface's test invoker.
func (d *Dispatcher) TestCall(ctx context.Context, providerName, modelKey, prompt string) (string, error) {
	resp, err := d.Complete(ctx, providerName, Request{
		ModelKey:        modelKey,
		Messages:        []Message{{Role: "user", Content: prompt}},
		MaxOutputTokens: 256,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
