package aiprovider

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mindgrove-hq/mindgrove/pkg/airouting"
)

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Request is the provider-neutral completion request. The adapter expands
// ReasoningLevel into whatever its vendor's API actually takes.
type Request struct {
	ModelKey        string                    `json:"model_key"`
	SystemPrompt    string                    `json:"system_prompt,omitempty"`
	Messages        []Message                 `json:"messages"`
	MaxOutputTokens int                       `json:"max_output_tokens,omitempty"`
	Temperature     *float64                  `json:"temperature,omitempty"`
	ReasoningLevel  *airouting.ReasoningLevel `json:"reasoning_level,omitempty"`

	// Carried for logging only; adapters never branch on these.
	FeatureKey string `json:"feature_key,omitempty"`
	Intent     string `json:"intent,omitempty"`
}

// Response is the provider-neutral completion result.
type Response struct {
	Text         string `json:"text"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
	FinishReason string `json:"finish_reason,omitempty"`
	LatencyMs    int64  `json:"latency_ms"`
}

// Adapter is one upstream vendor integration.
type Adapter interface {
	// Name is the provider slug the routing layer stores.
	Name() string
	// IsConfigured reports whether the adapter has usable credentials.
	IsConfigured() bool
	// Complete runs one completion request.
	Complete(ctx context.Context, req Request) (*Response, error)
}

// NotConfiguredError means the adapter has no credentials. The message
// names the exact environment variable so the operator can fix it without
// reading source.
type NotConfiguredError struct {
	Provider string
	EnvVar   string
}

func (e *NotConfiguredError) Error() string {
	return fmt.Sprintf("provider %q is not configured: set %s", e.Provider, e.EnvVar)
}

// ModelNotSupportedError means the vendor rejected the model key.
type ModelNotSupportedError struct {
	Provider string
	ModelKey string
}

func (e *ModelNotSupportedError) Error() string {
	return fmt.Sprintf("provider %q does not support model %q", e.Provider, e.ModelKey)
}

// APIError is a non-2xx vendor response.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider %q API error %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Retryable reports whether the caller may retry. Rate limits and server
// faults are transient; everything else means the request itself is wrong.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}
