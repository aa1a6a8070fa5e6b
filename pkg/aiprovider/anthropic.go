package aiprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mindgrove-hq/mindgrove/pkg/airouting"
)

const (
	anthropicDefaultBaseURL = "https://api.anthropic.com"
	anthropicVersion        = "2023-06-01"
)

// AnthropicAdapter speaks the Anthropic messages API.
type AnthropicAdapter struct {
	name       string
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Entry
}

// AnthropicConfig configures the adapter. Zero values get defaults.
type AnthropicConfig struct {
	Name    string // provider slug; defaults to "anthropic"
	APIKey  string // defaults to the slug's credential env var
	BaseURL string
	Timeout time.Duration
}

// NewAnthropicAdapter creates the adapter.
func NewAnthropicAdapter(cfg AnthropicConfig, logger *logrus.Logger) *AnthropicAdapter {
	if cfg.Name == "" {
		cfg.Name = "anthropic"
	}
	if cfg.APIKey == "" {
		cfg.APIKey = APIKeyFor(cfg.Name)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = anthropicDefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &AnthropicAdapter{
		name:       cfg.Name,
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.WithField("provider", cfg.Name),
	}
}

// Name implements Adapter.
func (a *AnthropicAdapter) Name() string { return a.name }

// IsConfigured implements Adapter.
func (a *AnthropicAdapter) IsConfigured() bool { return a.apiKey != "" }

type anthropicRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type anthropicErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete implements Adapter. ReasoningLevel expands to a token budget
// and temperature preset; this API has no effort knob.
func (a *AnthropicAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	if !a.IsConfigured() {
		return nil, &NotConfiguredError{Provider: a.name, EnvVar: CredentialEnvVar(a.name)}
	}

	modelKey := strings.TrimSpace(req.ModelKey)
	if modelKey == "" {
		return nil, fmt.Errorf("model key is required")
	}

	apiReq := anthropicRequest{
		Model:       modelKey,
		MaxTokens:   req.MaxOutputTokens,
		System:      req.SystemPrompt,
		Messages:    req.Messages,
		Temperature: req.Temperature,
	}
	if apiReq.MaxTokens == 0 {
		apiReq.MaxTokens = 4096
	}
	if req.ReasoningLevel != nil {
		applyAnthropicReasoning(&apiReq, *req.ReasoningLevel)
	}

	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", a.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", a.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	start := time.Now()
	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr anthropicErrorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Type == "not_found_error" {
			return nil, &ModelNotSupportedError{Provider: a.name, ModelKey: modelKey}
		}
		a.logger.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"model":  modelKey,
		}).Warn("anthropic API error")
		return nil, &APIError{Provider: a.name, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(apiResp.Content) == 0 {
		return nil, fmt.Errorf("empty response from provider %q", a.name)
	}

	latency := time.Since(start)
	a.logger.WithFields(logrus.Fields{
		"model":         modelKey,
		"feature":       req.FeatureKey,
		"input_tokens":  apiResp.Usage.InputTokens,
		"output_tokens": apiResp.Usage.OutputTokens,
		"latency_ms":    latency.Milliseconds(),
	}).Debug("completion finished")

	return &Response{
		Text:         apiResp.Content[0].Text,
		InputTokens:  apiResp.Usage.InputTokens,
		OutputTokens: apiResp.Usage.OutputTokens,
		FinishReason: apiResp.StopReason,
		LatencyMs:    latency.Milliseconds(),
	}, nil
}

func applyAnthropicReasoning(req *anthropicRequest, level airouting.ReasoningLevel) {
	switch level {
	case airouting.ReasoningFast:
		if req.MaxTokens > 1024 {
			req.MaxTokens = 1024
		}
		req.Temperature = floatPtr(0.3)
	case airouting.ReasoningBalanced:
		req.Temperature = floatPtr(0.7)
	case airouting.ReasoningDeep:
		if req.MaxTokens < 8192 {
			req.MaxTokens = 8192
		}
		req.Temperature = floatPtr(1.0)
	case airouting.ReasoningLongForm:
		if req.MaxTokens < 16384 {
			req.MaxTokens = 16384
		}
		req.Temperature = floatPtr(0.7)
	}
}

func floatPtr(f float64) *float64 { return &f }
