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

const openaiDefaultBaseURL = "https://api.openai.com"

// OpenAIAdapter speaks the OpenAI chat completions API.
type OpenAIAdapter struct {
	name       string
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Entry
}

// OpenAIConfig configures the adapter. Zero values get defaults.
type OpenAIConfig struct {
	Name    string // provider slug; defaults to "openai"
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// NewOpenAIAdapter creates the adapter.
func NewOpenAIAdapter(cfg OpenAIConfig, logger *logrus.Logger) *OpenAIAdapter {
	if cfg.Name == "" {
		cfg.Name = "openai"
	}
	if cfg.APIKey == "" {
		cfg.APIKey = APIKeyFor(cfg.Name)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = openaiDefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &OpenAIAdapter{
		name:       cfg.Name,
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.WithField("provider", cfg.Name),
	}
}

// Name implements Adapter.
func (o *OpenAIAdapter) Name() string { return o.name }

// IsConfigured implements Adapter.
func (o *OpenAIAdapter) IsConfigured() bool { return o.apiKey != "" }

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiRequest struct {
	Model               string          `json:"model"`
	Messages            []openaiMessage `json:"messages"`
	MaxCompletionTokens int             `json:"max_completion_tokens,omitempty"`
	Temperature         *float64        `json:"temperature,omitempty"`
	ReasoningEffort     string          `json:"reasoning_effort,omitempty"`
}

type openaiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

type openaiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Complete implements Adapter. ReasoningLevel expands to the API's
// reasoning_effort knob plus a completion token budget.
func (o *OpenAIAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	if !o.IsConfigured() {
		return nil, &NotConfiguredError{Provider: o.name, EnvVar: CredentialEnvVar(o.name)}
	}

	modelKey := strings.TrimSpace(req.ModelKey)
	if modelKey == "" {
		return nil, fmt.Errorf("model key is required")
	}

	messages := make([]openaiMessage, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, openaiMessage{Role: "system", Content: req.SystemPrompt})
	}
	for _, m := range req.Messages {
		messages = append(messages, openaiMessage{Role: m.Role, Content: m.Content})
	}

	apiReq := openaiRequest{
		Model:               modelKey,
		Messages:            messages,
		MaxCompletionTokens: req.MaxOutputTokens,
		Temperature:         req.Temperature,
	}
	if req.ReasoningLevel != nil {
		applyOpenAIReasoning(&apiReq, *req.ReasoningLevel)
	}

	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	start := time.Now()
	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr openaiErrorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Code == "model_not_found" {
			return nil, &ModelNotSupportedError{Provider: o.name, ModelKey: modelKey}
		}
		o.logger.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"model":  modelKey,
		}).Warn("openai API error")
		return nil, &APIError{Provider: o.name, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var apiResp openaiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(apiResp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from provider %q", o.name)
	}

	latency := time.Since(start)
	o.logger.WithFields(logrus.Fields{
		"model":         modelKey,
		"feature":       req.FeatureKey,
		"input_tokens":  apiResp.Usage.PromptTokens,
		"output_tokens": apiResp.Usage.CompletionTokens,
		"latency_ms":    latency.Milliseconds(),
	}).Debug("completion finished")

	return &Response{
		Text:         apiResp.Choices[0].Message.Content,
		InputTokens:  apiResp.Usage.PromptTokens,
		OutputTokens: apiResp.Usage.CompletionTokens,
		FinishReason: apiResp.Choices[0].FinishReason,
		LatencyMs:    latency.Milliseconds(),
	}, nil
}

func applyOpenAIReasoning(req *openaiRequest, level airouting.ReasoningLevel) {
	switch level {
	case airouting.ReasoningFast:
		req.ReasoningEffort = "low"
		if req.MaxCompletionTokens == 0 || req.MaxCompletionTokens > 1024 {
			req.MaxCompletionTokens = 1024
		}
	case airouting.ReasoningBalanced:
		req.ReasoningEffort = "medium"
	case airouting.ReasoningDeep:
		req.ReasoningEffort = "high"
		if req.MaxCompletionTokens < 8192 {
			req.MaxCompletionTokens = 8192
		}
	case airouting.ReasoningLongForm:
		req.ReasoningEffort = "medium"
		if req.MaxCompletionTokens < 16384 {
			req.MaxCompletionTokens = 16384
		}
	}
}
