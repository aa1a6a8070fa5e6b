package aiprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// OllamaAdapter speaks the Ollama chat API for local inference. No API
// key: configuration is the host URL.
type OllamaAdapter struct {
	name       string
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Entry
}

// OllamaConfig configures the adapter. Zero values get defaults.
type OllamaConfig struct {
	Name    string // provider slug; defaults to "ollama"
	BaseURL string // defaults to MINDGROVE_OLLAMA_URL, then localhost
	Timeout time.Duration
}

// NewOllamaAdapter creates the adapter.
func NewOllamaAdapter(cfg OllamaConfig, logger *logrus.Logger) *OllamaAdapter {
	if cfg.Name == "" {
		cfg.Name = "ollama"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = os.Getenv("MINDGROVE_OLLAMA_URL")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &OllamaAdapter{
		name:       cfg.Name,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.WithField("provider", cfg.Name),
	}
}

// Name implements Adapter.
func (o *OllamaAdapter) Name() string { return o.name }

// IsConfigured implements Adapter. A local daemon needs no credentials.
func (o *OllamaAdapter) IsConfigured() bool { return o.baseURL != "" }

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	NumPredict  int      `json:"num_predict,omitempty"`
}

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  *ollamaOptions  `json:"options,omitempty"`
}

type ollamaResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	DoneReason      string `json:"done_reason"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// Complete implements Adapter. ReasoningLevel is ignored: local models
// have no effort knob.
func (o *OllamaAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	modelKey := strings.TrimSpace(req.ModelKey)
	if modelKey == "" {
		return nil, fmt.Errorf("model key is required")
	}

	messages := make([]ollamaMessage, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, ollamaMessage{Role: "system", Content: req.SystemPrompt})
	}
	for _, m := range req.Messages {
		messages = append(messages, ollamaMessage{Role: m.Role, Content: m.Content})
	}

	apiReq := ollamaRequest{
		Model:    modelKey,
		Messages: messages,
		Stream:   false,
	}
	if req.Temperature != nil || req.MaxOutputTokens > 0 {
		apiReq.Options = &ollamaOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxOutputTokens,
		}
	}

	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

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
		// Ollama reports an unknown model as 404 with an error string.
		if resp.StatusCode == http.StatusNotFound {
			return nil, &ModelNotSupportedError{Provider: o.name, ModelKey: modelKey}
		}
		o.logger.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"model":  modelKey,
		}).Warn("ollama API error")
		return nil, &APIError{Provider: o.name, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var apiResp ollamaResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	latency := time.Since(start)
	return &Response{
		Text:         apiResp.Message.Content,
		InputTokens:  apiResp.PromptEvalCount,
		OutputTokens: apiResp.EvalCount,
		FinishReason: apiResp.DoneReason,
		LatencyMs:    latency.Milliseconds(),
	}, nil
}
