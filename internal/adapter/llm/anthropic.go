// Package llm provides the text-generation adapter backed by the
// Anthropic Messages API.
package llm

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

	"ragtutor/internal/domain"
	"ragtutor/internal/port"
)

// Ensure AnthropicGenerator implements the port.
var _ port.Generator = (*AnthropicGenerator)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.anthropic.com"
	DefaultModel   = "claude-3-5-sonnet-20241022"
	DefaultTimeout = 120 * time.Second

	// anthropicVersion is the required API version header.
	anthropicVersion = "2023-06-01"
)

// Config holds configuration for the Anthropic generator.
type Config struct {
	// APIKeyEnv names the environment variable holding the API key.
	// An absent or placeholder key leaves the generator unconfigured;
	// calls then fail with domain.ErrNotConfigured rather than
	// reaching the network.
	APIKeyEnv string

	// BaseURL is the API base URL (default: https://api.anthropic.com).
	BaseURL string

	// Model is the model to use.
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// AnthropicGenerator produces text via the Anthropic Messages API.
type AnthropicGenerator struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

type messagesRequest struct {
	Model     string            `json:"model"`
	Messages  []messagesMessage `json:"messages"`
	MaxTokens int               `json:"max_tokens"`
	System    string            `json:"system,omitempty"`
}

type messagesMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewAnthropicGenerator constructs the generator. Construction never
// fails on a missing key: the question-answering path needs to report
// "not configured" per call, not crash at startup.
func NewAnthropicGenerator(cfg Config) *AnthropicGenerator {
	apiKey := os.Getenv(cfg.APIKeyEnv)
	if strings.Contains(strings.ToLower(apiKey), "your_anthropic_api_key") {
		apiKey = ""
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &AnthropicGenerator{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		apiKey:  apiKey,
		model:   cfg.Model,
	}
}

// Configured reports whether a credential is present.
func (g *AnthropicGenerator) Configured() bool {
	return g.apiKey != ""
}

// Generate produces a completion for the system/user pair. Exactly one
// provider call per invocation; retries are the caller's policy.
func (g *AnthropicGenerator) Generate(ctx context.Context, system, user string, maxTokens int) (port.GenerateResult, error) {
	if g.apiKey == "" {
		return port.GenerateResult{}, fmt.Errorf("%w: ANTHROPIC_API_KEY not set", domain.ErrNotConfigured)
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	reqBody := messagesRequest{
		Model:     g.model,
		Messages:  []messagesMessage{{Role: "user", Content: user}},
		MaxTokens: maxTokens,
		System:    system,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return port.GenerateResult{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/messages", bytes.NewReader(jsonBody))
	if err != nil {
		return port.GenerateResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", g.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := g.client.Do(req)
	if err != nil {
		return port.GenerateResult{}, fmt.Errorf("%w: send request: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return port.GenerateResult{}, fmt.Errorf("%w: read response: %v", domain.ErrUpstreamUnavailable, err)
	}

	var msgResp messagesResponse
	if err := json.Unmarshal(body, &msgResp); err != nil {
		return port.GenerateResult{}, fmt.Errorf("decode response: %w", err)
	}

	if msgResp.Error != nil {
		return port.GenerateResult{}, fmt.Errorf("%w: anthropic error: %s", domain.ErrUpstreamUnavailable, msgResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return port.GenerateResult{}, fmt.Errorf("%w: anthropic status %d: %s", domain.ErrUpstreamUnavailable, resp.StatusCode, string(body))
	}
	if len(msgResp.Content) == 0 {
		return port.GenerateResult{}, fmt.Errorf("%w: anthropic returned no content", domain.ErrUpstreamUnavailable)
	}

	var text strings.Builder
	for _, block := range msgResp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return port.GenerateResult{
		Text:         text.String(),
		InputTokens:  msgResp.Usage.InputTokens,
		OutputTokens: msgResp.Usage.OutputTokens,
	}, nil
}

// Ping validates the credential by checking the /v1/models endpoint
// without running inference.
func (g *AnthropicGenerator) Ping(ctx context.Context) error {
	if g.apiKey == "" {
		return fmt.Errorf("%w: ANTHROPIC_API_KEY not set", domain.ErrNotConfigured)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/v1/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("create ping request: %w", err)
	}
	req.Header.Set("x-api-key", g.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: ping failed: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: anthropic status %d", domain.ErrUpstreamUnavailable, resp.StatusCode)
	}
	return nil
}

// ModelName returns the name of the model being used.
func (g *AnthropicGenerator) ModelName() string {
	return g.model
}
