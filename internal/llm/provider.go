package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// AuthStyle selects how the API key is sent.
type AuthStyle string

const (
	// AuthBearer sends the key as an Authorization: Bearer header.
	AuthBearer AuthStyle = "bearer"
	// AuthAPIKey sends the key as an api-key header (Azure style).
	AuthAPIKey AuthStyle = "api-key"
)

// HTTPProviderConfig configures an OpenAI-wire-compatible HTTP provider.
type HTTPProviderConfig struct {
	Name           string        `koanf:"name"`
	BaseURL        string        `koanf:"base_url"`
	APIKey         string        `koanf:"api_key"`
	Model          string        `koanf:"model"`
	EmbeddingModel string        `koanf:"embedding_model"`
	AuthStyle      AuthStyle     `koanf:"auth_style"`
	Timeout        time.Duration `koanf:"timeout"`
}

// HTTPProvider implements Provider against a chat-completions endpoint.
// Both the hosted model API and the corporate gateway speak this wire
// format; only base URL and auth style differ.
type HTTPProvider struct {
	config     HTTPProviderConfig
	httpClient *http.Client
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
}

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewHTTPProvider creates a provider from config.
func NewHTTPProvider(cfg HTTPProviderConfig) (*HTTPProvider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if cfg.Name == "" {
		cfg.Name = "default"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4-turbo"
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "text-embedding-ada-002"
	}
	if cfg.AuthStyle == "" {
		cfg.AuthStyle = AuthBearer
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &HTTPProvider{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}, nil
}

// Name returns the configured provider name.
func (p *HTTPProvider) Name() string {
	return p.config.Name
}

// Generate produces a completion via the chat-completions endpoint.
func (p *HTTPProvider) Generate(ctx context.Context, prompt string, opts GenerateOptions) (*Response, error) {
	req := chatRequest{
		Model:       p.config.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}

	var parsed chatResponse
	if err := p.post(ctx, "/chat/completions", req, &parsed); err != nil {
		return nil, err
	}

	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("empty response from %s", p.config.Name)
	}

	model := parsed.Model
	if model == "" {
		model = p.config.Model
	}

	return &Response{
		Content: parsed.Choices[0].Message.Content,
		Model:   model,
		Usage:   parsed.Usage,
	}, nil
}

// Embed produces an embedding vector via the embeddings endpoint.
func (p *HTTPProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	req := embeddingRequest{
		Model: p.config.EmbeddingModel,
		Input: text,
	}

	var parsed embeddingResponse
	if err := p.post(ctx, "/embeddings", req, &parsed); err != nil {
		return nil, err
	}

	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("empty embedding response from %s", p.config.Name)
	}
	return parsed.Data[0].Embedding, nil
}

func (p *HTTPProvider) post(ctx context.Context, path string, payload, out any) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	switch p.config.AuthStyle {
	case AuthAPIKey:
		httpReq.Header.Set("api-key", p.config.APIKey)
	default:
		httpReq.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp apiError
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
			return fmt.Errorf("API error (%d): %s", resp.StatusCode, errResp.Error.Message)
		}
		return fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
