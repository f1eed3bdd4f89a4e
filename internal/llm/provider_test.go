package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHTTPProvider_Validation(t *testing.T) {
	_, err := NewHTTPProvider(HTTPProviderConfig{APIKey: "k"})
	require.Error(t, err)

	_, err = NewHTTPProvider(HTTPProviderConfig{BaseURL: "http://localhost"})
	require.Error(t, err)
}

func TestHTTPProvider_Generate(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "user", req.Messages[0].Role)

		json.NewEncoder(w).Encode(chatResponse{
			Model: "gpt-4-turbo",
			Choices: []struct {
				Message chatMessage `json:"message"`
			}{{Message: chatMessage{Role: "assistant", Content: "answer"}}},
			Usage: Usage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5},
		})
	}))
	defer server.Close()

	provider, err := NewHTTPProvider(HTTPProviderConfig{
		Name:    "test",
		BaseURL: server.URL,
		APIKey:  "secret",
	})
	require.NoError(t, err)

	resp, err := provider.Generate(context.Background(), "question", DefaultGenerateOptions())
	require.NoError(t, err)
	assert.Equal(t, "answer", resp.Content)
	assert.Equal(t, 5, resp.Usage.TotalTokens)
	assert.Equal(t, "Bearer secret", gotAuth)
}

func TestHTTPProvider_APIKeyAuthStyle(t *testing.T) {
	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("api-key")
		json.NewEncoder(w).Encode(chatResponse{
			Choices: []struct {
				Message chatMessage `json:"message"`
			}{{Message: chatMessage{Content: "ok"}}},
		})
	}))
	defer server.Close()

	provider, err := NewHTTPProvider(HTTPProviderConfig{
		BaseURL:   server.URL,
		APIKey:    "secret",
		AuthStyle: AuthAPIKey,
	})
	require.NoError(t, err)

	_, err = provider.Generate(context.Background(), "question", DefaultGenerateOptions())
	require.NoError(t, err)
	assert.Equal(t, "secret", gotKey)
}

func TestHTTPProvider_APIErrorSurfaced(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"type": "rate_limit", "message": "slow down"},
		})
	}))
	defer server.Close()

	provider, err := NewHTTPProvider(HTTPProviderConfig{BaseURL: server.URL, APIKey: "k"})
	require.NoError(t, err)

	_, err = provider.Generate(context.Background(), "question", DefaultGenerateOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slow down")
	assert.Contains(t, err.Error(), "429")
}

func TestHTTPProvider_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embeddings", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float32{0.5, 0.25}}},
		})
	}))
	defer server.Close()

	provider, err := NewHTTPProvider(HTTPProviderConfig{BaseURL: server.URL, APIKey: "k"})
	require.NoError(t, err)

	vector, err := provider.Embed(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.25}, vector)
}
