package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/refrag/internal/core/ports/driven"
)

func TestNewLLMService(t *testing.T) {
	_, err := NewLLMService(LLMConfig{})
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	s, err := NewLLMService(LLMConfig{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultLLMModel, s.ModelName())
	assert.False(t, s.openRouter)

	s, err = NewLLMService(LLMConfig{APIKey: "k", BaseURL: OpenRouterBaseURL, Model: OpenRouterModel})
	require.NoError(t, err)
	assert.True(t, s.openRouter)
	assert.Equal(t, "openrouter/auto", s.ModelName())
}

func TestGenerate(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		assert.Empty(t, r.Header.Get("X-Title"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Paris"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	s, err := NewLLMService(LLMConfig{APIKey: "k", BaseURL: srv.URL, Model: "m"})
	require.NoError(t, err)

	answer, err := s.Generate(context.Background(), "Where?", driven.GenerateOptions{MaxTokens: 16})
	require.NoError(t, err)
	assert.Equal(t, "Paris", answer)

	assert.Equal(t, "m", got["model"])
	assert.Equal(t, float64(16), got["max_tokens"])
	assert.Equal(t, float64(0), got["temperature"], "zero temperature is sent explicitly")
	msgs := got["messages"].([]any)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Where?", msgs[0].(map[string]any)["content"])
}

func TestGenerate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"api error", http.StatusBadRequest, `{"error":{"message":"context too long"}}`, "context too long"},
		{"non json", http.StatusBadGateway, `<html>`, "status 502"},
		{"no choices", http.StatusOK, `{"choices":[]}`, "no response choices"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			s, err := NewLLMService(LLMConfig{APIKey: "k", BaseURL: srv.URL})
			require.NoError(t, err)

			_, err = s.Generate(context.Background(), "p", driven.GenerateOptions{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestPing_OpenRouterHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "refrag", r.Header.Get("X-Title"))
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	s, err := NewLLMService(LLMConfig{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)
	s.openRouter = true

	assert.NoError(t, s.Ping(context.Background()))
}

func TestIsOpenRouter(t *testing.T) {
	assert.True(t, IsOpenRouter("https://openrouter.ai/api/v1"))
	assert.False(t, IsOpenRouter("https://api.openai.com/v1"))
}
