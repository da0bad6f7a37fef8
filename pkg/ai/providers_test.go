package ai

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiProviderComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-1.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "secret-key", r.URL.Query().Get("key"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"• summary"}]}}]}`)
	}))
	defer srv.Close()

	p := NewGeminiProvider("secret-key", "gemini-1.5-flash")
	p.baseURL = srv.URL

	text, err := p.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "• summary", text)
	assert.Equal(t, "gemini-1.5-flash", p.Name())
}

func TestGeminiProviderQuotaError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"status":"RESOURCE_EXHAUSTED"}}`)
	}))
	defer srv.Close()

	p := NewGeminiProvider("secret-key", "")
	p.baseURL = srv.URL

	_, err := p.Complete(context.Background(), "prompt")
	require.Error(t, err)
	assert.True(t, isQuotaError(err))
}

func TestOpenAIProviderComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"content":"[{\"action\":\"Reply\",\"type\":\"reply\",\"priority\":\"high\"}]"}}]}`)
	}))
	defer srv.Close()

	p := NewOpenAIProvider("sk-test", "gpt-4")
	p.baseURL = srv.URL

	text, err := p.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Contains(t, text, "Reply")
	assert.Equal(t, "gpt-4", p.Name())
}

func TestAnthropicProviderComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "ak-test", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"content":[{"text":"• claude summary"}]}`)
	}))
	defer srv.Close()

	p := NewAnthropicProvider("ak-test", "")
	p.baseURL = srv.URL

	text, err := p.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "• claude summary", text)
	assert.Equal(t, "claude-3-sonnet-20240229", p.Name())
}

func TestOllamaProviderComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"response":"• local summary","done":true}`)
	}))
	defer srv.Close()

	p := NewOllamaProvider(
		func() string { return srv.URL },
		func() string { return "llama3" },
		func() bool { return true },
	)

	text, err := p.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "• local summary", text)
	assert.Equal(t, "ollama:llama3", p.Name())
}

func TestOllamaProviderDisabled(t *testing.T) {
	p := NewOllamaProvider(
		func() string { return "http://localhost:11434" },
		func() string { return "llama3" },
		func() bool { return false },
	)

	_, err := p.Complete(context.Background(), "prompt")
	assert.ErrorIs(t, err, ErrOllamaDisabled)
}

func TestOllamaPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		fmt.Fprint(w, `{"models":[]}`)
	}))
	defer srv.Close()

	p := NewOllamaProvider(func() string { return srv.URL }, func() string { return "llama3" }, func() bool { return true })
	assert.NoError(t, p.Ping(context.Background()))

	bad := NewOllamaProvider(func() string { return "http://127.0.0.1:1" }, func() string { return "llama3" }, func() bool { return true })
	assert.Error(t, bad.Ping(context.Background()))
}
