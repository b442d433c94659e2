package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemScribe/internal/config"
	"github.com/turtacn/ChemScribe/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/ChemScribe/pkg/errors"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	cfg := config.AIConfig{
		DefaultProvider: "openai",
		RequestTimeout:  5 * time.Second,
		OllamaTimeout:   5 * time.Second,
	}
	return NewRegistry(cfg, logging.NewNopLogger())
}

func TestRegistry_Selection(t *testing.T) {
	r := testRegistry(t)

	for _, name := range []string{"openai", "gemini", "ollama", " OpenAI "} {
		p, err := r.Provider(name)
		require.NoError(t, err, name)
		assert.NotNil(t, p)
	}

	// Empty name falls back to the default.
	p, err := r.Provider("")
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	_, err = r.Provider("anthropic")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeProviderUnsupported))
}

func TestOpenAIProvider_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		w.Write([]byte(`{"choices":[{"message":{"content":"  a proposal  "}}]}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(config.ProviderConfig{
		APIKey: "sk-test", BaseURL: srv.URL, Model: "gpt-4o-mini",
	}, 5*time.Second, logging.NewNopLogger())

	text, err := p.GenerateText(context.Background(), "write a proposal")
	require.NoError(t, err)
	assert.Equal(t, "a proposal", text)
}

func TestOpenAIProvider_MissingKey(t *testing.T) {
	p := NewOpenAIProvider(config.ProviderConfig{BaseURL: "http://unused"},
		time.Second, logging.NewNopLogger())
	_, err := p.GenerateText(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeProviderAuthFailed))
}

func TestOpenAIProvider_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		code   apperrors.ErrorCode
	}{
		{http.StatusUnauthorized, apperrors.ErrCodeProviderAuthFailed},
		{http.StatusTooManyRequests, apperrors.ErrCodeProviderRateLimited},
		{http.StatusInternalServerError, apperrors.ErrCodeProviderCallFailed},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))
		p := NewOpenAIProvider(config.ProviderConfig{APIKey: "k", BaseURL: srv.URL},
			5*time.Second, logging.NewNopLogger())
		_, err := p.GenerateText(context.Background(), "x")
		srv.Close()
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, tt.code), "status %d", tt.status)
	}
}

func TestOpenAIProvider_EmptyOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"   "}}]}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(config.ProviderConfig{APIKey: "k", BaseURL: srv.URL},
		5*time.Second, logging.NewNopLogger())
	_, err := p.GenerateText(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeProviderEmptyOutput))
}

func TestOpenAIProvider_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	p := NewOpenAIProvider(config.ProviderConfig{APIKey: "k", BaseURL: srv.URL},
		50*time.Millisecond, logging.NewNopLogger())
	_, err := p.GenerateText(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeProviderTimeout), err.Error())
}

func TestGeminiProvider_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "models/gemini-1.5-flash:generateContent")
		assert.Equal(t, "k", r.URL.Query().Get("key"))
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"part one "},{"text":"part two"}]}}]}`))
	}))
	defer srv.Close()

	p := NewGeminiProvider(config.ProviderConfig{
		APIKey: "k", BaseURL: srv.URL, Model: "gemini-1.5-flash",
	}, 5*time.Second, logging.NewNopLogger())

	text, err := p.GenerateText(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "part one part two", text)
}

func TestGeminiProvider_NoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	p := NewGeminiProvider(config.ProviderConfig{APIKey: "k", BaseURL: srv.URL},
		5*time.Second, logging.NewNopLogger())
	_, err := p.GenerateText(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeProviderEmptyOutput))
}

func TestNormalizeOllamaURL(t *testing.T) {
	tests := []struct{ in, want string }{
		{"localhost:11434", "http://localhost:11434"},
		{"http://localhost:11434/", "http://localhost:11434"},
		{"https://ollama.internal///", "https://ollama.internal"},
		{"  ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeOllamaURL(tt.in), tt.in)
	}
}

func TestOllamaProvider_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		w.Write([]byte(`{"response":"local answer"}`))
	}))
	defer srv.Close()

	p := NewOllamaProvider(config.ProviderConfig{BaseURL: srv.URL, Model: "llama3"},
		5*time.Second, logging.NewNopLogger())
	text, err := p.GenerateText(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "local answer", text)
}

func TestOllamaProvider_DaemonError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":"","error":"model not found"}`))
	}))
	defer srv.Close()

	p := NewOllamaProvider(config.ProviderConfig{BaseURL: srv.URL, Model: "nope"},
		5*time.Second, logging.NewNopLogger())
	_, err := p.GenerateText(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeProviderCallFailed))
	assert.Contains(t, err.Error(), "model not found")
}
