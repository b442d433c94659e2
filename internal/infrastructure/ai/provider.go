// Package ai implements the text-generation gateway: one Provider interface,
// three concrete clients (OpenAI, Gemini, Ollama) and a registry that selects
// among them by name.  Every provider call is bounded by a per-call timeout
// and maps transport failures onto the AI_* error taxonomy.
package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/turtacn/ChemScribe/internal/config"
	"github.com/turtacn/ChemScribe/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/ChemScribe/pkg/errors"
)

// Provider is the single-method text-generation capability.  Implementations
// must honour ctx cancellation and never return an empty string without error.
type Provider interface {
	// Name returns the registry key ("openai", "gemini", "ollama").
	Name() string

	// GenerateText sends one prompt and returns the model's text response.
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Registry maps provider names to configured Provider implementations.
// Selection happens per session at creation time; the registry itself is
// immutable after construction and safe for concurrent use.
type Registry struct {
	providers map[string]Provider
	def       string
	cfg       config.AIConfig
	logger    logging.Logger
}

// NewRegistry builds the provider table from configuration.  Providers are
// registered even when unconfigured (missing key); the credential check
// happens at call time so that a session can report a precise auth failure.
func NewRegistry(cfg config.AIConfig, logger logging.Logger) *Registry {
	r := &Registry{
		providers: map[string]Provider{},
		def:       cfg.DefaultProvider,
		cfg:       cfg,
		logger:    logger,
	}
	r.providers["openai"] = NewOpenAIProvider(cfg.OpenAI, cfg.RequestTimeout, logger)
	r.providers["gemini"] = NewGeminiProvider(cfg.Gemini, cfg.RequestTimeout, logger)
	r.providers["ollama"] = NewOllamaProvider(cfg.Ollama, cfg.OllamaTimeout, logger)
	return r
}

// Provider returns the named provider, or the default when name is empty.
func (r *Registry) Provider(name string) (Provider, error) {
	if name == "" {
		name = r.def
	}
	p, ok := r.providers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrCodeProviderUnsupported,
			"unsupported AI provider %q", name)
	}
	return p, nil
}

// Default returns the name of the configured default provider.
func (r *Registry) Default() string { return r.def }

// ProviderWith returns the named provider with optional per-request credential
// and model overrides.  Empty overrides yield the shared configured instance;
// a non-empty override builds a throwaway client so request-scoped keys never
// leak into long-lived state.
func (r *Registry) ProviderWith(name, apiKey, model string) (Provider, error) {
	if apiKey == "" && model == "" {
		return r.Provider(name)
	}
	if name == "" {
		name = r.def
	}
	override := func(base config.ProviderConfig) config.ProviderConfig {
		if apiKey != "" {
			base.APIKey = apiKey
		}
		if model != "" {
			base.Model = model
		}
		return base
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "openai":
		return NewOpenAIProvider(override(r.cfg.OpenAI), r.cfg.RequestTimeout, r.logger), nil
	case "gemini":
		return NewGeminiProvider(override(r.cfg.Gemini), r.cfg.RequestTimeout, r.logger), nil
	case "ollama":
		return NewOllamaProvider(override(r.cfg.Ollama), r.cfg.OllamaTimeout, r.logger), nil
	default:
		return nil, apperrors.Newf(apperrors.ErrCodeProviderUnsupported,
			"unsupported AI provider %q", name)
	}
}

// newHTTPClient builds the shared transport used by all providers.  The
// timeout covers the whole round trip including body read.
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// classifyTransportError maps a failed round trip onto the AI_* taxonomy.
func classifyTransportError(provider string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) ||
		strings.Contains(err.Error(), "Client.Timeout exceeded") {
		return apperrors.Wrap(err, apperrors.ErrCodeProviderTimeout,
			fmt.Sprintf("%s call timed out", provider))
	}
	return apperrors.Wrap(err, apperrors.ErrCodeProviderCallFailed,
		fmt.Sprintf("%s call failed", provider))
}

// classifyStatus maps a non-2xx response onto the AI_* taxonomy.
func classifyStatus(provider string, status int, body string) error {
	detail := fmt.Sprintf("status=%d body=%s", status, truncate(body, 300))
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperrors.Newf(apperrors.ErrCodeProviderAuthFailed,
			"%s rejected the credential", provider).WithDetail(detail)
	case status == http.StatusTooManyRequests:
		return apperrors.Newf(apperrors.ErrCodeProviderRateLimited,
			"%s rate limit exceeded", provider).WithDetail(detail)
	default:
		return apperrors.Newf(apperrors.ErrCodeProviderCallFailed,
			"%s returned an error response", provider).WithDetail(detail)
	}
}

// requireText enforces the non-empty response contract shared by all providers.
func requireText(provider, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperrors.Newf(apperrors.ErrCodeProviderEmptyOutput,
			"%s returned an empty response", provider)
	}
	return text, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
