package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/turtacn/ChemScribe/internal/config"
	"github.com/turtacn/ChemScribe/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/ChemScribe/pkg/errors"
)

// ollamaProvider talks to a local Ollama daemon via /api/generate.  Local
// inference is slow, so it carries its own (much longer) timeout.
type ollamaProvider struct {
	cfg     config.ProviderConfig
	client  *http.Client
	timeout time.Duration
	logger  logging.Logger
}

// NewOllamaProvider constructs the Ollama-backed Provider.
func NewOllamaProvider(cfg config.ProviderConfig, timeout time.Duration, logger logging.Logger) Provider {
	return &ollamaProvider{
		cfg:     cfg,
		client:  newHTTPClient(timeout),
		timeout: timeout,
		logger:  logger.Named("ai.ollama"),
	}
}

func (p *ollamaProvider) Name() string { return "ollama" }

// normalizeOllamaURL tolerates user-supplied daemon addresses with or without
// a scheme and with trailing slashes.
func normalizeOllamaURL(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return ""
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return strings.TrimRight(base, "/")
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

func (p *ollamaProvider) GenerateText(ctx context.Context, prompt string) (string, error) {
	base := normalizeOllamaURL(p.cfg.BaseURL)
	if base == "" {
		return "", apperrors.New(apperrors.ErrCodeProviderAuthFailed,
			"ollama base URL is not configured")
	}

	body, err := json.Marshal(ollamaRequest{
		Model:  p.cfg.Model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeSerialization, "failed to encode ollama request")
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeProviderCallFailed, "failed to build ollama request")
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return "", classifyTransportError("ollama", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeProviderCallFailed, "failed to read ollama response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus("ollama", resp.StatusCode, string(raw))
	}

	var parsed ollamaResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeSerialization, "failed to decode ollama response")
	}
	if parsed.Error != "" {
		return "", apperrors.New(apperrors.ErrCodeProviderCallFailed, "ollama reported an error").
			WithDetail(parsed.Error)
	}

	p.logger.Debug("ollama completion",
		logging.String("model", p.cfg.Model),
		logging.Duration("elapsed", time.Since(start)))

	return requireText("ollama", parsed.Response)
}
