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

// openaiProvider talks to the OpenAI chat-completions endpoint.
type openaiProvider struct {
	cfg     config.ProviderConfig
	client  *http.Client
	timeout time.Duration
	logger  logging.Logger
}

// NewOpenAIProvider constructs the OpenAI-backed Provider.
func NewOpenAIProvider(cfg config.ProviderConfig, timeout time.Duration, logger logging.Logger) Provider {
	return &openaiProvider{
		cfg:     cfg,
		client:  newHTTPClient(timeout),
		timeout: timeout,
		logger:  logger.Named("ai.openai"),
	}
}

func (p *openaiProvider) Name() string { return "openai" }

type openaiRequest struct {
	Model    string          `json:"model"`
	Messages []openaiMessage `json:"messages"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *openaiProvider) GenerateText(ctx context.Context, prompt string) (string, error) {
	if p.cfg.APIKey == "" {
		return "", apperrors.New(apperrors.ErrCodeProviderAuthFailed,
			"openai API key is not configured")
	}

	body, err := json.Marshal(openaiRequest{
		Model: p.cfg.Model,
		Messages: []openaiMessage{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeSerialization, "failed to encode openai request")
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	url := strings.TrimRight(p.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeProviderCallFailed, "failed to build openai request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return "", classifyTransportError("openai", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeProviderCallFailed, "failed to read openai response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus("openai", resp.StatusCode, string(raw))
	}

	var parsed openaiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeSerialization, "failed to decode openai response")
	}
	if parsed.Error != nil {
		return "", apperrors.New(apperrors.ErrCodeProviderCallFailed, "openai reported an error").
			WithDetail(parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", apperrors.New(apperrors.ErrCodeProviderEmptyOutput, "openai returned no choices")
	}

	p.logger.Debug("openai completion",
		logging.String("model", p.cfg.Model),
		logging.Duration("elapsed", time.Since(start)),
		logging.Int("prompt_bytes", len(prompt)))

	return requireText("openai", parsed.Choices[0].Message.Content)
}
