package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/turtacn/ChemScribe/internal/config"
	"github.com/turtacn/ChemScribe/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/ChemScribe/pkg/errors"
)

// geminiProvider talks to the Google Generative Language generateContent
// endpoint.  The API key travels as a query parameter per Google's scheme.
type geminiProvider struct {
	cfg     config.ProviderConfig
	client  *http.Client
	timeout time.Duration
	logger  logging.Logger
}

// NewGeminiProvider constructs the Gemini-backed Provider.
func NewGeminiProvider(cfg config.ProviderConfig, timeout time.Duration, logger logging.Logger) Provider {
	return &geminiProvider{
		cfg:     cfg,
		client:  newHTTPClient(timeout),
		timeout: timeout,
		logger:  logger.Named("ai.gemini"),
	}
}

func (p *geminiProvider) Name() string { return "gemini" }

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (p *geminiProvider) GenerateText(ctx context.Context, prompt string) (string, error) {
	if p.cfg.APIKey == "" {
		return "", apperrors.New(apperrors.ErrCodeProviderAuthFailed,
			"gemini API key is not configured")
	}

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeSerialization, "failed to encode gemini request")
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimRight(p.cfg.BaseURL, "/"), p.cfg.Model, p.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeProviderCallFailed, "failed to build gemini request")
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return "", classifyTransportError("gemini", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeProviderCallFailed, "failed to read gemini response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus("gemini", resp.StatusCode, string(raw))
	}

	var parsed geminiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeSerialization, "failed to decode gemini response")
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", apperrors.New(apperrors.ErrCodeProviderEmptyOutput, "gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}

	p.logger.Debug("gemini completion",
		logging.String("model", p.cfg.Model),
		logging.Duration("elapsed", time.Since(start)))

	return requireText("gemini", sb.String())
}
