package literature

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	domain "github.com/turtacn/ChemScribe/internal/domain/literature"
	"github.com/turtacn/ChemScribe/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/ChemScribe/pkg/errors"
)

// SemanticScholarFetcher queries the Semantic Scholar Graph API paper search.
type SemanticScholarFetcher struct {
	baseURL string
	client  *http.Client
	logger  logging.Logger
}

// NewSemanticScholarFetcher constructs the adapter.
func NewSemanticScholarFetcher(baseURL string, timeout time.Duration, logger logging.Logger) *SemanticScholarFetcher {
	return &SemanticScholarFetcher{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.Named("literature.semantic_scholar"),
	}
}

// Source implements Fetcher.
func (f *SemanticScholarFetcher) Source() domain.Source { return domain.SourceSemanticScholar }

type s2SearchResponse struct {
	Total int `json:"total"`
	Data  []struct {
		Title    string `json:"title"`
		Abstract string `json:"abstract"`
		Year     int    `json:"year"`
		URL      string `json:"url"`
		Venue    string `json:"venue"`
		Authors  []struct {
			Name string `json:"name"`
		} `json:"authors"`
	} `json:"data"`
}

// Fetch implements Fetcher.
func (f *SemanticScholarFetcher) Fetch(ctx context.Context, topic string, limit int) ([]domain.Paper, error) {
	q := url.Values{}
	q.Set("query", topic)
	q.Set("limit", fmt.Sprintf("%d", limit))
	q.Set("fields", "title,abstract,year,authors,url,venue")

	endpoint := f.baseURL + "/paper/search?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeSourceUnavailable,
			"failed to build semantic scholar request")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeSourceUnavailable,
			"semantic scholar is unreachable")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeSourceUnavailable,
			"failed to read semantic scholar response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.Newf(apperrors.ErrCodeSourceUnavailable,
			"semantic scholar returned status %d", resp.StatusCode)
	}

	var parsed s2SearchResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeSourceParseError,
			"failed to decode semantic scholar response")
	}

	papers := make([]domain.Paper, 0, len(parsed.Data))
	for _, d := range parsed.Data {
		p := domain.Paper{
			Title:    d.Title,
			Abstract: d.Abstract,
			Year:     d.Year,
			URL:      d.URL,
			Venue:    d.Venue,
			Source:   domain.SourceSemanticScholar,
		}
		for _, a := range d.Authors {
			p.Authors = append(p.Authors, a.Name)
		}
		papers = append(papers, p)
	}

	f.logger.Info("semantic scholar search complete",
		logging.String("topic", topic),
		logging.Int("returned", len(papers)),
		logging.Int("total", parsed.Total))
	if len(papers) == 0 {
		return nil, nil
	}
	return papers, nil
}
