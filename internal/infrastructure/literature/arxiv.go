package literature

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	domain "github.com/turtacn/ChemScribe/internal/domain/literature"
	"github.com/turtacn/ChemScribe/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/ChemScribe/pkg/errors"
)

// ArxivFetcher queries the arXiv Atom export API.
type ArxivFetcher struct {
	baseURL string
	client  *http.Client
	logger  logging.Logger
}

// NewArxivFetcher constructs the adapter.
func NewArxivFetcher(baseURL string, timeout time.Duration, logger logging.Logger) *ArxivFetcher {
	return &ArxivFetcher{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.Named("literature.arxiv"),
	}
}

// Source implements Fetcher.
func (f *ArxivFetcher) Source() domain.Source { return domain.SourceArxiv }

type arxivFeed struct {
	XMLName xml.Name     `xml:"feed"`
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	Title     string        `xml:"title"`
	Summary   string        `xml:"summary"`
	Published string        `xml:"published"`
	ID        string        `xml:"id"`
	Authors   []arxivAuthor `xml:"author"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

// Fetch implements Fetcher.
func (f *ArxivFetcher) Fetch(ctx context.Context, topic string, limit int) ([]domain.Paper, error) {
	q := url.Values{}
	q.Set("search_query", "all:"+topic)
	q.Set("start", "0")
	q.Set("max_results", fmt.Sprintf("%d", limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeSourceUnavailable,
			"failed to build arxiv request")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeSourceUnavailable,
			"arxiv is unreachable")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeSourceUnavailable,
			"failed to read arxiv response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.Newf(apperrors.ErrCodeSourceUnavailable,
			"arxiv returned status %d", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.Unmarshal(raw, &feed); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeSourceParseError,
			"failed to decode arxiv feed")
	}

	papers := make([]domain.Paper, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		p := domain.Paper{
			Title:    collapseWhitespace(e.Title),
			Abstract: collapseWhitespace(e.Summary),
			URL:      e.ID,
			Year:     yearFromTimestamp(e.Published),
			Source:   domain.SourceArxiv,
		}
		for _, a := range e.Authors {
			p.Authors = append(p.Authors, a.Name)
		}
		papers = append(papers, p)
	}

	f.logger.Info("arxiv search complete",
		logging.String("topic", topic),
		logging.Int("returned", len(papers)))
	if len(papers) == 0 {
		return nil, nil
	}
	return papers, nil
}

// collapseWhitespace flattens the newline-wrapped text arXiv emits inside
// title and summary elements.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// yearFromTimestamp extracts the year from an RFC 3339 timestamp, returning
// zero on anything unparsable.
func yearFromTimestamp(ts string) int {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return 0
	}
	return t.Year()
}
