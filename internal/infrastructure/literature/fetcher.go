// Package literature implements the document-retrieval adapters: Semantic
// Scholar, arXiv and the local knowledge store of uploaded files.  Retrieval
// failures map onto the SRC_* taxonomy; an empty result set is a normal
// outcome handled by the caller via the no-literature digest marker.
package literature

import (
	"context"

	domain "github.com/turtacn/ChemScribe/internal/domain/literature"
	"github.com/turtacn/ChemScribe/pkg/errors"
)

// Fetcher retrieves papers for a topic from one concrete source.
type Fetcher interface {
	// Source identifies which adapter this is.
	Source() domain.Source

	// Fetch returns up to limit papers for the topic.  A nil slice with nil
	// error means the source is healthy but had no matching documents.
	Fetch(ctx context.Context, topic string, limit int) ([]domain.Paper, error)
}

// Retriever selects a Fetcher by source and produces the digest the
// summarization stage consumes.
type Retriever struct {
	fetchers map[domain.Source]Fetcher
}

// NewRetriever builds the source table from concrete fetchers.
func NewRetriever(fetchers ...Fetcher) *Retriever {
	r := &Retriever{fetchers: map[domain.Source]Fetcher{}}
	for _, f := range fetchers {
		r.fetchers[f.Source()] = f
	}
	return r
}

// Retrieve fetches papers for the topic from the named source and wraps them
// in a Digest.  Zero papers yields the no-literature marker digest, not an
// error; only a source failure propagates.
func (r *Retriever) Retrieve(ctx context.Context, topic string, source domain.Source, limit int) (domain.Digest, error) {
	f, ok := r.fetchers[source]
	if !ok {
		return domain.Digest{}, errors.Newf(errors.ErrCodeSourceUnsupported,
			"no fetcher registered for source %q", source)
	}
	papers, err := f.Fetch(ctx, topic, limit)
	if err != nil {
		return domain.Digest{}, err
	}
	return domain.NewDigest(topic, source, papers), nil
}
