// Package literature provides the domain model for retrieved research papers
// and the digest that feeds the AI summarization stage.
package literature

import (
	"fmt"
	"strings"

	"github.com/turtacn/ChemScribe/pkg/errors"
)

// Source identifies where a paper was retrieved from.
type Source string

const (
	// SourceSemanticScholar is the Semantic Scholar Graph API.
	SourceSemanticScholar Source = "semantic_scholar"
	// SourceArxiv is the arXiv Atom export API.
	SourceArxiv Source = "arxiv"
	// SourceLocal is the local knowledge store of uploaded files.
	SourceLocal Source = "local"
)

// ParseSource converts a string into a Source, rejecting unknown values.
func ParseSource(s string) (Source, error) {
	switch Source(strings.ToLower(strings.TrimSpace(s))) {
	case SourceSemanticScholar:
		return SourceSemanticScholar, nil
	case SourceArxiv:
		return SourceArxiv, nil
	case SourceLocal:
		return SourceLocal, nil
	default:
		return "", errors.Newf(errors.ErrCodeSourceUnsupported, "unknown literature source %q", s)
	}
}

// Paper is a single retrieved document.  Fields other than Title may be empty
// depending on what the source exposes.
type Paper struct {
	Title    string   `json:"title"`
	Authors  []string `json:"authors,omitempty"`
	Year     int      `json:"year,omitempty"`
	Abstract string   `json:"abstract,omitempty"`
	URL      string   `json:"url,omitempty"`
	Venue    string   `json:"venue,omitempty"`
	Source   Source   `json:"source"`
}

// NoLiteratureFound is the digest marker used when retrieval returned zero
// papers.  Downstream prompts include it verbatim so the model knows it must
// reason from general knowledge rather than the (absent) retrieved context.
const NoLiteratureFound = "No relevant literature was found for this topic."

// Digest is the plain-text condensation of retrieved papers handed to the AI
// summarization stage, together with the papers it was built from.
type Digest struct {
	Topic  string  `json:"topic"`
	Source Source  `json:"source"`
	Papers []Paper `json:"papers"`
	Text   string  `json:"text"`

	// Summary is the AI-produced condensation of Text, filled in by the
	// summarization stage.  For the no-literature marker it equals Text.
	Summary string `json:"summary,omitempty"`
}

// Empty reports whether the digest carries the no-literature marker.
func (d Digest) Empty() bool {
	return len(d.Papers) == 0
}

// NewDigest builds the Digest for a topic from retrieved papers.  A nil or
// empty paper slice produces the NoLiteratureFound marker text; this is a
// normal outcome, not an error.
func NewDigest(topic string, source Source, papers []Paper) Digest {
	d := Digest{Topic: topic, Source: source, Papers: papers}
	if len(papers) == 0 {
		d.Text = NoLiteratureFound
		return d
	}
	var sb strings.Builder
	for i, p := range papers {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "Paper %d: %s", i+1, p.Title)
		if len(p.Authors) > 0 {
			fmt.Fprintf(&sb, "\nAuthors: %s", strings.Join(p.Authors, ", "))
		}
		if p.Year > 0 {
			fmt.Fprintf(&sb, "\nYear: %d", p.Year)
		}
		if p.Abstract != "" {
			fmt.Fprintf(&sb, "\nAbstract: %s", p.Abstract)
		}
	}
	d.Text = sb.String()
	return d
}
