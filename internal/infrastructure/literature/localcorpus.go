package literature

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	domain "github.com/turtacn/ChemScribe/internal/domain/literature"
	"github.com/turtacn/ChemScribe/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/ChemScribe/pkg/errors"
)

// maxAbstractRunes caps how much of a local file's text enters the digest.
const maxAbstractRunes = 1500

// LocalCorpusFetcher serves the knowledge store of user-uploaded files as a
// literature source.  Parsed file contents are cached; an fsnotify watcher on
// the corpus directory invalidates the cache whenever files change, so
// repeated sessions do not re-parse an unchanged corpus.
type LocalCorpusFetcher struct {
	dir    string
	logger logging.Logger

	mu    sync.Mutex
	cache []domain.Paper // nil means cold

	watcher *fsnotify.Watcher
}

// NewLocalCorpusFetcher constructs the adapter and starts the directory
// watcher.  A missing directory is created; a watcher failure degrades to
// uncached operation rather than failing construction.
func NewLocalCorpusFetcher(dir string, logger logging.Logger) (*LocalCorpusFetcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeCorpusReadFailed,
			"failed to create corpus directory")
	}
	f := &LocalCorpusFetcher{
		dir:    dir,
		logger: logger.Named("literature.local"),
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		f.logger.Warn("corpus watcher unavailable, caching disabled", logging.Err(err))
		return f, nil
	}
	if err := w.Add(dir); err != nil {
		f.logger.Warn("cannot watch corpus directory", logging.Err(err))
		_ = w.Close()
		return f, nil
	}
	f.watcher = w
	go f.watch()
	return f, nil
}

// Close stops the directory watcher.
func (f *LocalCorpusFetcher) Close() error {
	if f.watcher != nil {
		return f.watcher.Close()
	}
	return nil
}

func (f *LocalCorpusFetcher) watch() {
	for {
		select {
		case ev, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				f.invalidate()
			}
		case _, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			f.invalidate()
		}
	}
}

func (f *LocalCorpusFetcher) invalidate() {
	f.mu.Lock()
	f.cache = nil
	f.mu.Unlock()
}

// Source implements Fetcher.
func (f *LocalCorpusFetcher) Source() domain.Source { return domain.SourceLocal }

// Fetch implements Fetcher.  All readable corpus files are returned up to
// limit, ordered by filename so repeated calls are deterministic.  The topic
// is not used for filtering: a local corpus is assumed to be curated by the
// user for the topic at hand.
func (f *LocalCorpusFetcher) Fetch(ctx context.Context, topic string, limit int) ([]domain.Paper, error) {
	f.mu.Lock()
	cached := f.cache
	f.mu.Unlock()

	if f.watcher == nil {
		cached = nil // no invalidation signal, always re-scan
	}
	if cached == nil {
		papers, err := f.scan(ctx)
		if err != nil {
			return nil, err
		}
		f.mu.Lock()
		f.cache = papers
		f.mu.Unlock()
		cached = papers
	}

	if limit > 0 && len(cached) > limit {
		cached = cached[:limit]
	}
	if len(cached) == 0 {
		return nil, nil
	}
	out := make([]domain.Paper, len(cached))
	copy(out, cached)
	return out, nil
}

// scan parses every supported file in the corpus directory.  Files are parsed
// in parallel; a file that should parse and does not aborts the whole
// retrieval, so the digest never silently misses uploaded content.
func (f *LocalCorpusFetcher) scan(ctx context.Context) ([]domain.Paper, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeCorpusReadFailed,
			"failed to read corpus directory")
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".txt", ".docx", ".pdf":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	papers := make([]domain.Paper, len(names))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			text, err := f.extractText(filepath.Join(f.dir, name))
			if err != nil {
				return apperrors.Wrap(err, apperrors.ErrCodeSourceParseError,
					"failed to parse corpus file").
					WithDetail("file=" + name)
			}
			papers[i] = domain.Paper{
				Title:    strings.TrimSuffix(name, filepath.Ext(name)),
				Abstract: clipRunes(text, maxAbstractRunes),
				Source:   domain.SourceLocal,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if apperrors.IsCode(err, apperrors.ErrCodeSourceParseError) {
			return nil, err
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeCorpusReadFailed,
			"corpus scan cancelled")
	}
	return papers, nil
}

// extractText pulls plain text out of a corpus file.  PDF content extraction
// is not supported; such files contribute their filename only, which still
// anchors the digest to the user's chosen documents.
func (f *LocalCorpusFetcher) extractText(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	case ".docx":
		return extractDocxText(path)
	default:
		return "", nil
	}
}

var xmlTag = regexp.MustCompile(`<[^>]*>`)

// extractDocxText reads word/document.xml from the docx container and strips
// markup.  Paragraph boundaries become newlines.
func extractDocxText(path string) (string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return "", err
	}
	defer r.Close()

	for _, file := range r.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", err
		}
		defer rc.Close()

		var sb strings.Builder
		buf := make([]byte, 64<<10)
		for {
			n, err := rc.Read(buf)
			sb.Write(buf[:n])
			if err != nil {
				break
			}
		}
		text := strings.ReplaceAll(sb.String(), "</w:p>", "\n")
		text = xmlTag.ReplaceAllString(text, "")
		text = strings.ReplaceAll(text, "&amp;", "&")
		text = strings.ReplaceAll(text, "&lt;", "<")
		text = strings.ReplaceAll(text, "&gt;", ">")
		return strings.TrimSpace(text), nil
	}
	return "", nil
}

func clipRunes(s string, n int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= n {
		return string(runes)
	}
	return string(runes[:n]) + "..."
}
