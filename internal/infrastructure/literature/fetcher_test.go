package literature

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/turtacn/ChemScribe/internal/domain/literature"
	"github.com/turtacn/ChemScribe/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/ChemScribe/pkg/errors"
)

func TestSemanticScholarFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/paper/search", r.URL.Path)
		assert.Equal(t, "deep eutectic solvents", r.URL.Query().Get("query"))
		assert.Equal(t, "3", r.URL.Query().Get("limit"))
		w.Write([]byte(`{"total":2,"data":[
			{"title":"DES review","abstract":"An overview.","year":2022,"url":"https://example.org/1",
			 "authors":[{"name":"A. Rivera"},{"name":"B. Chen"}]},
			{"title":"DES electrochemistry","year":2023,"authors":[]}
		]}`))
	}))
	defer srv.Close()

	f := NewSemanticScholarFetcher(srv.URL, 5*time.Second, logging.NewNopLogger())
	papers, err := f.Fetch(context.Background(), "deep eutectic solvents", 3)
	require.NoError(t, err)
	require.Len(t, papers, 2)
	assert.Equal(t, "DES review", papers[0].Title)
	assert.Equal(t, []string{"A. Rivera", "B. Chen"}, papers[0].Authors)
	assert.Equal(t, 2022, papers[0].Year)
	assert.Equal(t, domain.SourceSemanticScholar, papers[1].Source)
}

func TestSemanticScholarFetcher_EmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"total":0,"data":[]}`))
	}))
	defer srv.Close()

	f := NewSemanticScholarFetcher(srv.URL, 5*time.Second, logging.NewNopLogger())
	papers, err := f.Fetch(context.Background(), "nonexistence", 5)
	require.NoError(t, err)
	assert.Nil(t, papers)
}

func TestSemanticScholarFetcher_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := NewSemanticScholarFetcher(srv.URL, 5*time.Second, logging.NewNopLogger())
	_, err := f.Fetch(context.Background(), "x", 5)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeSourceUnavailable))
}

func TestArxivFetcher(t *testing.T) {
	feed := `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2401.00001</id>
    <title>Carbon capture
      with MOFs</title>
    <summary>  We study
      adsorption.  </summary>
    <published>2024-01-02T00:00:00Z</published>
    <author><name>C. Diaz</name></author>
  </entry>
</feed>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "all:MOFs", r.URL.Query().Get("search_query"))
		w.Write([]byte(feed))
	}))
	defer srv.Close()

	f := NewArxivFetcher(srv.URL, 5*time.Second, logging.NewNopLogger())
	papers, err := f.Fetch(context.Background(), "MOFs", 5)
	require.NoError(t, err)
	require.Len(t, papers, 1)
	assert.Equal(t, "Carbon capture with MOFs", papers[0].Title)
	assert.Equal(t, "We study adsorption.", papers[0].Abstract)
	assert.Equal(t, 2024, papers[0].Year)
	assert.Equal(t, []string{"C. Diaz"}, papers[0].Authors)
}

func TestArxivFetcher_ParseError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<feed><entry><title>broken`))
	}))
	defer srv.Close()

	f := NewArxivFetcher(srv.URL, 5*time.Second, logging.NewNopLogger())
	_, err := f.Fetch(context.Background(), "x", 5)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeSourceParseError))
}

func writeDocx(t *testing.T, path, body string) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<w:document><w:body><w:p><w:r><w:t>` + body + `</w:t></w:r></w:p></w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
}

func TestLocalCorpusFetcher(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("Ionic liquids are tunable."), 0o600))
	writeDocx(t, filepath.Join(dir, "review.docx"), "Deep eutectic solvents resemble ionic liquids.")

	f, err := NewLocalCorpusFetcher(dir, logging.NewNopLogger())
	require.NoError(t, err)
	defer f.Close()

	papers, err := f.Fetch(context.Background(), "ionic liquids", 10)
	require.NoError(t, err)
	require.Len(t, papers, 2)
	// Deterministic filename order.
	assert.Equal(t, "notes", papers[0].Title)
	assert.Equal(t, "Ionic liquids are tunable.", papers[0].Abstract)
	assert.Equal(t, "review", papers[1].Title)
	assert.Contains(t, papers[1].Abstract, "Deep eutectic solvents")
	assert.Equal(t, domain.SourceLocal, papers[0].Source)
}

func TestLocalCorpusFetcher_CorruptFileAbortsFetch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good.txt"), []byte("Readable notes."), 0o600))
	// Not a zip container; docx extraction must fail.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.docx"), []byte("garbage bytes"), 0o600))

	f, err := NewLocalCorpusFetcher(dir, logging.NewNopLogger())
	require.NoError(t, err)
	defer f.Close()

	papers, err := f.Fetch(context.Background(), "anything", 10)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeSourceParseError))
	assert.Nil(t, papers)

	// The readable file alone does not rescue a corpus with a broken member.
	assert.Contains(t, err.Error(), "broken.docx")
}

func TestLocalCorpusFetcher_EmptyDirectory(t *testing.T) {
	f, err := NewLocalCorpusFetcher(t.TempDir(), logging.NewNopLogger())
	require.NoError(t, err)
	defer f.Close()

	papers, err := f.Fetch(context.Background(), "anything", 10)
	require.NoError(t, err)
	assert.Nil(t, papers)
}

func TestLocalCorpusFetcher_RespectsLimit(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("text"), 0o600))
	}
	f, err := NewLocalCorpusFetcher(dir, logging.NewNopLogger())
	require.NoError(t, err)
	defer f.Close()

	papers, err := f.Fetch(context.Background(), "x", 2)
	require.NoError(t, err)
	assert.Len(t, papers, 2)
}

func TestRetriever(t *testing.T) {
	dir := t.TempDir()
	local, err := NewLocalCorpusFetcher(dir, logging.NewNopLogger())
	require.NoError(t, err)
	defer local.Close()

	r := NewRetriever(local)

	t.Run("empty corpus produces marker digest", func(t *testing.T) {
		d, err := r.Retrieve(context.Background(), "MOFs for carbon capture", domain.SourceLocal, 5)
		require.NoError(t, err)
		assert.True(t, d.Empty())
		assert.Equal(t, domain.NoLiteratureFound, d.Text)
	})

	t.Run("unregistered source", func(t *testing.T) {
		_, err := r.Retrieve(context.Background(), "x", domain.SourceArxiv, 5)
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeSourceUnsupported))
	})
}
