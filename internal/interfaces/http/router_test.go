package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemScribe/internal/application/corpus"
	"github.com/turtacn/ChemScribe/internal/application/workflow"
	"github.com/turtacn/ChemScribe/internal/config"
	domlit "github.com/turtacn/ChemScribe/internal/domain/literature"
	"github.com/turtacn/ChemScribe/internal/domain/molecule"
	"github.com/turtacn/ChemScribe/internal/domain/session"
	"github.com/turtacn/ChemScribe/internal/infrastructure/ai"
	litinfra "github.com/turtacn/ChemScribe/internal/infrastructure/literature"
	"github.com/turtacn/ChemScribe/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemScribe/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ChemScribe/internal/interfaces/http/handlers"
	"github.com/turtacn/ChemScribe/internal/testutil"
	"github.com/turtacn/ChemScribe/pkg/types/common"
)

type fixedFetcher struct {
	papers []domlit.Paper
}

func (f fixedFetcher) Source() domlit.Source { return domlit.SourceSemanticScholar }

func (f fixedFetcher) Fetch(ctx context.Context, topic string, limit int) ([]domlit.Paper, error) {
	return f.papers, nil
}

type singleProviderSource struct {
	p ai.Provider
}

func (s singleProviderSource) ProviderWith(name, apiKey, model string) (ai.Provider, error) {
	return s.p, nil
}

type scriptedAssembler struct{}

func (scriptedAssembler) Assemble(ctx context.Context, s *session.ResearchSession, gen ai.Provider) (*session.DocumentBundle, error) {
	return &session.DocumentBundle{
		ProposalDoc:  []byte("docx"),
		RecipeDoc:    []byte("docx"),
		DataTemplate: []byte("xlsx"),
		ProposalText: s.Proposal.Text,
	}, nil
}

// newTestRouter wires the full route tree over in-memory collaborators.
func newTestRouter(t *testing.T, provider ai.Provider) (http.Handler, *testutil.MemHistory) {
	t.Helper()
	history := testutil.NewMemHistory()
	logger := logging.NewNopLogger()

	svc := workflow.NewService(workflow.Config{}, workflow.Deps{
		Retriever: litinfra.NewRetriever(fixedFetcher{papers: []domlit.Paper{
			{Title: "Zeolite frameworks", Source: domlit.SourceSemanticScholar},
		}}),
		Providers: singleProviderSource{p: provider},
		Validator: testutil.NewStubValidator(molecule.Validate("CCO")),
		Assembler: scriptedAssembler{},
		History:   history,
		Logger:    logger,
	})

	corpusSvc := corpus.NewService(testutil.NewMemStore(), "chemscribe-corpus",
		t.TempDir(), config.UploadConfig{
			MaxSizeBytes: 1 << 20,
			AllowedExts:  []string{".pdf", ".docx", ".txt"},
		}, logger)

	router := NewRouter(RouterConfig{
		Research: handlers.NewResearchHandler(svc, nil, logger),
		Corpus:   handlers.NewCorpusHandler(corpusSvc, logger),
		Health: handlers.NewHealthHandler(map[string]handlers.ReadinessCheck{
			"history": func(ctx context.Context) error { return nil },
		}, logger),
		Metrics: prometheus.NewMetrics(),
		Logger:  logger,
	})
	return router, history
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeSession(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func pipelineProvider() ai.Provider {
	return testutil.NewScriptedProvider("openai",
		testutil.ScriptedReply{Text: "Digest of the literature."},
		testutil.ScriptedReply{Text: "A proposal for zeolite catalysis."},
		testutil.ScriptedReply{Text: "SMILES: CCO\nNAME: Ethanol\nSOURCE: proposed"},
	)
}

func TestAPI_FullPipelineOverHTTP(t *testing.T) {
	router, history := newTestRouter(t, pipelineProvider())

	w := doJSON(t, router, http.MethodPost, "/api/v1/research/generate", map[string]interface{}{
		"topic": "zeolite catalysis",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	view := decodeSession(t, w)
	id := view["id"].(string)
	assert.Equal(t, "proposal_drafted", view["status"])
	assert.Equal(t, float64(1), view["paper_count"])
	require.NotNil(t, view["proposal"])

	w = doJSON(t, router, http.MethodPost,
		fmt.Sprintf("/api/v1/sessions/%s/proposal/approve", id), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	view = decodeSession(t, w)
	assert.Equal(t, "structure_drafted", view["status"])
	candidate := view["candidate"].(map[string]interface{})
	assert.Equal(t, "CCO", candidate["smiles"])
	assert.Equal(t, "Ethanol", candidate["name"])

	w = doJSON(t, router, http.MethodPost,
		fmt.Sprintf("/api/v1/sessions/%s/structure/approve", id), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	view = decodeSession(t, w)
	assert.Equal(t, "documents_ready", view["status"])

	// The snapshot endpoint agrees with the transition response.
	w = doJSON(t, router, http.MethodGet, "/api/v1/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "documents_ready", decodeSession(t, w)["status"])

	// The terminal state is what got persisted.
	stored, err := history.Get(context.Background(), common.ID(id))
	require.NoError(t, err)
	assert.Equal(t, session.StatusDocumentsReady, stored.Status)
}

func TestAPI_GenerateRejectsMissingTopic(t *testing.T) {
	router, _ := newTestRouter(t, pipelineProvider())

	w := doJSON(t, router, http.MethodPost, "/api/v1/research/generate",
		map[string]interface{}{"source": "arxiv"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "COMMON_002")
}

func TestAPI_ProposalRejectRevisesText(t *testing.T) {
	provider := testutil.NewScriptedProvider("openai",
		testutil.ScriptedReply{Text: "Digest."},
		testutil.ScriptedReply{Text: "First draft."},
		testutil.ScriptedReply{Text: "Revised draft with cheaper solvents."},
	)
	router, _ := newTestRouter(t, provider)

	w := doJSON(t, router, http.MethodPost, "/api/v1/research/generate",
		map[string]interface{}{"topic": "solvent screening"})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decodeSession(t, w)["id"].(string)

	w = doJSON(t, router, http.MethodPost,
		fmt.Sprintf("/api/v1/sessions/%s/proposal/reject", id),
		map[string]interface{}{"feedback": "use cheaper solvents"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	view := decodeSession(t, w)
	proposal := view["proposal"].(map[string]interface{})
	assert.Equal(t, "Revised draft with cheaper solvents.", proposal["text"])
	assert.Equal(t, "proposal_drafted", view["status"])
}

func TestAPI_RejectWithoutFeedbackIsBadRequest(t *testing.T) {
	router, _ := newTestRouter(t, pipelineProvider())

	w := doJSON(t, router, http.MethodPost, "/api/v1/research/generate",
		map[string]interface{}{"topic": "zeolite catalysis"})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decodeSession(t, w)["id"].(string)

	w = doJSON(t, router, http.MethodPost,
		fmt.Sprintf("/api/v1/sessions/%s/proposal/reject", id),
		map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPI_UnknownSessionIs404(t *testing.T) {
	router, _ := newTestRouter(t, pipelineProvider())

	w := doJSON(t, router, http.MethodGet, "/api/v1/sessions/no-such-session", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "SES_001")
}

func TestAPI_InvalidTransitionIs409(t *testing.T) {
	router, _ := newTestRouter(t, pipelineProvider())

	w := doJSON(t, router, http.MethodPost, "/api/v1/research/generate",
		map[string]interface{}{"topic": "zeolite catalysis"})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decodeSession(t, w)["id"].(string)

	// Structure approval before proposal approval is out of order.
	w = doJSON(t, router, http.MethodPost,
		fmt.Sprintf("/api/v1/sessions/%s/structure/approve", id), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "SES_002")
}

func TestAPI_HistoryListsAndDeletes(t *testing.T) {
	router, _ := newTestRouter(t, pipelineProvider())

	w := doJSON(t, router, http.MethodPost, "/api/v1/research/generate",
		map[string]interface{}{"topic": "zeolite catalysis"})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decodeSession(t, w)["id"].(string)

	w = doJSON(t, router, http.MethodGet, "/api/v1/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listing struct {
		Count    int `json:"count"`
		Sessions []struct {
			ID    string `json:"id"`
			Topic string `json:"topic"`
		} `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
	require.Equal(t, 1, listing.Count)
	assert.Equal(t, id, listing.Sessions[0].ID)

	w = doJSON(t, router, http.MethodDelete, "/api/v1/history/"+id, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPI_HistoryRejectsBadLimit(t *testing.T) {
	router, _ := newTestRouter(t, pipelineProvider())

	w := doJSON(t, router, http.MethodGet, "/api/v1/history?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPI_CorpusUploadAndList(t *testing.T) {
	router, _ := newTestRouter(t, pipelineProvider())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "review.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("A review of MOF synthesis."))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/corpus/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "review.txt")

	w = doJSON(t, router, http.MethodGet, "/api/v1/corpus/files", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listing struct {
		Count int               `json:"count"`
		Files []corpus.FileInfo `json:"files"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
	require.Equal(t, 1, listing.Count)
	assert.Equal(t, "review.txt", listing.Files[0].Name)
}

func TestAPI_CorpusUploadRejectsUnsupportedType(t *testing.T) {
	router, _ := newTestRouter(t, pipelineProvider())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "payload.exe")
	require.NoError(t, err)
	_, err = fw.Write([]byte("MZ"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/corpus/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "DOC_003")
}

func TestAPI_HealthProbes(t *testing.T) {
	router, _ := newTestRouter(t, pipelineProvider())

	w := doJSON(t, router, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"history":"ok"`)
}

func TestAPI_ReadyzReportsDegradedDependencies(t *testing.T) {
	logger := logging.NewNopLogger()
	router := NewRouter(RouterConfig{
		Research: handlers.NewResearchHandler(nil, nil, logger),
		Corpus:   handlers.NewCorpusHandler(nil, logger),
		Health: handlers.NewHealthHandler(map[string]handlers.ReadinessCheck{
			"postgres": func(ctx context.Context) error {
				return fmt.Errorf("connection refused")
			},
		}, logger),
		Logger: logger,
	})

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "degraded")
}

func TestAPI_RequestIDPropagates(t *testing.T) {
	router, _ := newTestRouter(t, pipelineProvider())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/history", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))

	// A missing ID is minted server side.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/history", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestAPI_MetricsEndpointExposed(t *testing.T) {
	router, _ := newTestRouter(t, pipelineProvider())

	// Generate traffic so the HTTP counters have samples.
	doJSON(t, router, http.MethodGet, "/api/v1/history", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "chemscribe_http_requests_total") ||
		strings.Contains(w.Body.String(), "http_requests_total"))
}
