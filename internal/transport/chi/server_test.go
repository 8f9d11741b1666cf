package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/nightcity/oracle/internal/domain"
	"github.com/nightcity/oracle/internal/domain/document"
	"github.com/nightcity/oracle/internal/registry"
	"github.com/nightcity/oracle/internal/snapshot"
	corpusuc "github.com/nightcity/oracle/internal/usecase/corpus"
	healthuc "github.com/nightcity/oracle/internal/usecase/health"
	retrievaluc "github.com/nightcity/oracle/internal/usecase/retrieval"
	"github.com/nightcity/oracle/internal/vectorindex"
)

// --- Mocks ---

type stubEmbedder struct {
	err error
}

func (s *stubEmbedder) Embed(ctx context.Context, _ string) (domain.EmbeddingResult, error) {
	if s.err != nil {
		return domain.EmbeddingResult{}, s.err
	}
	domain.UsageFromContext(ctx).AddTokens(3)
	return domain.EmbeddingResult{Embedding: []float32{0, 0}, TotalTokens: 3}, nil
}

func loreSnapshot(t *testing.T) *snapshot.Snapshot {
	t.Helper()
	titles := []string{"Night City", "Arasaka", "Afterlife"}
	records := make([]document.Record, len(titles))
	rows := make([][]float32, len(titles))
	for i, title := range titles {
		rec, err := document.New(title, title, "About "+title, "location", nil)
		if err != nil {
			t.Fatalf("document.New: %v", err)
		}
		records[i] = rec
		rows[i] = []float32{float32(i + 1), 0}
	}
	idx, err := vectorindex.NewFlat(2, rows)
	if err != nil {
		t.Fatalf("NewFlat: %v", err)
	}
	snap, err := snapshot.New(domain.CorpusLore, records, idx)
	if err != nil {
		t.Fatalf("snapshot.New: %v", err)
	}
	return snap
}

type testEnv struct {
	handler    http.Handler
	registry   *registry.Registry
	loadErr    error
	loadsCalls int
}

func newTestEnv(t *testing.T, embed retrievaluc.Embedder, apiKeys ...string) *testEnv {
	t.Helper()
	env := &testEnv{registry: registry.New()}
	env.registry.Publish(loreSnapshot(t))

	sources := []snapshot.Source{
		{Corpus: domain.CorpusLore, Kind: snapshot.KindFile},
		{Corpus: domain.CorpusSlang, Kind: snapshot.KindFile},
	}
	corpora := corpusuc.New(env.registry, sources, zap.NewNop()).
		WithLoader(func(_ context.Context, src snapshot.Source) (*snapshot.Snapshot, error) {
			env.loadsCalls++
			if env.loadErr != nil {
				return nil, env.loadErr
			}
			if src.Corpus != domain.CorpusLore {
				return nil, domain.ErrCorpusUnavailable
			}
			return loreSnapshot(t), nil
		})

	retrieval := retrievaluc.New(env.registry, embed, nil, retrievaluc.DefaultConfig())
	health := healthuc.New(nil, nil, corpora)

	server := NewServer(retrieval, corpora, health, zap.NewNop())
	env.handler = NewRouter(server, zap.NewNop(), apiKeys)
	return env
}

func (e *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rr.Body.String())
	}
	return v
}

// --- Query ---

func TestQueryGet_ReturnsRankedResults(t *testing.T) {
	env := newTestEnv(t, &stubEmbedder{})

	rr := env.do(t, http.MethodGet, "/v1/query?q=where+is+the+Afterlife&limit=2", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200 (body %s)", rr.Code, rr.Body.String())
	}
	resp := decode[QueryResponse](t, rr)
	if resp.Intent != "location" {
		t.Errorf("intent: got %q, want location", resp.Intent)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("results: got %d, want 2", len(resp.Results))
	}
	if resp.Results[0].Title != "Night City" || resp.Results[1].Title != "Arasaka" {
		t.Errorf("unexpected order: %+v", resp.Results)
	}
	if resp.Results[0].Score > resp.Results[1].Score {
		t.Errorf("scores not ascending: %+v", resp.Results)
	}
	if got := rr.Header().Get("X-Embedding-Tokens"); got != "3" {
		t.Errorf("X-Embedding-Tokens: got %q, want 3", got)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestQueryGet_CorpusParameter(t *testing.T) {
	env := newTestEnv(t, &stubEmbedder{})

	// slang is not loaded, so forcing it yields nothing.
	rr := env.do(t, http.MethodGet, "/v1/query?q=who+is+Johnny&corpus=slang", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	resp := decode[QueryResponse](t, rr)
	if resp.Results == nil || len(resp.Results) != 0 {
		t.Errorf("expected empty results array, got %+v", resp.Results)
	}
}

func TestSplitList(t *testing.T) {
	got := splitList([]string{"lore,slang", " timeline ", ","})
	want := []string{"lore", "slang", "timeline"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("[%d]: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestQueryGet_BadParameters(t *testing.T) {
	env := newTestEnv(t, &stubEmbedder{})

	tests := []struct {
		name   string
		target string
		code   ErrorCode
	}{
		{"missing q", "/v1/query", CodeBadRequest},
		{"non-numeric limit", "/v1/query?q=who&limit=many", CodeBadRequest},
		{"unknown corpus", "/v1/query?q=who&corpus=braindance", CodeValidationFailed},
		{"negative limit", "/v1/query?q=who&limit=-1", CodeValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodGet, tt.target, "")
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status: got %d, want 400", rr.Code)
			}
			if got := decode[ErrorResponse](t, rr); got.Code != tt.code {
				t.Errorf("code: got %s, want %s", got.Code, tt.code)
			}
		})
	}
}

func TestQueryPost(t *testing.T) {
	env := newTestEnv(t, &stubEmbedder{})

	rr := env.do(t, http.MethodPost, "/v1/query", `{"query":"Tell me about Night City","corpora":["lore"],"limit":1}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200 (body %s)", rr.Code, rr.Body.String())
	}
	resp := decode[QueryResponse](t, rr)
	if resp.Intent != "general" {
		t.Errorf("intent: got %q, want general", resp.Intent)
	}
	if len(resp.Results) != 1 || resp.Results[0].Title != "Night City" {
		t.Errorf("unexpected results: %+v", resp.Results)
	}
}

func TestQueryPost_InvalidBody(t *testing.T) {
	env := newTestEnv(t, &stubEmbedder{})

	for _, body := range []string{`{`, `{"query":"x","extra":1}`} {
		rr := env.do(t, http.MethodPost, "/v1/query", body)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("body %s: got %d, want 400", body, rr.Code)
		}
	}
}

func TestQueryPost_EmptyQuery(t *testing.T) {
	env := newTestEnv(t, &stubEmbedder{})

	rr := env.do(t, http.MethodPost, "/v1/query", `{"query":"   "}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rr.Code)
	}
	if got := decode[ErrorResponse](t, rr); got.Code != CodeValidationFailed {
		t.Errorf("code: got %s", got.Code)
	}
}

func TestQuery_EmbeddingFailureIsEmptySuccess(t *testing.T) {
	env := newTestEnv(t, &stubEmbedder{err: errors.New("provider down")})

	rr := env.do(t, http.MethodGet, "/v1/query?q=where+is+Arasaka", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if resp := decode[QueryResponse](t, rr); len(resp.Results) != 0 {
		t.Errorf("expected no results, got %+v", resp.Results)
	}
	if got := rr.Header().Get("X-Embedding-Tokens"); got != "" {
		t.Errorf("unexpected X-Embedding-Tokens %q", got)
	}
}

// --- Corpora ---

func TestListCorpora(t *testing.T) {
	env := newTestEnv(t, &stubEmbedder{})

	rr := env.do(t, http.MethodGet, "/v1/corpora", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	resp := decode[CorpusListResponse](t, rr)
	if len(resp.Items) != 2 {
		t.Fatalf("items: got %d, want 2", len(resp.Items))
	}
	lore, slang := resp.Items[0], resp.Items[1]
	if lore.Name != "lore" || !lore.Loaded || lore.Documents != 3 || lore.Dimensions != 2 || lore.LoadedAt == nil {
		t.Errorf("unexpected lore item: %+v", lore)
	}
	if slang.Name != "slang" || slang.Loaded || slang.LoadedAt != nil {
		t.Errorf("unexpected slang item: %+v", slang)
	}
}

func TestReloadCorpus(t *testing.T) {
	env := newTestEnv(t, &stubEmbedder{})

	rr := env.do(t, http.MethodPost, "/v1/corpora/lore/reload", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, want 204 (body %s)", rr.Code, rr.Body.String())
	}
	if env.loadsCalls != 1 {
		t.Errorf("loader calls: got %d, want 1", env.loadsCalls)
	}
}

func TestReloadCorpus_Errors(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		loadErr error
		status  int
		code    ErrorCode
	}{
		{"unknown name", "/v1/corpora/braindance/reload", nil, http.StatusNotFound, CodeCorpusUnavailable},
		{"not configured", "/v1/corpora/timeline/reload", nil, http.StatusNotFound, CodeCorpusUnavailable},
		{"mismatched snapshot", "/v1/corpora/lore/reload", domain.ErrSnapshotMismatch, http.StatusUnprocessableEntity, CodeSnapshotInvalid},
		{"io failure", "/v1/corpora/lore/reload", errors.New("disk on fire"), http.StatusInternalServerError, CodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, &stubEmbedder{})
			env.loadErr = tt.loadErr

			rr := env.do(t, http.MethodPost, tt.path, "")
			if rr.Code != tt.status {
				t.Fatalf("status: got %d, want %d", rr.Code, tt.status)
			}
			got := decode[ErrorResponse](t, rr)
			if got.Code != tt.code {
				t.Errorf("code: got %s, want %s", got.Code, tt.code)
			}
			if strings.Contains(got.Message, "disk on fire") {
				t.Errorf("internal detail leaked: %q", got.Message)
			}
			// Previous snapshot keeps serving.
			if _, err := env.registry.Get(domain.CorpusLore); err != nil {
				t.Errorf("lore snapshot lost: %v", err)
			}
		})
	}
}

// --- Health & misc ---

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t, &stubEmbedder{})

	rr := env.do(t, http.MethodGet, "/health", "")
	// slang is configured but not loaded.
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	resp := decode[HealthResponse](t, rr)
	if resp.Status != string(healthuc.Degraded) {
		t.Errorf("status: got %q, want degraded", resp.Status)
	}
	if resp.Checks["corpus:lore"] != "ok" || resp.Checks["corpus:slang"] != "error" {
		t.Errorf("unexpected checks: %v", resp.Checks)
	}
}

func TestHealthCheck_NoCorpus503(t *testing.T) {
	env := newTestEnv(t, &stubEmbedder{})
	env.registry.Remove(domain.CorpusLore)

	rr := env.do(t, http.MethodGet, "/health", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: got %d, want 503", rr.Code)
	}
}

func TestRouter_AuthAppliesToAPI(t *testing.T) {
	env := newTestEnv(t, &stubEmbedder{}, "secret")

	if rr := env.do(t, http.MethodGet, "/v1/corpora", ""); rr.Code != http.StatusUnauthorized {
		t.Errorf("without key: got %d, want 401", rr.Code)
	}
	if rr := env.do(t, http.MethodGet, "/health", ""); rr.Code != http.StatusOK {
		t.Errorf("health without key: got %d, want 200", rr.Code)
	}
}

func TestRouter_NotFoundIsJSON(t *testing.T) {
	env := newTestEnv(t, &stubEmbedder{})

	rr := env.do(t, http.MethodGet, "/v1/braindances", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type: got %q", ct)
	}
}

func TestRecoverer(t *testing.T) {
	h := Recoverer(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("flatlined")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/query", http.NoBody))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want 500", rr.Code)
	}
	if got := decode[ErrorResponse](t, rr); got.Code != CodeInternalError {
		t.Errorf("code: got %s", got.Code)
	}
}
