package oracle

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/nightcity/oracle/internal/domain"
	"github.com/nightcity/oracle/internal/domain/document"
	"github.com/nightcity/oracle/internal/snapshot"
	"github.com/nightcity/oracle/internal/vectorindex"
)

// --- Mocks ---

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}

func originEmbedder() *mockEmbedder {
	return &mockEmbedder{fn: func(context.Context, string) (EmbeddingResult, error) {
		return EmbeddingResult{Embedding: []float32{0, 0}, TotalTokens: 4}, nil
	}}
}

type mockExtractor struct {
	mentions []string
	err      error
}

func (m *mockExtractor) Extract(context.Context, string) ([]string, error) {
	return m.mentions, m.err
}

type fixtureDoc struct {
	title    string
	tag      string
	entities []string
	x        float32
}

var fixtures = map[domain.CorpusName][]fixtureDoc{
	domain.CorpusLore: {
		{title: "Arasaka Tower", tag: "location", x: 0.6},
		{title: "Samurai", tag: "organization", entities: []string{"Johnny Silverhand", "Kerry Eurodyne"}, x: 0.6},
		{title: "Johnny Silverhand", tag: "character", entities: []string{"Johnny Silverhand"}, x: 0.7},
	},
	domain.CorpusSlang: {
		{title: "Preem", tag: "concept", x: 0.5},
		{title: "Choom", tag: "concept", x: 0.8},
	},
}

// withLoader builds snapshots from fixtures instead of reading files.
func withLoader(failing *atomic.Bool) Option {
	return optionFunc(func(c *clientConfig) {
		c.loader = func(_ context.Context, src snapshot.Source) (*snapshot.Snapshot, error) {
			if failing != nil && failing.Load() {
				return nil, errors.New("disk unplugged")
			}
			docs, ok := fixtures[src.Corpus]
			if !ok {
				return nil, domain.ErrCorpusUnavailable
			}
			records := make([]document.Record, len(docs))
			rows := make([][]float32, len(docs))
			for i, d := range docs {
				rec, err := document.New(d.title, d.title, "About "+d.title, d.tag, d.entities)
				if err != nil {
					return nil, err
				}
				records[i] = rec
				rows[i] = []float32{d.x, 0}
			}
			idx, err := vectorindex.NewFlat(2, rows)
			if err != nil {
				return nil, err
			}
			return snapshot.New(src.Corpus, records, idx)
		}
	})
}

func newTestClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	base := []Option{
		WithEmbedder(originEmbedder()),
		WithFileCorpus("lore", FileSnapshot{Records: "lore.json", Vectors: "lore.bin"}),
		WithSQLiteCorpus("slang", "slang.db"),
		withLoader(nil),
	}
	c, err := New(context.Background(), append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

// --- New ---

func TestNew_Validation(t *testing.T) {
	lore := WithSQLiteCorpus("lore", "lore.db")
	tests := []struct {
		name string
		opts []Option
	}{
		{"no embedder", []Option{lore, withLoader(nil)}},
		{"no corpus", []Option{WithEmbedder(originEmbedder())}},
		{"unknown corpus", []Option{WithEmbedder(originEmbedder()), WithSQLiteCorpus("braindance", "x.db")}},
		{"duplicate corpus", []Option{WithEmbedder(originEmbedder()), lore, lore}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(context.Background(), tt.opts...); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNew_NothingLoaded(t *testing.T) {
	var failing atomic.Bool
	failing.Store(true)

	_, err := New(context.Background(),
		WithEmbedder(originEmbedder()),
		WithSQLiteCorpus("lore", "lore.db"),
		withLoader(&failing),
	)
	if !errors.Is(err, ErrCorpusUnavailable) {
		t.Fatalf("expected ErrCorpusUnavailable, got %v", err)
	}
}

func TestNew_PartialLoad(t *testing.T) {
	c := newTestClient(t, WithSQLiteCorpus("timeline", "timeline.db"))

	statuses := c.Corpora()
	if len(statuses) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(statuses))
	}
	if statuses[1].Name != "timeline" || statuses[1].Loaded {
		t.Errorf("timeline should be configured but not loaded: %+v", statuses[1])
	}
	if h := c.Health(context.Background()); h.Status != "degraded" || h.Checks["corpus:timeline"] != "error" {
		t.Errorf("unexpected health: %+v", h)
	}
}

// --- Ask ---

func TestAsk_GazetteerEntityBoost(t *testing.T) {
	c := newTestClient(t)

	ans, err := c.Ask(context.Background(), "Who played in a band with Kerry Eurodyne and Johnny Silverhand?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if ans.Intent != "person" {
		t.Errorf("intent: got %q, want person", ans.Intent)
	}
	if len(ans.Results) != 3 {
		t.Fatalf("expected 3 lore results, got %d", len(ans.Results))
	}
	// Samurai: 0.36 - 2*0.05; Johnny: 0.49 - 0.2 - 0.05; Arasaka Tower: 0.36.
	want := []string{"Johnny Silverhand", "Samurai", "Arasaka Tower"}
	for i, title := range want {
		if ans.Results[i].Title != title {
			t.Errorf("result %d: got %q, want %q", i, ans.Results[i].Title, title)
		}
	}
}

func TestAsk_CustomExtractorAndBoosts(t *testing.T) {
	c := newTestClient(t,
		WithEntityExtractor(&mockExtractor{mentions: []string{"KERRY EURODYNE"}}),
		WithBoosts(0, 0.5),
	)

	ans, err := c.Ask(context.Background(), "Tell me about that rockerboy")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if len(ans.Results) == 0 || ans.Results[0].Title != "Samurai" {
		t.Fatalf("expected Samurai first, got %+v", ans.Results)
	}
}

func TestAsk_ExtractorErrorIgnored(t *testing.T) {
	c := newTestClient(t, WithEntityExtractor(&mockExtractor{err: errors.New("llm down")}))

	ans, err := c.Ask(context.Background(), "Where is Arasaka Tower?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if len(ans.Results) == 0 || ans.Results[0].Title != "Arasaka Tower" {
		t.Errorf("expected Arasaka Tower first, got %+v", ans.Results)
	}
}

func TestAsk_Options(t *testing.T) {
	c := newTestClient(t, WithoutEntityMatching(), WithMaxResults(1))

	ans, err := c.Ask(context.Background(), "What does it mean?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if len(ans.Results) != 1 {
		t.Fatalf("WithMaxResults: expected 1 result, got %d", len(ans.Results))
	}

	ans, err = c.Ask(context.Background(), "What does it mean?", InCorpora("slang"), Limit(5))
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if len(ans.Results) != 2 || ans.Results[0].Title != "Preem" {
		t.Errorf("expected slang only, got %+v", ans.Results)
	}
}

func TestAsk_InvalidQuestion(t *testing.T) {
	c := newTestClient(t)

	if _, err := c.Ask(context.Background(), "  "); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("expected ErrInvalidQuery, got %v", err)
	}
	if _, err := c.Ask(context.Background(), "who", InCorpora("braindance")); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("expected ErrInvalidQuery for unknown corpus, got %v", err)
	}
}

func TestAsk_EmbeddingFailureIsEmpty(t *testing.T) {
	c := newTestClient(t, WithEmbedder(&mockEmbedder{fn: func(context.Context, string) (EmbeddingResult, error) {
		return EmbeddingResult{}, errors.New("quota")
	}}))

	ans, err := c.Ask(context.Background(), "Who is Johnny Silverhand?")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(ans.Results) != 0 {
		t.Errorf("expected empty answer, got %+v", ans.Results)
	}
}

// --- Reload ---

func TestReload(t *testing.T) {
	var failing atomic.Bool
	c := newTestClient(t, withLoader(&failing))

	before := c.Corpora()[0].LoadedAt
	if err := c.Reload(context.Background(), "lore"); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if after := c.Corpora()[0].LoadedAt; after.Before(before) {
		t.Errorf("LoadedAt went backwards: %v -> %v", before, after)
	}

	failing.Store(true)
	if err := c.Reload(context.Background(), "lore"); err == nil {
		t.Fatal("expected reload error")
	}
	if !c.Corpora()[0].Loaded {
		t.Error("failed reload dropped the serving snapshot")
	}
	if err := c.ReloadAll(context.Background()); err == nil {
		t.Error("expected ReloadAll error")
	}
	if err := c.Reload(context.Background(), "timeline"); !errors.Is(err, ErrCorpusUnavailable) {
		t.Errorf("expected ErrCorpusUnavailable for unconfigured corpus, got %v", err)
	}
}

// --- Observability ---

func TestPrometheus_CountsOperations(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := newTestClient(t, WithPrometheus(reg))

	if _, err := c.Ask(context.Background(), "Who is Johnny Silverhand?"); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	_, _ = c.Ask(context.Background(), "")

	m := c.obs.metrics
	if got := testutil.ToFloat64(m.operations.WithLabelValues("ask", "ok")); got != 1 {
		t.Errorf("ask ok: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.operations.WithLabelValues("ask", "error")); got != 1 {
		t.Errorf("ask error: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.operations.WithLabelValues("load", "ok")); got != 1 {
		t.Errorf("load ok: got %v, want 1", got)
	}
}

func TestPrometheus_SharedRegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := newTestClient(t, WithPrometheus(reg))
	b := newTestClient(t, WithPrometheus(reg))

	if a.obs.metrics.operations != b.obs.metrics.operations {
		t.Error("second client should reuse the registered collectors")
	}
}

func TestObserver_NilIsNoop(t *testing.T) {
	var o *observer
	o.observe("ask", time.Now(), nil)
}
