package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nightcity/oracle/internal/domain"
	"github.com/nightcity/oracle/internal/domain/search/request"
	"github.com/nightcity/oracle/internal/entity"
	"github.com/nightcity/oracle/internal/registry"
	"github.com/nightcity/oracle/internal/snapshot"
	corpusuc "github.com/nightcity/oracle/internal/usecase/corpus"
	healthuc "github.com/nightcity/oracle/internal/usecase/health"
	retrievaluc "github.com/nightcity/oracle/internal/usecase/retrieval"
)

// Internal interfaces for substitution in tests.
type retrievalUseCase interface {
	Answer(ctx context.Context, req *request.Request) (retrievaluc.Answer, error)
}

type corpusUseCase interface {
	Statuses() []corpusuc.Status
	Reload(ctx context.Context, corpus domain.CorpusName) error
	ReloadAll(ctx context.Context) error
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Client answers questions against in-process corpus snapshots.
// It is safe for concurrent use; Reload swaps snapshots without blocking Ask.
type Client struct {
	retrieval  retrievalUseCase
	corpora    corpusUseCase
	health     healthUseCase
	maxResults int
	obs        *observer
}

// New loads the configured corpora and returns a ready Client.
// Corpora that fail to load are skipped; New fails only when none loads.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.embedder == nil {
		return nil, errors.New("oracle: embedder required (use WithEmbedder)")
	}
	if len(cfg.sources) == 0 {
		return nil, errors.New("oracle: at least one corpus required (use WithFileCorpus or WithSQLiteCorpus)")
	}
	seen := make(map[domain.CorpusName]bool, len(cfg.sources))
	for _, src := range cfg.sources {
		if !src.Corpus.IsValid() {
			return nil, fmt.Errorf("oracle: unknown corpus %q", src.Corpus)
		}
		if seen[src.Corpus] {
			return nil, fmt.Errorf("oracle: corpus %q configured twice", src.Corpus)
		}
		seen[src.Corpus] = true
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	c, corpora := wireClient(cfg, obs)
	start := time.Now()
	loaded := corpora.LoadAll(ctx)
	if loaded == 0 {
		err = fmt.Errorf("oracle: no corpus could be loaded: %w", domain.ErrCorpusUnavailable)
	}
	obs.observe("load", start, err, "loaded", loaded)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func wireClient(cfg *clientConfig, obs *observer) (*Client, *corpusuc.Service) {
	reg := registry.New()
	log := zap.NewNop()

	corpora := corpusuc.New(reg, cfg.sources, log)
	if cfg.loader != nil {
		corpora = corpora.WithLoader(cfg.loader)
	}

	var extractor retrievaluc.EntityExtractor
	switch {
	case cfg.noEntity:
	case cfg.extractor != nil:
		extractor = &extractorAdapter{inner: cfg.extractor}
	default:
		g := entity.NewGazetteer(nil)
		corpora.WithListener(func(snaps []*snapshot.Snapshot) { g.Rebuild(snaps) })
		extractor = g
	}

	rcfg := retrievaluc.DefaultConfig()
	if cfg.topK > 0 {
		rcfg.TopK = cfg.topK
	}
	if cfg.typeBoost != nil {
		rcfg.Weights.TypeBoost = *cfg.typeBoost
	}
	if cfg.entityBoost != nil {
		rcfg.Weights.EntityBoostPerMatch = *cfg.entityBoost
	}
	if cfg.timeout > 0 {
		rcfg.Timeout = cfg.timeout
	}

	return &Client{
		retrieval:  retrievaluc.New(reg, &embedderAdapter{inner: cfg.embedder}, extractor, rcfg),
		corpora:    corpora,
		health:     healthuc.New(nil, nil, corpora),
		maxResults: cfg.maxResults,
		obs:        obs,
	}, corpora
}

// Ask classifies the question, searches the matching corpora and returns
// the ranked supporting documents.
func (c *Client) Ask(ctx context.Context, question string, opts ...AskOption) (ans Answer, err error) {
	start := time.Now()
	defer func() { c.obs.observe("ask", start, err, "results", len(ans.Results)) }()

	ac := askConfig{limit: c.maxResults}
	for _, o := range opts {
		o(&ac)
	}

	req, err := request.New(question, ac.corpora, ac.limit)
	if err != nil {
		return Answer{}, fmt.Errorf("ask: %w", err)
	}
	out, err := c.retrieval.Answer(ctx, &req)
	if err != nil {
		return Answer{}, fmt.Errorf("ask: %w", err)
	}

	ans = Answer{Intent: string(out.Intent), Results: make([]Result, len(out.Results))}
	for i := range out.Results {
		r := &out.Results[i]
		ans.Results[i] = Result{Title: r.Title(), Summary: r.Summary(), Score: r.Score()}
	}
	return ans, nil
}

// Corpora reports every configured corpus in routing order.
func (c *Client) Corpora() []CorpusStatus {
	statuses := c.corpora.Statuses()
	out := make([]CorpusStatus, len(statuses))
	for i, st := range statuses {
		out[i] = CorpusStatus{
			Name:       string(st.Corpus),
			Loaded:     st.Loaded,
			Documents:  st.Documents,
			Dimensions: st.Dimension,
			LoadedAt:   st.LoadedAt,
		}
	}
	return out
}

// Reload re-reads one corpus from its source and swaps it in atomically.
// On failure the previous snapshot keeps serving.
func (c *Client) Reload(ctx context.Context, corpus string) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("reload", start, err, "corpus", corpus) }()

	if err = c.corpora.Reload(ctx, domain.CorpusName(corpus)); err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	return nil
}

// ReloadAll reloads every configured corpus; failures are joined.
func (c *Client) ReloadAll(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("reload_all", start, err) }()

	if err = c.corpora.ReloadAll(ctx); err != nil {
		return fmt.Errorf("reload all: %w", err)
	}
	return nil
}

// Health reports which corpora are serving.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.health.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{Status: string(report.Status), Checks: checks}
}
