package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nightcity/oracle/internal/config"
	dbRedis "github.com/nightcity/oracle/internal/db/redis"
	"github.com/nightcity/oracle/internal/domain"
	"github.com/nightcity/oracle/internal/entity"
	"github.com/nightcity/oracle/internal/metrics"
	"github.com/nightcity/oracle/internal/registry"
	"github.com/nightcity/oracle/internal/repository/embcache"
	"github.com/nightcity/oracle/internal/snapshot"
	openaiTransport "github.com/nightcity/oracle/internal/transport/openai"
	corpusuc "github.com/nightcity/oracle/internal/usecase/corpus"
	embeddinguc "github.com/nightcity/oracle/internal/usecase/embedding"
	healthuc "github.com/nightcity/oracle/internal/usecase/health"
	retrievaluc "github.com/nightcity/oracle/internal/usecase/retrieval"
)

// app is the composition root shared by serve, query and corpora.
type app struct {
	store     *dbRedis.Store
	registry  *registry.Registry
	corpora   *corpusuc.Service
	retrieval *retrievaluc.Service
	health    *healthuc.Service
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterRetrievalMetrics()

	a := &app{registry: registry.New()}

	if cfg.Cache.Enabled() {
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:           cfg.Cache.Addrs,
			Username:        cfg.Cache.Username,
			Password:        cfg.Cache.Password,
			DB:              cfg.Cache.DB,
			TLS:             cfg.Cache.TLS,
			ClientSideCache: cfg.Cache.ClientSideCache,
		})
		if err != nil {
			return nil, fmt.Errorf("create cache store: %w", err)
		}
		timeout := time.Duration(cfg.Cache.ReadinessTimeout) * time.Second
		if err := store.WaitForReady(ctx, timeout); err != nil {
			store.Close()
			return nil, fmt.Errorf("cache not ready: %w", err)
		}
		logger.Info("Connected to embedding cache", zap.Strings("addrs", cfg.Cache.Addrs))
		a.store = store
	}

	embedder := buildEmbedder(cfg, a.store, logger)
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Bool("cache", a.store != nil),
	)

	a.corpora = corpusuc.New(a.registry, sources(cfg.Corpora), logger)

	extractor := buildExtractor(cfg, a.corpora, logger)

	a.retrieval = retrievaluc.New(a.registry, embedder, extractor, retrievaluc.Config{
		TopK: cfg.Retrieval.TopK,
		Weights: retrievaluc.Weights{
			TypeBoost:           *cfg.Retrieval.TypeBoost,
			EntityBoostPerMatch: *cfg.Retrieval.EntityBoost,
		},
		Timeout: cfg.Retrieval.Timeout(),
	})

	// Interfaces must stay nil, not hold a nil *Store.
	var cache healthuc.CachePinger
	if a.store != nil {
		cache = a.store
	}
	a.health = healthuc.New(cache, embedder, a.corpora)

	loaded := a.corpora.LoadAll(ctx)
	logger.Info("Corpora loaded", zap.Int("loaded", loaded), zap.Int("configured", len(cfg.Corpora)))

	return a, nil
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close()
	}
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction.
func buildEmbedder(cfg config.Config, store *dbRedis.Store, logger *zap.Logger) *domain.InstructionEmbedder {
	ec := cfg.Embedding

	var embedder domain.Embedder = openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:         ec.APIKey,
		BaseURL:        ec.BaseURL,
		Model:          ec.Model,
		Dimensions:     ec.Dimensions,
		SendDimensions: ec.SendDimensions,
		Provider:       ec.Provider,
		Logger:         logger,
	})

	if store != nil {
		embedder = embcache.New(embedder, store, embcache.Options{
			Namespace:  ec.Model,
			Dimensions: ec.Dimensions,
			TTL:        time.Duration(cfg.Cache.TTLSec) * time.Second,
		}, metrics.EmbeddingCacheTotal, logger)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(
		embedder, ec.Provider, ec.Model,
		embeddinguc.NewLimiter(ec.RateLimit, ec.RateBurst), logger,
	)

	// Outermost so the cache key includes the instruction.
	return domain.NewInstructionEmbedder(embedder, ec.QueryInstruction)
}

// buildExtractor returns nil when entity matching is disabled. The gazetteer
// rebuilds its dictionary whenever the corpus set changes.
func buildExtractor(cfg config.Config, corpora *corpusuc.Service, logger *zap.Logger) retrievaluc.EntityExtractor {
	switch cfg.Entities.Extractor {
	case config.ExtractorLLM:
		logger.Info("Entity extractor: llm", zap.String("model", cfg.Entities.Model))
		return openaiTransport.NewEntityExtractor(&openaiTransport.ExtractorConfig{
			APIKey:  cfg.Entities.APIKey,
			BaseURL: cfg.Entities.BaseURL,
			Model:   cfg.Entities.Model,
			Logger:  logger,
		})
	case config.ExtractorNone:
		logger.Info("Entity extractor disabled")
		return nil
	default:
		g := entity.NewGazetteer(nil)
		corpora.WithListener(func(snaps []*snapshot.Snapshot) {
			g.Rebuild(snaps)
			logger.Info("Gazetteer rebuilt", zap.Int("phrases", g.Size()))
		})
		return g
	}
}

func sources(corpora []config.CorpusConfig) []snapshot.Source {
	out := make([]snapshot.Source, len(corpora))
	for i, c := range corpora {
		out[i] = snapshot.Source{
			Corpus:   domain.CorpusName(c.Name),
			Kind:     snapshot.Kind(c.Kind),
			Records:  c.Records,
			Vectors:  c.Vectors,
			TypeMap:  c.TypeMap,
			Entities: c.Entities,
			Path:     c.Path,
		}
	}
	return out
}
