package retrieval

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nightcity/oracle/internal/domain"
	"github.com/nightcity/oracle/internal/domain/intent"
	"github.com/nightcity/oracle/internal/domain/search/request"
	"github.com/nightcity/oracle/internal/domain/search/result"
	"github.com/nightcity/oracle/internal/logger"
	"github.com/nightcity/oracle/internal/metrics"
)

// DefaultTimeout bounds one query end to end.
const DefaultTimeout = 10 * time.Second

// Query outcomes reported to metrics.
const (
	outcomeResults        = "results"
	outcomeEmpty          = "empty"
	outcomeTimeout        = "timeout"
	outcomeEmbeddingError = "embedding_error"
)

// Config tunes the pipeline.
type Config struct {
	TopK    int
	Weights Weights
	Timeout time.Duration
}

// DefaultConfig returns the standard retrieval settings.
func DefaultConfig() Config {
	return Config{TopK: DefaultTopK, Weights: DefaultWeights(), Timeout: DefaultTimeout}
}

// Answer is the outcome of one query.
type Answer struct {
	Intent  intent.Intent
	Results []result.Ranked
}

// Service answers queries against the loaded corpora.
type Service struct {
	corpora CorpusReader
	embed   Embedder
	extract EntityExtractor
	cfg     Config
}

// New creates a retrieval service. extract may be nil to disable entity matching.
func New(corpora CorpusReader, embed Embedder, extract EntityExtractor, cfg Config) *Service {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Service{corpora: corpora, embed: embed, extract: extract, cfg: cfg}
}

// Answer runs intent classification, entity extraction, per-corpus vector
// search and fusion. Provider failures and deadline expiry yield an empty
// answer, not an error. Only cancellation by the caller is returned.
func (s *Service) Answer(ctx context.Context, req *request.Request) (Answer, error) {
	start := time.Now()
	in := intent.Classify(req.Text())
	ans := Answer{Intent: in, Results: []result.Ranked{}}
	log := logger.FromContext(ctx).With(zap.String("intent", string(in)))

	outcome := outcomeEmpty
	defer func() {
		metrics.QueriesTotal.WithLabelValues(string(in), outcome).Inc()
		metrics.QueryDuration.WithLabelValues(string(in)).Observe(time.Since(start).Seconds())
	}()

	if err := ctx.Err(); err != nil {
		return ans, fmt.Errorf("answer: %w", err)
	}

	qctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	corpora := req.Corpora()
	if len(corpora) == 0 {
		corpora = in.Corpora()
	}

	entities := s.entities(qctx, req.Text(), log)

	emb, err := s.embed.Embed(qctx, req.Text())
	if err != nil {
		if ctx.Err() != nil {
			return ans, fmt.Errorf("answer: %w", ctx.Err())
		}
		if qctx.Err() != nil {
			outcome = outcomeTimeout
			log.Warn("Query deadline exceeded during embedding", zap.Duration("timeout", s.cfg.Timeout))
			return ans, nil
		}
		outcome = outcomeEmbeddingError
		log.Warn("Query embedding failed", zap.Error(err))
		return ans, nil
	}

	candidates := s.search(qctx, corpora, emb.Embedding, entities, in, log)
	if ctx.Err() != nil {
		return ans, fmt.Errorf("answer: %w", ctx.Err())
	}
	if qctx.Err() != nil {
		outcome = outcomeTimeout
		log.Warn("Query deadline exceeded during search", zap.Duration("timeout", s.cfg.Timeout))
		return ans, nil
	}
	metrics.CandidatesPerQuery.Observe(float64(len(candidates)))

	ans.Results = Assemble(Rank(candidates, s.cfg.Weights, req.Limit()))
	if len(ans.Results) > 0 {
		outcome = outcomeResults
	}
	log.Debug("Query answered",
		zap.Int("entities", len(entities)),
		zap.Int("candidates", len(candidates)),
		zap.Int("results", len(ans.Results)),
	)
	return ans, nil
}

func (s *Service) entities(ctx context.Context, text string, log *zap.Logger) domain.EntitySet {
	if s.extract == nil {
		return domain.EntitySet{}
	}
	ents, err := s.extract.Extract(ctx, text)
	if err != nil {
		log.Warn("Entity extraction failed, continuing without entities", zap.Error(err))
		return domain.EntitySet{}
	}
	if ents == nil {
		return domain.EntitySet{}
	}
	return ents
}

// search fans out over corpora. A corpus that fails contributes nothing;
// the group itself never fails. Candidates come back in corpus order.
func (s *Service) search(
	ctx context.Context, corpora []domain.CorpusName, vec []float32,
	entities domain.EntitySet, in intent.Intent, log *zap.Logger,
) []Candidate {
	perCorpus := make([][]Candidate, len(corpora))

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range corpora {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			cands, err := s.searchCorpus(c, vec, entities, in)
			if err != nil {
				log.Warn("Corpus search skipped", zap.String("corpus", string(c)), zap.Error(err))
				metrics.CorpusSearchErrorsTotal.WithLabelValues(string(c), searchErrorReason(err)).Inc()
				return nil
			}
			perCorpus[i] = cands
			return nil
		})
	}
	_ = g.Wait()

	var out []Candidate
	for _, cands := range perCorpus {
		out = append(out, cands...)
	}
	return out
}

func (s *Service) searchCorpus(
	corpus domain.CorpusName, vec []float32, entities domain.EntitySet, in intent.Intent,
) ([]Candidate, error) {
	snap, err := s.corpora.Get(corpus)
	if err != nil {
		return nil, err
	}
	hits, err := snap.Search(vec, s.cfg.TopK)
	if err != nil {
		return nil, err
	}

	cands := make([]Candidate, 0, len(hits))
	for rank, h := range hits {
		rec, ok := snap.Record(h.Position)
		if !ok {
			continue
		}
		if h.Distance < 0 || math.IsNaN(h.Distance) {
			return nil, fmt.Errorf("%s position %d distance %v: %w",
				corpus, h.Position, h.Distance, domain.ErrInvalidDistance)
		}
		cands = append(cands, Candidate{
			Corpus:        corpus,
			VectorRank:    rank,
			Record:        rec,
			RawDistance:   h.Distance,
			EntityOverlap: entities.Overlap(rec.Entities()),
			TypeMatch:     in.MatchesType(rec.TypeTag()),
		})
	}
	return cands, nil
}

func searchErrorReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrCorpusUnavailable):
		return "unavailable"
	case errors.Is(err, domain.ErrDimensionMismatch):
		return "dimension_mismatch"
	case errors.Is(err, domain.ErrInvalidDistance):
		return "invalid_distance"
	default:
		return "error"
	}
}
