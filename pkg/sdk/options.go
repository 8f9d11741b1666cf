package oracle

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nightcity/oracle/internal/domain"
	"github.com/nightcity/oracle/internal/snapshot"
	corpusuc "github.com/nightcity/oracle/internal/usecase/corpus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	sources []snapshot.Source

	embedder  Embedder
	extractor EntityExtractor
	noEntity  bool

	topK        int
	maxResults  int
	typeBoost   *float64
	entityBoost *float64
	timeout     time.Duration

	logger     *slog.Logger
	metricsReg prometheus.Registerer

	// loader replaces snapshot.Load in tests.
	loader corpusuc.Loader
}

// FileSnapshot names the files of a snapshot in the records + vectors layout.
// TypeMap and Entities are optional sidecars keyed by document title.
type FileSnapshot struct {
	Records  string
	Vectors  string
	TypeMap  string
	Entities string
}

// WithFileCorpus adds a corpus stored as a records JSON plus a binary vector blob.
func WithFileCorpus(name string, files FileSnapshot) Option {
	return optionFunc(func(c *clientConfig) {
		c.sources = append(c.sources, snapshot.Source{
			Corpus:   domain.CorpusName(name),
			Kind:     snapshot.KindFile,
			Records:  files.Records,
			Vectors:  files.Vectors,
			TypeMap:  files.TypeMap,
			Entities: files.Entities,
		})
	})
}

// WithSQLiteCorpus adds a corpus stored in a single SQLite file.
func WithSQLiteCorpus(name, path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.sources = append(c.sources, snapshot.Source{
			Corpus: domain.CorpusName(name),
			Kind:   snapshot.KindSQLite,
			Path:   path,
		})
	})
}

// WithEmbedder sets the query embedding provider. Required.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithEntityExtractor replaces the built-in gazetteer, which matches
// questions against the entity vocabulary of the loaded corpora.
func WithEntityExtractor(x EntityExtractor) Option {
	return optionFunc(func(c *clientConfig) {
		c.extractor = x
	})
}

// WithoutEntityMatching disables the entity overlap boost.
func WithoutEntityMatching() Option {
	return optionFunc(func(c *clientConfig) {
		c.noEntity = true
	})
}

// WithTopK sets how many neighbours are fetched per corpus. Default: 7.
func WithTopK(k int) Option {
	return optionFunc(func(c *clientConfig) {
		c.topK = k
	})
}

// WithMaxResults sets the default answer size. Default: 4, at most 20.
func WithMaxResults(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxResults = n
	})
}

// WithBoosts sets the type-match boost and the per-entity boost
// subtracted from the vector distance. Defaults: 0.2 and 0.05.
func WithBoosts(typeMatch, perEntity float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.typeBoost = &typeMatch
		c.entityBoost = &perEntity
	})
}

// WithTimeout bounds one Ask call. Default: 10s.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.timeout = d
	})
}

// WithLogger enables structured logging for client operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers client metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}

// AskOption narrows a single question.
type AskOption func(*askConfig)

type askConfig struct {
	corpora []domain.CorpusName
	limit   int
}

// InCorpora searches only the named corpora instead of the intent routing.
func InCorpora(names ...string) AskOption {
	return func(a *askConfig) {
		for _, n := range names {
			a.corpora = append(a.corpora, domain.CorpusName(n))
		}
	}
}

// Limit caps the number of results for this question.
func Limit(n int) AskOption {
	return func(a *askConfig) {
		a.limit = n
	}
}
