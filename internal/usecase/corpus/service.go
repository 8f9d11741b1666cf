package corpus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nightcity/oracle/internal/domain"
	"github.com/nightcity/oracle/internal/metrics"
	"github.com/nightcity/oracle/internal/snapshot"
)

// Status reports one configured corpus.
type Status struct {
	Corpus    domain.CorpusName
	Loaded    bool
	Documents int
	Dimension int
	LoadedAt  time.Time
}

// Service loads configured corpus snapshots into the registry.
type Service struct {
	registry  Registry
	sources   map[domain.CorpusName]snapshot.Source
	load      Loader
	listeners []Listener
	logger    *zap.Logger
}

// New creates a corpus service. load defaults to snapshot.Load.
func New(registry Registry, sources []snapshot.Source, logger *zap.Logger) *Service {
	m := make(map[domain.CorpusName]snapshot.Source, len(sources))
	for _, s := range sources {
		m[s.Corpus] = s
	}
	return &Service{registry: registry, sources: m, load: snapshot.Load, logger: logger}
}

// WithLoader overrides how snapshots are read.
func (s *Service) WithLoader(load Loader) *Service {
	s.load = load
	return s
}

// WithListener registers a callback run after each publish.
func (s *Service) WithListener(l Listener) *Service {
	s.listeners = append(s.listeners, l)
	return s
}

// LoadAll loads every configured corpus concurrently. A corpus that fails is
// logged and left out of routing; the others still load. Returns how many loaded.
func (s *Service) LoadAll(ctx context.Context) int {
	results := make(chan *snapshot.Snapshot, len(s.sources))

	g, gctx := errgroup.WithContext(ctx)
	for _, src := range s.sources {
		g.Go(func() error {
			snap, err := s.loadOne(gctx, src)
			if err != nil {
				return nil // contained: other corpora keep loading
			}
			results <- snap
			return nil
		})
	}
	_ = g.Wait()
	close(results)

	loaded := 0
	for snap := range results {
		s.registry.Publish(snap)
		loaded++
	}
	if loaded > 0 {
		s.notify()
	}
	return loaded
}

// Reload re-reads one corpus and swaps it in. On failure the previous
// snapshot, if any, keeps serving.
func (s *Service) Reload(ctx context.Context, corpus domain.CorpusName) error {
	src, ok := s.sources[corpus]
	if !ok {
		return fmt.Errorf("%s: no snapshot source configured: %w", corpus, domain.ErrCorpusUnavailable)
	}
	snap, err := s.loadOne(ctx, src)
	if err != nil {
		return err
	}
	s.registry.Publish(snap)
	s.notify()
	return nil
}

// ReloadAll reloads every configured corpus; failures are joined.
func (s *Service) ReloadAll(ctx context.Context) error {
	var errs []error
	for _, c := range domain.KnownCorpora {
		if _, ok := s.sources[c]; !ok {
			continue
		}
		if err := s.Reload(ctx, c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Statuses lists every configured corpus with its live snapshot, in routing order.
func (s *Service) Statuses() []Status {
	var out []Status
	for _, c := range domain.KnownCorpora {
		if _, ok := s.sources[c]; !ok {
			continue
		}
		st := Status{Corpus: c}
		if snap, err := s.registry.Get(c); err == nil {
			st.Loaded = true
			st.Documents = snap.Len()
			st.Dimension = snap.Dim()
			st.LoadedAt = snap.LoadedAt()
		}
		out = append(out, st)
	}
	return out
}

func (s *Service) loadOne(ctx context.Context, src snapshot.Source) (*snapshot.Snapshot, error) {
	start := time.Now()
	snap, err := s.safeLoad(ctx, src)
	if err != nil {
		metrics.CorpusLoadsTotal.WithLabelValues(string(src.Corpus), "error").Inc()
		s.logger.Error("Corpus unavailable",
			zap.String("corpus", string(src.Corpus)),
			zap.String("kind", string(src.Kind)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("load %s: %w", src.Corpus, err)
	}

	metrics.CorpusLoadsTotal.WithLabelValues(string(src.Corpus), "success").Inc()
	metrics.CorpusDocuments.WithLabelValues(string(src.Corpus)).Set(float64(snap.Len()))
	s.logger.Info("Corpus loaded",
		zap.String("corpus", string(src.Corpus)),
		zap.Int("documents", snap.Len()),
		zap.Int("dimensions", snap.Dim()),
		zap.Duration("duration", time.Since(start)),
	)
	return snap, nil
}

// safeLoad turns a loader panic into ErrMalformedSnapshot so one bad
// snapshot only takes its own corpus offline.
func (s *Service) safeLoad(ctx context.Context, src snapshot.Source) (snap *snapshot.Snapshot, err error) {
	defer func() {
		if r := recover(); r != nil {
			snap = nil
			err = fmt.Errorf("loader panic: %v: %w", r, domain.ErrMalformedSnapshot)
		}
	}()
	return s.load(ctx, src)
}

func (s *Service) notify() {
	snaps := s.registry.Snapshots()
	for _, l := range s.listeners {
		l(snaps)
	}
}
