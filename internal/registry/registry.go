// Package registry owns the live corpus snapshots. Reads are lock-free; a
// publish swaps in a new immutable map so in-flight searches keep the pair
// they started with.
package registry

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/nightcity/oracle/internal/domain"
	"github.com/nightcity/oracle/internal/snapshot"
)

type corpusMap map[domain.CorpusName]*snapshot.Snapshot

// Registry maps corpus names to their current snapshot.
type Registry struct {
	mu      sync.Mutex // serialises writers only
	current atomic.Pointer[corpusMap]
}

// New creates an empty registry.
func New() *Registry {
	r := &Registry{}
	empty := corpusMap{}
	r.current.Store(&empty)
	return r
}

// Get returns the snapshot for a corpus, or ErrCorpusUnavailable.
func (r *Registry) Get(corpus domain.CorpusName) (*snapshot.Snapshot, error) {
	snap, ok := (*r.current.Load())[corpus]
	if !ok {
		return nil, fmt.Errorf("%s: %w", corpus, domain.ErrCorpusUnavailable)
	}
	return snap, nil
}

// Publish atomically replaces the snapshot for snap.Corpus().
func (r *Registry) Publish(snap *snapshot.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.clone()
	next[snap.Corpus()] = snap
	r.current.Store(&next)
}

// Remove drops a corpus; later lookups report it unavailable.
func (r *Registry) Remove(corpus domain.CorpusName) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.clone()
	delete(next, corpus)
	r.current.Store(&next)
}

// Snapshots returns the loaded snapshots in routing order.
func (r *Registry) Snapshots() []*snapshot.Snapshot {
	m := *r.current.Load()
	out := make([]*snapshot.Snapshot, 0, len(m))
	for _, c := range domain.KnownCorpora {
		if s, ok := m[c]; ok {
			out = append(out, s)
		}
	}
	return out
}

func (r *Registry) clone() corpusMap {
	cur := *r.current.Load()
	next := make(corpusMap, len(cur)+1)
	for k, v := range cur {
		next[k] = v
	}
	return next
}
