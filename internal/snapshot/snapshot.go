// Package snapshot loads read-only corpus snapshots: document records paired
// 1:1 with the rows of a vector index.
package snapshot

import (
	"fmt"
	"time"

	"github.com/nightcity/oracle/internal/domain"
	"github.com/nightcity/oracle/internal/domain/document"
	"github.com/nightcity/oracle/internal/vectorindex"
)

// Snapshot is an immutable corpus: records[i] describes index row i.
type Snapshot struct {
	corpus   domain.CorpusName
	records  []document.Record
	index    *vectorindex.Flat
	loadedAt time.Time
}

// New pairs records with an index. Length mismatch and duplicate IDs are rejected.
func New(corpus domain.CorpusName, records []document.Record, index *vectorindex.Flat) (*Snapshot, error) {
	if index == nil {
		return nil, fmt.Errorf("corpus %s: index is required: %w", corpus, domain.ErrSnapshotMismatch)
	}
	if len(records) != index.Len() {
		return nil, fmt.Errorf("corpus %s: %d records, %d vectors: %w",
			corpus, len(records), index.Len(), domain.ErrSnapshotMismatch)
	}
	seen := make(map[string]struct{}, len(records))
	for i := range records {
		id := records[i].ID()
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("corpus %s: duplicate document id %q: %w",
				corpus, id, domain.ErrMalformedSnapshot)
		}
		seen[id] = struct{}{}
	}
	return &Snapshot{corpus: corpus, records: records, index: index, loadedAt: time.Now()}, nil
}

// Corpus returns the corpus name.
func (s *Snapshot) Corpus() domain.CorpusName { return s.corpus }

// Len returns the number of documents.
func (s *Snapshot) Len() int { return len(s.records) }

// Dim returns the vector dimension.
func (s *Snapshot) Dim() int { return s.index.Dim() }

// LoadedAt returns when the snapshot was constructed.
func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

// Record returns the document at an index position. Out-of-range positions
// (including vectorindex.NoPosition) report false.
func (s *Snapshot) Record(pos int) (document.Record, bool) {
	if pos < 0 || pos >= len(s.records) {
		return document.Record{}, false
	}
	return s.records[pos], true
}

// Search runs a nearest-neighbour query against the snapshot's index.
func (s *Snapshot) Search(query []float32, k int) ([]vectorindex.Hit, error) {
	hits, err := s.index.Search(query, k)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", s.corpus, err)
	}
	return hits, nil
}

// Vocabulary returns every distinct entity mention across the corpus.
func (s *Snapshot) Vocabulary() domain.EntitySet {
	vocab := make(domain.EntitySet)
	for i := range s.records {
		for m := range s.records[i].Entities() {
			vocab[m] = struct{}{}
		}
	}
	return vocab
}
