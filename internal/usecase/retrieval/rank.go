package retrieval

import (
	"sort"

	"github.com/nightcity/oracle/internal/domain"
	"github.com/nightcity/oracle/internal/domain/document"
)

// Default fusion weights and limits.
const (
	DefaultTopK        = 7
	DefaultMaxResults  = 4
	DefaultTypeBoost   = 0.2
	DefaultEntityBoost = 0.05
)

// Candidate is one vector hit awaiting fusion.
type Candidate struct {
	Corpus        domain.CorpusName
	VectorRank    int
	Record        document.Record
	RawDistance   float64
	EntityOverlap int
	TypeMatch     bool
}

// Weights are the distance reductions applied during fusion. Both are non-negative.
type Weights struct {
	TypeBoost           float64
	EntityBoostPerMatch float64
}

// DefaultWeights returns the standard fusion weights.
func DefaultWeights() Weights {
	return Weights{TypeBoost: DefaultTypeBoost, EntityBoostPerMatch: DefaultEntityBoost}
}

// Scored is a candidate with its fused score. Lower is better.
type Scored struct {
	Candidate
	Final float64
}

// Score fuses the raw distance with the lexical signals.
func (w Weights) Score(c *Candidate) float64 {
	final := c.RawDistance
	if c.TypeMatch {
		final -= w.TypeBoost
	}
	return final - w.EntityBoostPerMatch*float64(c.EntityOverlap)
}

// Rank scores candidates and returns at most limit of them, ascending by
// final score. Equal scores keep the input order.
func Rank(candidates []Candidate, w Weights, limit int) []Scored {
	if len(candidates) == 0 || limit <= 0 {
		return nil
	}

	scored := make([]Scored, len(candidates))
	for i := range candidates {
		scored[i] = Scored{Candidate: candidates[i], Final: w.Score(&candidates[i])}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Final < scored[j].Final
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}
