// Package entity finds known entity mentions in free text by dictionary
// lookup against the vocabulary of the loaded corpora.
package entity

import (
	"context"
	"strings"
	"sync/atomic"
	"unicode"

	"github.com/nightcity/oracle/internal/domain"
	"github.com/nightcity/oracle/internal/metrics"
	"github.com/nightcity/oracle/internal/snapshot"
)

const extractorName = "gazetteer"

// dictionary indexes mention token sequences by their first token.
type dictionary struct {
	byFirst map[string][]phrase
}

type phrase struct {
	tokens  []string
	mention string
}

// Gazetteer matches whole-word phrases from a swappable vocabulary.
// Safe for concurrent use; Rebuild swaps the dictionary atomically.
type Gazetteer struct {
	dict atomic.Pointer[dictionary]
}

// NewGazetteer creates a gazetteer over an initial vocabulary.
func NewGazetteer(vocab domain.EntitySet) *Gazetteer {
	g := &Gazetteer{}
	g.dict.Store(build(vocab))
	return g
}

// Rebuild replaces the vocabulary with the union of the snapshots' entities.
// Its signature matches the corpus service listener.
func (g *Gazetteer) Rebuild(snaps []*snapshot.Snapshot) {
	vocab := make(domain.EntitySet)
	for _, s := range snaps {
		for m := range s.Vocabulary() {
			vocab[m] = struct{}{}
		}
	}
	g.dict.Store(build(vocab))
}

// Size returns the number of known mentions.
func (g *Gazetteer) Size() int {
	n := 0
	for _, ps := range g.dict.Load().byFirst {
		n += len(ps)
	}
	return n
}

// Extract returns every known mention appearing in text on word boundaries.
// Overlapping candidates resolve to the longest phrase starting first.
func (g *Gazetteer) Extract(_ context.Context, text string) (domain.EntitySet, error) {
	d := g.dict.Load()
	found := make(domain.EntitySet)
	tokens := tokenize(text)

	for i := 0; i < len(tokens); {
		best := 0
		var match string
		for _, p := range d.byFirst[tokens[i]] {
			n := len(p.tokens)
			if n <= best || i+n > len(tokens) || !equalTokens(p.tokens, tokens[i:i+n]) {
				continue
			}
			best, match = n, p.mention
		}
		if best == 0 {
			i++
			continue
		}
		found[match] = struct{}{}
		i += best
	}

	metrics.EntityExtractionsTotal.WithLabelValues(extractorName, "success").Inc()
	return found, nil
}

func build(vocab domain.EntitySet) *dictionary {
	d := &dictionary{byFirst: make(map[string][]phrase, len(vocab))}
	for m := range vocab {
		toks := tokenize(m)
		if len(toks) == 0 {
			continue
		}
		d.byFirst[toks[0]] = append(d.byFirst[toks[0]], phrase{tokens: toks, mention: m})
	}
	return d
}

// tokenize lowercases and splits on anything that is not a letter or digit.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func equalTokens(a, b []string) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
