package domain

import (
	"context"
	"strings"
)

// EntitySet is a set of normalized entity mentions.
type EntitySet map[string]struct{}

// NewEntitySet normalizes and deduplicates the given mentions. Blank mentions are skipped.
func NewEntitySet(mentions ...string) EntitySet {
	s := make(EntitySet, len(mentions))
	for _, m := range mentions {
		if n := NormalizeEntity(m); n != "" {
			s[n] = struct{}{}
		}
	}
	return s
}

// NormalizeEntity lowercases a mention and collapses internal whitespace.
func NormalizeEntity(m string) string {
	return strings.ToLower(strings.Join(strings.Fields(m), " "))
}

// Has reports whether the normalized mention is in the set.
func (s EntitySet) Has(m string) bool {
	_, ok := s[m]
	return ok
}

// Overlap counts the distinct mentions shared with other.
func (s EntitySet) Overlap(other EntitySet) int {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	n := 0
	for m := range small {
		if _, ok := large[m]; ok {
			n++
		}
	}
	return n
}

// Slice returns the mentions in unspecified order.
func (s EntitySet) Slice() []string {
	out := make([]string, 0, len(s))
	for m := range s {
		out = append(out, m)
	}
	return out
}

// EntityExtractor supplies normalized entity mentions for a text.
type EntityExtractor interface {
	Extract(ctx context.Context, text string) (EntitySet, error)
}
