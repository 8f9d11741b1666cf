// Package intent routes a raw query to a coarse intent category.
package intent

import (
	"strings"

	"github.com/nightcity/oracle/internal/domain"
)

// Intent is the coarse query category.
type Intent string

// Intent constants.
const (
	Timeline Intent = "timeline"
	Person   Intent = "person"
	Location Intent = "location"
	General  Intent = "general"
)

// rule maps any keyword hit to an intent. Keywords match as substrings of the
// lowercased query, so "whoever" counts as "who".
type rule struct {
	intent   Intent
	keywords []string
}

// rules is checked in order; the first hit wins.
var rules = []rule{
	{Timeline, []string{"when", "year", "timeline"}},
	{Person, []string{"who", "person"}},
	{Location, []string{"where", "location"}},
}

// Classify returns the intent for a query. Empty input maps to General.
func Classify(query string) Intent {
	q := strings.ToLower(query)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(q, kw) {
				return r.intent
			}
		}
	}
	return General
}

// IsValid checks if the intent is one of the supported values.
func (i Intent) IsValid() bool {
	return i == Timeline || i == Person || i == Location || i == General
}

// Corpora returns the corpora worth querying for this intent, in merge order.
func (i Intent) Corpora() []domain.CorpusName {
	switch i {
	case Timeline:
		return []domain.CorpusName{domain.CorpusTimeline}
	case Person, Location:
		return []domain.CorpusName{domain.CorpusLore}
	default:
		return []domain.CorpusName{domain.CorpusLore, domain.CorpusSlang}
	}
}

// MatchesType reports whether a document type tag earns the type boost for this intent.
// General matches nothing.
func (i Intent) MatchesType(tag string) bool {
	switch i {
	case Timeline:
		return tag == domain.TypeTimeline
	case Person:
		return tag == domain.TypeCharacter
	case Location:
		return tag == domain.TypeLocation
	default:
		return false
	}
}
