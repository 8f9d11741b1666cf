package domain

// CorpusName identifies a document store + vector index pair.
type CorpusName string

const (
	// CorpusLore holds general lore articles.
	CorpusLore CorpusName = "lore"
	// CorpusTimeline holds dated events.
	CorpusTimeline CorpusName = "timeline"
	// CorpusSlang holds street slang definitions.
	CorpusSlang CorpusName = "slang"
)

// KnownCorpora lists every corpus the service can route to, in routing order.
var KnownCorpora = []CorpusName{CorpusLore, CorpusTimeline, CorpusSlang}

// IsValid reports whether the name is one of the known corpora.
func (c CorpusName) IsValid() bool {
	return c == CorpusLore || c == CorpusTimeline || c == CorpusSlang
}

// DefaultTypeTag returns the tag assigned to documents that were built without one.
func (c CorpusName) DefaultTypeTag() string {
	if c == CorpusTimeline {
		return TypeTimeline
	}
	return TypeConcept
}

// Document type tags produced by the offline classifier.
const (
	TypeCharacter    = "character"
	TypeLocation     = "location"
	TypeConcept      = "concept"
	TypeOrganization = "organization"
	TypeTimeline     = "timeline"
)
