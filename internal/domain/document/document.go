package document

import (
	"fmt"

	"github.com/nightcity/oracle/internal/domain"
)

// Record is a read-only corpus document (immutable value object).
type Record struct {
	id       string
	title    string
	summary  string
	entities domain.EntitySet
	typeTag  string
}

// New validates and creates a Record.
// ID and title are required; entities are normalized; typeTag is lowercased as stored.
func New(id, title, summary, typeTag string, entities []string) (Record, error) {
	if id == "" {
		return Record{}, fmt.Errorf("document ID is required")
	}
	if title == "" {
		return Record{}, fmt.Errorf("document %q: title is required", id)
	}
	return Record{
		id:       id,
		title:    title,
		summary:  summary,
		entities: domain.NewEntitySet(entities...),
		typeTag:  domain.NormalizeEntity(typeTag),
	}, nil
}

// ID returns the identifier, unique within a corpus.
func (r *Record) ID() string { return r.id }

// Title returns the document title.
func (r *Record) Title() string { return r.title }

// Summary returns the document text handed to the caller.
func (r *Record) Summary() string { return r.summary }

// Entities returns the precomputed entity set. Callers must not mutate it.
func (r *Record) Entities() domain.EntitySet { return r.entities }

// TypeTag returns the coarse document category (character, location, ...).
func (r *Record) TypeTag() string { return r.typeTag }
