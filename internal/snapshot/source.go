package snapshot

import (
	"context"
	"fmt"

	"github.com/nightcity/oracle/internal/domain"
)

// Kind selects the snapshot storage format.
type Kind string

const (
	// KindFile reads a records JSON document plus a raw vector blob.
	KindFile Kind = "file"
	// KindSQLite reads records and embeddings from one SQLite file.
	KindSQLite Kind = "sqlite"
)

// Source locates one corpus snapshot.
type Source struct {
	Corpus domain.CorpusName
	Kind   Kind

	// KindFile
	Records  string
	Vectors  string
	TypeMap  string // optional {title: tag} sidecar
	Entities string // optional {title: [{text, label}]} sidecar

	// KindSQLite
	Path string
}

// Load reads and validates a snapshot from its source.
func Load(ctx context.Context, src Source) (*Snapshot, error) {
	if !src.Corpus.IsValid() {
		return nil, fmt.Errorf("unknown corpus %q", src.Corpus)
	}
	switch src.Kind {
	case KindFile, "":
		return loadFile(ctx, src)
	case KindSQLite:
		return loadSQLite(ctx, src)
	default:
		return nil, fmt.Errorf("corpus %s: unknown snapshot kind %q", src.Corpus, src.Kind)
	}
}
