package snapshot

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"os"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/nightcity/oracle/internal/domain"
	"github.com/nightcity/oracle/internal/domain/document"
	"github.com/nightcity/oracle/internal/vectorindex"
)

// Schema is the table layout a SQLite snapshot must provide.
// entities holds a JSON array of strings; embedding holds little-endian float32s.
const Schema = `
CREATE TABLE IF NOT EXISTS documents (
	position  INTEGER PRIMARY KEY,
	id        TEXT NOT NULL UNIQUE,
	title     TEXT NOT NULL,
	summary   TEXT NOT NULL DEFAULT '',
	type_tag  TEXT NOT NULL DEFAULT '',
	entities  TEXT NOT NULL DEFAULT '[]',
	embedding BLOB NOT NULL
);`

// readOnlyDSN builds a file: URI so paths containing '?' or '#' stay intact.
func readOnlyDSN(path string) string {
	u := url.URL{Scheme: "file", Opaque: (&url.URL{Path: path}).EscapedPath(), RawQuery: "mode=ro"}
	return u.String()
}

func loadSQLite(ctx context.Context, src Source) (*Snapshot, error) {
	if _, err := os.Stat(src.Path); err != nil {
		return nil, fmt.Errorf("corpus %s: %w", src.Corpus, err)
	}

	db, err := sql.Open("sqlite", readOnlyDSN(src.Path))
	if err != nil {
		return nil, fmt.Errorf("corpus %s: open %s: %w", src.Corpus, src.Path, err)
	}
	defer func() { _ = db.Close() }()

	rows, err := db.QueryContext(ctx,
		`SELECT id, title, summary, type_tag, entities, embedding FROM documents ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("corpus %s: query documents: %w", src.Corpus, err)
	}
	defer func() { _ = rows.Close() }()

	var (
		records []document.Record
		data    []float32
		dim     int
	)
	for rows.Next() {
		var (
			id, title, summary, tag, entitiesJSON string
			blob                                  []byte
		)
		if err := rows.Scan(&id, &title, &summary, &tag, &entitiesJSON, &blob); err != nil {
			return nil, fmt.Errorf("corpus %s: scan: %w", src.Corpus, err)
		}

		var entities []string
		if entitiesJSON != "" {
			if err := json.Unmarshal([]byte(entitiesJSON), &entities); err != nil {
				return nil, fmt.Errorf("corpus %s: document %q entities: %w: %w",
					src.Corpus, id, domain.ErrMalformedSnapshot, err)
			}
		}
		if tag == "" {
			tag = src.Corpus.DefaultTypeTag()
		}

		vec, err := decodeEmbedding(blob)
		if err != nil {
			return nil, fmt.Errorf("corpus %s: document %q: %w", src.Corpus, id, err)
		}
		if dim == 0 {
			dim = len(vec)
		}
		if len(vec) != dim {
			return nil, fmt.Errorf("corpus %s: document %q has dimension %d, want %d: %w",
				src.Corpus, id, len(vec), dim, domain.ErrSnapshotMismatch)
		}

		rec, err := document.New(id, title, summary, tag, entities)
		if err != nil {
			return nil, fmt.Errorf("corpus %s: %w: %w", src.Corpus, domain.ErrMalformedSnapshot, err)
		}
		records = append(records, rec)
		data = append(data, vec...)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("corpus %s: iterate documents: %w", src.Corpus, err)
	}

	if dim == 0 {
		// An empty table still needs a valid index; dimension is irrelevant with no rows.
		dim = domain.DefaultVectorConfig().Dimensions
	}
	index, err := vectorindex.NewFlatFromData(dim, data)
	if err != nil {
		return nil, fmt.Errorf("corpus %s: %w", src.Corpus, err)
	}
	return New(src.Corpus, records, index)
}

func decodeEmbedding(blob []byte) ([]float32, error) {
	if len(blob) == 0 || len(blob)%4 != 0 {
		return nil, fmt.Errorf("embedding blob of %d bytes: %w", len(blob), domain.ErrMalformedSnapshot)
	}
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec, nil
}
