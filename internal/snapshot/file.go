package snapshot

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/nightcity/oracle/internal/domain"
	"github.com/nightcity/oracle/internal/domain/document"
	"github.com/nightcity/oracle/internal/vectorindex"
)

// recordsFile mirrors the metadata written by the index builder:
// ids[i] and documents[i] describe vector row i.
type recordsFile struct {
	IDs       []string        `json:"ids"`
	Documents []documentEntry `json:"documents"`
}

type documentEntry struct {
	Title    string   `json:"title"`
	Summary  string   `json:"summary"`
	TypeTag  string   `json:"type_tag,omitempty"`
	Entities []string `json:"entities,omitempty"`
}

// entityEntry is one NER hit in the entities sidecar.
type entityEntry struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

// Header bounds; a blob must also be exactly as long as its header says.
const (
	maxVectorRows   = 1 << 24
	maxVectorDim    = 1 << 16
	vectorHeaderLen = 8
)

func loadFile(ctx context.Context, src Source) (*Snapshot, error) {
	var rf recordsFile
	if err := readJSON(src.Records, &rf); err != nil {
		return nil, fmt.Errorf("corpus %s: records: %w", src.Corpus, err)
	}
	if len(rf.IDs) != len(rf.Documents) {
		return nil, fmt.Errorf("corpus %s: %d ids, %d documents: %w",
			src.Corpus, len(rf.IDs), len(rf.Documents), domain.ErrMalformedSnapshot)
	}

	typeMap := map[string]string{}
	if src.TypeMap != "" {
		if err := readJSON(src.TypeMap, &typeMap); err != nil {
			return nil, fmt.Errorf("corpus %s: type map: %w", src.Corpus, err)
		}
	}
	entityMap := map[string][]entityEntry{}
	if src.Entities != "" {
		if err := readJSON(src.Entities, &entityMap); err != nil {
			return nil, fmt.Errorf("corpus %s: entities: %w", src.Corpus, err)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("corpus %s: %w", src.Corpus, err)
	}

	records := make([]document.Record, len(rf.Documents))
	for i, d := range rf.Documents {
		tag := d.TypeTag
		if tag == "" {
			tag = typeMap[d.Title]
		}
		if tag == "" {
			tag = src.Corpus.DefaultTypeTag()
		}
		entities := d.Entities
		if len(entities) == 0 {
			for _, e := range entityMap[d.Title] {
				entities = append(entities, e.Text)
			}
		}
		rec, err := document.New(rf.IDs[i], d.Title, d.Summary, tag, entities)
		if err != nil {
			return nil, fmt.Errorf("corpus %s: record %d: %w: %w", src.Corpus, i, domain.ErrMalformedSnapshot, err)
		}
		records[i] = rec
	}

	index, err := readVectors(src.Vectors)
	if err != nil {
		return nil, fmt.Errorf("corpus %s: vectors: %w", src.Corpus, err)
	}

	return New(src.Corpus, records, index)
}

func readJSON(path string, dst any) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("parse %s: %w: %w", path, domain.ErrMalformedSnapshot, err)
	}
	return nil
}

// readVectors decodes a blob of uint32 count, uint32 dim, then count*dim
// little-endian float32 values.
func readVectors(path string) (*vectorindex.Flat, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	r := bufio.NewReader(f)
	var header [2]uint32
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("header: %w: %w", domain.ErrMalformedSnapshot, err)
	}
	count, dim := int(header[0]), int(header[1])
	if dim == 0 || dim > maxVectorDim || count > maxVectorRows {
		return nil, fmt.Errorf("header count=%d dim=%d: %w", count, dim, domain.ErrMalformedSnapshot)
	}

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	want := uint64(vectorHeaderLen) + uint64(header[0])*uint64(header[1])*4
	if info.Size() < 0 || uint64(info.Size()) != want {
		return nil, fmt.Errorf("header count=%d dim=%d needs %d bytes, file has %d: %w",
			count, dim, want, info.Size(), domain.ErrMalformedSnapshot)
	}

	data := make([]float32, count*dim)
	if len(data) > 0 {
		if err := binary.Read(r, binary.LittleEndian, data); err != nil {
			return nil, fmt.Errorf("body: %w: %w", domain.ErrMalformedSnapshot, err)
		}
	}
	if _, err := r.ReadByte(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("trailing bytes after %d vectors: %w", count, domain.ErrMalformedSnapshot)
	}

	return vectorindex.NewFlatFromData(dim, data)
}

// WriteVectors encodes rows in the format readVectors expects.
func WriteVectors(w io.Writer, dim int, rows [][]float32) error {
	header := [2]uint32{uint32(len(rows)), uint32(dim)} //nolint:gosec // bounded by maxVectorRows on read
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range rows {
		if len(row) != dim {
			return fmt.Errorf("row %d: %w", i, domain.ErrDimensionMismatch)
		}
		if err := binary.Write(w, binary.LittleEndian, row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	return nil
}
