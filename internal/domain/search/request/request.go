package request

import (
	"fmt"
	"strings"

	"github.com/nightcity/oracle/internal/domain"
)

// Query parameter limits.
const (
	// MaxQueryLength is the maximum allowed query length in bytes.
	MaxQueryLength = 4096
	// DefaultLimit is the reference result cap.
	DefaultLimit = 4
	// MaxLimit is the largest accepted result cap; larger limits are clamped.
	MaxLimit = 20
)

// Request is a validated query.
type Request struct {
	text    string
	corpora []domain.CorpusName
	limit   int
}

// New validates and normalizes query parameters.
// corpora overrides intent routing when non-empty; duplicates are dropped.
// limit <= 0 selects DefaultLimit, larger values are clamped to MaxLimit.
func New(text string, corpora []domain.CorpusName, limit int) (Request, error) {
	if strings.TrimSpace(text) == "" {
		return Request{}, fmt.Errorf("%w: query is required", domain.ErrInvalidQuery)
	}
	if len(text) > MaxQueryLength {
		return Request{}, fmt.Errorf("%w: query too long (max %d bytes)", domain.ErrInvalidQuery, MaxQueryLength)
	}

	var override []domain.CorpusName
	seen := make(map[domain.CorpusName]bool, len(corpora))
	for _, c := range corpora {
		if !c.IsValid() {
			return Request{}, fmt.Errorf("%w: unknown corpus %q", domain.ErrInvalidQuery, c)
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		override = append(override, c)
	}

	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return Request{text: text, corpora: override, limit: limit}, nil
}

// Text returns the raw query text.
func (r *Request) Text() string { return r.text }

// Corpora returns the corpus override, nil when routing follows the intent.
func (r *Request) Corpora() []domain.CorpusName { return r.corpora }

// Limit returns the maximum number of results.
func (r *Request) Limit() int { return r.limit }
