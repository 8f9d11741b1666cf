package retrieval

import "github.com/nightcity/oracle/internal/domain/search/result"

// Assemble projects ranked candidates to caller-facing results, keeping order.
func Assemble(scored []Scored) []result.Ranked {
	out := make([]result.Ranked, 0, len(scored))
	for i := range scored {
		rec := &scored[i].Record
		out = append(out, result.New(rec.Title(), rec.Summary(), scored[i].Final))
	}
	return out
}
