package result

// Ranked is a caller-facing search hit. It carries no corpus position or ID.
type Ranked struct {
	title   string
	summary string
	score   float64
}

// New creates a ranked result.
func New(title, summary string, score float64) Ranked {
	return Ranked{title: title, summary: summary, score: score}
}

// Title returns the document title.
func (r *Ranked) Title() string { return r.title }

// Summary returns the document summary used as generation context.
func (r *Ranked) Summary() string { return r.summary }

// Score returns the fused final score (lower is better).
func (r *Ranked) Score() float64 { return r.score }
