package oracle

import "time"

// Answer is the ranked support for one question.
type Answer struct {
	// Intent is one of "timeline", "person", "location", "general".
	Intent  string
	Results []Result
}

// Result is one supporting document. Lower scores rank higher.
type Result struct {
	Title   string
	Summary string
	Score   float64
}

// CorpusStatus describes one configured corpus.
type CorpusStatus struct {
	Name       string
	Loaded     bool
	Documents  int
	Dimensions int
	LoadedAt   time.Time
}

// HealthStatus represents the aggregated health.
type HealthStatus struct {
	Status string            // "ok", "degraded", "error"
	Checks map[string]string // component → "ok"/"error"
}
