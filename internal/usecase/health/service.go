package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure; queries still run.
	Degraded Status = "degraded"
	// Unhealthy indicates no corpus can serve queries.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	cache     CachePinger
	embedding EmbeddingChecker
	corpora   CorpusLister
}

// New creates a Service. cache and embedding can be nil.
func New(cache CachePinger, embedding EmbeddingChecker, corpora CorpusLister) *Service {
	return &Service{cache: cache, embedding: embedding, corpora: corpora}
}

// Check runs health checks against all components. Each configured corpus
// gets a "corpus:<name>" check.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if s.cache != nil {
		checks["cache"] = result(s.cache.Ping(ctx))
	}
	if s.embedding != nil {
		checks["embedding"] = result(s.embedding.HealthCheck(ctx))
	}

	loaded := 0
	for _, st := range s.corpora.Statuses() {
		if st.Loaded {
			loaded++
			checks["corpus:"+string(st.Corpus)] = CheckOK
		} else {
			checks["corpus:"+string(st.Corpus)] = CheckError
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if loaded == 0 {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
