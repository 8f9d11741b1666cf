package chi

import "time"

// ErrorCode is a machine-readable error code in API responses.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest        ErrorCode = "bad_request"
	CodeValidationFailed  ErrorCode = "validation_failed"
	CodeUnauthorized      ErrorCode = "unauthorized"
	CodeCorpusUnavailable ErrorCode = "corpus_unavailable"
	CodeSnapshotInvalid   ErrorCode = "snapshot_invalid"
	CodeInternalError     ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// QueryRequest is the POST /v1/query body.
type QueryRequest struct {
	Query   string   `json:"query"`
	Corpora []string `json:"corpora,omitempty"`
	Limit   *int     `json:"limit,omitempty"`
}

// QueryResponse is the ranked answer to a query.
type QueryResponse struct {
	Intent  string       `json:"intent"`
	Results []ResultItem `json:"results"`
}

// ResultItem is one supporting document.
type ResultItem struct {
	Title   string  `json:"title"`
	Summary string  `json:"summary"`
	Score   float64 `json:"score"`
}

// CorpusItem describes one configured corpus.
type CorpusItem struct {
	Name       string     `json:"name"`
	Loaded     bool       `json:"loaded"`
	Documents  int        `json:"documents"`
	Dimensions int        `json:"dimensions,omitempty"`
	LoadedAt   *time.Time `json:"loaded_at,omitempty"`
}

// CorpusListResponse is the GET /v1/corpora body.
type CorpusListResponse struct {
	Items []CorpusItem `json:"items"`
}

// HealthResponse is the GET /health body.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
