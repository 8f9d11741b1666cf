// Package chi exposes the query API over HTTP with a chi router.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nightcity/oracle/internal/domain"
	"github.com/nightcity/oracle/internal/domain/search/request"
	"github.com/nightcity/oracle/internal/logger"
	corpusuc "github.com/nightcity/oracle/internal/usecase/corpus"
	healthuc "github.com/nightcity/oracle/internal/usecase/health"
	retrievaluc "github.com/nightcity/oracle/internal/usecase/retrieval"
)

// maxBodyBytes caps POST bodies.
const maxBodyBytes = 64 << 10

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the query, corpus and health endpoints.
type Server struct {
	retrieval     *retrievaluc.Service
	corpora       *corpusuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	defaultLimit  int
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	retrieval *retrievaluc.Service,
	corpora *corpusuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		retrieval: retrieval,
		corpora:   corpora,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrCorpusUnavailable, http.StatusNotFound, CodeCorpusUnavailable),
		sentinelHandler(domain.ErrSnapshotMismatch, http.StatusUnprocessableEntity, CodeSnapshotInvalid),
		sentinelHandler(domain.ErrMalformedSnapshot, http.StatusUnprocessableEntity, CodeSnapshotInvalid),
		sentinelHandler(domain.ErrDimensionMismatch, http.StatusUnprocessableEntity, CodeSnapshotInvalid),
	}
	return s
}

// WithDefaultLimit sets the result cap used when a query gives no limit.
func (s *Server) WithDefaultLimit(n int) *Server {
	s.defaultLimit = n
	return s
}

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/v1", func(r chi.Router) {
		r.Get("/query", s.QueryGet)
		r.Post("/query", s.QueryPost)
		r.Get("/corpora", s.ListCorpora)
		r.Post("/corpora/{corpus}/reload", s.ReloadCorpus)
	})
}

// QueryGet handles GET /v1/query?q=&corpus=&limit=.
func (s *Server) QueryGet(w http.ResponseWriter, r *http.Request) {
	var (
		q       string
		corpora *[]string
		limit   *int
	)
	params := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, true, "q", params, &q); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid parameter q: "+err.Error())
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "corpus", params, &corpora); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid parameter corpus: "+err.Error())
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", params, &limit); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid parameter limit: "+err.Error())
		return
	}
	body := QueryRequest{Query: q, Limit: limit}
	if corpora != nil {
		body.Corpora = splitList(*corpora)
	}
	s.answer(w, r, body)
}

// splitList accepts both repeated and comma-separated values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// QueryPost handles POST /v1/query.
func (s *Server) QueryPost(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	s.answer(w, r, req)
}

func (s *Server) answer(w http.ResponseWriter, r *http.Request, body QueryRequest) {
	if body.Limit == nil && s.defaultLimit > 0 {
		limit := s.defaultLimit
		body.Limit = &limit
	}
	req, err := requestFromAPI(body)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	ans, err := s.retrieval.Answer(ctx, &req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]ResultItem, len(ans.Results))
	for i := range ans.Results {
		res := &ans.Results[i]
		items[i] = ResultItem{Title: res.Title(), Summary: res.Summary(), Score: res.Score()}
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, QueryResponse{Intent: string(ans.Intent), Results: items})
}

// ListCorpora handles GET /v1/corpora.
func (s *Server) ListCorpora(w http.ResponseWriter, _ *http.Request) {
	statuses := s.corpora.Statuses()
	items := make([]CorpusItem, len(statuses))
	for i, st := range statuses {
		items[i] = CorpusItem{
			Name:       string(st.Corpus),
			Loaded:     st.Loaded,
			Documents:  st.Documents,
			Dimensions: st.Dimension,
		}
		if st.Loaded {
			at := st.LoadedAt.UTC()
			items[i].LoadedAt = &at
		}
	}
	writeJSON(w, http.StatusOK, CorpusListResponse{Items: items})
}

// ReloadCorpus handles POST /v1/corpora/{corpus}/reload.
func (s *Server) ReloadCorpus(w http.ResponseWriter, r *http.Request) {
	name := domain.CorpusName(chi.URLParam(r, "corpus"))
	if !name.IsValid() {
		writeError(w, http.StatusNotFound, CodeCorpusUnavailable, fmt.Sprintf("unknown corpus %q", name))
		return
	}
	if err := s.corpora.Reload(r.Context(), name); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, HealthResponse{Status: string(report.Status), Checks: checks})
}

func requestFromAPI(body QueryRequest) (request.Request, error) {
	corpora := make([]domain.CorpusName, len(body.Corpora))
	for i, c := range body.Corpora {
		corpora[i] = domain.CorpusName(c)
	}
	limit := 0
	if body.Limit != nil {
		if *body.Limit <= 0 {
			return request.Request{}, fmt.Errorf("limit must be positive: %w", domain.ErrInvalidQuery)
		}
		limit = *body.Limit
	}
	req, err := request.New(body.Query, corpora, limit)
	if err != nil {
		return request.Request{}, fmt.Errorf("build query request: %w", err)
	}
	return req, nil
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage != nil && usage.Used {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// Validation errors carry their full message; the rest expose only the sentinel text.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		if status == http.StatusBadRequest {
			msg = err.Error()
		}
		writeError(w, status, code, msg)
		return true
	}
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidQuery,
		domain.ErrCorpusUnavailable,
		domain.ErrSnapshotMismatch,
		domain.ErrMalformedSnapshot,
		domain.ErrDimensionMismatch,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	if errors.Is(err, context.Canceled) {
		log.Debug("Client went away", zap.Error(err))
		return
	}
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
