package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "oracle"

// Retrieval pipeline metrics.
var (
	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Answered queries by intent and outcome",
		},
		[]string{"intent", "outcome"}, // outcome: results, empty, timeout, embedding_error
	)

	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "End-to-end retrieval pipeline duration",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"intent"},
	)

	CandidatesPerQuery = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "candidates_per_query",
			Help:      "Vector search candidates considered per query",
			Buckets:   []float64{0, 1, 2, 4, 7, 14, 21},
		},
	)

	CorpusSearchErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "corpus_search_errors_total",
			Help:      "Per-corpus searches that contributed nothing",
		},
		[]string{"corpus", "reason"},
	)

	CorpusDocuments = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "corpus_documents",
			Help:      "Documents in the live snapshot of each corpus",
		},
		[]string{"corpus"},
	)

	CorpusLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "corpus_loads_total",
			Help:      "Snapshot load attempts by corpus and status",
		},
		[]string{"corpus", "status"},
	)
)

var retrievalMetricsRegistered bool

// RegisterRetrievalMetrics registers retrieval metrics. Must be called once from main.
func RegisterRetrievalMetrics() {
	if retrievalMetricsRegistered {
		return
	}
	prometheus.MustRegister(
		QueriesTotal,
		QueryDuration,
		CandidatesPerQuery,
		CorpusSearchErrorsTotal,
		CorpusDocuments,
		CorpusLoadsTotal,
	)
	retrievalMetricsRegistered = true
}
