package metrics

import "github.com/prometheus/client_golang/prometheus"

// Upstream model providers. Labels: provider, model and where noted status or error_type.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "embedding",
		Name:      "requests_total",
		Help:      "Embedding API calls by status (success/error).",
	}, []string{"provider", "model", "status"})

	EmbeddingRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "embedding",
		Name:      "request_duration_seconds",
		Help:      "Latency of successful embedding API calls.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"provider", "model"})

	// EmbeddingTokensTotal counts tokens reported by the provider, type is "prompt" or "total".
	EmbeddingTokensTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "embedding",
		Name:      "tokens_total",
		Help:      "Embedding tokens billed by the provider.",
	}, []string{"provider", "model", "type"})

	EmbeddingErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "embedding",
		Name:      "errors_total",
		Help:      "Embedding failures by classified error type.",
	}, []string{"provider", "model", "error_type"})

	// EmbeddingCacheTotal has a single label, result: hit or miss.
	EmbeddingCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "embedding",
		Name:      "cache_total",
		Help:      "Embedding cache lookups by result.",
	}, []string{"result"})

	GenerationStreamsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "generation",
		Name:      "streams_total",
		Help:      "Completion streams by final status (success/error).",
	}, []string{"provider", "model", "status"})

	GenerationTimeToFirstToken = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "generation",
		Name:      "time_to_first_token_seconds",
		Help:      "Delay between a completion request and its first streamed segment.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
	}, []string{"provider", "model"})

	GenerationErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "generation",
		Name:      "errors_total",
		Help:      "Generation failures by classified error type.",
	}, []string{"provider", "model", "error_type"})
)

// IngestChunksTotal counts stored chunks per source kind (text, pdf, url, vtt).
var IngestChunksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ingest",
	Name:      "chunks_total",
	Help:      "Chunks written by ingestion, by source kind.",
}, []string{"kind"})
