// Package metrics declares the Prometheus collectors of the vecrag server.
// Collectors are registered explicitly with Register, never from init.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "vecrag"

var registerOnce sync.Once

// Register adds every collector to the default registry. Repeated calls are no-ops.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequestDuration,
			httpRequestsTotal,
			EmbeddingRequestsTotal,
			EmbeddingRequestDuration,
			EmbeddingTokensTotal,
			EmbeddingErrorsTotal,
			EmbeddingCacheTotal,
			GenerationStreamsTotal,
			GenerationTimeToFirstToken,
			GenerationErrorsTotal,
			IngestChunksTotal,
		)
	})
}
