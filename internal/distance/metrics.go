package distance

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// providerCalls tracks distance provider batch calls by outcome.
	providerCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "distance_provider_calls_total",
		Help: "Total distance matrix provider batch calls by result",
	}, []string{"result"})

	// matrixElements tracks resolved elements by source.
	matrixElements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "distance_matrix_elements_total",
		Help: "Total resolved distance matrix elements by source",
	}, []string{"source"})
)

func recordProviderCall(result string) {
	providerCalls.WithLabelValues(result).Inc()
}

func recordMatrixElements(real, fallback int) {
	if real > 0 {
		matrixElements.WithLabelValues(string(SourceReal)).Add(float64(real))
	}
	if fallback > 0 {
		matrixElements.WithLabelValues(string(SourceFallback)).Add(float64(fallback))
	}
}
