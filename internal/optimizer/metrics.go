package optimizer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// tripDuration tracks end-to-end optimization time.
	tripDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "optimizer_trip_duration_seconds",
		Help:    "End-to-end trip optimization duration",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	// tripErrors tracks failed optimizations by error kind.
	tripErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "optimizer_trip_errors_total",
		Help: "Total failed trip optimizations by error kind",
	}, []string{"kind"})

	// strategyDuration tracks per-strategy computation time.
	strategyDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "optimizer_strategy_duration_seconds",
		Help:    "Strategy computation duration by strategy",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"strategy"})

	// listSize tracks the distribution of shopping list lengths.
	listSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "optimizer_list_items_count",
		Help:    "Number of items in trip requests",
		Buckets: []float64{1, 5, 10, 20, 50, 100},
	})

	// candidateStores tracks how many stores survive the radius and
	// chain filters.
	candidateStores = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "optimizer_candidate_stores_count",
		Help:    "Number of candidate stores per trip",
		Buckets: []float64{1, 2, 5, 10, 20, 50},
	})

	// matchOutcomes tracks list entries by match outcome.
	matchOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "optimizer_item_match_outcomes_total",
		Help: "Total list entries by match outcome",
	}, []string{"outcome"}) // matched | unmatched
)

// MetricsRecorder records optimizer metrics.
type MetricsRecorder struct{}

// NewMetricsRecorder creates a metrics recorder.
func NewMetricsRecorder() *MetricsRecorder {
	return &MetricsRecorder{}
}

// RecordTrip records one optimization attempt.
func (m *MetricsRecorder) RecordTrip(duration time.Duration, errKind string) {
	tripDuration.Observe(duration.Seconds())
	if errKind != "" {
		tripErrors.WithLabelValues(errKind).Inc()
	}
}

// RecordStrategyDuration records one strategy computation.
func (m *MetricsRecorder) RecordStrategyDuration(strategy string, duration time.Duration) {
	strategyDuration.WithLabelValues(strategy).Observe(duration.Seconds())
}

// RecordListSize records the shopping list length of a request.
func (m *MetricsRecorder) RecordListSize(n int) {
	listSize.Observe(float64(n))
}

// RecordCandidateStores records the filtered candidate store count.
func (m *MetricsRecorder) RecordCandidateStores(n int) {
	candidateStores.Observe(float64(n))
}

// RecordMatchOutcomes records how a request's list entries resolved.
func (m *MetricsRecorder) RecordMatchOutcomes(matched, unmatched int) {
	if matched > 0 {
		matchOutcomes.WithLabelValues("matched").Add(float64(matched))
	}
	if unmatched > 0 {
		matchOutcomes.WithLabelValues("unmatched").Add(float64(unmatched))
	}
}
