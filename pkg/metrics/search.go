package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Search query metrics, labelled by kind: exam, page, answer or comment.
var (
	SearchQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "examsearch",
			Name:      "search_query_duration_seconds",
			Help:      "Text index query duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"kind"},
	)

	SearchQueryErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "examsearch",
			Name:      "search_query_errors_total",
			Help:      "Total failed text index queries",
		},
		[]string{"kind", "error_type"}, // "timeout" / "error"
	)

	SearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "examsearch",
			Name:      "searches_total",
			Help:      "Total search calls by outcome",
		},
		[]string{"transport", "outcome"}, // "ok" / "partial" / "failed" / "rejected"
	)
)

func init() {
	prometheus.MustRegister(SearchQueryDuration)
	prometheus.MustRegister(SearchQueryErrorsTotal)
	prometheus.MustRegister(SearchesTotal)
}

// SearchObserver records search.Service query timings.
type SearchObserver struct{}

func (SearchObserver) ObserveQuery(kind string, elapsed time.Duration, err error) {
	SearchQueryDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	if err == nil {
		return
	}
	errorType := "error"
	if errors.Is(err, context.DeadlineExceeded) {
		errorType = "timeout"
	}
	SearchQueryErrorsTotal.WithLabelValues(kind, errorType).Inc()
}
