package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "segmenter_http_requests_total",
			Help: "Total number of HTTP requests handled",
		},
		[]string{"method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "segmenter_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// Segment run metrics
	SegmentRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "segmenter_segment_runs_total",
			Help: "Total number of segment runs by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	SegmentRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "segmenter_segment_run_duration_seconds",
			Help:    "Duration of pipeline execution in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	SegmentEventJoinsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "segmenter_event_joins_total",
			Help: "Total number of pipelines that joined the events collection",
		},
	)

	// Option catalog metrics
	OptionLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "segmenter_option_loads_total",
			Help: "Total number of option catalog loads by source",
		},
		[]string{"source"},
	)

	OptionLoadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "segmenter_option_load_duration_seconds",
			Help:    "Duration of a full option catalog fetch from the store",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Messaging metrics
	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "segmenter_nats_jobs_total",
			Help: "Total number of segment jobs received over NATS",
		},
		[]string{"outcome"},
	)
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
	SourceCache    = "cache"
	SourceStore    = "store"
)

// ObserveHTTP records one completed HTTP request.
func ObserveHTTP(r *http.Request, status int, elapsed time.Duration) {
	HTTPRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(r.Method).Observe(elapsed.Seconds())
}
