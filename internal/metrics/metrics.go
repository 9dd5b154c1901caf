// Package metrics holds the Prometheus collectors shared by features, the
// periodic-table repository and the mock backend.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	featureActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jmv",
			Subsystem: "feature",
			Name:      "actions_total",
			Help:      "Actions offered to a feature, by outcome (accepted|rejected).",
		},
		[]string{"feature", "outcome"},
	)

	featureTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jmv",
			Subsystem: "feature",
			Name:      "transitions_total",
			Help:      "State transitions published by a feature.",
		},
		[]string{"feature"},
	)

	featureFaults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jmv",
			Subsystem: "feature",
			Name:      "faults_total",
			Help:      "Faults reported to a feature's error handler.",
		},
		[]string{"feature", "kind"},
	)

	featureReduceDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jmv",
			Subsystem: "feature",
			Name:      "reduce_duration_seconds",
			Help:      "Duration of a single reduction.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 16), // 100µs to ~3s
		},
		[]string{"feature"},
	)

	repositoryRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jmv",
			Subsystem: "repository",
			Name:      "requests_total",
			Help:      "Repository interactions, by outcome (ok|fail).",
		},
		[]string{"repository", "outcome"},
	)

	repositoryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jmv",
			Subsystem: "repository",
			Name:      "request_duration_seconds",
			Help:      "Duration of repository interactions including retries.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"repository"},
	)

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "jmv",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jmv",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jmv",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "path"},
	)
)

func init() {
	Registry.MustRegister(
		featureActions,
		featureTransitions,
		featureFaults,
		featureReduceDuration,
		repositoryRequests,
		repositoryDuration,
		httpInFlight,
		httpRequests,
		httpDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordAction counts an action offered to a feature.
func RecordAction(feature string, accepted bool) {
	outcome := "rejected"
	if accepted {
		outcome = "accepted"
	}
	featureActions.WithLabelValues(feature, outcome).Inc()
}

// RecordTransition records a published transition and how long the
// reduction that produced it took.
func RecordTransition(feature string, duration time.Duration) {
	featureTransitions.WithLabelValues(feature).Inc()
	featureReduceDuration.WithLabelValues(feature).Observe(duration.Seconds())
}

// RecordFault counts a fault of the given kind.
func RecordFault(feature, kind string) {
	featureFaults.WithLabelValues(feature, kind).Inc()
}

// RecordRepositoryRequest records one repository interaction.
func RecordRepositoryRequest(repository string, duration time.Duration, ok bool) {
	if duration <= 0 {
		duration = time.Millisecond
	}
	outcome := "fail"
	if ok {
		outcome = "ok"
	}
	repositoryRequests.WithLabelValues(repository, outcome).Inc()
	repositoryDuration.WithLabelValues(repository).Observe(duration.Seconds())
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &StatusRecorder{ResponseWriter: w, Status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.Status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	})
}

// StatusRecorder captures the status code written by a handler.
type StatusRecorder struct {
	http.ResponseWriter
	Status int
}

func (r *StatusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

// canonicalPath keeps label cardinality bounded to the first path segment.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	first, _, _ := strings.Cut(trimmed, "/")
	return "/" + first
}
