package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	domain "github.com/oshokin/update-server/internal/domain/release"
)

const namespace = "update_server"

// Result label values.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// EvaluateLatencyBuckets spans 100us to 5s.
var EvaluateLatencyBuckets = []float64{
	0.0001, 0.0005, 0.001, 0.002, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0,
}

// Recorder owns the server's collectors.
type Recorder struct {
	registry         *prometheus.Registry
	decisions        *prometheus.CounterVec
	evaluateDuration prometheus.Histogram
	registryWrites   *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
}

// New creates a Recorder with Go and process collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decisions_total",
				Help:      "Counter of update check outcomes by reason or error category.",
			},
			[]string{"outcome"},
		),
		evaluateDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "evaluate_duration_seconds",
				Help:      "Duration of update check evaluations.",
				Buckets:   EvaluateLatencyBuckets,
			},
		),
		registryWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "registry_writes_total",
				Help:      "Counter of release registry writes by operation and result.",
			},
			[]string{"operation", "result"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Counter of REST requests by method, route and status code.",
			},
			[]string{"method", "route", "code"},
		),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.decisions,
		r.evaluateDuration,
		r.registryWrites,
		r.httpRequests,
	)

	return r
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// ObserveDecision records an evaluation. Errors are labeled by category.
func (r *Recorder) ObserveDecision(reason domain.Reason, err error, elapsed time.Duration) {
	outcome := string(reason)
	if err != nil {
		outcome = "error_" + domain.Classify(err).String()
	}

	r.decisions.WithLabelValues(outcome).Inc()
	r.evaluateDuration.Observe(elapsed.Seconds())
}

// ObserveRegistryWrite records a registry write.
func (r *Recorder) ObserveRegistryWrite(operation string, err error) {
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}

	r.registryWrites.WithLabelValues(operation, result).Inc()
}

// ObserveHTTPRequest records a served REST request.
func (r *Recorder) ObserveHTTPRequest(method, route string, code int) {
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
}
