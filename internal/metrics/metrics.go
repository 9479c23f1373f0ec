package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Dashboard metrics
	fetchesTotal    *prometheus.CounterVec
	fetchDuration   *prometheus.HistogramVec
	recordsFetched  *prometheus.CounterVec
	staleResponses  *prometheus.CounterVec
	rangeCommits    prometheus.Counter
	exportsTotal    *prometheus.CounterVec
	briefingsTotal  *prometheus.CounterVec
	jobsActive      *prometheus.GaugeVec
	upstreamHealthy prometheus.Gauge
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	r.fetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridlens_fetches_total",
			Help: "Total number of upstream fetches per view and outcome",
		},
		[]string{"view", "outcome"},
	)
	r.fetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gridlens_fetch_duration_seconds",
			Help:    "Upstream fetch and aggregation duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"view"},
	)
	r.recordsFetched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridlens_records_fetched_total",
			Help: "Total number of raw upstream records aggregated",
		},
		[]string{"view"},
	)
	r.staleResponses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridlens_stale_responses_total",
			Help: "Responses discarded because a newer request was issued",
		},
		[]string{"view"},
	)
	r.rangeCommits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gridlens_range_commits_total",
			Help: "Total number of committed date range changes",
		},
	)
	r.exportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridlens_exports_total",
			Help: "Total number of snapshot exports",
		},
		[]string{"format", "status"},
	)
	r.briefingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridlens_briefings_total",
			Help: "Total number of LLM briefings",
		},
		[]string{"provider", "status"},
	)
	r.jobsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gridlens_jobs_active",
			Help: "Number of active jobs",
		},
		[]string{"type"},
	)
	r.upstreamHealthy = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gridlens_upstream_healthy",
			Help: "1 if the last analytics API health check succeeded",
		},
	)

	reg.MustRegister(r.fetchesTotal)
	reg.MustRegister(r.fetchDuration)
	reg.MustRegister(r.recordsFetched)
	reg.MustRegister(r.staleResponses)
	reg.MustRegister(r.rangeCommits)
	reg.MustRegister(r.exportsTotal)
	reg.MustRegister(r.briefingsTotal)
	reg.MustRegister(r.jobsActive)
	reg.MustRegister(r.upstreamHealthy)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordFetch records one completed view fetch.
// outcome is one of "ok", "empty" or "error".
func (r *Registry) RecordFetch(view, outcome string, duration float64, records int) {
	r.fetchesTotal.WithLabelValues(view, outcome).Inc()
	r.fetchDuration.WithLabelValues(view).Observe(duration)
	if records > 0 {
		r.recordsFetched.WithLabelValues(view).Add(float64(records))
	}
}

// RecordStaleResponse records a response dropped for a superseded request.
func (r *Registry) RecordStaleResponse(view string) {
	r.staleResponses.WithLabelValues(view).Inc()
}

// RecordCommit records a committed date range.
func (r *Registry) RecordCommit() {
	r.rangeCommits.Inc()
}

// RecordExport records a snapshot export.
func (r *Registry) RecordExport(format, status string) {
	r.exportsTotal.WithLabelValues(format, status).Inc()
}

// RecordBriefing records an LLM briefing.
func (r *Registry) RecordBriefing(provider, status string) {
	r.briefingsTotal.WithLabelValues(provider, status).Inc()
}

// SetJobsActive sets the number of active jobs of a type.
func (r *Registry) SetJobsActive(jobType string, count int) {
	r.jobsActive.WithLabelValues(jobType).Set(float64(count))
}

// SetUpstreamHealthy records the result of an upstream health check.
func (r *Registry) SetUpstreamHealthy(ok bool) {
	if ok {
		r.upstreamHealthy.Set(1)
		return
	}
	r.upstreamHealthy.Set(0)
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
