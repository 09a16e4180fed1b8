package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for upstream calls, caching and analyses.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	UpstreamRequests *prometheus.CounterVec   // labels: upstream, outcome
	UpstreamLatency  *prometheus.HistogramVec // labels: upstream
	CacheLookups     *prometheus.CounterVec   // labels: result=hit|miss|error
	Analyses         *prometheus.CounterVec   // labels: data_source
	AnalysisDuration prometheus.Histogram
	Degraded         *prometheus.CounterVec // labels: indicator

	gatherer prometheus.Gatherer
}

// NewMetrics creates and registers all collectors. A nil registry uses a fresh one.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nova_upstream_requests_total",
			Help: "Upstream HTTP requests by outcome",
		}, []string{"upstream", "outcome"}),
		UpstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nova_upstream_request_duration_seconds",
			Help:    "Upstream HTTP request latency including retries",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"upstream"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nova_cache_lookups_total",
			Help: "Report cache lookups by result",
		}, []string{"result"}),
		Analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nova_analyses_total",
			Help: "Token analyses by resolved data source",
		}, []string{"data_source"}),
		AnalysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "nova_analysis_duration_seconds",
			Help:    "End-to-end token analysis latency",
			Buckets: prometheus.DefBuckets,
		}),
		Degraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nova_degraded_indicators_total",
			Help: "Indicators that fell back to defaults for lack of history",
		}, []string{"indicator"}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.UpstreamRequests,
		m.UpstreamLatency,
		m.CacheLookups,
		m.Analyses,
		m.AnalysisDuration,
		m.Degraded,
	)

	return m
}

// ObserveUpstream records one upstream call
func (m *Metrics) ObserveUpstream(upstream string, started time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.UpstreamRequests.WithLabelValues(upstream, outcome).Inc()
	m.UpstreamLatency.WithLabelValues(upstream).Observe(time.Since(started).Seconds())
}

// ObserveCache records a cache lookup result
func (m *Metrics) ObserveCache(result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// ObserveAnalysis records a finished analysis
func (m *Metrics) ObserveAnalysis(source string, started time.Time, degraded []string) {
	if m == nil {
		return
	}
	m.Analyses.WithLabelValues(source).Inc()
	m.AnalysisDuration.Observe(time.Since(started).Seconds())
	for _, name := range degraded {
		m.Degraded.WithLabelValues(name).Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
